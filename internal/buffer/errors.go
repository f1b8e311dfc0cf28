package buffer

import "errors"

// ErrOverflow is returned by Write when the buffer's size ceiling would be
// crossed.
var ErrOverflow = errors.New("buffer size limit exceeded")
