//go:build !linux

package sendfile

import (
	"net"
	"os"
)

// To reports handled == false on platforms without a wired sendfile path,
// leaving the transfer to the caller's buffered fallback.
func To(conn net.Conn, src *os.File, size int64) (handled bool, err error) {
	return false, nil
}
