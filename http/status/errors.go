package status

// CloseConnection is a pseudo-code for conditions which carry no meaningful
// HTTP status, because the peer is already gone or never said anything.
const CloseConnection Code = 0

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// ErrCode extracts the HTTP status code from an error. Errors which aren't
// HTTPError values (including wrapped ones without an HTTPError in the chain)
// map to 500.
func ErrCode(err error) Code {
	for err != nil {
		if http, ok := err.(HTTPError); ok {
			return http.Code
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}

		err = unwrapper.Unwrap()
	}

	return InternalServerError
}

var (
	// connection-level conditions. Terminal per-connection outcomes, never
	// answered with a response.
	ErrConnectionClosed = NewError(CloseConnection, "connection closed before a complete request was received")
	ErrNoData           = NewError(CloseConnection, "connection closed without sending any data")
	ErrTimedOut         = NewError(RequestTimeout, "read retry budget exhausted")
	ErrShutdown         = NewError(CloseConnection, "server is shutting down")

	// framing and parse-level conditions. The caller decides between an error
	// response and dropping the connection; they are never retried.
	ErrMalformedRequestLine = NewError(BadRequest, "malformed request line")
	ErrInvalidContentLength = NewError(BadRequest, "invalid content-length value")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	ErrMalformedMultipart   = NewError(BadRequest, "malformed multipart body")
	ErrFraming              = NewError(RequestEntityTooLarge, "declared body length exceeds the buffer limit")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrNotMultipart         = NewError(UnsupportedMediaType, "request body is not multipart form data")

	// resource-level conditions. Fatal for the single connection only.
	ErrArenaExhausted = NewError(InternalServerError, "connection arena memory exhausted")

	ErrBadRequest          = NewError(BadRequest, "bad request")
	ErrNotFound            = NewError(NotFound, "not found")
	ErrInternalServerError = NewError(InternalServerError, "internal server error")
)
