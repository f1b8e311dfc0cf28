package status

type (
	Code   uint16
	Status string
)

// HTTP status codes as registered with IANA.
// See: https://www.iana.org/assignments/http-status-codes/http-status-codes.xhtml
const (
	Continue           Code = 100
	SwitchingProtocols Code = 101

	OK             Code = 200
	Created        Code = 201
	Accepted       Code = 202
	NoContent      Code = 204
	PartialContent Code = 206

	MovedPermanently  Code = 301
	Found             Code = 302
	NotModified       Code = 304
	TemporaryRedirect Code = 307
	PermanentRedirect Code = 308

	BadRequest                  Code = 400
	Unauthorized                Code = 401
	Forbidden                   Code = 403
	NotFound                    Code = 404
	MethodNotAllowed            Code = 405
	NotAcceptable               Code = 406
	RequestTimeout              Code = 408
	Conflict                    Code = 409
	Gone                        Code = 410
	LengthRequired              Code = 411
	RequestEntityTooLarge       Code = 413
	RequestURITooLong           Code = 414
	UnsupportedMediaType        Code = 415
	ExpectationFailed           Code = 417
	UnprocessableEntity         Code = 422
	TooManyRequests             Code = 429
	RequestHeaderFieldsTooLarge Code = 431

	InternalServerError     Code = 500
	NotImplemented          Code = 501
	BadGateway              Code = 502
	ServiceUnavailable      Code = 503
	GatewayTimeout          Code = 504
	HTTPVersionNotSupported Code = 505
)

// Text returns a text for the HTTP status code. It returns the empty
// string if the code is unknown.
func Text(code Code) Status {
	switch code {
	case Continue:
		return "Continue"
	case SwitchingProtocols:
		return "Switching Protocols"
	case OK:
		return "OK"
	case Created:
		return "Created"
	case Accepted:
		return "Accepted"
	case NoContent:
		return "No Content"
	case PartialContent:
		return "Partial Content"
	case MovedPermanently:
		return "Moved Permanently"
	case Found:
		return "Found"
	case NotModified:
		return "Not Modified"
	case TemporaryRedirect:
		return "Temporary Redirect"
	case PermanentRedirect:
		return "Permanent Redirect"
	case BadRequest:
		return "Bad Request"
	case Unauthorized:
		return "Unauthorized"
	case Forbidden:
		return "Forbidden"
	case NotFound:
		return "Not Found"
	case MethodNotAllowed:
		return "Method Not Allowed"
	case NotAcceptable:
		return "Not Acceptable"
	case RequestTimeout:
		return "Request Timeout"
	case Conflict:
		return "Conflict"
	case Gone:
		return "Gone"
	case LengthRequired:
		return "Length Required"
	case RequestEntityTooLarge:
		return "Request Entity Too Large"
	case RequestURITooLong:
		return "Request URI Too Long"
	case UnsupportedMediaType:
		return "Unsupported Media Type"
	case ExpectationFailed:
		return "Expectation Failed"
	case UnprocessableEntity:
		return "Unprocessable Entity"
	case TooManyRequests:
		return "Too Many Requests"
	case RequestHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case InternalServerError:
		return "Internal Server Error"
	case NotImplemented:
		return "Not Implemented"
	case BadGateway:
		return "Bad Gateway"
	case ServiceUnavailable:
		return "Service Unavailable"
	case GatewayTimeout:
		return "Gateway Timeout"
	case HTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
