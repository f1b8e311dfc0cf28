package http

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/indigo-web/utils/uf"
	"github.com/rabbitson87/atomic-http/http/mime"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/buffer"
	"github.com/rabbitson87/atomic-http/kv"
)

// Response is built by the handler and flattened to the wire by the
// serializer. It starts out as 400 with an application/json content type, so
// a handler that never touches it produces a well-formed refusal.
//
// A structured body set via JSON is encoded straight into the connection's
// arena buffer and must not be retained past the handler's return.
type Response struct {
	code        status.Code
	contentType mime.MIME
	headers     *kv.Storage

	body []byte

	file       string
	fileSize   int64
	attachment bool

	root string
	buff *buffer.Buffer
}

// NewResponse builds the default response. buff receives JSON-encoded
// bodies; root anchors File paths.
func NewResponse(buff *buffer.Buffer, root string) *Response {
	return &Response{
		code:        status.BadRequest,
		contentType: mime.JSON,
		headers:     kv.NewPrealloc(4),
		root:        root,
		buff:        buff,
	}
}

// Code sets the response status code.
func (r *Response) Code(code status.Code) *Response {
	r.code = code
	return r
}

// ContentType overrides the Content-Type header value.
func (r *Response) ContentType(m mime.MIME) *Response {
	r.contentType = m
	return r
}

// Header appends a custom header. Content-Type and Content-Length are
// managed by the serializer and must not be set here.
func (r *Response) Header(key, value string) *Response {
	r.headers.Add(key, value)
	return r
}

// Bytes sets the response body. The slice is referenced, not copied.
func (r *Response) Bytes(body []byte) *Response {
	r.body = body
	r.file = ""
	return r
}

// String sets the response body from a string without copying it.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// JSON encodes model into the connection's arena buffer and uses the result
// as the body, with the content type set to application/json.
func (r *Response) JSON(model any) error {
	mark := r.buff.Len()

	stream := json.BorrowStream(r.buff)
	defer json.ReturnStream(stream)

	stream.WriteVal(model)
	if err := stream.Flush(); err != nil {
		return jsonError(err)
	}
	if stream.Error != nil {
		return jsonError(stream.Error)
	}

	r.body = r.buff.Bytes()[mark:]
	r.file = ""
	r.contentType = mime.JSON

	return nil
}

// File responds with the contents of a file resolved against the configured
// root. The status code is forced to 200, the content type follows the file
// extension, and zip archives are served as attachments. How the bytes
// travel (buffered, cached or sendfile) is the serializer's call.
func (r *Response) File(path string) error {
	resolved := filepath.Join(r.root, path)

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return status.ErrNotFound
	}

	r.file = resolved
	r.fileSize = info.Size()
	r.body = nil
	r.code = status.OK
	r.contentType = mime.ByExtension(resolved)
	r.attachment = strings.EqualFold(filepath.Ext(resolved), ".zip")

	return nil
}

// Error resets the response to an error template: the mapped status code
// (500 for codeless errors) and a JSON body carrying the message.
func (r *Response) Error(err error) *Response {
	code := status.ErrCode(err)
	if code == status.CloseConnection {
		code = status.InternalServerError
	}

	r.code = code
	_ = r.JSON(map[string]string{"error": err.Error()})

	return r
}

// jsonError reports arena memory pressure as its own condition: it is fatal
// for this connection only and never corrupts the herd.
func jsonError(err error) error {
	if errors.Is(err, buffer.ErrOverflow) {
		return status.ErrArenaExhausted
	}

	return err
}

// Fields is the serializer-facing view of a response.
type Fields struct {
	Code        status.Code
	ContentType mime.MIME
	Headers     *kv.Storage
	Body        []byte
	File        string
	FileSize    int64
	Attachment  bool
}

// Expose reveals the accumulated state for serialization.
func (r *Response) Expose() Fields {
	return Fields{
		Code:        r.code,
		ContentType: r.contentType,
		Headers:     r.headers,
		Body:        r.body,
		File:        r.file,
		FileSize:    r.fileSize,
		Attachment:  r.attachment,
	}
}
