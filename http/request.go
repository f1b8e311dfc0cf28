package http

import (
	"net"
	"strings"

	"github.com/indigo-web/utils/uf"
	jsoniter "github.com/json-iterator/go"
	"github.com/rabbitson87/atomic-http/herd"
	"github.com/rabbitson87/atomic-http/http/form"
	"github.com/rabbitson87/atomic-http/http/mime"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/formdata"
	"github.com/rabbitson87/atomic-http/kv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is a parsed HTTP request. Method, Target, Proto, header names and
// values, and the body are views into the connection's arena-backed buffer:
// nothing is copied out of it, and none of these may be retained past the
// handler's return. Accessors guard against the latter by comparing the
// arena's generation against the one the request was stamped with.
type Request struct {
	Method string
	Target string
	Proto  string

	Headers       *kv.Storage
	ContentLength int
	ContentType   string
	Chunked       bool

	Remote net.Addr

	raw  []byte
	body []byte

	arena *herd.Arena
	gen   uint64
}

func NewRequest(remote net.Addr) *Request {
	return &Request{
		Headers: kv.NewPrealloc(8),
		Remote:  remote,
	}
}

// Attach binds the request to the framed message memory and stamps it with
// the current arena generation.
func (r *Request) Attach(arena *herd.Arena, raw, body []byte) {
	r.raw = raw
	r.body = body
	r.arena = arena
	if arena != nil {
		r.gen = arena.Generation()
	}
}

// Body returns a view of the request body. For chunked requests the chunk
// payloads are already glued together, so the view is always contiguous.
func (r *Request) Body() []byte {
	r.ensureLive()
	return r.body
}

// BodyString returns the body as a string view, still backed by arena memory.
func (r *Request) BodyString() string {
	return uf.B2S(r.Body())
}

// Raw returns the complete framed message bytes, head included.
func (r *Request) Raw() []byte {
	r.ensureLive()
	return r.raw
}

// JSON decodes the request body into model.
func (r *Request) JSON(model any) error {
	return json.Unmarshal(r.Body(), model)
}

// IsMultipart reports whether the request declares a multipart/form-data
// body.
func (r *Request) IsMultipart() bool {
	return strings.HasPrefix(r.ContentType, mime.Multipart)
}

// Multipart decodes the body as multipart/form-data. The returned form
// entries are views with the same lifetime as the request itself.
func (r *Request) Multipart() (form.Form, error) {
	if !r.IsMultipart() {
		return nil, status.ErrNotMultipart
	}

	boundary, found := formdata.Boundary(r.ContentType)
	if !found {
		return nil, status.ErrMalformedMultipart
	}

	return formdata.Decode(r.Body(), boundary)
}

func (r *Request) ensureLive() {
	if r.arena != nil && r.arena.Generation() != r.gen {
		panic("BUG: request accessed after its connection arena was released")
	}
}
