package http1

import (
	"testing"
	"unsafe"

	"github.com/rabbitson87/atomic-http/http"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/stretchr/testify/require"
)

func frame(raw string) Message {
	data := []byte(raw)
	headerEnd := len(data)
	for i := 0; i+3 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' && data[i+2] == '\r' && data[i+3] == '\n' {
			headerEnd = i + 4
			break
		}
	}

	return Message{
		Raw:       data,
		HeaderEnd: headerEnd,
		Body:      data[headerEnd:],
	}
}

func TestParseRequestLine(t *testing.T) {
	t.Run("simple GET", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET /x HTTP/1.1\r\nHost: a\r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, "GET", request.Method)
		require.Equal(t, "/x", request.Target)
		require.Equal(t, "HTTP/1.1", request.Proto)
		require.Equal(t, "a", request.Headers.Value("Host"))
	})

	t.Run("target containing spaces", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET /a b c HTTP/1.1\r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, "/a b c", request.Target)
	})

	t.Run("no spaces at all", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("BADLINE\r\n\r\n"), request)
		require.ErrorIs(t, err, status.ErrMalformedRequestLine)
	})

	t.Run("single space", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET /x\r\n\r\n"), request)
		require.ErrorIs(t, err, status.ErrMalformedRequestLine)
	})

	t.Run("empty tokens", func(t *testing.T) {
		for _, raw := range []string{
			" /x HTTP/1.1\r\n\r\n",
			"GET  HTTP/1.1\r\n\r\n",
			"GET /x \r\n\r\n",
		} {
			request := http.NewRequest(nil)
			err := Parse(frame(raw), request)
			require.ErrorIs(t, err, status.ErrMalformedRequestLine, "%q", raw)
		}
	})
}

func TestParseHeaders(t *testing.T) {
	t.Run("case-insensitive lookup", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET / HTTP/1.1\r\nX-Custom-Header: value\r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, "value", request.Headers.Value("x-custom-header"))
		require.Equal(t, "value", request.Headers.Value("X-CUSTOM-HEADER"))
	})

	t.Run("value whitespace is trimmed", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET / HTTP/1.1\r\nHost:   spaced value  \r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, "spaced value", request.Headers.Value("Host"))
	})

	t.Run("colon inside the value", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET / HTTP/1.1\r\nHost: localhost:8080\r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, "localhost:8080", request.Headers.Value("Host"))
	})

	t.Run("line without a colon is skipped", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("GET / HTTP/1.1\r\ngarbage line\r\nHost: a\r\n\r\n"), request)
		require.NoError(t, err)
		require.Equal(t, 1, request.Headers.Len())
	})

	t.Run("content metadata", func(t *testing.T) {
		request := http.NewRequest(nil)
		err := Parse(frame("POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Type: application/json\r\n\r\nhello"), request)
		require.NoError(t, err)
		require.Equal(t, 5, request.ContentLength)
		require.Equal(t, "application/json", request.ContentType)
	})

	t.Run("invalid content-length", func(t *testing.T) {
		for _, value := range []string{"abc", "-5", "12x", ""} {
			request := http.NewRequest(nil)
			err := Parse(frame("POST / HTTP/1.1\r\nContent-Length: "+value+"\r\n\r\n"), request)
			require.ErrorIs(t, err, status.ErrInvalidContentLength, "%q", value)
		}
	})

	t.Run("overflowing content-length", func(t *testing.T) {
		// values past the integer range must fail loudly, not wrap into a
		// small positive length that frames a truncated body
		for _, value := range []string{
			"18446744073709551626", // 2^64 + 10, every prefix stays positive
			"9223372036854775808",  // 2^63
			"99999999999999999999999999",
		} {
			request := http.NewRequest(nil)
			err := Parse(frame("POST / HTTP/1.1\r\nContent-Length: "+value+"\r\n\r\n"), request)
			require.ErrorIs(t, err, status.ErrInvalidContentLength, "%q", value)
			require.Zero(t, request.ContentLength)
		}
	})
}

func TestParseZeroCopy(t *testing.T) {
	msg := frame("POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")
	request := http.NewRequest(nil)
	require.NoError(t, Parse(msg, request))
	request.Attach(nil, msg.Raw, msg.Body)

	// every produced view must point into the framed buffer, not at a copy
	base := uintptr(unsafe.Pointer(unsafe.SliceData(msg.Raw)))
	limit := base + uintptr(len(msg.Raw))
	for _, view := range []string{
		request.Method, request.Target, request.Proto,
		request.Headers.Expose()[0].Key, request.Headers.Expose()[0].Value,
	} {
		addr := uintptr(unsafe.Pointer(unsafe.StringData(view)))
		require.GreaterOrEqual(t, addr, base)
		require.Less(t, addr, limit)
	}

	require.Equal(t, unsafe.SliceData(msg.Raw[msg.HeaderEnd:]), unsafe.SliceData(request.Body()))
}

func TestParseDeterminism(t *testing.T) {
	raw := "GET /path HTTP/1.1\r\nHost: a\r\nAccept: */*\r\n\r\n"

	first := http.NewRequest(nil)
	require.NoError(t, Parse(frame(raw), first))
	second := http.NewRequest(nil)
	require.NoError(t, Parse(frame(raw), second))

	require.Equal(t, first.Method, second.Method)
	require.Equal(t, first.Target, second.Target)
	require.Equal(t, first.Headers.Expose(), second.Headers.Expose())
}
