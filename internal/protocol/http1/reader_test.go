package http1

import (
	"io"
	"testing"
	"time"

	"github.com/rabbitson87/atomic-http/config"
	"github.com/rabbitson87/atomic-http/herd"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/buffer"
	"github.com/rabbitson87/atomic-http/internal/tcp"
	"github.com/stretchr/testify/require"
)

// timeoutError mimics the net.Error produced by an expired read deadline.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// scriptClient replays a fixed sequence of read outcomes: a []byte event
// yields data, an error event yields the error.
type scriptClient struct {
	tcp.StaticClient
	events []any
}

func newScriptClient(events ...any) *scriptClient {
	return &scriptClient{events: events}
}

func (s *scriptClient) Read() ([]byte, error) {
	if len(s.events) == 0 {
		return nil, io.EOF
	}

	event := s.events[0]
	s.events = s.events[1:]

	switch e := event.(type) {
	case []byte:
		return e, nil
	case error:
		return nil, e
	default:
		panic("unknown script event")
	}
}

func testHTTPConfig() config.HTTP {
	return config.HTTP{
		MaxBufferSize:      64 * 1024,
		ReadMaxRetry:       3,
		ReadRetryWindow:    time.Minute,
		IncompleteDumpSize: 64,
	}
}

func newTestReader(client tcp.Client, cfg config.HTTP) *Reader {
	return NewReader(client, buffer.New(herd.NewArena(4096), 256, cfg.MaxBufferSize), cfg)
}

func TestFetchComplete(t *testing.T) {
	t.Run("single read", func(t *testing.T) {
		r := newTestReader(newScriptClient([]byte("GET /x HTTP/1.1\r\nHost: a\r\n\r\n")), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.Equal(t, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n", string(msg.Raw))
		require.Equal(t, len(msg.Raw), msg.HeaderEnd)
		require.Empty(t, msg.Body)
	})

	t.Run("head split across reads", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("GET /x HT"),
			[]byte("TP/1.1\r\nHost:"),
			[]byte(" a\r\n\r"),
			[]byte("\n"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.Equal(t, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n", string(msg.Raw))
	})

	t.Run("body split across reads", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhel"),
			[]byte("lo wo"),
			[]byte("rld"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.Equal(t, "hello worl", string(msg.Body))
	})

	t.Run("bytes past the declared length are excluded", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi, and trailing junk"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.Equal(t, "hi", string(msg.Body))
	})
}

func TestFetchChunked(t *testing.T) {
	t.Run("decoded into a contiguous view", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"),
			[]byte("5\r\nhello\r\n"),
			[]byte("7\r\n, world\r\n"),
			[]byte("0\r\n\r\n"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.True(t, msg.Chunked)
		require.Equal(t, "hello, world", string(msg.Body))
	})

	t.Run("content-length takes precedence", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\nabc"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.False(t, msg.Chunked)
		require.Equal(t, "abc", string(msg.Body))
	})

	t.Run("malformed chunk", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\nhi\r\n"),
		), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrBadChunk)
	})
}

func TestFetchFraming(t *testing.T) {
	t.Run("declared length over the ceiling", func(t *testing.T) {
		cfg := testHTTPConfig()
		cfg.MaxBufferSize = 128

		// the declared length alone must reject the request, no body bytes
		// are ever read
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 4096\r\n\r\n"),
		), cfg)
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrFraming)
	})

	t.Run("declared length past the integer range", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 18446744073709551626\r\n\r\n"),
		), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrInvalidContentLength)
	})
}

func TestFetchConnectionErrors(t *testing.T) {
	t.Run("no data at all", func(t *testing.T) {
		r := newTestReader(newScriptClient(), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrNoData)
	})

	t.Run("closed before complete", func(t *testing.T) {
		r := newTestReader(newScriptClient([]byte("GET /x HTT")), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrConnectionClosed)
	})

	t.Run("close is not retried", func(t *testing.T) {
		client := newScriptClient([]byte("GET /x HTT"))
		r := newTestReader(client, testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrConnectionClosed)
		require.Empty(t, client.events)
	})
}

func TestFetchRetryBudget(t *testing.T) {
	t.Run("timeouts exhaust the count", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("GET /x HTT"),
			timeoutError{}, timeoutError{}, timeoutError{}, timeoutError{},
		), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrTimedOut)
		require.Contains(t, err.Error(), "GET /x HTT")
	})

	t.Run("zero-byte reads count as stalls", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("GET /x HTT"),
			[]byte{}, []byte{}, []byte{}, []byte{},
		), testHTTPConfig())
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrTimedOut)
	})

	t.Run("progress resets the count", func(t *testing.T) {
		r := newTestReader(newScriptClient(
			[]byte("GET /x "),
			timeoutError{}, timeoutError{}, timeoutError{},
			[]byte("HTTP/1.1\r\n"),
			timeoutError{}, timeoutError{}, timeoutError{},
			[]byte("\r\n"),
		), testHTTPConfig())
		msg, err := r.Fetch()
		require.NoError(t, err)
		require.Equal(t, "GET /x HTTP/1.1\r\n\r\n", string(msg.Raw))
	})

	t.Run("wall-clock window", func(t *testing.T) {
		cfg := testHTTPConfig()
		cfg.ReadMaxRetry = 1 << 30
		cfg.ReadRetryWindow = -time.Second

		r := newTestReader(newScriptClient(
			[]byte("GET /x HTT"),
			timeoutError{},
		), cfg)
		_, err := r.Fetch()
		require.ErrorIs(t, err, status.ErrTimedOut)
	})
}
