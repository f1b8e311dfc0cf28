package http1

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/indigo-web/chunkedbody"
	"github.com/rabbitson87/atomic-http/config"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/buffer"
	"github.com/rabbitson87/atomic-http/internal/tcp"
)

var crlfcrlf = []byte("\r\n\r\n")

// Message is a fully framed request held in the connection's buffer. Raw
// covers the head; Body is a contiguous view of the payload, which for
// chunked requests lives in a decoded region appended past the raw bytes.
type Message struct {
	Raw       []byte
	HeaderEnd int
	Body      []byte
	Chunked   bool
}

// Reader drives the socket until exactly one complete request sits in the
// buffer. It never busy-waits: a stalled peer costs one parked read with a
// deadline, and the stall budget is bounded both by a retry count and by
// wall-clock time, so arbitrarily small partial reads can't stretch it.
type Reader struct {
	client tcp.Client
	buff   *buffer.Buffer
	cfg    config.HTTP
}

func NewReader(client tcp.Client, buff *buffer.Buffer, cfg config.HTTP) *Reader {
	return &Reader{
		client: client,
		buff:   buff,
		cfg:    cfg,
	}
}

// Fetch accumulates reads until the message is complete and returns views
// into the buffer. All returned errors are terminal for the connection;
// those carrying an HTTP code may still be answered before closing.
func (r *Reader) Fetch() (Message, error) {
	var (
		st            = stateIdle
		headerEnd     = -1
		contentLength int
		chunked       bool

		// terminal-chunk detection runs incrementally over arriving bytes,
		// decoding happens in one pass once the terminal chunk is seen
		detect   *chunkedbody.Parser
		terminal bool

		scanFrom   int
		retries    int
		stallStart time.Time
		pending    error
	)

	for {
		if headerEnd < 0 {
			if idx := bytes.Index(r.buff.Bytes()[scanFrom:], crlfcrlf); idx >= 0 {
				headerEnd = scanFrom + idx + len(crlfcrlf)
				st = stateReadingBody

				var err error
				contentLength, chunked, err = framing(r.buff.Bytes()[:headerEnd])
				if err != nil {
					return Message{}, err
				}

				if headerEnd+contentLength > r.cfg.MaxBufferSize {
					return Message{}, status.ErrFraming
				}

				if chunked {
					detect = chunkedbody.NewParser(chunkedbody.DefaultSettings())
					terminal, err = seekTerminal(detect, r.buff.Bytes()[headerEnd:])
					if err != nil {
						return Message{}, err
					}
				}
			} else {
				// a CRLFCRLF may straddle read boundaries
				scanFrom = max(0, r.buff.Len()-len(crlfcrlf)+1)
			}
		}

		if headerEnd >= 0 {
			if !chunked && r.buff.Len() >= headerEnd+contentLength {
				st = stateComplete
				raw := r.buff.Bytes()[:headerEnd+contentLength]

				return Message{
					Raw:       raw,
					HeaderEnd: headerEnd,
					Body:      raw[headerEnd:],
				}, nil
			}

			if chunked && terminal {
				body, err := r.decodeChunked(headerEnd)
				if err != nil {
					return Message{}, err
				}
				st = stateComplete

				return Message{
					Raw:       r.buff.Bytes(),
					HeaderEnd: headerEnd,
					Body:      body,
					Chunked:   true,
				}, nil
			}
		}

		if pending != nil {
			return Message{}, pending
		}

		data, err := r.client.Read()
		progressed := len(data) > 0

		if progressed {
			if st == stateIdle {
				st = stateReadingHeaders
			}

			if !r.buff.Append(data) {
				return Message{}, status.ErrBodyTooLarge
			}

			if detect != nil && !terminal {
				var chunkErr error
				terminal, chunkErr = seekTerminal(detect, data)
				if chunkErr != nil {
					return Message{}, chunkErr
				}
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// the final read may have completed the message; frame once
			// more before giving up on the connection
			if r.buff.Len() == 0 {
				return Message{}, status.ErrNoData
			}
			pending = status.ErrConnectionClosed
			continue
		case isTimeout(err):
			progressed = false
		default:
			return Message{}, err
		}

		if progressed {
			retries = 0
			stallStart = time.Time{}
			continue
		}

		// a timeout or a zero-byte read while the message is incomplete
		if stallStart.IsZero() {
			stallStart = time.Now()
		}
		retries++
		if retries > r.cfg.ReadMaxRetry || time.Since(stallStart) > r.cfg.ReadRetryWindow {
			return Message{}, r.timeoutError()
		}
	}
}

// seekTerminal runs the detection parser over newly arrived bytes, reporting
// whether the terminal chunk was reached. Decoded output is discarded here;
// the real decode pass re-parses the buffered region afterwards.
func seekTerminal(parser *chunkedbody.Parser, data []byte) (terminal bool, err error) {
	for len(data) > 0 {
		_, extra, err := parser.Parse(data, false)
		switch err {
		case nil:
		case io.EOF:
			return true, nil
		default:
			return false, status.ErrBadChunk
		}

		data = extra
	}

	return false, nil
}

// decodeChunked re-parses the raw chunked region and appends the decoded
// payloads to the buffer tail, producing a single contiguous body view. The
// source views stay readable even when appending grows the buffer, since
// superseded arena blocks are kept until the arena resets.
func (r *Reader) decodeChunked(headerEnd int) ([]byte, error) {
	bodyStart := r.buff.Len()
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
	data := r.buff.Bytes()[headerEnd:bodyStart]

	for {
		chunk, extra, err := parser.Parse(data, false)
		switch err {
		case nil, io.EOF:
		default:
			return nil, status.ErrBadChunk
		}

		if len(chunk) > 0 && !r.buff.Append(chunk) {
			return nil, status.ErrBodyTooLarge
		}

		if err == io.EOF {
			return r.buff.Bytes()[bodyStart:], nil
		}

		if len(extra) == 0 {
			// terminal chunk was detected before, so it must be reachable
			return nil, status.ErrBadChunk
		}

		data = extra
	}
}

func (r *Reader) timeoutError() error {
	dump := r.buff.Bytes()
	if r.cfg.IncompleteDumpSize <= 0 || len(dump) == 0 {
		return status.ErrTimedOut
	}

	if len(dump) > r.cfg.IncompleteDumpSize {
		dump = dump[:r.cfg.IncompleteDumpSize]
	}

	return fmt.Errorf("%w; %d byte(s) buffered, beginning with %q",
		status.ErrTimedOut, r.buff.Len(), dump)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
