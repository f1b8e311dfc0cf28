package tcp

import (
	"io"
	"net"
)

// StaticClient replays a fixed sequence of reads and records writes. It
// exists for tests of the layers above, which only see the Client interface.
type StaticClient struct {
	chunks  [][]byte
	Written []byte
	closed  bool
}

func NewStaticClient(chunks ...[]byte) *StaticClient {
	return &StaticClient{
		chunks: chunks,
	}
}

func (s *StaticClient) Read() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}

	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]

	return chunk, nil
}

func (s *StaticClient) Write(p []byte) (int, error) {
	s.Written = append(s.Written, p...)
	return len(p), nil
}

func (s *StaticClient) Remote() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (s *StaticClient) Conn() net.Conn {
	return nil
}

func (s *StaticClient) Close() error {
	s.closed = true
	return nil
}

func (s *StaticClient) Closed() bool {
	return s.closed
}
