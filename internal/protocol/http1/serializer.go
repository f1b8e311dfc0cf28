package http1

import (
	"io"
	"os"
	"strconv"

	"github.com/rabbitson87/atomic-http/config"
	"github.com/rabbitson87/atomic-http/http"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/filecache"
	"github.com/rabbitson87/atomic-http/internal/sendfile"
	"github.com/rabbitson87/atomic-http/internal/tcp"
)

const fileBuffSize = 64 * 1024

// Serializer flattens responses onto the wire. The head is assembled in a
// reusable scratch buffer and written in one call; file bodies travel via
// the cache, sendfile, or a buffered copy loop, picked in that order.
type Serializer struct {
	client tcp.Client
	fs     config.FS
	cache  *filecache.Cache

	head     []byte
	fileBuff []byte
}

// NewSerializer builds a serializer for one connection. cache may be nil,
// disabling the in-memory file path.
func NewSerializer(client tcp.Client, fs config.FS, cache *filecache.Cache) *Serializer {
	return &Serializer{
		client: client,
		fs:     fs,
		cache:  cache,
		head:   make([]byte, 0, 512),
	}
}

// Write serializes response for request and pushes it to the peer. The
// Content-Length is always exact: body length for in-memory bodies, stat
// size for files. HEAD requests get the full head and no body.
func (s *Serializer) Write(request *http.Request, response *http.Response) error {
	f := response.Expose()

	length := int64(len(f.Body))
	if len(f.File) > 0 {
		length = f.FileSize
	}

	head := s.head[:0]
	head = append(head, "HTTP/1.1 "...)
	head = strconv.AppendUint(head, uint64(f.Code), 10)
	head = append(head, ' ')
	if text := status.Text(f.Code); len(text) > 0 {
		head = append(head, text...)
	} else {
		head = append(head, "Unknown Status"...)
	}
	head = append(head, '\r', '\n')

	for key, value := range f.Headers.Iter() {
		head = append(head, key...)
		head = append(head, ':', ' ')
		head = append(head, value...)
		head = append(head, '\r', '\n')
	}

	head = append(head, "Content-Type: "...)
	head = append(head, f.ContentType...)
	head = append(head, '\r', '\n')

	if f.Attachment {
		head = append(head, "Content-Disposition: attachment\r\n"...)
	}

	head = append(head, "Content-Length: "...)
	head = strconv.AppendInt(head, length, 10)
	head = append(head, '\r', '\n', '\r', '\n')
	s.head = head

	if _, err := s.client.Write(head); err != nil {
		return err
	}

	if request != nil && request.Method == "HEAD" {
		return nil
	}

	if len(f.File) > 0 {
		return s.writeFile(f)
	}

	if len(f.Body) > 0 {
		if _, err := s.client.Write(f.Body); err != nil {
			return err
		}
	}

	return nil
}

func (s *Serializer) writeFile(f http.Fields) error {
	if s.cache != nil {
		if data, found := s.cache.Get(f.File); found {
			_, err := s.client.Write(data)
			return err
		}
	}

	file, err := os.Open(f.File)
	if err != nil {
		return err
	}
	defer file.Close()

	if f.FileSize >= s.fs.ZeroCopyThreshold && s.client.Conn() != nil {
		if handled, err := sendfile.To(s.client.Conn(), file, f.FileSize); handled {
			return err
		}
	}

	if s.cache != nil && f.FileSize <= s.fs.Cache.MaxFileSize {
		data, err := io.ReadAll(file)
		if err != nil {
			return err
		}

		s.cache.Put(f.File, data)
		_, err = s.client.Write(data)
		return err
	}

	if s.fileBuff == nil {
		s.fileBuff = make([]byte, fileBuffSize)
	}
	_, err = io.CopyBuffer(io.Writer(s.client), file, s.fileBuff)

	return err
}
