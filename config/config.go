package config

import "time"

type (
	NET struct {
		// NoDelay disables Nagle's algorithm on accepted connections.
		NoDelay bool
		// ReadTimeout is the deadline armed before every single read from the
		// socket. It is not a whole-request timeout: each read gets a fresh one.
		ReadTimeout time.Duration
		// ReadBufferSize is a size of buffer in bytes which will be used to read
		// from socket.
		ReadBufferSize int
		// MaxConnections caps the number of concurrently served connections.
		// Zero means no limit.
		MaxConnections int
	}

	HTTP struct {
		// MaxBufferSize bounds the accumulated request (head plus body). A
		// request declaring a bigger body is rejected before any body byte is
		// read.
		MaxBufferSize int
		// ReadMaxRetry is how many consecutive stalled reads (a timeout or zero
		// new bytes while the request is still incomplete) are tolerated before
		// the request is abandoned.
		ReadMaxRetry int
		// ReadRetryWindow bounds the total wall-clock time spent retrying
		// stalled reads, so that a drip-feeding peer can't stretch the budget
		// with tiny payloads.
		ReadRetryWindow time.Duration
		// IncompleteDumpSize is how many buffered bytes are attached to the
		// timeout error for diagnostics. Zero disables the dump.
		IncompleteDumpSize int
	}

	Arena struct {
		// ChunkSize is the allocation granularity of per-connection arenas.
		ChunkSize int
		// ShardCapacity is the number of idle arenas each herd shard retains.
		ShardCapacity int
	}

	FS struct {
		// RootPath is the directory file responses are resolved against.
		RootPath string
		// ZeroCopyThreshold is the minimal file size transferred via sendfile
		// instead of the buffered read-write loop.
		ZeroCopyThreshold int64
		Cache             FileCache
	}

	FileCache struct {
		Enabled bool
		// MaxFileSize caps the size of an individual file eligible for caching;
		// bigger files are always streamed from disk.
		MaxFileSize int64
		// MaxFiles and MaxTotalSize bound the cache as a whole. The least
		// recently accessed entries are evicted first.
		MaxFiles     int
		MaxTotalSize int64
		// TTL invalidates entries regardless of access pattern, so file
		// modifications become visible.
		TTL time.Duration
	}
)

// Options holds settings used across the engine. Modify defaults returned
// via Default() instead of constructing the struct manually, otherwise
// zero-valued limits will reject everything.
type Options struct {
	NET   NET
	HTTP  HTTP
	Arena Arena
	FS    FS
}

// Default returns well-balanced default options.
func Default() Options {
	return Options{
		NET: NET{
			NoDelay:        true,
			ReadTimeout:    3 * time.Second,
			ReadBufferSize: 4 * 1024,
			MaxConnections: 0,
		},
		HTTP: HTTP{
			MaxBufferSize:      512 * 1024 * 1024,
			ReadMaxRetry:       3,
			ReadRetryWindow:    10 * time.Second,
			IncompleteDumpSize: 1024,
		},
		Arena: Arena{
			ChunkSize:     64 * 1024,
			ShardCapacity: 64,
		},
		FS: FS{
			RootPath:          ".",
			ZeroCopyThreshold: 512 * 1024,
			Cache: FileCache{
				Enabled:      false,
				MaxFileSize:  1024 * 1024,
				MaxFiles:     1024,
				MaxTotalSize: 64 * 1024 * 1024,
				TTL:          time.Minute,
			},
		},
	}
}
