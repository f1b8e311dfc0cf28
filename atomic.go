package atomichttp

import (
	"log"
	"net"
	"sync"

	"github.com/fatih/color"
	"github.com/rabbitson87/atomic-http/config"
	"github.com/rabbitson87/atomic-http/herd"
	"github.com/rabbitson87/atomic-http/http"
	"github.com/rabbitson87/atomic-http/http/status"
	"github.com/rabbitson87/atomic-http/internal/buffer"
	"github.com/rabbitson87/atomic-http/internal/filecache"
	"github.com/rabbitson87/atomic-http/internal/protocol/http1"
	"github.com/rabbitson87/atomic-http/internal/tcp"
	"golang.org/x/net/netutil"
)

// Handler processes one request. Both arguments live in the connection's
// arena: neither they nor any view obtained from them may be retained after
// the handler returns.
type Handler func(*http.Request, *http.Response)

// AccessLog receives one line per served request.
type AccessLog func(remote net.Addr, method, target string, code status.Code)

// ListenerConstructor builds the listener the server accepts from, which is
// how TLS termination is plugged in.
type ListenerConstructor func(network, addr string) (net.Listener, error)

// Server is a one-request-per-connection HTTP/1.1 engine. Each accepted
// connection runs on its own goroutine, borrows an arena from the herd, and
// returns it on disconnect; request parsing and response encoding allocate
// from that arena only.
type Server struct {
	addr     string
	opts     config.Options
	listen   ListenerConstructor
	access   AccessLog
	herd     *herd.Herd
	cache    *filecache.Cache
	sock     net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown bool
}

func New(addr string) *Server {
	return &Server{
		addr:   addr,
		opts:   config.Default(),
		listen: net.Listen,
		access: logRequest,
		conns:  map[net.Conn]struct{}{},
	}
}

// Tune replaces default options. Must be called before Serve.
func (s *Server) Tune(opts config.Options) *Server {
	s.opts = opts
	return s
}

// Log replaces the access log hook. Nil disables access logging.
func (s *Server) Log(hook AccessLog) *Server {
	s.access = hook
	return s
}

// Serve binds the listener and accepts until Stop or GracefulShutdown.
// Every connection serves exactly one request through onRequest and is then
// closed.
func (s *Server) Serve(onRequest Handler) error {
	sock, err := s.listen("tcp", s.addr)
	if err != nil {
		return err
	}

	if s.opts.NET.MaxConnections > 0 {
		sock = netutil.LimitListener(sock, s.opts.NET.MaxConnections)
	}

	// Addr and Stop may run concurrently with the accept loop
	s.mu.Lock()
	s.sock = sock
	s.herd = herd.NewHerd(s.opts.Arena.ChunkSize, s.opts.Arena.ShardCapacity)
	if s.opts.FS.Cache.Enabled {
		s.cache = filecache.New(s.opts.FS.Cache)
	}
	s.mu.Unlock()

	wg := new(sync.WaitGroup)

	for {
		conn, err := sock.Accept()
		if err != nil {
			wg.Wait()

			if s.isShutdown() {
				return status.ErrShutdown
			}

			return err
		}

		s.track(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrack(conn)

			s.serveConn(conn, onRequest)
		}()
	}
}

// Addr reports the bound address, useful when listening on port 0. It
// returns nil until Serve has bound the listener.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock == nil {
		return nil
	}

	return s.sock.Addr()
}

// Stop shuts the listener and ALL the connections down.
func (s *Server) Stop() error {
	if err := s.stopListener(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}

	return nil
}

// GracefulShutdown stops the listener, leaving active connections free to
// finish their request.
func (s *Server) GracefulShutdown() error {
	return s.stopListener()
}

func (s *Server) stopListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock == nil {
		// nothing is being served yet
		return nil
	}

	s.shutdown = true

	return s.sock.Close()
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shutdown
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) serveConn(conn net.Conn, onRequest Handler) {
	defer conn.Close()

	if s.opts.NET.NoDelay {
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
	}

	arena := s.herd.Acquire()
	defer s.herd.Release(arena)

	client := tcp.NewClient(conn, s.opts.NET.ReadTimeout, arena.Alloc(s.opts.NET.ReadBufferSize))
	reader := http1.NewReader(
		client,
		buffer.New(arena, s.opts.NET.ReadBufferSize, s.opts.HTTP.MaxBufferSize),
		s.opts.HTTP,
	)
	serializer := http1.NewSerializer(client, s.opts.FS, s.cache)
	request := http.NewRequest(client.Remote())
	response := http.NewResponse(
		buffer.New(arena, s.opts.NET.ReadBufferSize, s.opts.HTTP.MaxBufferSize),
		s.opts.FS.RootPath,
	)

	msg, err := reader.Fetch()
	if err == nil {
		err = http1.Parse(msg, request)
	}
	if err != nil {
		if status.ErrCode(err) != status.CloseConnection {
			_ = serializer.Write(request, response.Error(err))
		}
		s.logAccess(client.Remote(), request.Method, request.Target, status.ErrCode(err))

		return
	}

	request.Attach(arena, msg.Raw, msg.Body)
	s.invoke(onRequest, request, response)

	if err := serializer.Write(request, response); err != nil {
		log.Printf("atomic-http: %s: writing response: %s", client.Remote(), err)
		return
	}

	s.logAccess(client.Remote(), request.Method, request.Target, response.Expose().Code)
}

// invoke shields the connection goroutine from handler panics; the peer
// still gets an answer.
func (s *Server) invoke(onRequest Handler, request *http.Request, response *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("atomic-http: panic in handler: %v", r)
			response.Error(status.ErrInternalServerError)
		}
	}()

	onRequest(request, response)
}

func (s *Server) logAccess(remote net.Addr, method, target string, code status.Code) {
	if s.access != nil {
		s.access(remote, method, target, code)
	}
}

// logRequest is the default access log: one line per request, color-coded
// by status class.
func logRequest(remote net.Addr, method, target string, code status.Code) {
	switch {
	case code == status.CloseConnection:
		log.Print(color.YellowString("%s %s %s dropped", remote, method, target))
	case code < 400:
		log.Print(color.GreenString("%s %s %s %d", remote, method, target, code))
	case code < 500:
		log.Print(color.RedString("%s %s %s %d", remote, method, target, code))
	default:
		log.Printf("%s %s %s %d", remote, method, target, code)
	}
}
