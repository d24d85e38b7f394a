package server

import (
	errs "errors"
	"net"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.elastic.co/apm"
	"golang.org/x/net/netutil"

	"github.com/elastic/controlsocket/es"
	"github.com/elastic/controlsocket/server/api"
	"github.com/elastic/controlsocket/server/client"
)

const (
	minBackoff = 5 * time.Millisecond
	maxBackoff = time.Second
)

// Options configure a Server. Only Addr is required.
type Options struct {
	Addr string
	// accept at most this many simultaneous connections, 0 means no limit
	MaxConns     int
	IdleTimeout  time.Duration
	MaxLineBytes int
	Journal      es.Journal
	Tracer       *apm.Tracer
	Logger       logrus.FieldLogger
}

// Server accepts control connections and serves each one from its own goroutine.
type Server struct {
	opts     Options
	state    api.State
	logger   logrus.FieldLogger
	listener net.Listener

	conns mapset.Set[*client.Connection]
	wg    sync.WaitGroup
	mu    sync.Mutex
	done  bool
}

// New returns a server modifying `state`. Call Listen and then Serve.
func New(state api.State, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Server{
		opts:   opts,
		state:  state,
		logger: opts.Logger,
		conns:  mapset.NewSet[*client.Connection](),
	}
}

// Listen binds the server address.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "control socket listening on %s", s.opts.Addr)
	}
	s.Attach(l)
	return nil
}

// Attach makes the server accept connections from an already bound listener.
func (s *Server) Attach(l net.Listener) {
	if s.opts.MaxConns > 0 {
		l = netutil.LimitListener(l, s.opts.MaxConns)
	}
	s.listener = l
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Close is called, then returns nil.
// Temporary accept errors are retried with a capped exponential backoff, any other error is returned.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("control socket not listening")
	}
	s.logger.Infof("control socket listening on %s", s.listener.Addr())

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed() || errs.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if backoff == 0 {
					backoff = minBackoff
				} else if backoff *= 2; backoff > maxBackoff {
					backoff = maxBackoff
				}
				s.logger.Warnf("accept error: %s, retrying in %s", err, backoff)
				time.Sleep(backoff)
				continue
			}
			return errors.Wrap(err, "control socket accept")
		}
		backoff = 0
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	c := client.WrapConnection(conn, s.state, client.Options{
		IdleTimeout:  s.opts.IdleTimeout,
		MaxLineBytes: s.opts.MaxLineBytes,
		Journal:      s.opts.Journal,
		Tracer:       s.opts.Tracer,
		Logger:       s.logger,
	})

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		c.Close()
		return
	}
	s.conns.Add(c)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.conns.Remove(c)
		c.Serve()
	}()
}

func (s *Server) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close stops accepting connections, closes the open ones and waits for their goroutines to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.conns.Each(func(c *client.Connection) bool {
		c.Close()
		return false
	})
	s.wg.Wait()
	s.logger.Info("control socket closed")
	return err
}

// Connections returns stats of the currently open connections, oldest first.
func (s *Server) Connections() []client.Stats {
	conns := s.conns.ToSlice()
	stats := make([]client.Stats, 0, len(conns))
	for _, c := range conns {
		stats = append(stats, c.Stats())
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Since.Before(stats[j].Since)
	})
	return stats
}
