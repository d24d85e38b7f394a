package web

import (
	"context"
	errs "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.elastic.co/apm"
	"go.elastic.co/apm/module/apmhttp"

	"github.com/elastic/controlsocket/server/client"
)

// NameReader is the only thing the web server needs from the shared state.
type NameReader interface {
	Name() string
}

type ServerOptions struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            logrus.FieldLogger
	// if not nil, requests are traced
	Tracer *apm.Tracer
	// live control connections, shown in /connections if not nil
	Connections func() []client.Stats
}

// Server greets whoever asks with the current welcome name.
type Server struct {
	http   *http.Server
	names  NameReader
	logger logrus.FieldLogger
	opts   ServerOptions
}

// NewServer returns a server reading names from `names`. It doesn't listen until Serve is called.
func NewServer(names NameReader, opts ServerOptions) *Server {
	if names == nil {
		panic("web.NewServer: names is nil")
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	s := &Server{
		names:  names,
		logger: opts.Logger,
		opts:   opts,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHello)
	mux.HandleFunc("/connections", s.handleConnections)

	var handler http.Handler = withLogging(mux, opts.Logger)
	if opts.Tracer != nil {
		handler = apmhttp.Wrap(handler, apmhttp.WithTracer(opts.Tracer))
	}
	s.http = &http.Server{
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		BaseContext: func(l net.Listener) context.Context {
			return context.Background()
		},
	}
	return s
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve accepts requests on `l` until Stop is called, then returns nil.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Infof("web server listening on %s", l.Addr())
	if err := s.http.Serve(l); !errs.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server")
	}
	return nil
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout for requests in flight.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowGet(w, r) {
		return
	}
	fmt.Fprintf(w, "Hello %s!", s.names.Name())
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	var stats []client.Stats
	if s.opts.Connections != nil {
		stats = s.opts.Connections()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Remote", "Since", "Lines"})
	for _, st := range stats {
		t.AppendRow(table.Row{
			st.Remote,
			st.Since.UTC().Format(time.RFC3339),
			st.Lines,
		})
	}
	t.AppendFooter(table.Row{"", "Total", len(stats)})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		logger.WithFields(logrus.Fields{
			"status":   sr.status,
			"duration": time.Since(start),
		}).Debugf("%s %s UA=%q", r.Method, r.URL.Path, r.UserAgent())
	})
}
