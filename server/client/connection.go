package client

import (
	"bufio"
	stdio "io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.elastic.co/apm"

	"github.com/elastic/controlsocket/es"
	"github.com/elastic/controlsocket/server/api"
	"github.com/elastic/controlsocket/server/api/io"
)

// Status of a connection. Connections start Open and end Closed, there is no way back.
type Status int32

const (
	Open Status = iota
	Closed
)

func (s Status) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Options tune how a connection is served. The zero value is usable.
type Options struct {
	// close the connection if no line arrives for this long, 0 means wait forever
	IdleTimeout time.Duration
	// longest line accepted, see io.DefaultMaxLineBytes
	MaxLineBytes int
	// notified of every name change, if not nil
	Journal es.Journal
	// if not nil, every line processed is traced as a transaction
	Tracer *apm.Tracer
	Logger logrus.FieldLogger
}

// Stats is a point in time view of a connection.
type Stats struct {
	Remote string
	Since  time.Time
	Lines  uint64
	Status Status
}

// Connection serves the control protocol over a single accepted socket.
type Connection struct {
	net.Conn
	state  api.State
	opts   Options
	logger logrus.FieldLogger
	remote string
	since  time.Time
	// accessed atomically
	lines  uint64
	status int32

	closeOnce sync.Once
	closeErr  error
}

// WrapConnection returns a connection ready to be served.
func WrapConnection(conn net.Conn, state api.State, opts Options) *Connection {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	remote := conn.RemoteAddr().String()
	return &Connection{
		Conn:   conn,
		state:  state,
		opts:   opts,
		logger: opts.Logger.WithField("remote", remote),
		remote: remote,
		since:  time.Now(),
	}
}

// Serve reads and evaluates lines until the peer quits, goes away, or the connection is closed.
// It always returns with the connection closed.
func (c *Connection) Serve() {
	defer c.Close()
	c.logger.Debugf("incoming connection from %s", c.remote)

	lines := io.NewLineReader(bufio.NewReader(c.Conn), c.opts.MaxLineBytes)
	for {
		if c.opts.IdleTimeout > 0 {
			if err := c.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout)); err != nil {
				c.logger.Debugf("setting read deadline: %s", err)
			}
		}
		line, err := lines.ReadLine()
		if err != nil {
			c.logReadErr(err)
			return
		}
		atomic.AddUint64(&c.lines, 1)
		if !c.handle(line) {
			return
		}
	}
}

// handle evaluates a single line and returns false if the connection has to be closed
func (c *Connection) handle(line string) bool {
	cmd := api.Parse(line)
	if c.opts.Tracer != nil {
		tx := c.opts.Tracer.StartTransaction(transactionName(cmd), "control")
		tx.Result = cmd.Kind.String()
		defer tx.End()
	}

	res := api.Eval(cmd, c.state)
	switch {
	case res.Changed:
		c.logger.Debugf("name changed from %q to %q", res.Previous, cmd.Params)
		if c.opts.Journal != nil {
			c.opts.Journal.Record(es.Change{
				Name:      cmd.Params,
				Previous:  res.Previous,
				Remote:    c.remote,
				Timestamp: time.Now(),
			})
		}
	case cmd.Kind == api.Invalid || cmd.Kind == api.NotFound:
		c.logger.Warn(res.Reply)
	}

	if err := io.ReplyNL(c.Conn, res.Reply); err != nil {
		c.logger.Debugf("write error: %s", err)
		return false
	}
	if res.Close {
		c.shutdown()
		return false
	}
	return true
}

func transactionName(cmd api.Command) string {
	if cmd.Kind == api.Invalid {
		return cmd.Kind.String()
	}
	return cmd.Verb
}

type halfCloser interface {
	CloseWrite() error
	CloseRead() error
}

// shutdown closes both halves of the socket before releasing it, so the peer sees a clean end of stream.
func (c *Connection) shutdown() {
	if hc, ok := c.Conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			c.logger.Debugf("closing write half: %s", err)
		}
		if err := hc.CloseRead(); err != nil {
			c.logger.Debugf("closing read half: %s", err)
		}
	}
	c.Close()
}

func (c *Connection) logReadErr(err error) {
	netErr, isNetErr := err.(net.Error)
	switch {
	case c.Status() == Closed:
		c.logger.Debug("connection closed by server")
	case err == stdio.EOF:
		c.logger.Debug("connection closed by peer")
	case errors.Cause(err) == io.ErrLineTooLong:
		c.logger.Warnf("closing connection: %s", err)
	case isNetErr && netErr.Timeout():
		c.logger.Infof("closing connection idle for %s", c.opts.IdleTimeout)
	default:
		c.logger.Debugf("read error: %s", err)
	}
}

// Close releases the socket. It is safe to call more than once and from any goroutine;
// a concurrent Serve returns as soon as its pending read fails.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.status, int32(Closed))
		c.closeErr = c.Conn.Close()
		c.logger.Debugf("connection from %s closed", c.remote)
	})
	return c.closeErr
}

func (c *Connection) Status() Status {
	return Status(atomic.LoadInt32(&c.status))
}

func (c *Connection) Stats() Stats {
	return Stats{
		Remote: c.remote,
		Since:  c.since,
		Lines:  atomic.LoadUint64(&c.lines),
		Status: c.Status(),
	}
}
