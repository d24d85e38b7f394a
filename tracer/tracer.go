package tracer

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.elastic.co/apm"
	apmtransport "go.elastic.co/apm/transport"
)

// Tracer is an APM agent sending to a given apm-server.
type Tracer struct {
	*apm.Tracer
	logger  apm.Logger
	timeout time.Duration
}

// New returns a tracer sending events to the apm-server at `serverUrl`, authenticated with `serverSecret` if not empty.
// FlushAll waits up to `timeout` for pending events to be sent, or forever if `timeout` is 0.
func New(logger apm.Logger, timeout time.Duration, serverSecret, serverUrl, serviceName string) (*Tracer, error) {
	u, err := url.Parse(serverUrl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing apm-server url")
	}
	transport, err := apmtransport.NewHTTPTransport()
	if err != nil {
		return nil, errors.Wrap(err, "creating apm transport")
	}
	transport.SetServerURL(u)
	transport.SetUserAgent("controlsocket")
	if serverSecret != "" {
		transport.SetSecretToken(serverSecret)
	}

	tracer, err := apm.NewTracerOptions(apm.TracerOptions{
		ServiceName: serviceName,
		Transport:   transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating apm tracer")
	}
	tracer.SetLogger(logger)
	tracer.SetMetricsInterval(0) // disable metrics
	return &Tracer{tracer, logger, timeout}, nil
}

// FlushAll sends pending events and closes the tracer.
func (t *Tracer) FlushAll() {
	flushed := make(chan struct{})
	go func() {
		t.Flush(nil)
		close(flushed)
	}()

	flushWait := time.After(t.timeout)
	if t.timeout == 0 {
		flushWait = make(<-chan time.Time)
	}
	select {
	case <-flushed:
	case <-flushWait:
		// give up waiting for flush
		t.logger.Errorf("timed out waiting for flush to complete")
	}
	t.Close()
}
