package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/heptio/workgroup"
	"github.com/sirupsen/logrus"
	"go.elastic.co/apm"

	"github.com/elastic/controlsocket/es"
	"github.com/elastic/controlsocket/out"
	"github.com/elastic/controlsocket/server"
	"github.com/elastic/controlsocket/server/api/io"
	"github.com/elastic/controlsocket/state"
	"github.com/elastic/controlsocket/tracer"
	"github.com/elastic/controlsocket/web"
)

var (
	webPort           = flag.Int("web-port", 8080, "port of the welcome page")
	controlSocketPort = flag.Int("controlsocket-port", 9090, "port of the control socket")
	host              = flag.String("host", "", "interface to bind both servers to, all of them if empty")
	initialName       = flag.String("name", state.DefaultName, "welcome name until someone changes it")
	logLevel          = flag.String("log-level", "debug", "one of debug, info, warn or error")
	maxConns          = flag.Int("max-conns", 0, "maximum control connections served at the same time, 0 means no limit")
	idleTimeout       = flag.Duration("idle-timeout", 0, "close control connections idle for this long, 0 means never")
	maxLineBytes      = flag.Int("max-line-bytes", io.DefaultMaxLineBytes, "longest line accepted by the control socket")
	shutdownTimeout   = flag.Duration("shutdown-timeout", 5*time.Second, "wait this long for web requests in flight on shutdown")

	esUrl   = flag.String("es-url", "", "elasticsearch url to journal name changes to, 'local' means http://localhost:9200")
	esAuth  = flag.String("es-auth", "", "elasticsearch username:password")
	esIndex = flag.String("es-index", "welcome-names", "elasticsearch index for name changes")

	apmServerUrl = flag.String("apm-server-url", "", "apm-server to send traces to, tracing is disabled if empty")
	apmSecret    = flag.String("apm-secret", "", "apm-server secret token")
	serviceName  = flag.String("service-name", "controlsocket", "service name reported to apm-server")
)

func main() {
	flag.Parse()
	if err := out.Setup(*logLevel, os.Stderr); err != nil {
		logrus.Fatal(err)
	}
	logger := logrus.StandardLogger()

	welcome := state.New(*initialName)
	var g workgroup.Group

	// both ports are bound before serving anything, so a taken port aborts the process right away
	webListener, err := net.Listen("tcp", net.JoinHostPort(*host, strconv.Itoa(*webPort)))
	if err != nil {
		logger.Fatalf("web server: %s", err)
	}

	var journal es.Journals
	journal = append(journal, es.LogJournal{Logger: out.Component("journal")})
	if *esUrl != "" {
		client, err := es.NewClient(*esUrl, *esAuth)
		if err != nil {
			logger.Fatal(err)
		}
		elastic := es.NewElastic(client, *esIndex, out.Component("journal"))
		journal = append(journal, elastic)
		g.Add(elastic.Run)
	}

	var t *tracer.Tracer
	if *apmServerUrl != "" {
		t, err = tracer.New(out.NewApmLogger(logger), *shutdownTimeout, *apmSecret, *apmServerUrl, *serviceName)
		if err != nil {
			logger.Fatal(err)
		}
		defer t.FlushAll()
	}

	control := server.New(welcome, server.Options{
		Addr:         net.JoinHostPort(*host, strconv.Itoa(*controlSocketPort)),
		MaxConns:     *maxConns,
		IdleTimeout:  *idleTimeout,
		MaxLineBytes: *maxLineBytes,
		Journal:      journal,
		Tracer:       apmTracer(t),
		Logger:       out.Component("control"),
	})
	if err := control.Listen(); err != nil {
		logger.Fatal(err)
	}
	g.Add(func(stop <-chan struct{}) error {
		go func() {
			<-stop
			control.Close()
		}()
		return control.Serve()
	})

	webServer := web.NewServer(welcome, web.ServerOptions{
		ShutdownTimeout: *shutdownTimeout,
		Logger:          out.Component("web"),
		Tracer:          apmTracer(t),
		Connections:     control.Connections,
	})
	g.Add(func(stop <-chan struct{}) error {
		go func() {
			<-stop
			if err := webServer.Stop(context.Background()); err != nil {
				logger.Warnf("web server shutdown: %s", err)
			}
		}()
		return webServer.Serve(webListener)
	})

	g.Add(func(stop <-chan struct{}) error {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			logger.Infof("%s received, shutting down", sig)
		case <-stop:
		}
		return nil
	})

	if err := g.Run(); err != nil {
		logger.Error(err)
	}
}

func apmTracer(t *tracer.Tracer) *apm.Tracer {
	if t == nil {
		return nil
	}
	return t.Tracer
}
