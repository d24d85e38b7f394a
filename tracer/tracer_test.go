package tracer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/controlsocket/out"
)

func TestNewInvalidUrl(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := New(out.NewApmLogger(logger), time.Second, "", ":not a url", "controlsocket")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing apm-server url")
}

func TestFlushAll(t *testing.T) {
	events := make(chan *http.Request, 10)
	apmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/intake/") {
			events <- r
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer apmServer.Close()

	logger, _ := test.NewNullLogger()
	tracer, err := New(out.NewApmLogger(logger), 5*time.Second, "secret", apmServer.URL, "controlsocket")
	require.NoError(t, err)

	tracer.StartTransaction("hello", "control").End()
	tracer.FlushAll()

	select {
	case r := <-events:
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
	case <-time.After(5 * time.Second):
		t.Fatal("no events sent")
	}
}
