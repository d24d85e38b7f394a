package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/controlsocket/server/api"
	"github.com/elastic/controlsocket/server/client"
	"github.com/elastic/controlsocket/server/tests"
	"github.com/elastic/controlsocket/state"
	"github.com/elastic/controlsocket/web"
)

func start(t *testing.T, st api.State, opts Options) (*Server, chan error) {
	opts.Addr = "127.0.0.1:0"
	if opts.Logger == nil {
		opts.Logger, _ = logtest.NewNullLogger()
	}
	s := New(st, opts)
	require.NoError(t, s.Listen())
	served := make(chan error, 1)
	go func() {
		served <- s.Serve()
	}()
	return s, served
}

func stop(t *testing.T, s *Server, served chan error) {
	assert.NoError(t, s.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(tests.Timeout):
		t.Fatal("server didn't stop")
	}
}

func TestHelloSetsName(t *testing.T) {
	welcome := state.New("")
	journal := tests.NewMockJournal()
	s, served := start(t, welcome, Options{Journal: journal})
	defer stop(t, s, served)

	peer := tests.Dial(t, s.Addr().String())
	defer peer.Close()
	peer.Send(t, "hello Alice")
	assert.Equal(t, "Alice", journal.Next(t).Name)
	assert.Equal(t, "Alice", welcome.Name())
}

func TestHelloThenWelcomePage(t *testing.T) {
	welcome := state.New("")
	s, served := start(t, welcome, Options{})
	defer stop(t, s, served)
	logger, _ := logtest.NewNullLogger()
	page := web.NewServer(welcome, web.ServerOptions{Logger: logger, Connections: s.Connections})

	get := func() string {
		rec := httptest.NewRecorder()
		page.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}
	assert.Equal(t, "Hello World!", get())

	peer := tests.Dial(t, s.Addr().String())
	defer peer.Close()
	// lines after quit are never evaluated
	_, err := peer.Write([]byte("hello A\nfoo\nquit\nhello B\n"))
	require.NoError(t, err)
	assert.Equal(t, "command 'foo' not found\nGoodbye!\n", peer.ReadAll(t))
	assert.Equal(t, "Hello A!", get())

	for _, name := range []string{"Alice", "ünïcödé", " spaced", "<b>bold</b>"} {
		peer := tests.Dial(t, s.Addr().String())
		peer.Send(t, "hello "+name)
		peer.Send(t, "quit")
		peer.ReadAll(t)
		peer.Close()
		assert.Equal(t, "Hello "+name+"!", get())
	}
}

func TestUnknownCommandKeepsConnectionOpen(t *testing.T) {
	welcome := state.New("")
	s, served := start(t, welcome, Options{})
	defer stop(t, s, served)

	peer := tests.Dial(t, s.Addr().String())
	defer peer.Close()
	peer.Send(t, "foo bar")
	assert.Equal(t, "command 'foo' with params 'bar' not found", peer.ReadLine(t))
	peer.Send(t, "")
	assert.Equal(t, "invalid input: ''", peer.ReadLine(t))
	peer.Send(t, "quit")
	assert.Equal(t, "Goodbye!\n", peer.ReadAll(t))
	assert.Equal(t, state.DefaultName, welcome.Name())
}

func TestQuitEndsStream(t *testing.T) {
	s, served := start(t, state.New(""), Options{})
	defer stop(t, s, served)

	peer := tests.Dial(t, s.Addr().String())
	defer peer.Close()
	peer.Send(t, "quit")
	assert.Equal(t, "Goodbye!", peer.ReadLine(t))
	assert.Equal(t, "", peer.ReadAll(t))

	tests.Eventually(t, func() bool {
		return len(s.Connections()) == 0
	}, "connection not unregistered")
}

func TestConcurrentHellos(t *testing.T) {
	welcome := state.New("")
	s, served := start(t, welcome, Options{})
	defer stop(t, s, served)

	a, b := strings.Repeat("A", 4096), strings.Repeat("B", 4096)
	var wg sync.WaitGroup
	for _, name := range []string{a, b} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			peer := tests.Dial(t, s.Addr().String())
			defer peer.Close()
			peer.Send(t, "hello "+name)
			peer.Send(t, "quit")
			peer.ReadAll(t)
		}(name)
	}
	wg.Wait()
	assert.Contains(t, []string{a, b}, welcome.Name())
}

func TestManyClients(t *testing.T) {
	welcome := state.New("")
	s, served := start(t, welcome, Options{})
	defer stop(t, s, served)

	var peers []*tests.Peer
	for i := 0; i < 20; i++ {
		peer := tests.Dial(t, s.Addr().String())
		defer peer.Close()
		peers = append(peers, peer)
	}
	tests.Eventually(t, func() bool {
		return len(s.Connections()) == 20
	}, "not all connections registered")

	// every connection is served independently of the others
	for i := len(peers) - 1; i >= 0; i-- {
		peers[i].Send(t, fmt.Sprintf("hello %d", i))
		peers[i].Send(t, "ping")
		assert.Equal(t, "command 'ping' not found", peers[i].ReadLine(t))
		assert.Equal(t, fmt.Sprint(i), welcome.Name())
	}

	stats := s.Connections()
	for i := 1; i < len(stats); i++ {
		assert.False(t, stats[i].Since.Before(stats[i-1].Since))
		assert.Equal(t, client.Open, stats[i].Status)
		assert.Equal(t, uint64(2), stats[i].Lines)
	}
}

func TestMaxConns(t *testing.T) {
	s, served := start(t, state.New(""), Options{MaxConns: 1})
	defer stop(t, s, served)

	first := tests.Dial(t, s.Addr().String())
	defer first.Close()
	first.Send(t, "foo")
	assert.Equal(t, "command 'foo' not found", first.ReadLine(t))

	// the kernel completes the handshake, but the second connection isn't served until the first one is gone
	second := tests.Dial(t, s.Addr().String())
	defer second.Close()
	second.Send(t, "foo")
	second.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err := second.Read(make([]byte, 1))
	require.Error(t, err)
	ne, ok := err.(net.Error)
	require.True(t, ok)
	assert.True(t, ne.Timeout())

	first.Send(t, "quit")
	first.ReadAll(t)
	assert.Equal(t, "command 'foo' not found", second.ReadLine(t))
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, served := start(t, state.New(""), Options{})

	peer := tests.Dial(t, s.Addr().String())
	defer peer.Close()
	tests.Eventually(t, func() bool {
		return len(s.Connections()) == 1
	}, "connection not registered")

	stop(t, s, served)
	assert.Equal(t, "", peer.ReadAll(t))
	assert.Empty(t, s.Connections())
	assert.NoError(t, s.Close())

	_, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
	assert.Error(t, err)
}

func TestServeWithoutListen(t *testing.T) {
	s := New(state.New(""), Options{})
	assert.Nil(t, s.Addr())
	assert.Error(t, s.Serve())
}

func TestListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	s := New(state.New(""), Options{Addr: l.Addr().String()})
	err = s.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control socket listening on "+l.Addr().String())
}
