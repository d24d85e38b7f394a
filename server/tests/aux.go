package tests

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elastic/controlsocket/es"
)

// Timeout bounds every blocking operation in tests so a broken server fails instead of hanging.
const Timeout = 5 * time.Second

// Peer is the operator side of a control connection.
type Peer struct {
	net.Conn
	r *bufio.Reader
}

func Dial(t *testing.T, addr string) *Peer {
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	require.NoError(t, err)
	return NewPeer(conn)
}

func NewPeer(conn net.Conn) *Peer {
	return &Peer{Conn: conn, r: bufio.NewReader(conn)}
}

// Send writes `line` followed by a newline.
func (p *Peer) Send(t *testing.T, line string) {
	p.SetWriteDeadline(time.Now().Add(Timeout))
	_, err := p.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

// ReadLine returns the next line sent by the server, without the newline.
func (p *Peer) ReadLine(t *testing.T) string {
	p.SetReadDeadline(time.Now().Add(Timeout))
	line, err := p.r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

// ReadAll returns everything the server sends until it closes the connection.
func (p *Peer) ReadAll(t *testing.T) string {
	p.SetReadDeadline(time.Now().Add(Timeout))
	var b strings.Builder
	_, err := p.r.WriteTo(&b)
	require.NoError(t, err)
	return b.String()
}

// Eventually waits until `cond` holds, failing the test otherwise.
func Eventually(t *testing.T, cond func() bool, msg string) {
	require.Eventually(t, cond, Timeout, 5*time.Millisecond, msg)
}

// MockJournal records name changes in memory.
type MockJournal struct {
	Changes chan es.Change
}

func NewMockJournal() *MockJournal {
	return &MockJournal{Changes: make(chan es.Change, 100)}
}

func (mj *MockJournal) Record(c es.Change) {
	mj.Changes <- c
}

// Next returns the next recorded change.
func (mj *MockJournal) Next(t *testing.T) es.Change {
	select {
	case c := <-mj.Changes:
		return c
	case <-time.After(Timeout):
		t.Fatal("no change recorded")
	}
	return es.Change{}
}
