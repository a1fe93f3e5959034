package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"nsulife/internal/network"

	"github.com/stretchr/testify/require"
)

// recorder implements Observer and TurnHandler and turns every callback into
// a line on a channel.
type recorder struct {
	events chan string
}

func newRecorder() *recorder { return &recorder{events: make(chan string, 64)} }

func (r *recorder) OnLobbyUpdate(n int)        { r.events <- fmt.Sprintf("lobby %d", n) }
func (r *recorder) OnStartGame()               { r.events <- "start" }
func (r *recorder) OnJoinRejected()            { r.events <- "rejected" }
func (r *recorder) OnGameReset()               { r.events <- "reset" }
func (r *recorder) OnConnectionLost(err error) { r.events <- "lost" }

func (r *recorder) OnPlayerMove(mv network.Move) {
	r.events <- fmt.Sprintf("move %d %.0f %.0f %v", mv.PlayerID, mv.X, mv.Y, mv.Moving)
}
func (r *recorder) OnPlayerDisconnect(id int) { r.events <- fmt.Sprintf("gone %d", id) }
func (r *recorder) OnTurnUpdate(u network.TurnUpdate) {
	r.events <- fmt.Sprintf("turn %d %d %s", u.PlayerID, u.TurnNumber, u.Kind)
}
func (r *recorder) OnPlayerHover(h network.Hover) { r.events <- fmt.Sprintf("hover %d %d", h.PlayerID, h.Index) }
func (r *recorder) OnPlayerStats(s network.Stats) { r.events <- fmt.Sprintf("stats %d %d", s.PlayerID, s.Money) }

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return ""
	}
}

// fakeServer accepts one connection and lets the test drive it.
type fakeServer struct {
	ln   net.Listener
	conn net.Conn
	r    *bufio.Reader
}

func listen(t *testing.T) (*fakeServer, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	addr := ln.Addr().(*net.TCPAddr)
	return &fakeServer{ln: ln}, "127.0.0.1", addr.Port
}

func (f *fakeServer) accept(t *testing.T) {
	t.Helper()
	c, err := f.ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	f.conn = c
	f.r = bufio.NewReader(c)
}

func (f *fakeServer) write(t *testing.T, lines ...string) {
	t.Helper()
	_, err := f.conn.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
}

func (f *fakeServer) read(t *testing.T) string {
	t.Helper()
	f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := f.r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}
