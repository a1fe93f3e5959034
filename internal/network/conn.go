package network

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Time allowed to write a WebSocket frame.
const writeWait = 10 * time.Second

// LineConn is a bidirectional stream of protocol lines. Reads are done by a
// single goroutine; writes may come from several and are serialised.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() net.Addr
}

// tcpConn carries one line per newline terminated record.
type tcpConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu sync.Mutex
	w   *bufio.Writer
}

// NewTCPConn wraps a stream socket. Lines longer than MaxLineSize fail the read.
func NewTCPConn(conn net.Conn) LineConn {
	s := bufio.NewScanner(conn)
	s.Buffer(make([]byte, 0, 512), MaxLineSize)
	return &tcpConn{
		conn:    conn,
		scanner: s,
		w:       bufio.NewWriter(conn),
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

func (c *tcpConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *tcpConn) Close() error { return c.conn.Close() }

func (c *tcpConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// wsConn carries protocol lines in WebSocket text frames. A frame may hold
// several newline separated lines; they are handed out one by one.
type wsConn struct {
	conn    *websocket.Conn
	pending []string

	wmu sync.Mutex
}

// NewWSConn wraps an upgraded WebSocket connection.
func NewWSConn(conn *websocket.Conn) LineConn {
	conn.SetReadLimit(MaxLineSize)
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimRight(line, "\r"); line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() error {
	c.wmu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
