package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketPort carries the serial byte stream over a serial-to-WebSocket
// bridge. Each binary frame holds a run of raw bytes.
//
// Frames are pumped by a reader goroutine so a read timeout does not tear
// down the connection.
type WebSocketPort struct {
	conn    *websocket.Conn
	frames  chan []byte
	done    chan struct{}
	once    sync.Once
	readErr error

	buf     []byte
	timeout time.Duration
}

// OpenWebSocket dials a bridge, using HTTP Basic auth when a username and
// password are given.
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocketPort, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebSocketPort(conn), nil
}

func newWebSocketPort(conn *websocket.Conn) *WebSocketPort {
	p := &WebSocketPort{
		conn:    conn,
		frames:  make(chan []byte, 16),
		done:    make(chan struct{}),
		timeout: DefaultTimeout,
	}
	go p.pump()
	return p
}

func (p *WebSocketPort) pump() {
	defer close(p.frames)
	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			p.readErr = err
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case p.frames <- data:
		case <-p.done:
			return
		}
	}
}

// Read returns buffered bytes, or waits up to the read timeout for the next
// frame. A timeout yields (0, nil) like a serial port.
func (p *WebSocketPort) Read(b []byte) (int, error) {
	if len(p.buf) > 0 {
		n := copy(b, p.buf)
		p.buf = p.buf[n:]
		return n, nil
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case data, ok := <-p.frames:
		if !ok {
			if p.readErr != nil {
				return 0, p.readErr
			}
			return 0, ErrClosed
		}
		n := copy(b, data)
		p.buf = data[n:]
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (p *WebSocketPort) Write(b []byte) (int, error) {
	if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// ResetInputBuffer discards the partial frame and every queued frame.
func (p *WebSocketPort) ResetInputBuffer() error {
	p.buf = nil
	for {
		select {
		case _, ok := <-p.frames:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (p *WebSocketPort) ResetOutputBuffer() error { return nil }

// Drain is a no-op: WriteMessage returns once the frame is on the socket.
func (p *WebSocketPort) Drain() error { return nil }

func (p *WebSocketPort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *WebSocketPort) Close() error {
	p.once.Do(func() { close(p.done) })
	return p.conn.Close()
}
