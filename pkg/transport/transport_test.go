package transport

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort answers every write with the next canned reply.
type fakePort struct {
	replies  []string
	rx       bytes.Buffer
	written  []string
	flushes  int
	drains   int
	writeErr error
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.rx.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	return p.rx.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, string(b))
	if len(p.replies) > 0 {
		p.rx.WriteString(p.replies[0])
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.flushes++
	p.rx.Reset()
	return nil
}

func (p *fakePort) Drain() error {
	p.drains++
	return nil
}

func (p *fakePort) ResetOutputBuffer() error           { return nil }
func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (p *fakePort) Close() error                       { return nil }

func newTestTransport(p Port) *Transport {
	return New(p, 50*time.Millisecond, log.New())
}

func TestExchange(t *testing.T) {
	tests := []struct {
		name           string
		replies        []string
		expectResponse bool
		length         int
		expected       string
		expectErr      error
	}{
		{
			name:     "Fire and forget",
			replies:  []string{"ignored#"},
			expected: "",
		},
		{
			name:           "Read to terminator",
			replies:        []string{"nNpE#trailing"},
			expectResponse: true,
			expected:       "nNpE#",
		},
		{
			name:           "Fixed length",
			replies:        []string{"1extra"},
			expectResponse: true,
			length:         1,
			expected:       "1",
		},
		{
			name:           "Missing terminator times out",
			replies:        []string{"nNp"},
			expectResponse: true,
			expected:       "nNp",
			expectErr:      ErrTimeout,
		},
		{
			name:           "Overlong response without terminator",
			replies:        []string{strings.Repeat("x", maxResponse+8)},
			expectResponse: true,
			expected:       strings.Repeat("x", maxResponse),
			expectErr:      ErrNoTerminator,
		},
		{
			name:           "Short fixed length times out",
			replies:        []string{""},
			expectResponse: true,
			length:         2,
			expected:       "",
			expectErr:      ErrRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{replies: tt.replies}
			tr := newTestTransport(port)

			res, err := tr.Exchange(":CMD#", tt.expectResponse, tt.length)
			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				assert.True(t, errors.Is(err, ErrRead))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, string(res))
			assert.Equal(t, []string{":CMD#"}, port.written)
			assert.Equal(t, 1, port.flushes)
		})
	}
}

func TestExchangeDrainsWithoutResponse(t *testing.T) {
	port := &fakePort{}
	tr := newTestTransport(port)

	require.NoError(t, tr.Send(":hC#"))
	assert.Equal(t, 1, port.drains)
}

func TestExchangeWriteError(t *testing.T) {
	port := &fakePort{writeErr: errors.New("broken pipe")}
	tr := newTestTransport(port)

	_, err := tr.Exchange(":GU#", true, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
}

func TestQueryTrimsTerminator(t *testing.T) {
	port := &fakePort{replies: []string{"45#"}}
	tr := newTestTransport(port)

	res, err := tr.Query(":GXE9#")
	require.NoError(t, err)
	assert.Equal(t, "45", res)
}

func TestExchangeAfterClose(t *testing.T) {
	tr := newTestTransport(&fakePort{})
	require.NoError(t, tr.Close())

	_, err := tr.Query(":GU#")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestWebSocketPort(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == ":GU#" {
				// Split the reply over two frames.
				conn.WriteMessage(websocket.BinaryMessage, []byte("nN"))
				conn.WriteMessage(websocket.BinaryMessage, []byte("pE#"))
			}
		}
	}))
	defer srv.Close()

	port, err := OpenWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), "", "", false)
	require.NoError(t, err)

	tr := New(port, time.Second, log.New())
	defer tr.Close()

	res, err := tr.Query(":GU#")
	require.NoError(t, err)
	assert.Equal(t, "nNpE", res)

	_, err = tr.QueryN(":XX#", 1)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestOpenWebSocketRejectsScheme(t *testing.T) {
	_, err := OpenWebSocket("http://localhost:1", "", "", false)
	assert.Error(t, err)
}
