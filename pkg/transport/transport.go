package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Terminator ends every command and every variable length response.
	Terminator = '#'

	DefaultTimeout = 3 * time.Second

	// maxResponse bounds a read-to-terminator response.
	maxResponse = 64
)

var (
	ErrWrite   = errors.New("serial write error")
	ErrRead    = errors.New("serial read error")
	ErrTimeout = errors.New("timeout")
	ErrClosed  = errors.New("port closed")

	// ErrNoTerminator is a response that filled the read buffer without a
	// terminator. The partial response is returned with it.
	ErrNoTerminator = errors.New("no terminator")
)

// Port is the byte channel the transport runs on. go.bug.st/serial ports
// satisfy it directly.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Drain() error
	SetReadTimeout(t time.Duration) error
}

// Transport performs synchronous command/response exchanges with the mount.
// Exchanges are serialized; there is no retry.
type Transport struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	logger  log.FieldLogger
}

func New(port Port, timeout time.Duration, logger log.FieldLogger) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{
		port:    port,
		timeout: timeout,
		logger:  logger.WithField("component", "transport"),
	}
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Exchange sends cmd after flushing any stale bytes in both directions.
//
// With expectResponse false it writes and drains the output buffer. With a
// positive responseLength it reads exactly that many bytes, otherwise it reads
// up to and including the terminator. The returned slice is the raw response.
func (t *Transport) Exchange(cmd string, expectResponse bool, responseLength int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, ErrClosed)
	}

	// Stale input usually is the tail of an earlier response we did not wait for.
	if err := t.port.ResetInputBuffer(); err != nil {
		t.logger.Debugf("Failed to flush input: %v", err)
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		t.logger.Debugf("Failed to flush output: %v", err)
	}

	t.logger.Debugf("CMD <%s>", cmd)

	if _, err := t.port.Write([]byte(cmd)); err != nil {
		t.logger.Errorf("Serial write error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if !expectResponse {
		if err := t.port.Drain(); err != nil {
			t.logger.Errorf("Serial drain error: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		return nil, nil
	}

	var (
		res []byte
		err error
	)
	if responseLength > 0 {
		res, err = t.readN(responseLength)
	} else {
		res, err = t.readSection()
	}
	if err != nil {
		t.logger.Errorf("Serial read error for %s: %v", cmd, err)
		return res, err
	}

	t.logger.Debugf("RES <%s>", res)
	return res, nil
}

// Send writes a command that produces no response.
func (t *Transport) Send(cmd string) error {
	_, err := t.Exchange(cmd, false, 0)
	return err
}

// Query sends cmd and returns the response without its terminator.
func (t *Transport) Query(cmd string) (string, error) {
	res, err := t.Exchange(cmd, true, 0)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(res, []byte{Terminator})), nil
}

// QueryN sends cmd and returns exactly n response bytes.
func (t *Transport) QueryN(cmd string, n int) (string, error) {
	res, err := t.Exchange(cmd, true, n)
	return string(res), err
}

func (t *Transport) readN(n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	deadline := time.Now().Add(t.timeout)

	for len(buf) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf, fmt.Errorf("%w: %w", ErrRead, ErrTimeout)
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return buf, fmt.Errorf("%w: %v", ErrRead, err)
		}

		k, err := t.port.Read(chunk[:n-len(buf)])
		if err != nil {
			return buf, fmt.Errorf("%w: %v", ErrRead, err)
		}
		buf = append(buf, chunk[:k]...)
	}
	return buf, nil
}

func (t *Transport) readSection() ([]byte, error) {
	buf := make([]byte, 0, maxResponse)
	one := make([]byte, 1)
	deadline := time.Now().Add(t.timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf, fmt.Errorf("%w: %w", ErrRead, ErrTimeout)
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return buf, fmt.Errorf("%w: %v", ErrRead, err)
		}

		k, err := t.port.Read(one)
		if err != nil {
			return buf, fmt.Errorf("%w: %v", ErrRead, err)
		}
		if k == 0 {
			continue
		}

		buf = append(buf, one[0])
		if one[0] == Terminator {
			return buf, nil
		}
		if len(buf) >= maxResponse {
			return buf, fmt.Errorf("%w: %w after %d bytes", ErrRead, ErrNoTerminator, maxResponse)
		}
	}
}
