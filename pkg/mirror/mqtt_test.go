package mirror

import (
	"encoding/json"
	"errors"
	"nyx/pkg/drivers/nyx"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	err  error
	msgs []published
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	}
	p.msgs = append(p.msgs, published{topic, retained, b})
	return newToken(p.err)
}

func report() nyx.StatusReport {
	return nyx.StatusReport{
		Time:        time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC),
		Raw:         "NpOET#",
		Status:      nyx.DecodeStatus("NpOET#"),
		TrackState:  nyx.StateTracking,
		RAMotor:     nyx.ClassifyMotor("SL,OK,OK,OK,OK,OK,OK,OK"),
		DECMotor:    nyx.ClassifyMotor("ST,OK,OK,GA,OK,OK,OK,OK"),
		RAMotorRaw:  "SL,OK,OK,OK,OK,OK,OK,OK",
		DECMotorRaw: "ST,OK,OK,GA,OK,OK,OK,OK",
	}
}

func TestNewStatus(t *testing.T) {
	s := NewStatus(report())

	assert.Equal(t, "Tracking", s.TrackState)
	assert.True(t, s.Complete)
	assert.True(t, s.Tracking)
	assert.True(t, s.SlewComplete)
	assert.False(t, s.Parked)
	assert.Equal(t, "Solar", s.TrackMode)
	assert.Equal(t, "Equatorial", s.MountType)
	assert.Equal(t, "East", s.PierSide)
	assert.Equal(t, Motor{Raw: "SL,OK,OK,OK,OK,OK,OK,OK", State: "Moving"}, s.RAMotor)
	assert.Equal(t, "FAULT", s.DECMotor.State)
	assert.Equal(t, "Ground short A", s.DECMotor.Fault)
}

func TestObserveStatusPublishesRetained(t *testing.T) {
	pub := &fakePublisher{}
	m := &MQTT{pub: pub, root: "observatory/nyx", logger: log.New()}

	m.ObserveStatus(report())

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "observatory/nyx/status", msg.topic)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "NpOET#", got["raw"])
	assert.Equal(t, "2026-03-01T22:15:00Z", got["time"])
	assert.NotContains(t, got["ra_motor"], "fault")
}

func TestObserveStatusIgnoresPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	m := &MQTT{pub: pub, root: "nyx", logger: log.New()}

	assert.NotPanics(t, func() { m.ObserveStatus(report()) })
	assert.Len(t, pub.msgs, 1)
}

func TestCloseWithoutClient(t *testing.T) {
	pub := &fakePublisher{}
	m := &MQTT{pub: pub, root: "nyx", logger: log.New()}

	m.Close()
	assert.Empty(t, pub.msgs)
}
