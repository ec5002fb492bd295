package mirror

import (
	"encoding/json"
	"fmt"
	"nyx/pkg/drivers/nyx"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// publisher is the part of mqtt.Client the mirror needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// createMQTTClient connects to the broker in cfg. The broker marks the
// mirror offline if the connection drops.
func createMQTTClient(cfg nyx.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.SetClientID("nyx101-indi")
	opts.AddBroker(cfg.Host)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetWill(cfg.TopicRoot+"/online", "false", 0, true)

	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}
	return mqttClient, nil
}

// MQTT publishes every poll report as a retained JSON document on
// <topic root>/status.
type MQTT struct {
	client mqtt.Client
	pub    publisher
	root   string
	logger log.FieldLogger
}

func NewMQTT(cfg nyx.MQTTConfig, logger log.FieldLogger) (*MQTT, error) {
	client, err := createMQTTClient(cfg)
	if err != nil {
		return nil, err
	}

	m := &MQTT{
		client: client,
		pub:    client,
		root:   cfg.TopicRoot,
		logger: logger.WithField("component", "mirror"),
	}
	m.publish("online", "true")

	m.logger.Infof("Mirroring status to %s on %s", cfg.TopicRoot, cfg.Host)
	return m, nil
}

func (m *MQTT) Close() {
	if m.client == nil {
		return
	}
	m.publish("online", "false")
	m.client.Disconnect(100)
	m.logger.Info("Disconnected from MQTT broker")
}

// ObserveStatus publishes r. Failures are logged and otherwise ignored.
func (m *MQTT) ObserveStatus(r nyx.StatusReport) {
	payload, err := json.Marshal(NewStatus(r))
	if err != nil {
		m.logger.Errorf("Failed to encode status: %v", err)
		return
	}
	m.publish("status", payload)
}

func (m *MQTT) publish(topic string, payload interface{}) {
	token := m.pub.Publish(m.root+"/"+topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		m.logger.Warnf("Timed out publishing %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warnf("Failed to publish %s: %v", topic, err)
	}
}

type Motor struct {
	Raw   string `json:"raw"`
	State string `json:"state"`
	Fault string `json:"fault,omitempty"`
}

// Status is the document published on the status topic.
type Status struct {
	Time         time.Time `json:"time"`
	Raw          string    `json:"raw"`
	Complete     bool      `json:"complete"`
	TrackState   string    `json:"track_state"`
	Tracking     bool      `json:"tracking"`
	SlewComplete bool      `json:"slew_complete"`
	Parked       bool      `json:"parked"`
	AtHome       bool      `json:"at_home"`
	TrackMode    string    `json:"track_mode"`
	MountType    string    `json:"mount_type"`
	PierSide     string    `json:"pier_side"`
	Refraction   bool      `json:"refraction"`
	RAMotor      Motor     `json:"ra_motor"`
	DECMotor     Motor     `json:"dec_motor"`
}

func newMotor(raw string, h nyx.MotorHealth) Motor {
	m := Motor{Raw: raw, State: h.String()}
	if h.Fault != nyx.FaultNone {
		m.Fault = h.Fault.String()
	}
	return m
}

func NewStatus(r nyx.StatusReport) Status {
	s := r.Status
	return Status{
		Time:         r.Time.UTC(),
		Raw:          r.Raw,
		Complete:     s.Complete,
		TrackState:   r.TrackState.String(),
		Tracking:     s.Tracking,
		SlewComplete: s.SlewComplete,
		Parked:       s.Parked,
		AtHome:       s.AtHome,
		TrackMode:    s.TrackMode.String(),
		MountType:    s.MountType.String(),
		PierSide:     s.PierSide.String(),
		Refraction:   s.Refraction,
		RAMotor:      newMotor(r.RAMotorRaw, r.RAMotor),
		DECMotor:     newMotor(r.DECMotorRaw, r.DECMotor),
	}
}
