package nyx

import (
	"encoding/json"
	"fmt"
	"nyx/pkg/transport"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucket    = "nyx"
	configKey = "nyx_config"
)

type MQTTConfig struct {
	Host      string `json:"host"` // empty disables the status mirror
	Username  string `json:"username"`
	Password  string `json:"password"`
	TopicRoot string `json:"topic_root"`
}

// Config holds the driver settings kept across runs.
type Config struct {
	Port         string `json:"port"`          // serial device or ws:// bridge URL
	BaudRate     int    `json:"baud_rate"`     // bits per second
	PollInterval int    `json:"poll_interval"` // milliseconds
	Timeout      int    `json:"timeout"`       // serial read timeout, milliseconds

	MQTTConfig `json:"mqtt"`
}

var defaultConfig = Config{
	Port:         "/dev/ttyUSB0",
	BaudRate:     transport.DefaultBaudRate,
	PollInterval: 1000,
	Timeout:      int(transport.DefaultTimeout.Milliseconds()),
	MQTTConfig: MQTTConfig{
		TopicRoot: "nyx",
	},
}

type store struct {
	db *bolt.DB
}

// NewStore creates a new store instance and sets default values if they are not already set.
func NewStore(db *bolt.DB) (*store, error) {
	st := store{db: db}

	if err := st.setDefaults(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *store) setDefaults() error {
	if _, err := s.GetConfig(); err != nil {
		log.Infof("Setting default mount config")
		return s.SetConfig(defaultConfig)
	}

	return nil
}

// SetConfig saves the driver configuration as a json string in the database.
func (s *store) SetConfig(cfg Config) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}

		value, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return b.Put([]byte(configKey), value)
	})
}

// GetConfig retrieves the driver configuration from the database.
func (s *store) GetConfig() (Config, error) {
	var cfg Config

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		value := b.Get([]byte(configKey))
		if value == nil {
			return fmt.Errorf("key %s not found", configKey)
		}

		return json.Unmarshal(value, &cfg)
	})

	return cfg, err
}

// update applies fn to the stored configuration and saves the result.
func (s *store) update(fn func(*Config)) (Config, error) {
	cfg, err := s.GetConfig()
	if err != nil {
		return cfg, err
	}
	fn(&cfg)
	return cfg, s.SetConfig(cfg)
}
