package nyx_simulator

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucket = "nyx_simulator"

	defaultParkAz       = 180
	defaultParkAlt      = 0
	defaultHomeAz       = 0
	defaultHomeAlt      = 45
	defaultMeridianE    = 0
	defaultMeridianW    = 0
	defaultSlewDuration = 3

	mountConfigKey = "mount_config"
)

// MountConfig holds the settings the simulated mount keeps across power
// cycles.
type MountConfig struct {
	ParkAz    float64 `json:"park_az"`    // degrees
	ParkAlt   float64 `json:"park_alt"`   // degrees
	HomeAz    float64 `json:"home_az"`    // degrees
	HomeAlt   float64 `json:"home_alt"`   // degrees
	AltAz     bool    `json:"alt_az"`     // mount type, applied at reboot
	MeridianE int     `json:"meridian_e"` // minutes past the meridian
	MeridianW int     `json:"meridian_w"` // minutes past the meridian
	SlewPolls int     `json:"slew_polls"` // status polls a goto takes
}

var defaultMountConfig = MountConfig{
	ParkAz:    defaultParkAz,
	ParkAlt:   defaultParkAlt,
	HomeAz:    defaultHomeAz,
	HomeAlt:   defaultHomeAlt,
	MeridianE: defaultMeridianE,
	MeridianW: defaultMeridianW,
	SlewPolls: defaultSlewDuration,
}

type store struct {
	db *bolt.DB
}

func NewStore(db *bolt.DB) (*store, error) {
	st := store{db: db}

	if err := st.setDefaults(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *store) setDefaults() error {
	if _, err := s.GetMountConfig(); err != nil {
		log.Infof("Setting default simulator config")
		return s.SetMountConfig(defaultMountConfig)
	}

	return nil
}

// SetMountConfig saves the simulator configuration as a json string in the database.
func (s *store) SetMountConfig(cfg MountConfig) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}

		value, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return b.Put([]byte(mountConfigKey), value)
	})
}

// GetMountConfig retrieves the simulator configuration from the database.
func (s *store) GetMountConfig() (MountConfig, error) {
	var cfg MountConfig

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		value := b.Get([]byte(mountConfigKey))
		if value == nil {
			return fmt.Errorf("key %s not found", mountConfigKey)
		}

		return json.Unmarshal(value, &cfg)
	})

	return cfg, err
}
