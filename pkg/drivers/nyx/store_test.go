package nyx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "nyx.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreDefaults(t *testing.T) {
	st, err := NewStore(openTestDB(t))
	require.NoError(t, err)

	cfg, err := st.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, cfg)
	assert.Equal(t, "nyx", cfg.TopicRoot)
	assert.Empty(t, cfg.MQTTConfig.Host)
}

func TestStoreKeepsExistingConfig(t *testing.T) {
	db := openTestDB(t)

	st, err := NewStore(db)
	require.NoError(t, err)

	cfg := defaultConfig
	cfg.Port = "ws://bridge.local/serial"
	cfg.Timeout = 500
	cfg.MQTTConfig.Host = "tcp://broker:1883"
	require.NoError(t, st.SetConfig(cfg))

	// A second store on the same database must not reset it.
	st, err = NewStore(db)
	require.NoError(t, err)

	got, err := st.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestStoreUpdate(t *testing.T) {
	st, err := NewStore(openTestDB(t))
	require.NoError(t, err)

	cfg, err := st.update(func(c *Config) { c.PollInterval = 250 })
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.PollInterval)

	got, err := st.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, got.PollInterval)
	assert.Equal(t, defaultConfig.BaudRate, got.BaudRate)
}
