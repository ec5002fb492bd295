package nyx_simulator

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newMount(t *testing.T) *Mount {
	t.Helper()
	m, err := NewMount(nil, log.New())
	require.NoError(t, err)
	require.NoError(t, m.SetReadTimeout(10*time.Millisecond))
	return m
}

// exchange writes cmd and collects whatever the mount answered.
func exchange(t *testing.T, m *Mount, cmd string) string {
	t.Helper()
	_, err := m.Write([]byte(cmd))
	require.NoError(t, err)

	var res []byte
	buf := make([]byte, 64)
	for {
		n, err := m.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			return string(res)
		}
		res = append(res, buf[:n]...)
	}
}

func TestMountQueries(t *testing.T) {
	m := newMount(t)
	m.SetParked(false)
	m.SetPosition(5.5, -30.25)
	m.SetMeridian(5, 7)

	tests := []struct {
		name     string
		cmd      string
		expected string
	}{
		{"Status after boot", ":GU#", "nNpET#"},
		{"Right ascension", ":GR#", "05:30:00#"},
		{"Declination", ":GD#", "-30*15:00#"},
		{"Guide rate", ":GX90#", "0.50#"},
		{"Overhead limit", ":Go#", "90#"},
		{"Horizon limit", ":Gh#", "+00#"},
		{"Meridian east", ":GXE9#", "5#"},
		{"Meridian west", ":GXEA#", "7#"},
		{"RA motor", ":GXU1#", "ST,OK,OK,OK,OK,OK,OK,OK#"},
		{"Hard limit", ":GX9L#", "0#"},
		{"Pier side", ":Gm#", "E#"},
		{"Track on", ":Te#", "1"},
		{"Set target RA", ":Sr10:00:00#", "1"},
		{"Set target DEC", ":Sd+20*00:00#", "1"},
		{"No reply", ":hC#", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, exchange(t, m, tc.cmd))
		})
	}
}

func TestMountGotoCompletesAfterPolls(t *testing.T) {
	m := newMount(t)
	m.SetParked(false)
	m.SetSlewPolls(2)

	exchange(t, m, ":Sr10:00:00#")
	exchange(t, m, ":Sd+20*00:00#")
	require.Equal(t, "0", exchange(t, m, ":MS#"))

	assert.NotContains(t, exchange(t, m, ":GU#"), "N")
	assert.Contains(t, exchange(t, m, ":GU#"), "N")

	ra, dec := m.Position()
	assert.InDelta(t, 10.0, ra, 1e-9)
	assert.InDelta(t, 20.0, dec, 1e-9)
}

func TestMountGotoWhileParked(t *testing.T) {
	m := newMount(t)
	assert.Equal(t, "1Parked#", exchange(t, m, ":MS#"))
}

func TestMountParkCompletesOnNextPoll(t *testing.T) {
	m := newMount(t)
	m.SetParked(false)

	exchange(t, m, ":hP#")
	assert.False(t, m.Parked())
	assert.Contains(t, exchange(t, m, ":GU#"), "P")
	assert.True(t, m.Parked())

	exchange(t, m, ":hR#")
	assert.Contains(t, exchange(t, m, ":GU#"), "p")
}

func TestMountMeridianRegisters(t *testing.T) {
	m := newMount(t)

	exchange(t, m, ":SXE9,12#")
	exchange(t, m, ":SXEA,-4#")

	east, west := m.Meridian()
	assert.Equal(t, 12, east)
	assert.Equal(t, -4, west)
}

func TestMountFailureInjection(t *testing.T) {
	m := newMount(t)

	m.Withhold(":GR#", true)
	assert.Empty(t, exchange(t, m, ":GR#"))
	m.Withhold(":GR#", false)
	assert.NotEmpty(t, exchange(t, m, ":GR#"))

	m.SetRawStatus("nNP")
	assert.Equal(t, "nNP", exchange(t, m, ":GU#"))
	m.SetRawStatus("")
	assert.Equal(t, "nNPET#", exchange(t, m, ":GU#"))

	boom := errors.New("boom")
	m.FailWrites(boom)
	_, err := m.Write([]byte(":GU#"))
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{":GR#", ":GR#", ":GU#", ":GU#"}, m.Commands())
}

func TestMountPersistsParkPosition(t *testing.T) {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "sim.db"), 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	m, err := NewMount(db, log.New())
	require.NoError(t, err)
	require.NoError(t, m.SetReadTimeout(10*time.Millisecond))

	exchange(t, m, ":hC#")
	exchange(t, m, ":hQ#")

	m2, err := NewMount(db, log.New())
	require.NoError(t, err)
	assert.Equal(t, float64(defaultHomeAz), m2.config.ParkAz)
	assert.Equal(t, float64(defaultHomeAlt), m2.config.ParkAlt)
}

func TestMountClosed(t *testing.T) {
	m := newMount(t)
	require.NoError(t, m.Close())

	_, err := m.Write([]byte(":GU#"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
}
