package indi

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSaveAndReplay(t *testing.T) {
	elev := elevationLimit()
	elev.Find("ELEVATION_OVERHEAD").Value = 80
	rate := guideRate()
	rate.Select(2)
	horiz := NumberVector{
		Name:    "HORIZONTAL_COORD",
		Perm:    ReadOnly,
		Numbers: []Number{{Name: "AZ", Min: 0, Max: 360, Value: 12}},
	}
	tvp := TextVector{Name: "DEVICE_PORT", Perm: ReadWrite, Texts: []Text{{Name: "PORT", Text: "/dev/ttyUSB0"}}}

	var file bytes.Buffer
	cw := NewConfigWriter(&file, testDevice)
	cw.Number(&elev)
	cw.Switch(&rate)
	cw.Number(&horiz)
	cw.Text(&tvp)
	require.NoError(t, cw.Close())

	assert.True(t, strings.HasPrefix(file.String(), "<INDIDriver>\n"))
	assert.True(t, strings.HasSuffix(file.String(), "</INDIDriver>\n"))

	// The live device defines everything but DEVICE_PORT.
	var out bytes.Buffer
	d := NewDevice(testDevice, NewWriter(&out), log.New())
	live := elevationLimit()
	d.DefineNumber(&live, "")
	liveRate := guideRate()
	d.DefineSwitch(&liveRate, "")
	liveHoriz := horiz
	d.DefineNumber(&liveHoriz, "")

	rec := newRecorder()
	err := LoadConfig(bytes.NewReader(file.Bytes()), testDevice, "", func(m *Message) error {
		return d.Dispatch(m, rec)
	})
	assert.ErrorIs(t, err, ErrReadOnly)

	assert.Equal(t, []NumberValue{{"ELEVATION_OVERHEAD", 80}, {"ELEVATION_HORIZON", 0}}, rec.numbers["ELEVATION_LIMIT"])
	assert.Equal(t, []SwitchValue{{"0.25", Off}, {"0.50", Off}, {"1.00", On}}, rec.switches["GUIDE_RATE"])
	assert.NotContains(t, rec.numbers, "HORIZONTAL_COORD")
	assert.Empty(t, rec.texts)
}

func TestLoadConfigSingleProperty(t *testing.T) {
	file := `<INDIDriver>
<newSwitchVector device="Pegasus NYX-101" name="MOUNT_TYPE"><oneSwitch name="AltAz">On</oneSwitch><oneSwitch name="Equatorial">Off</oneSwitch></newSwitchVector>
<newSwitchVector device="Pegasus NYX-101" name="GUIDE_RATE"><oneSwitch name="0.25">On</oneSwitch></newSwitchVector>
<newSwitchVector device="Focuser" name="MOUNT_TYPE"><oneSwitch name="AltAz">Off</oneSwitch></newSwitchVector>
</INDIDriver>`

	var names []string
	err := LoadConfig(strings.NewReader(file), testDevice, "MOUNT_TYPE", func(m *Message) error {
		names = append(names, m.Device+"/"+m.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pegasus NYX-101/MOUNT_TYPE"}, names)
}

func TestConfigOnSwitchIndex(t *testing.T) {
	file := `<INDIDriver>
<newSwitchVector device="Pegasus NYX-101" name="GUIDE_RATE">
  <oneSwitch name="0.25">Off</oneSwitch>
  <oneSwitch name="0.50">Off</oneSwitch>
  <oneSwitch name="1.00">On</oneSwitch>
</newSwitchVector>
</INDIDriver>`

	idx, err := ConfigOnSwitchIndex(strings.NewReader(file), testDevice, "GUIDE_RATE")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = ConfigOnSwitchIndex(strings.NewReader(file), testDevice, "MOUNT_TYPE")
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("INDICONFIG", "/tmp/nyx.xml")
	assert.Equal(t, "/tmp/nyx.xml", ConfigPath(testDevice))

	t.Setenv("INDICONFIG", "")
	t.Setenv("HOME", "/home/observer")
	assert.Equal(t, filepath.Join("/home/observer", ".indi", "Pegasus NYX-101_config.xml"), ConfigPath(testDevice))
}
