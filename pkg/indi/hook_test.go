package indi

import (
	"bytes"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageHook(t *testing.T) {
	var out bytes.Buffer
	d := NewDevice(testDevice, NewWriter(&out), log.New())

	logger := log.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(NewMessageHook(d, log.InfoLevel))

	logger.WithField("device", testDevice).Info("Mount is parked")
	logger.WithField("device", testDevice).Warn("Meridian limits differ")
	logger.WithField("device", testDevice).Debug("CMD <:GU#>")
	logger.WithField("device", "Focuser").Info("Not ours")
	logger.Info("No device")

	msgs := readAll(t, &out)
	require.Len(t, msgs, 2)
	assert.Equal(t, "[INFO] Mount is parked", msgs[0].Message)
	assert.Equal(t, "[WARNING] Meridian limits differ", msgs[1].Message)
	assert.Equal(t, testDevice, msgs[0].Device)
}
