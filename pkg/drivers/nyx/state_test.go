package nyx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTrackState(t *testing.T) {
	tests := []struct {
		name       string
		current    TrackState
		status     string
		trackingOn bool
		expected   TrackState
	}{
		{"Slew completes", StateSlewing, "Np#", true, StateTracking},
		{"Slew in progress", StateSlewing, "p#", true, StateSlewing},
		{"Park reported while tracking", StateTracking, "nNP#", false, StateParked},
		{"Park reported while slewing", StateSlewing, "nP#", true, StateParked},
		{"Park reported while parking", StateParking, "nNP#", false, StateParked},
		{"Already parked", StateParked, "nNP#", false, StateParked},
		{"Mount started tracking", StateIdle, "Np#", false, StateTracking},
		{"Mount stopped tracking", StateTracking, "nNp#", true, StateIdle},
		{"Tracking agrees with switch", StateTracking, "Np#", true, StateTracking},
		{"Idle agrees with switch", StateIdle, "nNp#", false, StateIdle},
		{"Parking while not tracking", StateParking, "nNp#", false, StateParking},
		{"Degraded report keeps tracking", StateTracking, "", true, StateTracking},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextTrackState(tc.current, DecodeStatus(tc.status), tc.trackingOn)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNextTrackStateSlewThenPark(t *testing.T) {
	state := StateSlewing

	state = NextTrackState(state, DecodeStatus("Np#"), true)
	assert.Equal(t, StateTracking, state)

	// A second complete report does not transition again.
	state = NextTrackState(state, DecodeStatus("Np#"), true)
	assert.Equal(t, StateTracking, state)

	state = NextTrackState(state, DecodeStatus("NP#"), true)
	assert.Equal(t, StateParked, state)
}

func TestTrackStateString(t *testing.T) {
	assert.Equal(t, "Parking", StateParking.String())
	assert.Equal(t, "Unknown", TrackState(42).String())
}
