package nyx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Snapshot
	}{
		{
			name:  "Empty report keeps the baseline",
			input: "",
			expected: Snapshot{
				Tracking:  true,
				TrackMode: TrackSidereal,
				MountType: MountEquatorial,
				PierSide:  PierUnknown,
			},
		},
		{
			name:  "Tracking sidereal on the east side",
			input: "NpET#",
			expected: Snapshot{
				Tracking:     true,
				SlewComplete: true,
				TrackMode:    TrackSidereal,
				MountType:    MountEquatorial,
				PierSide:     PierEast,
				Complete:     true,
			},
		},
		{
			name:  "Parked alt-az mount",
			input: "nNPA#",
			expected: Snapshot{
				Tracking:     false,
				SlewComplete: true,
				Parked:       true,
				TrackMode:    TrackSidereal,
				MountType:    MountAltAz,
				PierSide:     PierUnknown,
				Complete:     true,
			},
		},
		{
			name:  "Home and park sub-flags",
			input: "nIFHwuh#",
			expected: Snapshot{
				TrackMode:      TrackSidereal,
				MountType:      MountEquatorial,
				AtHome:         true,
				WaitingAtHome:  true,
				HomePaused:     true,
				SlewingHome:    true,
				ParkInProgress: true,
				ParkFailed:     true,
				Complete:       true,
			},
		},
		{
			name:  "Lunar tracking with refraction on the west side",
			input: "(rW#",
			expected: Snapshot{
				Tracking:   true,
				TrackMode:  TrackLunar,
				MountType:  MountEquatorial,
				PierSide:   PierWest,
				Refraction: true,
				Complete:   true,
			},
		},
		{
			name:  "Unknown characters are ignored",
			input: "xyz0k!#",
			expected: Snapshot{
				Tracking:  true,
				TrackMode: TrackKing,
				MountType: MountEquatorial,
				Complete:  true,
			},
		},
		{
			name:  "Missing terminator is degraded",
			input: "nNO",
			expected: Snapshot{
				SlewComplete: true,
				TrackMode:    TrackSolar,
				MountType:    MountEquatorial,
			},
		},
		{
			name:  "Characters after the terminator are not decoded",
			input: "N#nP",
			expected: Snapshot{
				Tracking:     true,
				SlewComplete: true,
				TrackMode:    TrackSidereal,
				MountType:    MountEquatorial,
				Complete:     true,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DecodeStatus(tc.input))
		})
	}
}

func TestDecodeStatusParkedWins(t *testing.T) {
	inputs := []string{"P#", "pP#", "Pp#", "pPp#", "nNPpET#", "P", "xPx", "(kOPAE#"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.True(t, DecodeStatus(input).Parked)
		})
	}
}
