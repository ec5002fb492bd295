package indi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guideRate() SwitchVector {
	return SwitchVector{
		Name: "GUIDE_RATE",
		Perm: ReadWrite,
		Rule: OneOfMany,
		Switches: []Switch{
			{Name: "0.25"},
			{Name: "0.50", State: On},
			{Name: "1.00"},
		},
		State: StateOk,
	}
}

func onStates(svp *SwitchVector) []bool {
	var states []bool
	for _, sp := range svp.Switches {
		states = append(states, bool(sp.State))
	}
	return states
}

func TestUpdateSwitch(t *testing.T) {
	tests := []struct {
		name        string
		rule        SwitchRule
		values      []SwitchValue
		expected    []bool
		expectError string
	}{
		{
			name:     "Select another switch",
			values:   []SwitchValue{{Name: "1.00", State: On}},
			expected: []bool{false, false, true},
		},
		{
			name:        "Zero switches on reverts",
			values:      []SwitchValue{{Name: "0.50", State: Off}},
			expected:    []bool{false, true, false},
			expectError: "No switch is on",
		},
		{
			name:        "Two switches on reverts",
			values:      []SwitchValue{{Name: "0.25", State: On}, {Name: "1.00", State: On}},
			expected:    []bool{false, true, false},
			expectError: "Too many switches are on",
		},
		{
			name:        "Unknown switch leaves vector untouched",
			values:      []SwitchValue{{Name: "0.25", State: On}, {Name: "2.00", State: On}},
			expected:    []bool{false, true, false},
			expectError: "2.00 is not a member of GUIDE_RATE property.",
		},
		{
			name:     "At most one allows none",
			rule:     AtMostOne,
			values:   []SwitchValue{{Name: "0.50", State: Off}},
			expected: []bool{false, false, false},
		},
		{
			name:        "At most one rejects two",
			rule:        AtMostOne,
			values:      []SwitchValue{{Name: "0.25", State: On}},
			expected:    []bool{false, true, false},
			expectError: "Too many switches are on",
		},
		{
			name:     "Any of many",
			rule:     AnyOfMany,
			values:   []SwitchValue{{Name: "0.25", State: On}, {Name: "1.00", State: On}},
			expected: []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svp := guideRate()
			svp.Rule = tt.rule

			err := UpdateSwitch(&svp, tt.values)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				assert.Equal(t, StateIdle, svp.State)
			} else {
				require.NoError(t, err)
				assert.Equal(t, StateOk, svp.State)
			}
			assert.Equal(t, tt.expected, onStates(&svp))
		})
	}
}

func elevationLimit() NumberVector {
	return NumberVector{
		Name: "ELEVATION_LIMIT",
		Perm: ReadWrite,
		Numbers: []Number{
			{Name: "ELEVATION_OVERHEAD", Min: 60, Max: 90, Step: 1, Value: 90},
			{Name: "ELEVATION_HORIZON", Min: -30, Max: 0, Step: 1, Value: 0},
		},
		State: StateOk,
	}
}

func TestUpdateNumber(t *testing.T) {
	tests := []struct {
		name        string
		values      []NumberValue
		overhead    float64
		horizon     float64
		state       PropertyState
		expectError bool
	}{
		{
			name:     "Both in range",
			values:   []NumberValue{{"ELEVATION_OVERHEAD", 75}, {"ELEVATION_HORIZON", -10}},
			overhead: 75,
			horizon:  -10,
			state:    StateOk,
		},
		{
			name:        "Second out of range commits nothing",
			values:      []NumberValue{{"ELEVATION_OVERHEAD", 75}, {"ELEVATION_HORIZON", 10}},
			overhead:    90,
			horizon:     0,
			state:       StateAlert,
			expectError: true,
		},
		{
			name:        "Unknown element",
			values:      []NumberValue{{"ELEVATION_OVERHEAD", 75}, {"ELEVATION_ZENITH", 1}},
			overhead:    90,
			horizon:     0,
			state:       StateIdle,
			expectError: true,
		},
		{
			name:     "Bounds are inclusive",
			values:   []NumberValue{{"ELEVATION_OVERHEAD", 60}, {"ELEVATION_HORIZON", -30}},
			overhead: 60,
			horizon:  -30,
			state:    StateOk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nvp := elevationLimit()

			err := UpdateNumber(&nvp, tt.values)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.overhead, nvp.Find("ELEVATION_OVERHEAD").Value)
			assert.Equal(t, tt.horizon, nvp.Find("ELEVATION_HORIZON").Value)
			assert.Equal(t, tt.state, nvp.State)
		})
	}
}

func TestUpdateNumberRangeMessage(t *testing.T) {
	nvp := elevationLimit()

	err := UpdateNumber(&nvp, []NumberValue{{"ELEVATION_HORIZON", 5}})
	require.Error(t, err)
	assert.Equal(t, "Error: Invalid range for ELEVATION_HORIZON. Valid range is from -30 to 0. Requested value is 5", err.Error())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ELEVATION_LIMIT", verr.Property)
}

func TestUpdateText(t *testing.T) {
	tvp := TextVector{
		Name:  "TIME_UTC",
		Texts: []Text{{Name: "UTC"}, {Name: "OFFSET", Text: "0"}},
	}

	require.NoError(t, UpdateText(&tvp, []TextValue{{"UTC", "2026-10-18T21:00:00"}, {"OFFSET", "2"}}))
	assert.Equal(t, "2026-10-18T21:00:00", tvp.Find("UTC").Text)
	assert.Equal(t, "2", tvp.Find("OFFSET").Text)

	assert.Error(t, UpdateText(&tvp, []TextValue{{"UTC", "x"}, {"ZONE", "y"}}))
	assert.Equal(t, "2026-10-18T21:00:00", tvp.Find("UTC").Text)
}

func TestUpdateBLOB(t *testing.T) {
	bvp := BLOBVector{Name: "FIRMWARE", BLOBs: []BLOB{{Name: "IMAGE"}}}

	require.NoError(t, UpdateBLOB(&bvp, []BLOBValue{{Name: "IMAGE", Format: ".bin", Size: 3, Data: []byte{1, 2, 3}}}))
	assert.Equal(t, []byte{1, 2, 3}, bvp.BLOBs[0].Data)
	assert.Equal(t, ".bin", bvp.BLOBs[0].Format)
	assert.Equal(t, 3, bvp.BLOBs[0].Size)
}
