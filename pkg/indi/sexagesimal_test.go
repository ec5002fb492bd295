package indi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSexagesimal(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    float64
		expectError bool
	}{
		{name: "Decimal", input: "12.5", expected: 12.5},
		{name: "Exponent", input: "1e-05", expected: 1e-05},
		{name: "Hours minutes seconds", input: "12:30:36", expected: 12.51},
		{name: "Negative fraction", input: "-0:30", expected: -0.5},
		{name: "Mount declination", input: "+45*30:00", expected: 45.5},
		{name: "Mount azimuth", input: "180*15'00", expected: 180.25},
		{name: "Space separated", input: "10 15", expected: 10.25},
		{name: "Empty", input: "", expectError: true},
		{name: "Garbage", input: "abc", expectError: true},
		{name: "Sign inside", input: "10:-15", expectError: true},
		{name: "Too many fields", input: "1:2:3:4", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseSexagesimal(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestFormatSexagesimal(t *testing.T) {
	assert.Equal(t, "12:30:36", FormatSexagesimal(12.51, 3600))
	assert.Equal(t, "-05:30:00", FormatSexagesimal(-5.5, 3600))
	assert.Equal(t, "41:23", FormatSexagesimal(41.3833, 60))
	assert.Equal(t, "-00:30", FormatSexagesimal(-0.5, 60))

	neg, d, m, s := SplitSexagesimal(-45.999999)
	assert.True(t, neg)
	assert.Equal(t, []int{46, 0, 0}, []int{d, m, s})
}
