package nyx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMotor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected MotorHealth
		text     string
	}{
		{"Stationary", "ST,OK,OK,OK,OK,OK,OK,OK", MotorHealth{Stationary, FaultNone}, "Stationary"},
		{"Moving", "SL,OK,OK,OK,OK,OK,OK,OK", MotorHealth{Moving, FaultNone}, "Moving"},
		{"Terminator is ignored", "ST,OK,OK,OK,OK,OK,OK,OK#", MotorHealth{Stationary, FaultNone}, "Stationary"},
		{"Extra token is ignored", "ST,OK,OK,OK,OK,OK,OK,OK,extra", MotorHealth{Stationary, FaultNone}, "Stationary"},
		{"Open load A overrides motion", "SL,OA,OK,OK,OK,OK,OK,OK", MotorHealth{Moving, FaultOpenLoadA}, "FAULT"},
		{"Open load B", "ST,OK,OB,OK,OK,OK,OK,OK", MotorHealth{Stationary, FaultOpenLoadB}, "FAULT"},
		{"Ground short A", "ST,OK,OK,GA,OK,OK,OK,OK", MotorHealth{Stationary, FaultGroundShortA}, "FAULT"},
		{"Ground short B", "ST,OK,OK,OK,GB,OK,OK,OK", MotorHealth{Stationary, FaultGroundShortB}, "FAULT"},
		{"Over temperature", "ST,OK,OK,OK,OK,OT,OK,OK", MotorHealth{Stationary, FaultOverTemp}, "FAULT"},
		{"Severe over temperature", "ST,OK,OK,OK,OK,OK,PW,OK", MotorHealth{Stationary, FaultOverTempSevere}, "FAULT"},
		{"Generic fault", "ST,OK,OK,OK,OK,OK,OK,GF", MotorHealth{Stationary, FaultGeneric}, "FAULT"},
		{"First fault wins", "SL,OK,OB,OK,OK,OT,OK,GF", MotorHealth{Moving, FaultOpenLoadB}, "FAULT"},
		{"Code in the wrong position is not a fault", "ST,GA,OK,OK,OK,OK,OK,OK", MotorHealth{Stationary, FaultNone}, "Stationary"},
		{"Motion only", "ST", MotorHealth{Stationary, FaultNone}, "Stationary"},
		{"Short report still checked", "SL,OA", MotorHealth{Moving, FaultOpenLoadA}, "FAULT"},
		{"Empty report", "", MotorHealth{Moving, FaultNone}, "Moving"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyMotor(tc.input)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.text, got.String())
		})
	}
}
