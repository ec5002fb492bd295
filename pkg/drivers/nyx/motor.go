package nyx

import "strings"

type Motion int

const (
	Stationary Motion = iota
	Moving
)

type MotorFault int

const (
	FaultNone MotorFault = iota
	FaultOpenLoadA
	FaultOpenLoadB
	FaultGroundShortA
	FaultGroundShortB
	FaultOverTemp
	FaultOverTempSevere
	FaultGeneric
)

var motorFaultNames = [...]string{
	"None",
	"Open load A",
	"Open load B",
	"Ground short A",
	"Ground short B",
	"Over temperature",
	"Severe over temperature",
	"Motor fault",
}

func (f MotorFault) String() string {
	if f < 0 || int(f) >= len(motorFaultNames) {
		return "Unknown"
	}
	return motorFaultNames[f]
}

// MotorHealth is one axis as reported by :GXU1# or :GXU2#.
type MotorHealth struct {
	Motion Motion
	Fault  MotorFault
}

// String is the classification shown to clients.
func (h MotorHealth) String() string {
	switch {
	case h.Fault != FaultNone:
		return "FAULT"
	case h.Motion == Stationary:
		return "Stationary"
	}
	return "Moving"
}

// motorFaults lists the fault code expected at each token position, in
// priority order.
var motorFaults = []struct {
	token int
	code  string
	fault MotorFault
}{
	{1, "OA", FaultOpenLoadA},
	{2, "OB", FaultOpenLoadB},
	{3, "GA", FaultGroundShortA},
	{4, "GB", FaultGroundShortB},
	{5, "OT", FaultOverTemp},
	{6, "PW", FaultOverTempSevere},
	{7, "GF", FaultGeneric},
}

// ClassifyMotor decodes a comma separated motor diagnostic. Missing fault
// tokens mean no fault and tokens past the eighth are ignored.
func ClassifyMotor(raw string) MotorHealth {
	tokens := strings.Split(strings.TrimSuffix(raw, "#"), ",")

	h := MotorHealth{Motion: Moving}
	if strings.TrimSpace(tokens[0]) == "ST" {
		h.Motion = Stationary
	}

	for _, f := range motorFaults {
		if f.token >= len(tokens) {
			break
		}
		if strings.TrimSpace(tokens[f.token]) == f.code {
			h.Fault = f.fault
			break
		}
	}
	return h
}
