package indi

import "fmt"

type PropertyState int

const (
	StateIdle PropertyState = iota
	StateOk
	StateBusy
	StateAlert
)

var stateNames = [...]string{"Idle", "Ok", "Busy", "Alert"}

func (s PropertyState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Idle"
	}
	return stateNames[s]
}

func ParseState(s string) (PropertyState, error) {
	for i, name := range stateNames {
		if name == s {
			return PropertyState(i), nil
		}
	}
	return StateIdle, fmt.Errorf("invalid property state %q", s)
}

type Perm int

const (
	ReadOnly Perm = iota
	WriteOnly
	ReadWrite
)

var permNames = [...]string{"ro", "wo", "rw"}

func (p Perm) String() string {
	if p < 0 || int(p) >= len(permNames) {
		return "ro"
	}
	return permNames[p]
}

type SwitchRule int

const (
	OneOfMany SwitchRule = iota
	AtMostOne
	AnyOfMany
)

var ruleNames = [...]string{"OneOfMany", "AtMostOne", "AnyOfMany"}

func (r SwitchRule) String() string {
	if r < 0 || int(r) >= len(ruleNames) {
		return "OneOfMany"
	}
	return ruleNames[r]
}

type SwitchState bool

const (
	Off SwitchState = false
	On  SwitchState = true
)

func (s SwitchState) String() string {
	if s {
		return "On"
	}
	return "Off"
}

// ParseSwitchState accepts only the literal wire values "On" and "Off".
func ParseSwitchState(s string) (SwitchState, error) {
	switch s {
	case "On":
		return On, nil
	case "Off":
		return Off, nil
	}
	return Off, fmt.Errorf("invalid switch state %q", s)
}

// Number is one element of a NumberVector. Format is a printf style hint for
// clients; the wire value is always full precision.
type Number struct {
	Name   string
	Label  string
	Format string
	Min    float64
	Max    float64
	Step   float64
	Value  float64
}

type NumberVector struct {
	Name    string
	Label   string
	Group   string
	Perm    Perm
	State   PropertyState
	Timeout float64
	Numbers []Number
}

// Find returns the element called name, or nil.
func (v *NumberVector) Find(name string) *Number {
	for i := range v.Numbers {
		if v.Numbers[i].Name == name {
			return &v.Numbers[i]
		}
	}
	return nil
}

type Switch struct {
	Name  string
	Label string
	State SwitchState
}

type SwitchVector struct {
	Name     string
	Label    string
	Group    string
	Perm     Perm
	Rule     SwitchRule
	State    PropertyState
	Timeout  float64
	Switches []Switch
}

func (v *SwitchVector) Find(name string) *Switch {
	for i := range v.Switches {
		if v.Switches[i].Name == name {
			return &v.Switches[i]
		}
	}
	return nil
}

// OnIndex returns the index of the first switch that is On, or -1.
func (v *SwitchVector) OnIndex() int {
	for i := range v.Switches {
		if v.Switches[i].State == On {
			return i
		}
	}
	return -1
}

// OnSwitch returns the first switch that is On, or nil.
func (v *SwitchVector) OnSwitch() *Switch {
	if i := v.OnIndex(); i >= 0 {
		return &v.Switches[i]
	}
	return nil
}

// Reset turns every switch Off.
func (v *SwitchVector) Reset() {
	for i := range v.Switches {
		v.Switches[i].State = Off
	}
}

// Select turns on the switch at index i and every other switch off.
func (v *SwitchVector) Select(i int) {
	v.Reset()
	if i >= 0 && i < len(v.Switches) {
		v.Switches[i].State = On
	}
}

func (v *SwitchVector) onCount() int {
	n := 0
	for i := range v.Switches {
		if v.Switches[i].State == On {
			n++
		}
	}
	return n
}

type Text struct {
	Name  string
	Label string
	Text  string
}

type TextVector struct {
	Name    string
	Label   string
	Group   string
	Perm    Perm
	State   PropertyState
	Timeout float64
	Texts   []Text
}

func (v *TextVector) Find(name string) *Text {
	for i := range v.Texts {
		if v.Texts[i].Name == name {
			return &v.Texts[i]
		}
	}
	return nil
}

// Light elements are always read-only.
type Light struct {
	Name  string
	Label string
	State PropertyState
}

type LightVector struct {
	Name   string
	Label  string
	Group  string
	State  PropertyState
	Lights []Light
}

func (v *LightVector) Find(name string) *Light {
	for i := range v.Lights {
		if v.Lights[i].Name == name {
			return &v.Lights[i]
		}
	}
	return nil
}

type BLOB struct {
	Name   string
	Label  string
	Format string
	Data   []byte
	// Size is the unencoded size; it may be less than len(Data) for
	// compressed formats.
	Size int
}

type BLOBVector struct {
	Name    string
	Label   string
	Group   string
	Perm    Perm
	State   PropertyState
	Timeout float64
	BLOBs   []BLOB
}

func (v *BLOBVector) Find(name string) *BLOB {
	for i := range v.BLOBs {
		if v.BLOBs[i].Name == name {
			return &v.BLOBs[i]
		}
	}
	return nil
}

// Inbound element values, in request order.
type (
	NumberValue struct {
		Name  string
		Value float64
	}
	SwitchValue struct {
		Name  string
		State SwitchState
	}
	TextValue struct {
		Name string
		Text string
	}
	BLOBValue struct {
		Name   string
		Format string
		Size   int
		Data   []byte
	}
)
