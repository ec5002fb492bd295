package indi

import (
	"errors"
	"fmt"
)

var ErrReadOnly = errors.New("property is read-only")

// ValidationError is a rejected update. Its text is the message sent to
// clients with the property.
type ValidationError struct {
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	return "Error: " + e.Reason
}

func invalid(property, format string, args ...any) *ValidationError {
	return &ValidationError{Property: property, Reason: fmt.Sprintf(format, args...)}
}

// UpdateSwitch applies the requested states to svp.
//
// All names are checked before anything changes. For OneOfMany and AtMostOne
// vectors the result must respect the rule, otherwise the previous states are
// restored. On error the vector state is set to Idle.
func UpdateSwitch(svp *SwitchVector, values []SwitchValue) error {
	for _, v := range values {
		if svp.Find(v.Name) == nil {
			svp.State = StateIdle
			return invalid(svp.Name, "%s is not a member of %s property.", v.Name, svp.Name)
		}
	}

	prev := make([]SwitchState, len(svp.Switches))
	for i := range svp.Switches {
		prev[i] = svp.Switches[i].State
	}

	if svp.Rule == OneOfMany {
		svp.Reset()
	}
	for _, v := range values {
		svp.Find(v.Name).State = v.State
	}

	var reason string
	switch n := svp.onCount(); {
	case svp.Rule == OneOfMany && n == 0:
		reason = "No switch is on"
	case svp.Rule != AnyOfMany && n > 1:
		reason = "Too many switches are on"
	}
	if reason != "" {
		for i := range svp.Switches {
			svp.Switches[i].State = prev[i]
		}
		svp.State = StateIdle
		return invalid(svp.Name, "invalid state switch for property %s. %s.", svp.Name, reason)
	}

	return nil
}

// UpdateNumber validates every requested value against its range and only
// then commits them. On error nothing changes.
func UpdateNumber(nvp *NumberVector, values []NumberValue) error {
	for _, v := range values {
		np := nvp.Find(v.Name)
		if np == nil {
			nvp.State = StateIdle
			return invalid(nvp.Name, "%s is not a member of %s property.", v.Name, nvp.Name)
		}
		if v.Value < np.Min || v.Value > np.Max {
			nvp.State = StateAlert
			return invalid(nvp.Name, "Invalid range for %s. Valid range is from %g to %g. Requested value is %g",
				np.Name, np.Min, np.Max, v.Value)
		}
	}

	for _, v := range values {
		nvp.Find(v.Name).Value = v.Value
	}
	return nil
}

func UpdateText(tvp *TextVector, values []TextValue) error {
	for _, v := range values {
		if tvp.Find(v.Name) == nil {
			tvp.State = StateIdle
			return invalid(tvp.Name, "%s is not a member of %s property.", v.Name, tvp.Name)
		}
	}

	for _, v := range values {
		tvp.Find(v.Name).Text = v.Text
	}
	return nil
}

func UpdateBLOB(bvp *BLOBVector, values []BLOBValue) error {
	for _, v := range values {
		if bvp.Find(v.Name) == nil {
			bvp.State = StateIdle
			return invalid(bvp.Name, "%s is not a member of %s property.", v.Name, bvp.Name)
		}
	}

	for _, v := range values {
		bp := bvp.Find(v.Name)
		bp.Data = v.Data
		bp.Size = v.Size
		bp.Format = v.Format
	}
	return nil
}
