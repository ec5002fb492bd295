package nyx

import (
	"nyx/pkg/indi"
	"time"
)

// StatusReport is what a poll learned about the mount.
type StatusReport struct {
	Time        time.Time
	Raw         string
	Status      Snapshot
	TrackState  TrackState
	RAMotor     MotorHealth
	DECMotor    MotorHealth
	RAMotorRaw  string
	DECMotorRaw string
}

// StatusObserver is notified after every poll that read the motors.
type StatusObserver interface {
	ObserveStatus(r StatusReport)
}

var statusLights = []struct {
	name  string
	label string
	on    func(Snapshot) bool
}{
	{"TRACKING", "Tracking", func(s Snapshot) bool { return s.Tracking }},
	{"SLEW_COMPLETE", "Slew complete", func(s Snapshot) bool { return s.SlewComplete }},
	{"PARKED", "Parked", func(s Snapshot) bool { return s.Parked }},
	{"PARK_IN_PROGRESS", "Parking", func(s Snapshot) bool { return s.ParkInProgress }},
	{"PARK_FAILED", "Park failed", func(s Snapshot) bool { return s.ParkFailed }},
	{"AT_HOME", "At home", func(s Snapshot) bool { return s.AtHome }},
	{"SLEWING_HOME", "Slewing home", func(s Snapshot) bool { return s.SlewingHome }},
	{"WAITING_AT_HOME", "Waiting at home", func(s Snapshot) bool { return s.WaitingAtHome }},
	{"HOME_PAUSED", "Home paused", func(s Snapshot) bool { return s.HomePaused }},
	{"REFRACTION", "Refraction", func(s Snapshot) bool { return s.Refraction }},
	{"MOUNT_ALTAZ", "Alt-Az mount", func(s Snapshot) bool { return s.MountType == MountAltAz }},
	{"MOUNT_EQUATORIAL", "Equatorial mount", func(s Snapshot) bool { return s.MountType == MountEquatorial }},
	{"PIER_NONE", "Pier side unknown", func(s Snapshot) bool { return s.PierSide == PierUnknown }},
	{"PIER_EAST", "Pier east", func(s Snapshot) bool { return s.PierSide == PierEast }},
	{"PIER_WEST", "Pier west", func(s Snapshot) bool { return s.PierSide == PierWest }},
	{"COMPLETE", "Complete report", func(s Snapshot) bool { return s.Complete }},
}

// diagnostics mirrors each report on the NYX_STATUS_FLAGS and NYX_STATUS_RAW
// properties.
type diagnostics struct {
	bus   *indi.Device
	props *properties
}

func (d *diagnostics) ObserveStatus(r StatusReport) {
	lights := &d.props.statusFlags
	for i, f := range statusLights {
		state := indi.StateIdle
		if f.on(r.Status) {
			state = indi.StateOk
		}
		lights.Lights[i].State = state
	}
	lights.State = indi.StateOk
	if !r.Status.Complete {
		lights.State = indi.StateAlert
	}
	d.bus.SetLight(lights, "")

	raw := &d.props.statusRaw
	raw.Find("STATUS").Text = r.Raw
	raw.Find("RA_MOTOR").Text = r.RAMotorRaw
	raw.Find("DEC_MOTOR").Text = r.DECMotorRaw
	raw.Find("TRACK_STATE").Text = r.TrackState.String()
	raw.State = indi.StateOk
	d.bus.SetText(raw, "")
}
