package nyx

type TrackState int

const (
	StateIdle TrackState = iota
	StateSlewing
	StateTracking
	StateParking
	StateParked
)

var trackStateNames = [...]string{"Idle", "Slewing", "Tracking", "Parking", "Parked"}

func (s TrackState) String() string {
	if s < 0 || int(s) >= len(trackStateNames) {
		return "Unknown"
	}
	return trackStateNames[s]
}

// NextTrackState applies one poll's status to the current state. trackingOn
// is the tracking switch as last published to clients.
//
// The rules are evaluated in order and at most one applies:
//  1. a slew that reports complete becomes Tracking;
//  2. a park reported by the mount always wins;
//  3. otherwise the reported tracking flag overrides the switch.
func NextTrackState(current TrackState, s Snapshot, trackingOn bool) TrackState {
	switch {
	case current == StateSlewing && s.SlewComplete:
		return StateTracking
	case current != StateParked && s.Parked:
		return StateParked
	case s.Tracking != trackingOn:
		if s.Tracking {
			return StateTracking
		}
		return StateIdle
	}
	return current
}
