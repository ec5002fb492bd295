package nyx

type TrackMode int

const (
	TrackSidereal TrackMode = iota
	TrackSolar
	TrackLunar
	TrackKing
)

var trackModeNames = [...]string{"Sidereal", "Solar", "Lunar", "King"}

func (m TrackMode) String() string {
	if m < 0 || int(m) >= len(trackModeNames) {
		return "Unknown"
	}
	return trackModeNames[m]
}

type MountType int

const (
	MountAltAz MountType = iota
	MountEquatorial
)

func (t MountType) String() string {
	if t == MountAltAz {
		return "AltAz"
	}
	return "Equatorial"
}

type PierSide int

const (
	PierUnknown PierSide = iota
	PierEast
	PierWest
)

func (p PierSide) String() string {
	switch p {
	case PierEast:
		return "East"
	case PierWest:
		return "West"
	}
	return "Unknown"
}

// Snapshot is one decoded :GU# status report.
type Snapshot struct {
	Tracking       bool
	SlewComplete   bool
	Parked         bool
	TrackMode      TrackMode
	MountType      MountType
	PierSide       PierSide
	Refraction     bool
	AtHome         bool
	WaitingAtHome  bool
	HomePaused     bool
	SlewingHome    bool
	ParkInProgress bool
	ParkFailed     bool

	// Complete is false when the report had no terminator. Such a snapshot
	// is still usable but only for the current cycle.
	Complete bool
}

// baseline is the snapshot of an empty report. A garbled report must not
// claim progress it did not state.
func baseline() Snapshot {
	return Snapshot{
		Tracking:  true,
		TrackMode: TrackSidereal,
		MountType: MountEquatorial,
		PierSide:  PierUnknown,
	}
}

// statusFlags maps each status character to the field it sets. Characters are
// independent of one another.
var statusFlags = map[byte]func(*Snapshot){
	'n': func(s *Snapshot) { s.Tracking = false },
	'N': func(s *Snapshot) { s.SlewComplete = true },
	'P': func(s *Snapshot) { s.Parked = true },
	'I': func(s *Snapshot) { s.ParkInProgress = true },
	'F': func(s *Snapshot) { s.ParkFailed = true },
	'H': func(s *Snapshot) { s.AtHome = true },
	'w': func(s *Snapshot) { s.WaitingAtHome = true },
	'u': func(s *Snapshot) { s.HomePaused = true },
	'h': func(s *Snapshot) { s.SlewingHome = true },
	'(': func(s *Snapshot) { s.TrackMode = TrackLunar },
	'O': func(s *Snapshot) { s.TrackMode = TrackSolar },
	'k': func(s *Snapshot) { s.TrackMode = TrackKing },
	'A': func(s *Snapshot) { s.MountType = MountAltAz },
	'E': func(s *Snapshot) { s.MountType = MountEquatorial },
	'T': func(s *Snapshot) { s.PierSide = PierEast },
	'W': func(s *Snapshot) { s.PierSide = PierWest },
	'r': func(s *Snapshot) { s.Refraction = true },
	// 'p' reports "not parked", which is the baseline.
	'p': func(*Snapshot) {},
}

// DecodeStatus decodes a :GU# response. Unknown characters are skipped and
// decoding stops at the terminator.
func DecodeStatus(raw string) Snapshot {
	s := baseline()
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '#' {
			s.Complete = true
			break
		}
		if set, ok := statusFlags[c]; ok {
			set(&s)
		}
	}
	return s
}
