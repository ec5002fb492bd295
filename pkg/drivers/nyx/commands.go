package nyx

import (
	"math"
	"strconv"
)

// Mount commands
const (
	// Information commands
	cmdStatus       = ":GU#"   // Read the status flags
	cmdGetRA        = ":GR#"   // Read right ascension, HH:MM:SS
	cmdGetDEC       = ":GD#"   // Read declination, sDD*MM:SS
	cmdGetAz        = ":GZ#"   // Read azimuth, DDD*MM:SS
	cmdGetAlt       = ":GA#"   // Read altitude, sDD*MM:SS
	cmdGetPierSide  = ":Gm#"   // Read pier side, W or E
	cmdGetGuideRate = ":GX90#" // Read the guide rate, 0.25, 0.50 or 1.00
	cmdGetOverhead  = ":Go#"   // Read the overhead elevation limit
	cmdGetHorizon   = ":Gh#"   // Read the horizon elevation limit
	cmdGetMeridianE = ":GXE9#" // Read minutes past the meridian, east
	cmdGetMeridianW = ":GXEA#" // Read minutes past the meridian, west
	cmdGetRAMotor   = ":GXU1#" // Read the RA motor diagnostic
	cmdGetDECMotor  = ":GXU2#" // Read the DEC motor diagnostic
	cmdGetHardLimit = ":GX9L#" // Read the RA hard limit switch
	cmdSetMeridianE = ":SXE9,%d#"
	cmdSetMeridianW = ":SXEA,%d#"
	cmdSetOverhead  = ":So%d#"
	cmdSetHorizon   = ":Sh%d#"
	cmdSetMountType = ":SXEM,%d#"
	cmdSetGuideRate = ":R%d#"
	cmdSetRARate    = ":RA%f#"
	cmdSetDECRate   = ":RE%f#"
	cmdSetSafety    = ":Sc%d#"
	cmdCommitSafety = ":Sc#"
	cmdSetTargetRA  = ":Sr%02d:%02d:%02d#"
	cmdSetTargetDEC = ":Sd%s%02d*%02d:%02d#"
	cmdSetUTCOffset = ":SG%s%02d:%02d#"
	cmdSetLocalTime = ":SL%02d:%02d:%02d#"
	cmdSetLocalDate = ":SC%02d/%02d/%02d#"
	cmdSetLatitude  = ":St%s%02d*%02d:%02d#"
	cmdSetLongitude = ":Sg%s%03d*%02d:%02d#" // east negative

	// Motion commands
	cmdGoto         = ":MS#" // Slew to the target, replies 0 on success
	cmdAbort        = ":Q#"  // Stop every motion
	cmdMoveNorth    = ":Mn#"
	cmdMoveSouth    = ":Ms#"
	cmdMoveWest     = ":Mw#"
	cmdMoveEast     = ":Me#"
	cmdStopNS       = ":Qn#"
	cmdStopWE       = ":Qw#"
	cmdFlip         = ":MN#" // Meridian flip
	cmdSpiralSearch = ":Mp#"

	// Home and park commands
	cmdHome      = ":hC#"
	cmdResetHome = ":hF#"
	cmdSetPark   = ":hQ#"
	cmdPark      = ":hP#"
	cmdUnpark    = ":hR#"

	// Tracking commands
	cmdTrackOn       = ":Te#" // Replies 1
	cmdTrackOff      = ":Td#" // Replies 1
	cmdRefractionOn  = ":Tr#"
	cmdRefractionOff = ":Tn#"

	cmdReboot = ":ERESET#"
)

var trackModeCommands = map[TrackMode]string{
	TrackSidereal: ":TQ#",
	TrackSolar:    ":TS#",
	TrackLunar:    ":TL#",
	TrackKing:     ":TK#",
}

// Mount type codes for :SXEM.
var mountTypeCodes = map[MountType]int{
	MountAltAz:      3,
	MountEquatorial: 1,
}

// slewRates maps the TELESCOPE_SLEW_RATE index to the rate sent with :RA and
// :RE.
var slewRates = []struct {
	label string
	rate  float64
}{
	{"2x", 0.01},
	{"8x", 0.03},
	{"16x", 0.07},
	{"64x", 0.27},
	{"128x", 0.50},
	{"200x", 0.65},
	{"300x", 0.80},
	{"600x", 1},
	{"900x", 2.5},
	{"1200x", 5},
}

const defaultSlewRate = 9

// guideRates are the :GX90# replies, in :R<n># index order.
var guideRates = []string{"0.25", "0.50", "1.00"}

func guideRateIndex(v float64) int {
	for i, r := range guideRates {
		if f, err := strconv.ParseFloat(r, 64); err == nil && math.Abs(f-v) < 1e-6 {
			return i
		}
	}
	return -1
}
