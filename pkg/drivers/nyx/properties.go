package nyx

import (
	"fmt"
	"nyx/pkg/indi"
	"nyx/pkg/transport"
	"strconv"
)

const (
	groupMain        = "Main Control"
	groupMotion      = "Motion Control"
	groupSite        = "Site Management"
	groupSettings    = "Settings"
	groupConnection  = "Connection"
	groupOptions     = "Options"
	groupDiagnostics = "Diagnostics"
)

// properties is the full property set of the mount.
type properties struct {
	connection    indi.SwitchVector
	port          indi.TextVector
	baudRate      indi.SwitchVector
	configProcess indi.SwitchVector
	pollPeriod    indi.NumberVector

	eqCoord     indi.NumberVector
	horizontal  indi.NumberVector
	abort       indi.SwitchVector
	trackState  indi.SwitchVector
	trackMode   indi.SwitchVector
	park        indi.SwitchVector
	pierSide    indi.SwitchVector
	hardLimit   indi.TextVector
	raMotor     indi.TextVector
	decMotor    indi.TextVector
	slewRate    indi.SwitchVector
	motionNS    indi.SwitchVector
	motionWE    indi.SwitchVector
	slewRates   indi.NumberVector
	guideRate   indi.SwitchVector
	spiral      indi.SwitchVector
	flip        indi.SwitchVector
	timeUTC     indi.TextVector
	geographic  indi.NumberVector
	mountType   indi.SwitchVector
	elevation   indi.NumberVector
	meridian    indi.NumberVector
	refraction  indi.SwitchVector
	safetyLimit indi.SwitchVector
	homeGo      indi.SwitchVector
	homeReset   indi.SwitchVector
	parkSet     indi.SwitchVector
	reboot      indi.SwitchVector

	statusFlags  indi.LightVector
	statusRaw    indi.TextVector
	debugCommand indi.TextVector
}

func switches(names ...string) []indi.Switch {
	sw := make([]indi.Switch, 0, len(names)/2)
	for i := 0; i+1 < len(names); i += 2 {
		sw = append(sw, indi.Switch{Name: names[i], Label: names[i+1]})
	}
	return sw
}

func button(name, label, group, element, elementLabel string) indi.SwitchVector {
	return indi.SwitchVector{
		Name:     name,
		Label:    label,
		Group:    group,
		Perm:     indi.ReadWrite,
		Rule:     indi.AtMostOne,
		Timeout:  60,
		Switches: switches(element, elementLabel),
	}
}

func roText(name, label, group, element, elementLabel string) indi.TextVector {
	return indi.TextVector{
		Name:  name,
		Label: label,
		Group: group,
		Perm:  indi.ReadOnly,
		Texts: []indi.Text{{Name: element, Label: elementLabel}},
	}
}

func newProperties(cfg Config) properties {
	var p properties

	p.connection = indi.SwitchVector{
		Name: "CONNECTION", Label: "Connection", Group: groupMain,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("CONNECT", "Connect", "DISCONNECT", "Disconnect"),
	}
	p.connection.Select(1)

	p.port = indi.TextVector{
		Name: "DEVICE_PORT", Label: "Ports", Group: groupConnection,
		Perm: indi.ReadWrite, Timeout: 60,
		Texts: []indi.Text{{Name: "PORT", Label: "Port", Text: cfg.Port}},
	}

	p.baudRate = indi.SwitchVector{
		Name: "DEVICE_BAUD_RATE", Label: "Baud Rate", Group: groupConnection,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
	}
	for _, rate := range transport.BaudRates {
		s := strconv.Itoa(rate)
		sw := indi.Switch{Name: s, Label: s}
		if rate == cfg.BaudRate {
			sw.State = indi.On
		}
		p.baudRate.Switches = append(p.baudRate.Switches, sw)
	}
	if p.baudRate.OnIndex() < 0 {
		p.baudRate.Find(strconv.Itoa(transport.DefaultBaudRate)).State = indi.On
	}

	p.configProcess = indi.SwitchVector{
		Name: "CONFIG_PROCESS", Label: "Configuration", Group: groupOptions,
		Perm: indi.ReadWrite, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("CONFIG_LOAD", "Load", "CONFIG_SAVE", "Save"),
	}

	p.pollPeriod = indi.NumberVector{
		Name: "POLLING_PERIOD", Label: "Polling", Group: groupOptions,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{{Name: "PERIOD_MS", Label: "Period (ms)", Format: "%.f",
			Min: 10, Max: 600000, Step: 1000, Value: float64(cfg.PollInterval)}},
	}

	p.eqCoord = indi.NumberVector{
		Name: "EQUATORIAL_EOD_COORD", Label: "Eq. Coordinates", Group: groupMain,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{
			{Name: "RA", Label: "RA (hh:mm:ss)", Format: "%010.6m", Min: 0, Max: 24, Step: 0},
			{Name: "DEC", Label: "DEC (dd:mm:ss)", Format: "%010.6m", Min: -90, Max: 90, Step: 0},
		},
	}

	p.horizontal = indi.NumberVector{
		Name: "HORIZONTAL_COORD", Label: "Horizontal Coord", Group: groupMain,
		Perm: indi.ReadOnly, Timeout: 60,
		Numbers: []indi.Number{
			{Name: "AZ", Label: "AZ D:M:S", Format: "%10.6m", Min: 0, Max: 360, Step: 0},
			{Name: "ALT", Label: "ALT  D:M:S", Format: "%10.6m", Min: -90, Max: 90, Step: 0},
		},
	}

	p.abort = button("TELESCOPE_ABORT_MOTION", "Abort Motion", groupMain, "ABORT", "Abort")

	p.trackState = indi.SwitchVector{
		Name: "TELESCOPE_TRACK_STATE", Label: "Tracking", Group: groupMain,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("TRACK_ON", "On", "TRACK_OFF", "Off"),
	}
	p.trackState.Select(1)

	p.trackMode = indi.SwitchVector{
		Name: "TELESCOPE_TRACK_MODE", Label: "Track Mode", Group: groupMain,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("TRACK_SIDEREAL", "Sidereal", "TRACK_SOLAR", "Solar",
			"TRACK_LUNAR", "Lunar", "TRACK_KING", "King"),
	}
	p.trackMode.Select(int(TrackSidereal))

	p.park = indi.SwitchVector{
		Name: "TELESCOPE_PARK", Label: "Parking", Group: groupMain,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("PARK", "Park(ed)", "UNPARK", "UnPark(ed)"),
	}
	p.park.Select(1)

	p.pierSide = indi.SwitchVector{
		Name: "TELESCOPE_PIER_SIDE", Label: "Pier Side", Group: groupMain,
		Perm: indi.ReadOnly, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("PIER_WEST", "West (pointing east)", "PIER_EAST", "East (pointing west)"),
	}

	p.hardLimit = roText("RA_HARD_LIMIT", "Hard Limit", groupMain, "RA_HARD_LIMIT", "RA")
	p.hardLimit.Texts[0].Text = "-"
	p.raMotor = roText("RA_MOTOR_STATUS", "RA Motor", groupMain, "RA_MOTOR_STATUS", "Status")
	p.decMotor = roText("DEC_MOTOR_STATUS", "DEC Motor", groupMain, "DEC_MOTOR_STATUS", "Status")

	p.slewRate = indi.SwitchVector{
		Name: "TELESCOPE_SLEW_RATE", Label: "Slew Rate", Group: groupMotion,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
	}
	for i, r := range slewRates {
		p.slewRate.Switches = append(p.slewRate.Switches, indi.Switch{
			Name:  fmt.Sprintf("SLEW_%d", i),
			Label: r.label,
		})
	}
	p.slewRate.Select(defaultSlewRate)

	p.motionNS = indi.SwitchVector{
		Name: "TELESCOPE_MOTION_NS", Label: "Motion N/S", Group: groupMotion,
		Perm: indi.ReadWrite, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("MOTION_NORTH", "North", "MOTION_SOUTH", "South"),
	}
	p.motionWE = indi.SwitchVector{
		Name: "TELESCOPE_MOTION_WE", Label: "Motion W/E", Group: groupMotion,
		Perm: indi.ReadWrite, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("MOTION_WEST", "West", "MOTION_EAST", "East"),
	}

	p.slewRates = indi.NumberVector{
		Name: "SLEW_RATES", Label: "Slew Rates", Group: groupMotion,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{
			{Name: "RA_SLEW_RATE", Label: "RA", Format: "%.1f", Min: -5, Max: 5, Step: 0.1},
			{Name: "DEC_SLEW_RATE", Label: "DEC", Format: "%.1f", Min: -5, Max: 5, Step: 0.1},
		},
	}

	p.guideRate = indi.SwitchVector{
		Name: "GUIDE_RATE", Label: "Guide Rate", Group: groupMotion,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
	}
	for _, r := range guideRates {
		p.guideRate.Switches = append(p.guideRate.Switches, indi.Switch{Name: r, Label: r + "x"})
	}
	p.guideRate.Select(1)

	p.spiral = indi.SwitchVector{
		Name: "SPIRAL_SEARCH", Label: "Spiral Search", Group: groupMotion,
		Perm: indi.ReadWrite, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("SPIRAL_SEARCH_START", "Start", "SPIRAL_SEARCH_STOP", "Stop"),
	}

	p.flip = button("FLIP", "Meridian Flip", groupMotion, "FLIP", "Flip")

	p.timeUTC = indi.TextVector{
		Name: "TIME_UTC", Label: "UTC", Group: groupSite,
		Perm: indi.ReadWrite, Timeout: 60,
		Texts: []indi.Text{{Name: "UTC", Label: "UTC Time"}, {Name: "OFFSET", Label: "UTC Offset"}},
	}

	p.geographic = indi.NumberVector{
		Name: "GEOGRAPHIC_COORD", Label: "Location", Group: groupSite,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{
			{Name: "LAT", Label: "Lat (dd:mm:ss)", Format: "%010.6m", Min: -90, Max: 90},
			{Name: "LONG", Label: "Lon (dd:mm:ss)", Format: "%010.6m", Min: 0, Max: 360},
			{Name: "ELEV", Label: "Elevation (m)", Format: "%g", Min: -200, Max: 10000},
		},
	}

	p.mountType = indi.SwitchVector{
		Name: "MOUNT_TYPE", Label: "Mount Type", Group: groupSettings,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("AltAz", "AltAz", "Equatorial", "Equatorial"),
	}
	p.mountType.Select(int(MountEquatorial))

	p.elevation = indi.NumberVector{
		Name: "ELEVATION_LIMIT", Label: "Elevation Limit", Group: groupSettings,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{
			{Name: "ELEVATION_OVERHEAD", Label: "Overhead", Format: "%.f", Min: 60, Max: 90, Step: 1, Value: 90},
			{Name: "ELEVATION_HORIZON", Label: "Horizon", Format: "%.f", Min: -30, Max: 0, Step: 1, Value: 0},
		},
	}

	p.meridian = indi.NumberVector{
		Name: "MERIDIAN_LIMIT", Label: "Meridian Limit", Group: groupSettings,
		Perm: indi.ReadWrite, Timeout: 60,
		Numbers: []indi.Number{{Name: "VALUE", Label: "Minutes", Format: "%.f", Min: -120, Max: 120, Step: 1}},
	}

	p.refraction = indi.SwitchVector{
		Name: "REFRACTION", Label: "Refraction", Group: groupSettings,
		Perm: indi.ReadWrite, Rule: indi.OneOfMany, Timeout: 60,
		Switches: switches("REFRACTION_ON", "On", "REFRACTION_OFF", "Off"),
	}
	p.refraction.Select(1)

	p.safetyLimit = indi.SwitchVector{
		Name: "SAFETY_LIMIT", Label: "Safety Limit", Group: groupSettings,
		Perm: indi.ReadWrite, Rule: indi.AtMostOne, Timeout: 60,
		Switches: switches("SET_SAFETY_LIMIT", "Set", "CLEAR_SAFETY_LIMIT", "Clear"),
	}

	p.homeGo = button("HOME_GO", "Home Go", groupSettings, "GO", "Go")
	p.homeReset = button("HOME_RESET", "Home Reset", groupSettings, "RESET", "Reset")
	p.parkSet = button("PARK_SET", "Park Position", groupSettings, "SET", "Set")
	p.reboot = button("REBOOT", "Reboot", groupSettings, "REBOOT", "Reboot")

	p.statusFlags = indi.LightVector{Name: "NYX_STATUS_FLAGS", Label: "Status", Group: groupDiagnostics}
	for _, f := range statusLights {
		p.statusFlags.Lights = append(p.statusFlags.Lights, indi.Light{Name: f.name, Label: f.label})
	}

	p.statusRaw = indi.TextVector{
		Name: "NYX_STATUS_RAW", Label: "Raw Status", Group: groupDiagnostics,
		Perm: indi.ReadOnly,
		Texts: []indi.Text{
			{Name: "STATUS", Label: "Status"},
			{Name: "RA_MOTOR", Label: "RA Motor"},
			{Name: "DEC_MOTOR", Label: "DEC Motor"},
			{Name: "TRACK_STATE", Label: "Track State"},
		},
	}

	p.debugCommand = indi.TextVector{
		Name: "DEBUG_COMMAND", Label: "Command", Group: groupDiagnostics,
		Perm: indi.ReadWrite, Timeout: 60,
		Texts: []indi.Text{{Name: "COMMAND", Label: "Command"}, {Name: "RESPONSE", Label: "Response"}},
	}

	return p
}
