package nyx

import (
	"errors"
	"fmt"
	"math"
	"nyx/pkg/indi"
	"nyx/pkg/transport"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

func (d *Driver) NewSwitch(name string, values []indi.SwitchValue) {
	p := &d.props

	switch name {
	case p.connection.Name:
		d.handleConnection(values)
	case p.baudRate.Name:
		d.handleBaudRate(values)
	case p.configProcess.Name:
		d.handleConfigProcess(values)

	case p.abort.Name:
		d.pushButton(&p.abort, values, d.Abort, "Abort motion", "Failed to abort motion")
	case p.trackState.Name:
		d.applySwitch(&p.trackState, values, func(idx int) error {
			return d.SetTrackEnabled(idx == 0)
		})
	case p.trackMode.Name:
		d.applySwitch(&p.trackMode, values, func(idx int) error {
			return d.SetTrackMode(TrackMode(idx))
		})
	case p.park.Name:
		d.handlePark(values)
	case p.slewRate.Name:
		d.applySwitch(&p.slewRate, values, d.SetSlewRate)
	case p.motionNS.Name:
		d.handleMotion(&p.motionNS, values, d.MoveNS)
	case p.motionWE.Name:
		d.handleMotion(&p.motionWE, values, d.MoveWE)
	case p.guideRate.Name:
		d.applySwitch(&p.guideRate, values, d.SetGuideRate)
	case p.spiral.Name:
		d.handleSpiral(values)
	case p.mountType.Name:
		d.handleMountType(values)
	case p.refraction.Name:
		d.applySwitch(&p.refraction, values, func(idx int) error {
			return d.SetRefraction(idx == 0)
		})
	case p.safetyLimit.Name:
		d.handleSafetyLimit(values)

	case p.flip.Name:
		d.pushButton(&p.flip, values, d.Flip, "Meridian flip started", "Failed to flip")
	case p.homeGo.Name:
		d.pushButton(&p.homeGo, values, d.Home, "Slewing home", "Failed to go home")
	case p.homeReset.Name:
		d.pushButton(&p.homeReset, values, d.ResetHome, "Home position reset", "Failed to reset home")
	case p.parkSet.Name:
		d.pushButton(&p.parkSet, values, d.SetParkPos, "Park position set", "Failed to set park position")
	case p.reboot.Name:
		d.pushButton(&p.reboot, values, d.Reboot, "Rebooting mount", "Failed to reboot")

	default:
		d.logger.Debugf("Unhandled switch %s", name)
	}
}

func (d *Driver) NewNumber(name string, values []indi.NumberValue) {
	p := &d.props

	switch name {
	case p.pollPeriod.Name:
		if !d.updateNumber(&p.pollPeriod, values) {
			return
		}
		ms := int(p.pollPeriod.Numbers[0].Value)
		if _, err := d.store.update(func(c *Config) { c.PollInterval = ms }); err != nil {
			d.logger.Warnf("Failed to store poll interval: %v", err)
		}
		d.pollChanged = true
		p.pollPeriod.State = indi.StateOk
		d.bus.SetNumber(&p.pollPeriod, "")

	case p.eqCoord.Name:
		d.handleGoto(values)

	case p.slewRates.Name:
		d.applyNumber(&p.slewRates, values, func() error {
			return d.SetAxisRates(p.slewRates.Numbers[0].Value, p.slewRates.Numbers[1].Value)
		})

	case p.elevation.Name:
		d.applyNumber(&p.elevation, values, func() error {
			for _, v := range values {
				var err error
				switch v.Name {
				case "ELEVATION_OVERHEAD":
					err = d.SetOverheadLimit(int(v.Value))
				case "ELEVATION_HORIZON":
					err = d.SetHorizonLimit(int(v.Value))
				}
				if err != nil {
					return err
				}
			}
			return nil
		})

	case p.meridian.Name:
		d.applyNumber(&p.meridian, values, func() error {
			return d.setMeridianLimit(int(math.Round(p.meridian.Numbers[0].Value)))
		})

	case p.geographic.Name:
		d.applyNumber(&p.geographic, values, func() error {
			return d.SetLocation(p.geographic.Find("LAT").Value, p.geographic.Find("LONG").Value)
		})

	default:
		d.logger.Debugf("Unhandled number %s", name)
	}
}

func (d *Driver) NewText(name string, values []indi.TextValue) {
	p := &d.props

	switch name {
	case p.port.Name:
		if !d.updateText(&p.port, values) {
			return
		}
		port := p.port.Texts[0].Text
		if _, err := d.store.update(func(c *Config) { c.Port = port }); err != nil {
			p.port.State = indi.StateAlert
			d.bus.SetText(&p.port, fmt.Sprintf("Failed to store port: %v", err))
			return
		}
		p.port.State = indi.StateOk
		d.bus.SetText(&p.port, "")

	case p.timeUTC.Name:
		d.handleTime(values)

	case p.debugCommand.Name:
		d.handleDebugCommand(values)

	default:
		d.logger.Debugf("Unhandled text %s", name)
	}
}

func (d *Driver) NewBLOB(name string, values []indi.BLOBValue) {
	d.logger.Debugf("Ignoring BLOB %s", name)
}

func (d *Driver) updateSwitch(svp *indi.SwitchVector, values []indi.SwitchValue) bool {
	if err := indi.UpdateSwitch(svp, values); err != nil {
		d.bus.SetSwitch(svp, err.Error())
		return false
	}
	return true
}

func (d *Driver) updateNumber(nvp *indi.NumberVector, values []indi.NumberValue) bool {
	if err := indi.UpdateNumber(nvp, values); err != nil {
		d.bus.SetNumber(nvp, err.Error())
		return false
	}
	return true
}

func (d *Driver) updateText(tvp *indi.TextVector, values []indi.TextValue) bool {
	if err := indi.UpdateText(tvp, values); err != nil {
		d.bus.SetText(tvp, err.Error())
		return false
	}
	return true
}

// applySwitch updates a one-of-many vector and runs apply with the new
// selection. A failed apply restores the previous selection.
func (d *Driver) applySwitch(svp *indi.SwitchVector, values []indi.SwitchValue, apply func(idx int) error) {
	prev := svp.OnIndex()
	if !d.updateSwitch(svp, values) {
		return
	}

	if err := apply(svp.OnIndex()); err != nil {
		d.logger.Errorf("%s: %v", svp.Label, err)
		svp.Select(prev)
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, fmt.Sprintf("Failed to set %s", svp.Label))
		return
	}

	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, "")
}

// applyNumber commits values and then runs apply. A failed apply leaves the
// new values in place with an Alert state.
func (d *Driver) applyNumber(nvp *indi.NumberVector, values []indi.NumberValue, apply func() error) {
	if !d.updateNumber(nvp, values) {
		return
	}

	if err := apply(); err != nil {
		d.logger.Errorf("%s: %v", nvp.Label, err)
		nvp.State = indi.StateAlert
		d.bus.SetNumber(nvp, fmt.Sprintf("Failed to set %s", nvp.Label))
		return
	}

	nvp.State = indi.StateOk
	d.bus.SetNumber(nvp, "")
}

// pushButton runs action for a single button vector and releases the button.
func (d *Driver) pushButton(svp *indi.SwitchVector, values []indi.SwitchValue, action func() error, done, failed string) {
	if !d.updateSwitch(svp, values) {
		return
	}
	if svp.OnIndex() < 0 {
		svp.State = indi.StateIdle
		d.bus.SetSwitch(svp, "")
		return
	}

	svp.Reset()
	if err := action(); err != nil {
		d.logger.Errorf("%s: %v", failed, err)
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, failed)
		return
	}

	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, done)
}

func (d *Driver) handleConnection(values []indi.SwitchValue) {
	svp := &d.props.connection
	if !d.updateSwitch(svp, values) {
		return
	}

	if svp.OnIndex() == 0 {
		if d.state == connStateConnected {
			svp.State = indi.StateOk
			d.bus.SetSwitch(svp, "")
			return
		}
		svp.State = indi.StateBusy
		d.bus.SetSwitch(svp, "")

		if err := d.Connect(); err != nil {
			d.logger.Errorf("Failed to connect: %v", err)
			svp.Select(1)
			svp.State = indi.StateAlert
			d.bus.SetSwitch(svp, "Failed to connect")
			return
		}
		svp.State = indi.StateOk
		d.bus.SetSwitch(svp, "")
		return
	}

	if d.state == connStateConnected {
		if err := d.Disconnect(); err != nil {
			d.logger.Warnf("Failed to disconnect: %v", err)
		}
	}
	svp.State = indi.StateIdle
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleBaudRate(values []indi.SwitchValue) {
	svp := &d.props.baudRate
	if !d.updateSwitch(svp, values) {
		return
	}

	rate, err := strconv.Atoi(svp.OnSwitch().Name)
	if err == nil {
		_, err = d.store.update(func(c *Config) { c.BaudRate = rate })
	}
	if err != nil {
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, fmt.Sprintf("Failed to store baud rate: %v", err))
		return
	}

	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleConfigProcess(values []indi.SwitchValue) {
	svp := &d.props.configProcess
	if !d.updateSwitch(svp, values) {
		return
	}

	idx := svp.OnIndex()
	svp.Reset()

	var err error
	switch idx {
	case 0:
		err = d.loadConfig()
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("no config file at %s", d.opts.ConfigFile)
		}
	case 1:
		err = d.saveConfig()
	default:
		svp.State = indi.StateIdle
		d.bus.SetSwitch(svp, "")
		return
	}

	if err != nil {
		d.logger.Errorf("Config: %v", err)
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, "")
		return
	}
	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handlePark(values []indi.SwitchValue) {
	svp := &d.props.park
	prev := svp.OnIndex()
	if !d.updateSwitch(svp, values) {
		return
	}

	var err error
	if svp.OnIndex() == 0 {
		err = d.Park()
	} else {
		err = d.Unpark()
	}

	if err != nil {
		svp.Select(prev)
		svp.State = indi.StateAlert
		if errors.Is(err, ErrSlewing) {
			d.bus.SetSwitch(svp, "Cannot park while slewing")
			return
		}
		d.logger.Errorf("Park: %v", err)
		d.bus.SetSwitch(svp, "")
		return
	}

	switch d.trackState {
	case StateParking:
		svp.Select(0)
		svp.State = indi.StateBusy
	case StateParked:
		svp.Select(0)
		svp.State = indi.StateOk
	default:
		svp.Select(1)
		svp.State = indi.StateOk
	}
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleMotion(svp *indi.SwitchVector, values []indi.SwitchValue, move func(dir int) error) {
	if d.trackState == StateParked {
		svp.Reset()
		svp.State = indi.StateIdle
		d.bus.SetSwitch(svp, "Please unpark the mount before issuing any motion commands.")
		return
	}
	if !d.updateSwitch(svp, values) {
		return
	}

	dir := svp.OnIndex()
	if err := move(dir); err != nil {
		d.logger.Errorf("%s: %v", svp.Label, err)
		svp.Reset()
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, "")
		return
	}

	svp.State = indi.StateIdle
	if dir >= 0 {
		svp.State = indi.StateBusy
	}
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleSpiral(values []indi.SwitchValue) {
	svp := &d.props.spiral
	if !d.updateSwitch(svp, values) {
		return
	}

	var err error
	state := indi.StateIdle
	switch svp.OnIndex() {
	case 0:
		err = d.StartSpiral()
		state = indi.StateBusy
	case 1:
		err = d.StopSpiral()
		svp.Reset()
	}

	if err != nil {
		d.logger.Errorf("Spiral search: %v", err)
		svp.Reset()
		state = indi.StateAlert
	}
	svp.State = state
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleMountType(values []indi.SwitchValue) {
	svp := &d.props.mountType
	prev := svp.OnIndex()
	if !d.updateSwitch(svp, values) {
		return
	}

	if svp.OnIndex() == prev {
		svp.State = indi.StateOk
		d.bus.SetSwitch(svp, "")
		return
	}

	if err := d.SetMountType(MountType(svp.OnIndex())); err != nil {
		d.logger.Errorf("Mount type: %v", err)
		svp.Select(prev)
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, "")
		return
	}

	d.logger.Warn("Restart mount in order to apply changes to Mount Type.")
	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) handleSafetyLimit(values []indi.SwitchValue) {
	svp := &d.props.safetyLimit
	if !d.updateSwitch(svp, values) {
		return
	}

	idx := svp.OnIndex()
	svp.Reset()
	if idx < 0 {
		svp.State = indi.StateIdle
		d.bus.SetSwitch(svp, "")
		return
	}

	if err := d.SetSafetyLimit(idx == 0); err != nil {
		d.logger.Errorf("Safety limit: %v", err)
		svp.State = indi.StateAlert
		d.bus.SetSwitch(svp, "")
		return
	}

	msg := "Safety limit set"
	if idx == 1 {
		msg = "Safety limit cleared"
	}
	svp.State = indi.StateOk
	d.bus.SetSwitch(svp, msg)
}

func (d *Driver) handleGoto(values []indi.NumberValue) {
	nvp := &d.props.eqCoord

	// Validate against a copy, the vector holds the current position.
	target := *nvp
	target.Numbers = slices.Clone(nvp.Numbers)
	if err := indi.UpdateNumber(&target, values); err != nil {
		nvp.State = target.State
		d.bus.SetNumber(nvp, err.Error())
		return
	}

	if d.trackState == StateParked {
		nvp.State = indi.StateIdle
		d.bus.SetNumber(nvp, "Please unpark the mount before issuing any motion commands.")
		return
	}

	ra, dec := target.Find("RA").Value, target.Find("DEC").Value
	if err := d.Goto(ra, dec); err != nil {
		d.logger.Errorf("Goto: %v", err)
		nvp.State = indi.StateAlert
		d.bus.SetNumber(nvp, "Error slewing to target")
	}
}

func (d *Driver) handleTime(values []indi.TextValue) {
	tvp := &d.props.timeUTC
	if !d.updateText(tvp, values) {
		return
	}

	utc, err := time.Parse("2006-01-02T15:04:05", tvp.Find("UTC").Text)
	if err != nil {
		tvp.State = indi.StateAlert
		d.bus.SetText(tvp, fmt.Sprintf("Invalid UTC time %q", tvp.Find("UTC").Text))
		return
	}
	offset, err := strconv.ParseFloat(strings.TrimSpace(tvp.Find("OFFSET").Text), 64)
	if err != nil {
		tvp.State = indi.StateAlert
		d.bus.SetText(tvp, fmt.Sprintf("Invalid UTC offset %q", tvp.Find("OFFSET").Text))
		return
	}

	if err := d.SetTime(utc, offset); err != nil {
		d.logger.Errorf("Time: %v", err)
		tvp.State = indi.StateAlert
		d.bus.SetText(tvp, "")
		return
	}
	tvp.State = indi.StateOk
	d.bus.SetText(tvp, "")
}

// handleDebugCommand sends the raw command and shows what came back. A
// command the mount does not answer is not an error.
func (d *Driver) handleDebugCommand(values []indi.TextValue) {
	tvp := &d.props.debugCommand
	if !d.updateText(tvp, values) {
		return
	}
	if d.tr == nil {
		tvp.State = indi.StateAlert
		d.bus.SetText(tvp, "")
		return
	}

	res, err := d.tr.Exchange(tvp.Find("COMMAND").Text, true, 0)
	state := indi.StateOk
	if err != nil && !(errors.Is(err, transport.ErrTimeout) && len(res) == 0) {
		state = indi.StateAlert
	}
	tvp.Find("RESPONSE").Text = string(res)
	tvp.State = state
	d.bus.SetText(tvp, "")
}
