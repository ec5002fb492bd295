package nyx

import (
	"errors"
	"fmt"
	"math"
	"nyx/pkg/indi"
	"time"
)

var (
	ErrParked = errors.New("mount is parked")
	errNoAck  = errors.New("command not acknowledged")
)

func (d *Driver) send(cmd string) error {
	if d.tr == nil {
		return ErrNotConnected
	}
	return d.tr.Send(cmd)
}

// sendAck sends cmd and waits for the single byte reply want.
func (d *Driver) sendAck(cmd string, want byte) error {
	if d.tr == nil {
		return ErrNotConnected
	}
	res, err := d.tr.QueryN(cmd, 1)
	if err != nil {
		return err
	}
	if res[0] != want {
		return fmt.Errorf("%s: %w (got %q)", cmd, errNoAck, res)
	}
	return nil
}

// Park starts parking. The mount reports when it is done.
func (d *Driver) Park() error {
	switch d.trackState {
	case StateSlewing:
		return ErrSlewing
	case StateParked, StateParking:
		return nil
	}

	if err := d.send(cmdPark); err != nil {
		return err
	}
	d.logger.Info("Park requested.")

	d.selectSwitch(&d.props.trackState, 1, indi.StateOk)
	d.setTrackState(StateParking)
	return nil
}

func (d *Driver) Unpark() error {
	if d.trackState != StateParked && d.trackState != StateParking {
		return nil
	}

	if err := d.send(cmdUnpark); err != nil {
		return err
	}
	d.logger.Info("Mount unparked.")

	d.setTrackState(StateIdle)
	return nil
}

// Goto slews to ra (hours) and dec (degrees).
func (d *Driver) Goto(ra, dec float64) error {
	if d.trackState == StateParked {
		return ErrParked
	}

	_, h, m, s := indi.SplitSexagesimal(ra)
	if err := d.sendAck(fmt.Sprintf(cmdSetTargetRA, h%24, m, s), '1'); err != nil {
		return fmt.Errorf("failed to set target RA: %w", err)
	}

	neg, dd, dm, ds := indi.SplitSexagesimal(dec)
	sign := "+"
	if neg {
		sign = "-"
	}
	if err := d.sendAck(fmt.Sprintf(cmdSetTargetDEC, sign, dd, dm, ds), '1'); err != nil {
		return fmt.Errorf("failed to set target DEC: %w", err)
	}

	if err := d.sendAck(cmdGoto, '0'); err != nil {
		return fmt.Errorf("goto rejected: %w", err)
	}

	d.logger.Infof("Slewing to RA: %s - DEC: %s", indi.FormatSexagesimal(ra, 3600), indi.FormatSexagesimal(dec, 3600))

	// The mount tracks once the slew is over.
	d.selectSwitch(&d.props.trackState, 0, indi.StateOk)
	d.setTrackState(StateSlewing)
	return nil
}

func (d *Driver) Abort() error {
	if err := d.send(cmdAbort); err != nil {
		return err
	}

	p := &d.props
	for _, svp := range []*indi.SwitchVector{&p.motionNS, &p.motionWE, &p.spiral} {
		if svp.OnIndex() >= 0 || svp.State == indi.StateBusy {
			svp.Reset()
			svp.State = indi.StateIdle
			d.bus.SetSwitch(svp, "")
		}
	}

	switch d.trackState {
	case StateSlewing, StateParking:
		d.setTrackState(StateIdle)
	}
	return nil
}

func (d *Driver) SetTrackEnabled(enabled bool) error {
	cmd := cmdTrackOff
	if enabled {
		cmd = cmdTrackOn
	}
	if err := d.sendAck(cmd, '1'); err != nil {
		return err
	}

	switch d.trackState {
	case StateParked, StateParking:
		return nil
	}
	if enabled {
		d.setTrackState(StateTracking)
	} else {
		d.setTrackState(StateIdle)
	}
	return nil
}

func (d *Driver) SetTrackMode(mode TrackMode) error {
	cmd, ok := trackModeCommands[mode]
	if !ok {
		return fmt.Errorf("unknown track mode %d", mode)
	}
	return d.send(cmd)
}

// SetSlewRate applies the rate at index idx of the slew rate table to both
// axes.
func (d *Driver) SetSlewRate(idx int) error {
	if idx < 0 || idx >= len(slewRates) {
		return fmt.Errorf("slew rate index %d out of range", idx)
	}
	rate := slewRates[idx].rate
	if err := d.send(fmt.Sprintf(cmdSetDECRate, rate)); err != nil {
		return err
	}
	return d.send(fmt.Sprintf(cmdSetRARate, rate))
}

// MoveNS starts a manual move north (dir 0) or south (dir 1), or stops the
// axis for any other dir.
func (d *Driver) MoveNS(dir int) error {
	switch dir {
	case 0:
		return d.send(cmdMoveNorth)
	case 1:
		return d.send(cmdMoveSouth)
	}
	return d.send(cmdStopNS)
}

// MoveWE starts a manual move west (dir 0) or east (dir 1), or stops the
// axis for any other dir.
func (d *Driver) MoveWE(dir int) error {
	switch dir {
	case 0:
		return d.send(cmdMoveWest)
	case 1:
		return d.send(cmdMoveEast)
	}
	return d.send(cmdStopWE)
}

// SetAxisRates moves each axis at the given signed rate; zero stops it.
func (d *Driver) SetAxisRates(raRate, decRate float64) error {
	moveRA := cmdStopWE
	switch {
	case raRate > 0:
		moveRA = cmdMoveWest
	case raRate < 0:
		moveRA = cmdMoveEast
	}
	if err := d.send(fmt.Sprintf(cmdSetRARate, math.Abs(raRate))); err != nil {
		return err
	}
	if err := d.send(moveRA); err != nil {
		return err
	}

	moveDEC := cmdStopNS
	switch {
	case decRate > 0:
		moveDEC = cmdMoveNorth
	case decRate < 0:
		moveDEC = cmdMoveSouth
	}
	if err := d.send(fmt.Sprintf(cmdSetDECRate, math.Abs(decRate))); err != nil {
		return err
	}
	return d.send(moveDEC)
}

func (d *Driver) SetGuideRate(idx int) error {
	return d.send(fmt.Sprintf(cmdSetGuideRate, idx))
}

func (d *Driver) SetMountType(t MountType) error {
	code, ok := mountTypeCodes[t]
	if !ok {
		return fmt.Errorf("unknown mount type %d", t)
	}
	return d.send(fmt.Sprintf(cmdSetMountType, code))
}

func (d *Driver) SetRefraction(on bool) error {
	if on {
		return d.send(cmdRefractionOn)
	}
	return d.send(cmdRefractionOff)
}

// SetSafetyLimit stores the current position as the safety limit, or clears
// it.
func (d *Driver) SetSafetyLimit(set bool) error {
	v := 0
	if set {
		v = 1
	}
	if err := d.send(fmt.Sprintf(cmdSetSafety, v)); err != nil {
		return err
	}
	return d.send(cmdCommitSafety)
}

func (d *Driver) SetOverheadLimit(deg int) error {
	return d.send(fmt.Sprintf(cmdSetOverhead, deg))
}

func (d *Driver) SetHorizonLimit(deg int) error {
	return d.send(fmt.Sprintf(cmdSetHorizon, deg))
}

// setMeridianLimit writes minutes to the east and the west register. The west
// register is left alone when the east write fails.
func (d *Driver) setMeridianLimit(minutes int) error {
	if err := d.send(fmt.Sprintf(cmdSetMeridianE, minutes)); err != nil {
		return err
	}
	return d.send(fmt.Sprintf(cmdSetMeridianW, minutes))
}

func (d *Driver) Home() error       { return d.send(cmdHome) }
func (d *Driver) ResetHome() error  { return d.send(cmdResetHome) }
func (d *Driver) SetParkPos() error { return d.send(cmdSetPark) }
func (d *Driver) Reboot() error     { return d.send(cmdReboot) }
func (d *Driver) Flip() error       { return d.send(cmdFlip) }

func (d *Driver) StartSpiral() error { return d.send(cmdSpiralSearch) }
func (d *Driver) StopSpiral() error  { return d.send(cmdAbort) }

// SetTime sends the local date and time at utc shifted by offset hours, and
// the offset itself.
func (d *Driver) SetTime(utc time.Time, offset float64) error {
	// The mount wants the hours to add to local time to get UTC.
	neg, h, m, _ := indi.SplitSexagesimal(-offset)
	sign := "+"
	if neg {
		sign = "-"
	}
	if err := d.sendAck(fmt.Sprintf(cmdSetUTCOffset, sign, h, m), '1'); err != nil {
		return fmt.Errorf("failed to set UTC offset: %w", err)
	}

	local := utc.Add(time.Duration(offset * float64(time.Hour)))
	if err := d.sendAck(fmt.Sprintf(cmdSetLocalTime, local.Hour(), local.Minute(), local.Second()), '1'); err != nil {
		return fmt.Errorf("failed to set local time: %w", err)
	}
	if err := d.sendAck(fmt.Sprintf(cmdSetLocalDate, int(local.Month()), local.Day(), local.Year()%100), '1'); err != nil {
		return fmt.Errorf("failed to set local date: %w", err)
	}
	return nil
}

// SetLocation sends the site latitude and longitude. lon is east positive in
// 0..360.
func (d *Driver) SetLocation(lat, lon float64) error {
	if lon > 180 {
		lon -= 360
	}
	neg, deg, m, s := indi.SplitSexagesimal(-lon)
	sign := "+"
	if neg {
		sign = "-"
	}
	if err := d.sendAck(fmt.Sprintf(cmdSetLongitude, sign, deg, m, s), '1'); err != nil {
		return fmt.Errorf("failed to set site longitude: %w", err)
	}

	neg, deg, m, s = indi.SplitSexagesimal(lat)
	sign = "+"
	if neg {
		sign = "-"
	}
	if err := d.sendAck(fmt.Sprintf(cmdSetLatitude, sign, deg, m, s), '1'); err != nil {
		return fmt.Errorf("failed to set site latitude: %w", err)
	}
	return nil
}
