package nyx

import (
	"errors"
	"fmt"
	"math"
	"nyx/pkg/indi"
	"nyx/pkg/transport"
	"strconv"
	"strings"
	"time"
)

// ReadScopeStatus runs one poll cycle. A failure to read the equatorial or
// horizontal coordinates ends the cycle early; anything already applied
// stays applied.
func (d *Driver) ReadScopeStatus() error {
	if d.state != connStateConnected {
		return ErrNotConnected
	}

	raw, err := d.tr.Exchange(cmdStatus, true, 0)
	if err != nil {
		// An unterminated report that carries flags is still decoded.
		partial := errors.Is(err, transport.ErrTimeout) || errors.Is(err, transport.ErrNoTerminator)
		if !partial || len(raw) == 0 {
			d.logger.Errorf("Failed to read status: %v", err)
			return err
		}
		d.logger.Warnf("Incomplete status report <%s>", raw)
	}

	s := DecodeStatus(string(raw))
	d.applyStatus(s)

	ra, dec, err := d.readRaDec()
	if err != nil {
		d.props.eqCoord.State = indi.StateAlert
		d.bus.SetNumber(&d.props.eqCoord, "Error reading Ra - Dec")
		return err
	}
	d.publishRaDec(ra, dec)

	if d.hasPierSide {
		d.readPierSide()
	}

	report := StatusReport{
		Time:       time.Now(),
		Raw:        string(raw),
		Status:     s,
		TrackState: d.trackState,
	}
	report.RAMotorRaw, report.RAMotor = d.readMotor(cmdGetRAMotor, &d.props.raMotor)
	report.DECMotorRaw, report.DECMotor = d.readMotor(cmdGetDECMotor, &d.props.decMotor)
	for _, o := range d.observers {
		o.ObserveStatus(report)
	}

	d.readHardLimit()

	if err := d.readAzAlt(); err != nil {
		d.props.horizontal.State = indi.StateAlert
		d.bus.SetNumber(&d.props.horizontal, "Error reading Az - Alt")
		return err
	}

	d.syncMeridianLimit()
	return nil
}

// applyStatus advances the track state and refreshes the switches the status
// report is authoritative for.
func (d *Driver) applyStatus(s Snapshot) {
	p := &d.props

	trackingOn := p.trackState.Find("TRACK_ON").State == indi.On
	if next := NextTrackState(d.trackState, s, trackingOn); next != d.trackState {
		d.setTrackState(next)
	}

	// A truncated report falls back to defaults for these.
	if !s.Complete {
		return
	}
	if p.trackMode.OnIndex() != int(s.TrackMode) {
		p.trackMode.Select(int(s.TrackMode))
		p.trackMode.State = indi.StateOk
		d.bus.SetSwitch(&p.trackMode, "")
	}
	refractionIdx := 1
	if s.Refraction {
		refractionIdx = 0
	}
	if p.refraction.OnIndex() != refractionIdx {
		p.refraction.Select(refractionIdx)
		p.refraction.State = indi.StateOk
		d.bus.SetSwitch(&p.refraction, "")
	}
}

// setTrackState moves to next and brings the tracking and park switches in
// line with it.
func (d *Driver) setTrackState(next TrackState) {
	p := &d.props
	prev := d.trackState
	d.trackState = next
	d.logger.Debugf("Track state %s -> %s", prev, next)

	switch next {
	case StateTracking:
		d.selectSwitch(&p.trackState, 0, indi.StateOk)
	case StateIdle, StateParked:
		d.selectSwitch(&p.trackState, 1, indi.StateOk)
	}

	switch {
	case next == StateParked:
		d.selectSwitch(&p.park, 0, indi.StateOk)
		d.logger.Info("Mount is parked")
	case next == StateParking:
		d.selectSwitch(&p.park, 0, indi.StateBusy)
	case prev == StateParked || prev == StateParking:
		d.selectSwitch(&p.park, 1, indi.StateOk)
	}

	p.eqCoord.State = d.eqState()
	d.bus.SetNumber(&p.eqCoord, "")
}

// selectSwitch publishes svp when the selection or state changes.
func (d *Driver) selectSwitch(svp *indi.SwitchVector, idx int, state indi.PropertyState) {
	if svp.OnIndex() == idx && svp.State == state {
		return
	}
	svp.Select(idx)
	svp.State = state
	d.bus.SetSwitch(svp, "")
}

func (d *Driver) eqState() indi.PropertyState {
	switch d.trackState {
	case StateSlewing, StateParking:
		return indi.StateBusy
	case StateTracking, StateParked:
		return indi.StateOk
	}
	return indi.StateIdle
}

func (d *Driver) readRaDec() (float64, float64, error) {
	raStr, err := d.tr.Query(cmdGetRA)
	if err != nil {
		return 0, 0, err
	}
	ra, err := indi.ParseSexagesimal(raStr)
	if err != nil {
		return 0, 0, fmt.Errorf("bad RA %q: %v", raStr, err)
	}

	decStr, err := d.tr.Query(cmdGetDEC)
	if err != nil {
		return 0, 0, err
	}
	dec, err := indi.ParseSexagesimal(decStr)
	if err != nil {
		return 0, 0, fmt.Errorf("bad DEC %q: %v", decStr, err)
	}

	return ra, dec, nil
}

func (d *Driver) publishRaDec(ra, dec float64) {
	nvp := &d.props.eqCoord
	state := d.eqState()
	if nvp.Numbers[0].Value == ra && nvp.Numbers[1].Value == dec && nvp.State == state {
		return
	}
	nvp.Numbers[0].Value = ra
	nvp.Numbers[1].Value = dec
	nvp.State = state
	d.bus.SetNumber(nvp, "")
}

func (d *Driver) readPierSide() {
	res, err := d.tr.Query(cmdGetPierSide)
	if err != nil {
		d.logger.Warnf("Failed to read pier side: %v", err)
		return
	}

	side := PierUnknown
	switch {
	case strings.HasPrefix(res, "W"):
		side = PierWest
	case strings.HasPrefix(res, "E"):
		side = PierEast
	}

	svp := &d.props.pierSide
	idx := -1
	switch side {
	case PierWest:
		idx = 0
	case PierEast:
		idx = 1
	}
	d.selectSwitch(svp, idx, indi.StateOk)
}

// readMotor classifies one axis and publishes it on tvp when it changes.
func (d *Driver) readMotor(cmd string, tvp *indi.TextVector) (string, MotorHealth) {
	raw, err := d.tr.Query(cmd)
	if err != nil {
		d.logger.Warnf("Failed to read motor status: %v", err)
		return "", MotorHealth{Motion: Moving}
	}

	health := ClassifyMotor(raw)
	state := indi.StateOk
	if health.Fault != FaultNone {
		state = indi.StateAlert
	}

	tp := &tvp.Texts[0]
	if tp.Text != health.String() || tvp.State != state {
		prevFault := tvp.State == indi.StateAlert
		tp.Text = health.String()
		tvp.State = state
		d.bus.SetText(tvp, "")
		if state == indi.StateAlert && !prevFault {
			d.logger.Errorf("%s: %s", tvp.Label, health.Fault)
		}
	}
	return raw, health
}

func (d *Driver) readHardLimit() {
	res, err := d.tr.Query(cmdGetHardLimit)
	if err != nil {
		d.logger.Warnf("Failed to read hard limit: %v", err)
		return
	}

	text, state := "-", indi.StateIdle
	if strings.HasPrefix(res, "1") {
		text, state = "ON", indi.StateOk
	}

	tvp := &d.props.hardLimit
	if tvp.Texts[0].Text != text || tvp.State != state {
		tvp.Texts[0].Text = text
		tvp.State = state
		d.bus.SetText(tvp, "")
	}
}

func (d *Driver) readAzAlt() error {
	azStr, err := d.tr.Query(cmdGetAz)
	if err != nil {
		return err
	}
	az, err := indi.ParseSexagesimal(azStr)
	if err != nil {
		return fmt.Errorf("bad azimuth %q: %v", azStr, err)
	}

	altStr, err := d.tr.Query(cmdGetAlt)
	if err != nil {
		return err
	}
	alt, err := indi.ParseSexagesimal(altStr)
	if err != nil {
		return fmt.Errorf("bad altitude %q: %v", altStr, err)
	}

	nvp := &d.props.horizontal
	if nvp.Numbers[0].Value != az || nvp.Numbers[1].Value != alt || nvp.State != indi.StateOk {
		nvp.Numbers[0].Value = az
		nvp.Numbers[1].Value = alt
		nvp.State = indi.StateOk
		d.bus.SetNumber(nvp, "")
	}
	return nil
}

// syncMeridianLimit keeps the east and west meridian registers equal. When
// they differ both are rewritten with the MERIDIAN_LIMIT value.
func (d *Driver) syncMeridianLimit() {
	nvp := &d.props.meridian

	east, errE := d.queryNumber(cmdGetMeridianE)
	west, errW := d.queryNumber(cmdGetMeridianW)
	if errE != nil || errW != nil {
		nvp.State = indi.StateAlert
		d.bus.SetNumber(nvp, "Error reading meridian limits")
		return
	}

	if east != west {
		limit := int(math.Round(nvp.Numbers[0].Value))
		d.logger.Warnf("Meridian limits differ (east %g, west %g), setting both to %d", east, west, limit)
		if err := d.setMeridianLimit(limit); err != nil {
			nvp.State = indi.StateAlert
			d.bus.SetNumber(nvp, "Error setting meridian limits")
			return
		}
		nvp.State = indi.StateBusy
		d.bus.SetNumber(nvp, "")
		return
	}

	if nvp.Numbers[0].Value != east || nvp.State != indi.StateOk {
		nvp.Numbers[0].Value = east
		nvp.State = indi.StateOk
		d.bus.SetNumber(nvp, "")
	}
}

func (d *Driver) queryNumber(cmd string) (float64, error) {
	res, err := d.tr.Query(cmd)
	if err != nil {
		return 0, err
	}
	return parseNumber(res)
}

// parseNumber reads a number out of a reply, ignoring any unit characters
// around it.
func parseNumber(s string) (float64, error) {
	trimmed := strings.TrimFunc(s, func(r rune) bool {
		return !strings.ContainsRune("+-.0123456789", r)
	})
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}
