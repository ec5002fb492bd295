package nyx

import (
	"context"
	"errors"
	"fmt"
	"nyx/pkg/indi"
	"nyx/pkg/transport"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const DeviceName = "Pegasus NYX-101"

var (
	ErrNotConnected = errors.New("mount not connected")
	ErrSlewing      = errors.New("mount is slewing")
)

type connState int

const (
	connStateDisconnected connState = iota
	connStateConnecting
	connStateConnected
)

// Opener opens the link to the mount. port is a serial device or a bridge
// URL, as stored in the driver config.
type Opener func(port string, baudRate int) (transport.Port, error)

type Options struct {
	ConfigFile  string // INDI config file; empty uses indi.ConfigPath
	Diagnostics bool   // define the NYX_STATUS_* and DEBUG_COMMAND properties
	Observers   []StatusObserver
}

// Driver is the NYX-101 mount driver. All of its methods are meant to be
// called from the goroutine running Run.
type Driver struct {
	bus    *indi.Device
	store  *store
	open   Opener
	opts   Options
	logger log.FieldLogger

	state connState
	tr    *transport.Transport
	props properties

	trackState  TrackState
	hasPierSide bool
	observers   []StatusObserver

	pollChanged bool
}

func NewDriver(bus *indi.Device, db *bolt.DB, open Opener, opts Options, logger log.FieldLogger) (*Driver, error) {
	store, err := NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %v", err)
	}

	cfg, err := store.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get mount config: %v", err)
	}

	if opts.ConfigFile == "" {
		opts.ConfigFile = indi.ConfigPath(bus.Name())
	}

	d := &Driver{
		bus:    bus,
		store:  store,
		open:   open,
		opts:   opts,
		logger: logger,
		state:  connStateDisconnected,
		props:  newProperties(cfg),
	}

	d.observers = append(d.observers, opts.Observers...)
	if opts.Diagnostics {
		d.observers = append(d.observers, &diagnostics{bus: bus, props: &d.props})
	}

	return d, nil
}

// Run serves client requests from inbound and polls the mount until ctx is
// done or inbound is closed.
func (d *Driver) Run(ctx context.Context, inbound <-chan *indi.Message) error {
	ticker := time.NewTicker(d.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m, ok := <-inbound:
			if !ok {
				return nil
			}
			if err := d.bus.Dispatch(m, d); err != nil {
				d.logger.Warnf("Rejected %s %s: %v", m.Tag, m.Name, err)
			}
			if d.pollChanged {
				ticker.Reset(d.pollInterval())
				d.pollChanged = false
			}

		case <-ticker.C:
			if d.state == connStateConnected {
				d.ReadScopeStatus()
			}
		}
	}
}

func (d *Driver) pollInterval() time.Duration {
	ms := d.props.pollPeriod.Numbers[0].Value
	if ms < 10 {
		ms = 10
	}
	return time.Duration(ms) * time.Millisecond
}

func (d *Driver) Close() {
	d.logger.Info("Closing mount driver")

	if d.state == connStateDisconnected {
		return
	}
	if err := d.Disconnect(); err != nil {
		d.logger.Errorf("failed to disconnect: %v", err)
	}
}

func (d *Driver) Connected() bool {
	return d.state == connStateConnected
}

func (d *Driver) TrackState() TrackState {
	return d.trackState
}

func (d *Driver) Connect() error {
	if d.state != connStateDisconnected {
		return fmt.Errorf("driver is already connected")
	}

	cfg, err := d.store.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get mount config: %v", err)
	}

	d.state = connStateConnecting

	port, err := d.open(cfg.Port, cfg.BaudRate)
	if err != nil {
		d.state = connStateDisconnected
		return fmt.Errorf("failed to open %s: %v", cfg.Port, err)
	}

	d.tr = transport.New(port, time.Duration(cfg.Timeout)*time.Millisecond, d.logger)

	status, err := d.tr.Exchange(cmdStatus, true, 0)
	if err != nil {
		d.tr.Close()
		d.tr = nil
		d.state = connStateDisconnected
		return fmt.Errorf("mount did not answer on %s: %v", cfg.Port, err)
	}

	d.state = connStateConnected
	d.trackState = StateIdle
	d.initFromMount(DecodeStatus(string(status)))
	d.defineConnected()

	if err := d.loadConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warnf("Failed to load config: %v", err)
	}

	d.logger.Infof("Connected to mount on %s", cfg.Port)
	return nil
}

func (d *Driver) Disconnect() error {
	if d.state != connStateConnected {
		return ErrNotConnected
	}

	d.deleteConnected()

	if err := d.tr.Close(); err != nil {
		d.logger.Warnf("Failed to close port: %v", err)
	}
	d.tr = nil
	d.state = connStateDisconnected
	d.trackState = StateIdle

	d.logger.Info("Disconnected from mount")
	return nil
}

// initFromMount reads the settings that the property defaults are seeded
// from. Reads that fail keep the defaults, or the saved config choice.
func (d *Driver) initFromMount(s Snapshot) {
	p := &d.props

	d.hasPierSide = s.MountType == MountEquatorial
	p.mountType.Select(int(s.MountType))

	if s.Parked {
		d.trackState = StateParked
		p.park.Select(0)
	} else {
		p.park.Select(1)
	}
	p.park.State = indi.StateOk

	if s.Tracking && !s.Parked {
		d.trackState = StateTracking
		p.trackState.Select(0)
	} else {
		p.trackState.Select(1)
	}
	p.trackMode.Select(int(s.TrackMode))
	if s.Refraction {
		p.refraction.Select(0)
	} else {
		p.refraction.Select(1)
	}

	if rate, err := d.queryNumber(cmdGetGuideRate); err == nil && guideRateIndex(rate) >= 0 {
		p.guideRate.Select(guideRateIndex(rate))
	} else if idx, err := d.configSwitchIndex(p.guideRate.Name); err == nil {
		p.guideRate.Select(idx)
	}

	if v, err := d.queryNumber(cmdGetOverhead); err == nil {
		p.elevation.Find("ELEVATION_OVERHEAD").Value = v
	}
	if v, err := d.queryNumber(cmdGetHorizon); err == nil {
		p.elevation.Find("ELEVATION_HORIZON").Value = v
	}
	if v, err := d.queryNumber(cmdGetMeridianE); err == nil {
		p.meridian.Numbers[0].Value = v
	}

	p.eqCoord.State = d.eqState()
}

// connectedVectors lists the properties defined while connected, in
// definition order.
func (d *Driver) connectedVectors() []any {
	p := &d.props
	v := []any{
		&p.eqCoord, &p.horizontal, &p.abort, &p.trackState, &p.trackMode, &p.park,
	}
	if d.hasPierSide {
		v = append(v, &p.pierSide)
	}
	v = append(v,
		&p.hardLimit, &p.raMotor, &p.decMotor,
		&p.slewRate, &p.motionNS, &p.motionWE, &p.slewRates, &p.guideRate, &p.spiral, &p.flip,
		&p.timeUTC, &p.geographic,
		&p.mountType, &p.elevation, &p.meridian, &p.refraction, &p.safetyLimit,
		&p.homeGo, &p.homeReset, &p.parkSet, &p.reboot,
	)
	if d.opts.Diagnostics {
		v = append(v, &p.statusFlags, &p.statusRaw, &p.debugCommand)
	}
	return v
}

func (d *Driver) define(vectors ...any) {
	for _, v := range vectors {
		switch vp := v.(type) {
		case *indi.NumberVector:
			d.bus.DefineNumber(vp, "")
		case *indi.SwitchVector:
			d.bus.DefineSwitch(vp, "")
		case *indi.TextVector:
			d.bus.DefineText(vp, "")
		case *indi.LightVector:
			d.bus.DefineLight(vp, "")
		}
	}
}

func (d *Driver) defineConnected() {
	d.define(d.connectedVectors()...)
}

func (d *Driver) deleteConnected() {
	for _, v := range d.connectedVectors() {
		var name string
		switch vp := v.(type) {
		case *indi.NumberVector:
			name = vp.Name
		case *indi.SwitchVector:
			name = vp.Name
		case *indi.TextVector:
			name = vp.Name
		case *indi.LightVector:
			name = vp.Name
		}
		d.bus.Delete(name, "")
	}
}

// GetProperties defines the properties the device currently has.
func (d *Driver) GetProperties() {
	p := &d.props
	d.define(&p.connection, &p.port, &p.baudRate, &p.configProcess, &p.pollPeriod)
	if d.state == connStateConnected {
		d.defineConnected()
	}
}

func (d *Driver) configSwitchIndex(property string) (int, error) {
	f, err := os.Open(d.opts.ConfigFile)
	if err != nil {
		return -1, err
	}
	defer f.Close()
	return indi.ConfigOnSwitchIndex(f, d.bus.Name(), property)
}

// loadConfig replays the saved config against the defined properties.
func (d *Driver) loadConfig() error {
	f, err := os.Open(d.opts.ConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	d.logger.Debugf("Loading config from %s", d.opts.ConfigFile)
	return indi.LoadConfig(f, d.bus.Name(), "", func(m *indi.Message) error {
		return d.bus.Dispatch(m, d)
	})
}

func (d *Driver) saveConfig() error {
	path := d.opts.ConfigFile
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	defer f.Close()

	p := &d.props
	cw := indi.NewConfigWriter(f, d.bus.Name())
	cw.Number(&p.pollPeriod)
	if d.state == connStateConnected {
		cw.Switch(&p.trackMode)
		cw.Switch(&p.slewRate)
		cw.Switch(&p.guideRate)
		cw.Switch(&p.mountType)
		cw.Switch(&p.refraction)
		cw.Number(&p.elevation)
		cw.Number(&p.meridian)
		cw.Number(&p.geographic)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	d.logger.Infof("Saved configuration to %s", path)
	return nil
}
