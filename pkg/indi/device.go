package indi

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Writer serializes whole messages onto a shared stream. Several devices and
// goroutines may share one Writer; each message is written with a single
// Write call under the lock.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) encode(v *wireVector) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", v.XMLName.Local, err)
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(b)
	return err
}

// Handler receives validated client requests for one device.
type Handler interface {
	GetProperties()
	NewNumber(name string, values []NumberValue)
	NewSwitch(name string, values []SwitchValue)
	NewText(name string, values []TextValue)
	NewBLOB(name string, values []BLOBValue)
}

// Device is the bus endpoint of a single device. It owns the registry of
// properties currently defined by the device and their permissions.
type Device struct {
	name   string
	w      *Writer
	logger log.FieldLogger

	mu    sync.Mutex
	perms map[string]Perm
}

func NewDevice(name string, w *Writer, logger log.FieldLogger) *Device {
	return &Device{
		name:   name,
		w:      w,
		logger: logger.WithField("component", "indi"),
		perms:  make(map[string]Perm),
	}
}

func (d *Device) Name() string {
	return d.name
}

// Defined reports whether the property is currently defined.
func (d *Device) Defined(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.perms[name]
	return ok
}

func (d *Device) register(name string, perm Perm) {
	d.mu.Lock()
	d.perms[name] = perm
	d.mu.Unlock()
}

func (d *Device) send(v *wireVector) {
	if err := d.w.encode(v); err != nil {
		d.logger.Errorf("Failed to write %s %s: %v", v.XMLName.Local, v.Name, err)
	}
}

func (d *Device) vector(tag, name, state, msg string) *wireVector {
	return &wireVector{
		XMLName:   xml.Name{Local: tag},
		Device:    d.name,
		Name:      name,
		State:     state,
		Timestamp: timestamp(),
		Message:   msg,
	}
}

func element(tag, name, value string) wireElement {
	return wireElement{XMLName: xml.Name{Local: tag}, Name: name, Value: value}
}

func (d *Device) DefineNumber(nvp *NumberVector, msg string) {
	v := d.vector("defNumberVector", nvp.Name, nvp.State.String(), msg)
	v.Label, v.Group, v.Perm = nvp.Label, nvp.Group, nvp.Perm.String()
	v.Timeout = formatTimeout(nvp.Timeout)
	for _, np := range nvp.Numbers {
		e := element("defNumber", np.Name, FormatNumber(np.Value))
		e.Label, e.Format = np.Label, np.Format
		e.Min, e.Max, e.Step = FormatNumber(np.Min), FormatNumber(np.Max), FormatNumber(np.Step)
		v.Elements = append(v.Elements, e)
	}
	d.register(nvp.Name, nvp.Perm)
	d.send(v)
}

func (d *Device) DefineSwitch(svp *SwitchVector, msg string) {
	v := d.vector("defSwitchVector", svp.Name, svp.State.String(), msg)
	v.Label, v.Group, v.Perm = svp.Label, svp.Group, svp.Perm.String()
	v.Rule = svp.Rule.String()
	v.Timeout = formatTimeout(svp.Timeout)
	for _, sp := range svp.Switches {
		e := element("defSwitch", sp.Name, sp.State.String())
		e.Label = sp.Label
		v.Elements = append(v.Elements, e)
	}
	d.register(svp.Name, svp.Perm)
	d.send(v)
}

func (d *Device) DefineText(tvp *TextVector, msg string) {
	v := d.vector("defTextVector", tvp.Name, tvp.State.String(), msg)
	v.Label, v.Group, v.Perm = tvp.Label, tvp.Group, tvp.Perm.String()
	v.Timeout = formatTimeout(tvp.Timeout)
	for _, tp := range tvp.Texts {
		e := element("defText", tp.Name, tp.Text)
		e.Label = tp.Label
		v.Elements = append(v.Elements, e)
	}
	d.register(tvp.Name, tvp.Perm)
	d.send(v)
}

func (d *Device) DefineLight(lvp *LightVector, msg string) {
	v := d.vector("defLightVector", lvp.Name, lvp.State.String(), msg)
	v.Label, v.Group = lvp.Label, lvp.Group
	for _, lp := range lvp.Lights {
		e := element("defLight", lp.Name, lp.State.String())
		e.Label = lp.Label
		v.Elements = append(v.Elements, e)
	}
	d.register(lvp.Name, ReadOnly)
	d.send(v)
}

func (d *Device) DefineBLOB(bvp *BLOBVector, msg string) {
	v := d.vector("defBLOBVector", bvp.Name, bvp.State.String(), msg)
	v.Label, v.Group, v.Perm = bvp.Label, bvp.Group, bvp.Perm.String()
	v.Timeout = formatTimeout(bvp.Timeout)
	for _, bp := range bvp.BLOBs {
		e := element("defBLOB", bp.Name, "")
		e.Label = bp.Label
		v.Elements = append(v.Elements, e)
	}
	d.register(bvp.Name, bvp.Perm)
	d.send(v)
}

func (d *Device) SetNumber(nvp *NumberVector, msg string) {
	v := d.vector("setNumberVector", nvp.Name, nvp.State.String(), msg)
	v.Timeout = formatTimeout(nvp.Timeout)
	for _, np := range nvp.Numbers {
		v.Elements = append(v.Elements, element("oneNumber", np.Name, FormatNumber(np.Value)))
	}
	d.send(v)
}

func (d *Device) SetSwitch(svp *SwitchVector, msg string) {
	v := d.vector("setSwitchVector", svp.Name, svp.State.String(), msg)
	v.Timeout = formatTimeout(svp.Timeout)
	for _, sp := range svp.Switches {
		v.Elements = append(v.Elements, element("oneSwitch", sp.Name, sp.State.String()))
	}
	d.send(v)
}

func (d *Device) SetText(tvp *TextVector, msg string) {
	v := d.vector("setTextVector", tvp.Name, tvp.State.String(), msg)
	v.Timeout = formatTimeout(tvp.Timeout)
	for _, tp := range tvp.Texts {
		v.Elements = append(v.Elements, element("oneText", tp.Name, tp.Text))
	}
	d.send(v)
}

func (d *Device) SetLight(lvp *LightVector, msg string) {
	v := d.vector("setLightVector", lvp.Name, lvp.State.String(), msg)
	for _, lp := range lvp.Lights {
		v.Elements = append(v.Elements, element("oneLight", lp.Name, lp.State.String()))
	}
	d.send(v)
}

func (d *Device) SetBLOB(bvp *BLOBVector, msg string) {
	v := d.vector("setBLOBVector", bvp.Name, bvp.State.String(), msg)
	v.Timeout = formatTimeout(bvp.Timeout)
	for _, bp := range bvp.BLOBs {
		v.Elements = append(v.Elements, blobElement(bp))
	}
	d.send(v)
}

func blobElement(bp BLOB) wireElement {
	e := element("oneBLOB", bp.Name, base64.StdEncoding.EncodeToString(bp.Data))
	e.Format = bp.Format
	e.Size = strconv.Itoa(bp.Size)
	return e
}

// Delete removes a property from clients and from the registry. An empty
// name deletes every property of the device.
func (d *Device) Delete(name, msg string) {
	d.mu.Lock()
	if name == "" {
		d.perms = make(map[string]Perm)
	} else {
		delete(d.perms, name)
	}
	d.mu.Unlock()

	d.send(d.vector("delProperty", name, "", msg))
}

// Message sends a free-form device message.
func (d *Device) Message(msg string) {
	d.send(d.vector("message", "", "", msg))
}

// Dispatch routes a decoded client message to h.
//
// Messages for other devices, snooped def/set traffic and requests for
// properties the device has not defined are ignored. Requests for read-only
// properties are rejected with ErrReadOnly.
func (d *Device) Dispatch(m *Message, h Handler) error {
	if m.Device != "" && m.Device != d.name {
		return nil
	}

	switch m.Tag {
	case "getProperties":
		if v, err := strconv.ParseFloat(m.Version, 64); err == nil && v < versionNumber {
			d.logger.Warnf("Client protocol version %s is older than %s", m.Version, Version)
		}
		h.GetProperties()
		return nil
	case "newNumberVector", "newSwitchVector", "newTextVector", "newBLOBVector":
	default:
		return nil
	}

	d.mu.Lock()
	perm, ok := d.perms[m.Name]
	d.mu.Unlock()
	if !ok {
		d.logger.Debugf("Ignoring %s for undefined property %s", m.Tag, m.Name)
		return nil
	}
	if perm == ReadOnly {
		return fmt.Errorf("%s: %w", m.Name, ErrReadOnly)
	}

	switch m.Tag {
	case "newNumberVector":
		values, err := m.NumberValues()
		if err != nil {
			return err
		}
		h.NewNumber(m.Name, values)
	case "newSwitchVector":
		values, err := m.SwitchValues()
		if err != nil {
			return err
		}
		h.NewSwitch(m.Name, values)
	case "newTextVector":
		h.NewText(m.Name, m.TextValues())
	case "newBLOBVector":
		values, err := m.BLOBValues()
		if err != nil {
			return err
		}
		h.NewBLOB(m.Name, values)
	}
	return nil
}
