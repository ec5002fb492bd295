package indi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ConfigPath returns $INDICONFIG, or ~/.indi/<device>_config.xml.
func ConfigPath(device string) string {
	if p := os.Getenv("INDICONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".indi", device+"_config.xml")
}

// ConfigWriter writes an INDIDriver document of new*Vector records, one per
// saved property.
type ConfigWriter struct {
	w      io.Writer
	device string
	err    error
}

func NewConfigWriter(w io.Writer, device string) *ConfigWriter {
	cw := &ConfigWriter{w: w, device: device}
	_, cw.err = io.WriteString(w, "<INDIDriver>\n")
	return cw
}

func (cw *ConfigWriter) write(v *wireVector) {
	if cw.err != nil {
		return
	}
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		cw.err = err
		return
	}
	b = append(b, '\n')
	_, cw.err = cw.w.Write(b)
}

func (cw *ConfigWriter) vector(tag, name string) *wireVector {
	return &wireVector{XMLName: xml.Name{Local: tag}, Device: cw.device, Name: name}
}

func (cw *ConfigWriter) Number(nvp *NumberVector) {
	v := cw.vector("newNumberVector", nvp.Name)
	for _, np := range nvp.Numbers {
		v.Elements = append(v.Elements, element("oneNumber", np.Name, FormatNumber(np.Value)))
	}
	cw.write(v)
}

func (cw *ConfigWriter) Switch(svp *SwitchVector) {
	v := cw.vector("newSwitchVector", svp.Name)
	for _, sp := range svp.Switches {
		v.Elements = append(v.Elements, element("oneSwitch", sp.Name, sp.State.String()))
	}
	cw.write(v)
}

func (cw *ConfigWriter) Text(tvp *TextVector) {
	v := cw.vector("newTextVector", tvp.Name)
	for _, tp := range tvp.Texts {
		v.Elements = append(v.Elements, element("oneText", tp.Name, tp.Text))
	}
	cw.write(v)
}

func (cw *ConfigWriter) BLOB(bvp *BLOBVector) {
	v := cw.vector("newBLOBVector", bvp.Name)
	for _, bp := range bvp.BLOBs {
		v.Elements = append(v.Elements, blobElement(bp))
	}
	cw.write(v)
}

// Close terminates the document and returns the first write error.
func (cw *ConfigWriter) Close() error {
	if cw.err != nil {
		return cw.err
	}
	_, err := io.WriteString(cw.w, "</INDIDriver>\n")
	return err
}

// LoadConfig replays the records of device found in r through dispatch. When
// property is not empty only that property is replayed. Dispatch errors are
// collected and returned together; replay continues past them.
func LoadConfig(r io.Reader, device, property string, dispatch func(*Message) error) error {
	reader := NewReader(r)
	var errs []error
	for {
		m, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if m.Device != device || (property != "" && m.Name != property) {
			continue
		}
		if err := dispatch(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ConfigOnSwitchIndex returns the index of the On switch saved for property,
// in file order.
func ConfigOnSwitchIndex(r io.Reader, device, property string) (int, error) {
	reader := NewReader(r)
	for {
		m, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return -1, fmt.Errorf("property %s not found in config", property)
		}
		if err != nil {
			return -1, err
		}
		if m.Device != device || m.Name != property || m.Tag != "newSwitchVector" {
			continue
		}
		for i, e := range m.Elements {
			if e.Value == "On" {
				return i, nil
			}
		}
		return -1, fmt.Errorf("no switch of %s is on in config", property)
	}
}
