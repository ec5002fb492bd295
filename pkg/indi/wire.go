package indi

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Version is the protocol version announced and expected by this driver.
const (
	Version       = "1.7"
	versionNumber = 1.7
)

const timestampLayout = "2006-01-02T15:04:05"

// wireVector is the shape shared by every top-level bus element.
type wireVector struct {
	XMLName   xml.Name
	Version   string        `xml:"version,attr,omitempty"`
	Device    string        `xml:"device,attr,omitempty"`
	Name      string        `xml:"name,attr,omitempty"`
	Label     string        `xml:"label,attr,omitempty"`
	Group     string        `xml:"group,attr,omitempty"`
	State     string        `xml:"state,attr,omitempty"`
	Perm      string        `xml:"perm,attr,omitempty"`
	Rule      string        `xml:"rule,attr,omitempty"`
	Timeout   string        `xml:"timeout,attr,omitempty"`
	Timestamp string        `xml:"timestamp,attr,omitempty"`
	Message   string        `xml:"message,attr,omitempty"`
	Elements  []wireElement `xml:",any"`
}

type wireElement struct {
	XMLName xml.Name
	Name    string `xml:"name,attr"`
	Label   string `xml:"label,attr,omitempty"`
	Format  string `xml:"format,attr,omitempty"`
	Min     string `xml:"min,attr,omitempty"`
	Max     string `xml:"max,attr,omitempty"`
	Step    string `xml:"step,attr,omitempty"`
	Size    string `xml:"size,attr,omitempty"`
	Value   string `xml:",chardata"`
}

func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// FormatNumber renders v at full precision with a '.' decimal point.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTimeout(t float64) string {
	return FormatNumber(t)
}

// Element is one child of a decoded message, with its value trimmed.
type Element struct {
	Name   string
	Label  string
	Format string
	Size   string
	Value  string
}

// Message is a decoded top-level element: getProperties, new*, def*, set*,
// delProperty or message.
type Message struct {
	Tag       string
	Version   string
	Device    string
	Name      string
	Label     string
	Group     string
	State     string
	Perm      string
	Rule      string
	Timestamp string
	Message   string
	Elements  []Element
}

func (m *Message) Value(name string) (string, bool) {
	for _, e := range m.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// NumberValues parses the elements as numbers. Sexagesimal values are
// accepted.
func (m *Message) NumberValues() ([]NumberValue, error) {
	values := make([]NumberValue, 0, len(m.Elements))
	for _, e := range m.Elements {
		v, err := ParseSexagesimal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: bad number %q", m.Name, e.Name, e.Value)
		}
		values = append(values, NumberValue{Name: e.Name, Value: v})
	}
	return values, nil
}

func (m *Message) SwitchValues() ([]SwitchValue, error) {
	values := make([]SwitchValue, 0, len(m.Elements))
	for _, e := range m.Elements {
		s, err := ParseSwitchState(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %v", m.Name, e.Name, err)
		}
		values = append(values, SwitchValue{Name: e.Name, State: s})
	}
	return values, nil
}

func (m *Message) TextValues() []TextValue {
	values := make([]TextValue, 0, len(m.Elements))
	for _, e := range m.Elements {
		values = append(values, TextValue{Name: e.Name, Text: e.Value})
	}
	return values
}

// BLOBValues decodes the base64 payloads. A missing size defaults to the
// decoded length.
func (m *Message) BLOBValues() ([]BLOBValue, error) {
	values := make([]BLOBValue, 0, len(m.Elements))
	for _, e := range m.Elements {
		data, err := base64.StdEncoding.DecodeString(stripSpace(e.Value))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: bad base64 payload: %v", m.Name, e.Name, err)
		}
		size := len(data)
		if e.Size != "" {
			if size, err = strconv.Atoi(e.Size); err != nil {
				return nil, fmt.Errorf("%s.%s: bad size %q", m.Name, e.Name, e.Size)
			}
		}
		values = append(values, BLOBValue{Name: e.Name, Format: e.Format, Size: size, Data: data})
	}
	return values, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

func toMessage(v *wireVector) *Message {
	m := &Message{
		Tag:       v.XMLName.Local,
		Version:   v.Version,
		Device:    v.Device,
		Name:      v.Name,
		Label:     v.Label,
		Group:     v.Group,
		State:     v.State,
		Perm:      v.Perm,
		Rule:      v.Rule,
		Timestamp: v.Timestamp,
		Message:   v.Message,
	}
	for _, e := range v.Elements {
		m.Elements = append(m.Elements, Element{
			Name:   e.Name,
			Label:  e.Label,
			Format: e.Format,
			Size:   e.Size,
			Value:  strings.TrimSpace(e.Value),
		})
	}
	return m
}

// Reader decodes a stream of bus elements. An INDIDriver wrapper, as found
// in config files, is transparent.
type Reader struct {
	dec *xml.Decoder
}

func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	return &Reader{dec: dec}
}

// Next returns the next top-level element, or io.EOF at the end of input.
func (r *Reader) Next() (*Message, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to decode bus message: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local == "INDIDriver" {
			continue
		}

		var v wireVector
		if err := r.dec.DecodeElement(&v, &se); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", se.Name.Local, err)
		}
		return toMessage(&v), nil
	}
}
