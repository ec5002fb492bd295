package nyx_simulator

import (
	"errors"
	"fmt"
	"math"
	"nyx/pkg/indi"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var ErrClosed = errors.New("simulator port closed")

const (
	motorStationary = "ST,OK,OK,OK,OK,OK,OK,OK"
	motorMoving     = "SL,OK,OK,OK,OK,OK,OK,OK"
)

// Mount simulates a NYX-101 on the far end of a serial line. It implements
// transport.Port.
type Mount struct {
	mu     sync.Mutex
	logger log.FieldLogger
	store  *store
	config MountConfig

	in      []byte
	out     []byte
	timeout time.Duration
	closed  bool

	tracking   bool
	slewing    int // status polls left before the slew completes
	parking    bool
	parked     bool
	atHome     bool
	refraction bool
	altAz      bool
	pierWest   bool
	trackMode  byte
	guideRate  int
	overhead   int
	horizon    int
	ra, dec    float64
	az, alt    float64
	targetRA   float64
	targetDEC  float64
	raMotor    string
	decMotor   string
	hardLimit  bool
	rawStatus  *string

	commands []string
	writeErr error
	withheld map[string]bool
}

// NewMount creates a simulated mount. db may be nil, in which case the
// settings are not persisted.
func NewMount(db *bolt.DB, logger log.FieldLogger) (*Mount, error) {
	m := &Mount{
		logger:   logger.WithField("component", "simulator"),
		config:   defaultMountConfig,
		timeout:  time.Second,
		withheld: make(map[string]bool),
	}

	if db != nil {
		st, err := NewStore(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %v", err)
		}
		cfg, err := st.GetMountConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get simulator config: %v", err)
		}
		m.store, m.config = st, cfg
	}

	m.powerOn()
	return m, nil
}

// powerOn puts the mount in its boot state: parked, not tracking.
func (m *Mount) powerOn() {
	m.tracking = false
	m.slewing = 0
	m.parking = false
	m.parked = true
	m.atHome = false
	m.refraction = false
	m.altAz = m.config.AltAz
	m.pierWest = false
	m.trackMode = 'Q'
	m.guideRate = 1
	m.overhead = 90
	m.horizon = 0
	m.az, m.alt = m.config.ParkAz, m.config.ParkAlt
	m.ra, m.dec = 0, 90
	m.raMotor, m.decMotor = motorStationary, motorStationary
}

func (m *Mount) saveConfig() {
	if m.store == nil {
		return
	}
	if err := m.store.SetMountConfig(m.config); err != nil {
		m.logger.Errorf("Failed to save simulator config: %v", err)
	}
}

func (m *Mount) Read(b []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if len(m.out) == 0 {
		timeout := m.timeout
		m.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	n := copy(b, m.out)
	m.out = m.out[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *Mount) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	m.in = append(m.in, b...)
	for {
		i := strings.IndexByte(string(m.in), '#')
		if i < 0 {
			break
		}
		cmd := string(m.in[:i+1])
		m.in = m.in[i+1:]

		m.commands = append(m.commands, cmd)
		res, ok := m.handle(cmd)
		if !ok || m.withheld[cmd] {
			continue
		}
		m.out = append(m.out, res...)
	}
	return len(b), nil
}

func (m *Mount) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mount) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = nil
	return nil
}

func (m *Mount) ResetOutputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in = nil
	return nil
}

func (m *Mount) Drain() error { return nil }

func (m *Mount) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = t
	return nil
}

// handle runs one command. ok is false for commands that have no reply.
func (m *Mount) handle(cmd string) (res string, ok bool) {
	switch cmd {
	case ":GU#":
		return m.status(), true
	case ":GR#":
		_, h, mm, s := indi.SplitSexagesimal(m.ra)
		return fmt.Sprintf("%02d:%02d:%02d#", h%24, mm, s), true
	case ":GD#":
		return formatDMS(m.dec, 2, true), true
	case ":GZ#":
		return formatDMS(m.az, 3, false), true
	case ":GA#":
		return formatDMS(m.alt, 2, true), true
	case ":Gm#":
		if m.pierWest {
			return "W#", true
		}
		return "E#", true
	case ":GX90#":
		return []string{"0.25", "0.50", "1.00"}[m.guideRate] + "#", true
	case ":Go#":
		return fmt.Sprintf("%02d#", m.overhead), true
	case ":Gh#":
		return fmt.Sprintf("%+03d#", m.horizon), true
	case ":GXE9#":
		return fmt.Sprintf("%d#", m.config.MeridianE), true
	case ":GXEA#":
		return fmt.Sprintf("%d#", m.config.MeridianW), true
	case ":GXU1#":
		return m.raMotor + "#", true
	case ":GXU2#":
		return m.decMotor + "#", true
	case ":GX9L#":
		if m.hardLimit {
			return "1#", true
		}
		return "0#", true

	case ":MS#":
		if m.parked {
			return "1Parked#", true
		}
		m.slewing = max(m.config.SlewPolls, 1)
		m.tracking = true
		m.atHome = false
		return "0", true
	case ":Q#":
		m.slewing = 0
		m.parking = false
		return "", false
	case ":Te#":
		m.tracking = true
		return "1", true
	case ":Td#":
		m.tracking = false
		return "1", true
	case ":TQ#", ":TS#", ":TL#", ":TK#":
		m.trackMode = cmd[2]
		return "", false
	case ":Tr#":
		m.refraction = true
		return "", false
	case ":Tn#":
		m.refraction = false
		return "", false

	case ":hP#":
		m.parking = true
		m.slewing = 0
		return "", false
	case ":hR#":
		m.parked = false
		m.parking = false
		return "", false
	case ":hC#":
		m.az, m.alt = m.config.HomeAz, m.config.HomeAlt
		m.atHome = true
		return "", false
	case ":hF#":
		m.config.HomeAz, m.config.HomeAlt = m.az, m.alt
		m.saveConfig()
		return "", false
	case ":hQ#":
		m.config.ParkAz, m.config.ParkAlt = m.az, m.alt
		m.saveConfig()
		return "", false
	case ":MN#":
		m.pierWest = !m.pierWest
		return "", false
	case ":ERESET#":
		m.powerOn()
		return "", false
	case ":Mp#", ":Mn#", ":Ms#", ":Mw#", ":Me#", ":Qn#", ":Qw#", ":Sc#":
		return "", false
	}

	return m.handleSet(cmd)
}

// handleSet runs the commands that carry a value.
func (m *Mount) handleSet(cmd string) (string, bool) {
	body := strings.TrimSuffix(cmd, "#")
	var n int

	switch {
	case strings.HasPrefix(body, ":SXE9,"):
		if _, err := fmt.Sscanf(body, ":SXE9,%d", &n); err == nil {
			m.config.MeridianE = n
			m.saveConfig()
		}
	case strings.HasPrefix(body, ":SXEA,"):
		if _, err := fmt.Sscanf(body, ":SXEA,%d", &n); err == nil {
			m.config.MeridianW = n
			m.saveConfig()
		}
	case strings.HasPrefix(body, ":SXEM,"):
		if _, err := fmt.Sscanf(body, ":SXEM,%d", &n); err == nil {
			m.config.AltAz = n == 3
			m.saveConfig()
		}
	case strings.HasPrefix(body, ":So"):
		if v, err := strconv.Atoi(body[3:]); err == nil {
			m.overhead = v
		}
	case strings.HasPrefix(body, ":Sh"):
		if v, err := strconv.Atoi(body[3:]); err == nil {
			m.horizon = v
		}
	case strings.HasPrefix(body, ":Sc"):
	case strings.HasPrefix(body, ":RA"), strings.HasPrefix(body, ":RE"):
	case strings.HasPrefix(body, ":R"):
		if v, err := strconv.Atoi(body[2:]); err == nil && v >= 0 && v <= 2 {
			m.guideRate = v
		}

	case strings.HasPrefix(body, ":Sr"):
		v, err := indi.ParseSexagesimal(body[3:])
		if err != nil {
			return "0", true
		}
		m.targetRA = v
		return "1", true
	case strings.HasPrefix(body, ":Sd"):
		v, err := indi.ParseSexagesimal(body[3:])
		if err != nil {
			return "0", true
		}
		m.targetDEC = v
		return "1", true
	case strings.HasPrefix(body, ":SG"), strings.HasPrefix(body, ":SL"), strings.HasPrefix(body, ":SC"),
		strings.HasPrefix(body, ":St"), strings.HasPrefix(body, ":Sg"):
		return "1", true

	default:
		m.logger.Warnf("Unknown command <%s>", cmd)
	}
	return "", false
}

// status builds the :GU# reply and advances slews and parking by one step.
func (m *Mount) status() string {
	if m.rawStatus != nil {
		return *m.rawStatus
	}

	if m.parking {
		m.parking = false
		m.parked = true
		m.tracking = false
		m.az, m.alt = m.config.ParkAz, m.config.ParkAlt
	}
	if m.slewing > 0 {
		m.slewing--
		if m.slewing == 0 {
			m.ra, m.dec = m.targetRA, m.targetDEC
			m.tracking = true
		}
	}

	var b strings.Builder
	if !m.tracking {
		b.WriteByte('n')
	}
	if m.slewing == 0 {
		b.WriteByte('N')
	}
	if m.parked {
		b.WriteByte('P')
	} else {
		b.WriteByte('p')
	}
	if m.atHome {
		b.WriteByte('H')
	}
	switch m.trackMode {
	case 'S':
		b.WriteByte('O')
	case 'L':
		b.WriteByte('(')
	case 'K':
		b.WriteByte('k')
	}
	if m.altAz {
		b.WriteByte('A')
	} else {
		b.WriteByte('E')
		if m.pierWest {
			b.WriteByte('W')
		} else {
			b.WriteByte('T')
		}
	}
	if m.refraction {
		b.WriteByte('r')
	}
	b.WriteByte('#')
	return b.String()
}

func formatDMS(v float64, width int, signed bool) string {
	neg, d, mm, s := indi.SplitSexagesimal(v)
	sign := ""
	if signed {
		sign = "+"
		if neg {
			sign = "-"
		}
	}
	return fmt.Sprintf("%s%0*d*%02d:%02d#", sign, width, d, mm, s)
}

// Commands returns every command received so far.
func (m *Mount) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func (m *Mount) ClearCommands() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = nil
}

// FailWrites makes every write fail with err until it is called with nil.
func (m *Mount) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Withhold stops the mount from answering cmd, or lets it answer again.
func (m *Mount) Withhold(cmd string, withhold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if withhold {
		m.withheld[cmd] = true
	} else {
		delete(m.withheld, cmd)
	}
}

// SetRawStatus replaces the :GU# reply with raw, which need not be
// terminated. An empty raw restores the simulated status.
func (m *Mount) SetRawStatus(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw == "" {
		m.rawStatus = nil
		return
	}
	m.rawStatus = &raw
}

func (m *Mount) SetMeridian(east, west int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.MeridianE, m.config.MeridianW = east, west
}

func (m *Mount) Meridian() (east, west int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.MeridianE, m.config.MeridianW
}

func (m *Mount) SetMotors(ra, dec string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raMotor, m.decMotor = ra, dec
}

func (m *Mount) SetHardLimit(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hardLimit = on
}

func (m *Mount) SetParked(parked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parked = parked
	m.parking = false
	if parked {
		m.tracking = false
	}
}

func (m *Mount) SetTracking(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking = on
}

// SetPosition places the mount at ra (hours) and dec (degrees).
func (m *Mount) SetPosition(ra, dec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ra, m.dec = math.Mod(ra, 24), dec
}

func (m *Mount) Position() (ra, dec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ra, m.dec
}

func (m *Mount) SetSlewPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.SlewPolls = n
}

func (m *Mount) Parked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parked
}
