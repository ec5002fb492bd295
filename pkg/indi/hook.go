package indi

import (
	log "github.com/sirupsen/logrus"
)

// MessageHook forwards log entries tagged with the device name to clients as
// device messages.
type MessageHook struct {
	device *Device
	levels []log.Level
}

// NewMessageHook forwards entries at level and above.
func NewMessageHook(device *Device, level log.Level) *MessageHook {
	var levels []log.Level
	for _, l := range log.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &MessageHook{device: device, levels: levels}
}

func (h *MessageHook) Levels() []log.Level {
	return h.levels
}

func (h *MessageHook) Fire(entry *log.Entry) error {
	if dev, ok := entry.Data["device"].(string); !ok || dev != h.device.Name() {
		return nil
	}
	// The bus reports its own write failures through the logger.
	if entry.Data["component"] == "indi" {
		return nil
	}

	prefix := "[INFO] "
	switch entry.Level {
	case log.WarnLevel:
		prefix = "[WARNING] "
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		prefix = "[ERROR] "
	case log.DebugLevel, log.TraceLevel:
		prefix = "[DEBUG] "
	}
	h.device.Message(prefix + entry.Message)
	return nil
}
