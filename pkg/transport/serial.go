package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the NYX-101 factory setting.
const DefaultBaudRate = 115200

// BaudRates lists the rates exposed to clients, in bus order.
var BaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

// OpenSerial opens a serial device as 8N1 at the given rate.
func OpenSerial(portName string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	return port, nil
}
