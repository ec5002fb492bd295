package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"nyx/pkg/drivers/nyx"
	"nyx/pkg/drivers/nyx_simulator"
	"nyx/pkg/indi"
	"nyx/pkg/mirror"
	"nyx/pkg/transport"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/term"
)

// getPassword returns the bridge password from the environment, or asks for
// it on the controlling terminal. stdin carries the bus and cannot be used.
func getPassword() (string, error) {
	if pw := os.Getenv("NYX_WS_PASSWORD"); pw != "" {
		return pw, nil
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no terminal to ask for the password, set NYX_WS_PASSWORD: %v", err)
	}
	defer tty.Close()

	if !term.IsTerminal(int(tty.Fd())) {
		return "", fmt.Errorf("no terminal to ask for the password, set NYX_WS_PASSWORD")
	}

	fmt.Fprint(tty, "Password: ")
	passwordBytes, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return string(passwordBytes), nil
}

// newOpener picks the link for a port: the simulator, a WebSocket bridge for
// ws:// and wss:// URLs, or a serial device.
func newOpener(c *cli.Context, db *bolt.DB, password string) nyx.Opener {
	return func(port string, baudRate int) (transport.Port, error) {
		switch {
		case c.Bool("simulate"):
			return nyx_simulator.NewMount(db, log.WithField("device", "simulator"))
		case strings.HasPrefix(port, "ws://"), strings.HasPrefix(port, "wss://"):
			return transport.OpenWebSocket(port, c.String("ws-username"), password, c.Bool("ws-insecure"))
		}
		return transport.OpenSerial(port, baudRate)
	}
}

// applyFlags writes the settings given on the command line to the store.
func applyFlags(c *cli.Context, db *bolt.DB) (nyx.Config, error) {
	st, err := nyx.NewStore(db)
	if err != nil {
		return nyx.Config{}, fmt.Errorf("failed to create store: %v", err)
	}
	cfg, err := st.GetConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to get mount config: %v", err)
	}

	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}
	if c.IsSet("ws-url") {
		cfg.Port = c.String("ws-url")
	}
	if c.IsSet("baud") {
		cfg.BaudRate = c.Int("baud")
	}
	if c.IsSet("poll") {
		cfg.PollInterval = int(c.Duration("poll").Milliseconds())
	}
	if c.IsSet("timeout") {
		cfg.Timeout = int(c.Duration("timeout").Milliseconds())
	}
	if c.IsSet("mqtt-host") {
		cfg.MQTTConfig.Host = c.String("mqtt-host")
	}
	if c.IsSet("mqtt-username") {
		cfg.MQTTConfig.Username = c.String("mqtt-username")
	}
	if c.IsSet("mqtt-password") {
		cfg.MQTTConfig.Password = c.String("mqtt-password")
	}
	if c.IsSet("mqtt-topic") {
		cfg.MQTTConfig.TopicRoot = c.String("mqtt-topic")
	}

	if err := st.SetConfig(cfg); err != nil {
		return cfg, fmt.Errorf("failed to save mount config: %v", err)
	}
	return cfg, nil
}

// readBus decodes client messages from r until it fails or ctx is done.
func readBus(ctx context.Context, r io.Reader, inbound chan<- *indi.Message) error {
	defer close(inbound)

	reader := indi.NewReader(r)
	for {
		m, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		select {
		case inbound <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func run(c *cli.Context) error {
	// stdout carries the bus.
	log.SetOutput(os.Stderr)
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	deviceName := c.String("device")
	log.Infof("%s INDI driver", deviceName)

	db, err := bolt.Open(c.String("db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg, err := applyFlags(c, db)
	if err != nil {
		return err
	}

	password := ""
	if c.String("ws-username") != "" && strings.HasPrefix(cfg.Port, "ws") {
		if password, err = getPassword(); err != nil {
			return err
		}
	}

	bus := indi.NewDevice(deviceName, indi.NewWriter(os.Stdout), log.WithField("device", deviceName))

	hookLevel := log.InfoLevel
	if c.Bool("debug") {
		hookLevel = log.DebugLevel
	}
	log.AddHook(indi.NewMessageHook(bus, hookLevel))

	opts := nyx.Options{
		ConfigFile:  c.String("config"),
		Diagnostics: c.Bool("diagnostics"),
	}

	if cfg.MQTTConfig.Host != "" {
		m, err := mirror.NewMQTT(cfg.MQTTConfig, log.WithField("device", deviceName))
		if err != nil {
			log.Warnf("Status mirror disabled: %v", err)
		} else {
			defer m.Close()
			opts.Observers = append(opts.Observers, m)
		}
	}

	driver, err := nyx.NewDriver(bus, db, newOpener(c, db, password), opts, log.WithField("device", deviceName))
	if err != nil {
		return fmt.Errorf("failed to create mount driver: %v", err)
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inbound := make(chan *indi.Message, 16)

	// Not waited for: the read on stdin only returns when the server closes
	// it.
	go func() {
		if err := readBus(ctx, os.Stdin, inbound); err != nil {
			log.Errorf("Bus reader stopped: %v", err)
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := driver.Run(ctx, inbound); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Driver stopped: %v", err)
		}
		stop()
		log.Debug("Driver loop stopped")
	}()

	<-ctx.Done()

	log.Info("Shutting down driver...")
	wg.Wait()
	log.Info("Driver stopped")
	return nil
}

func main() {
	app := cli.App{
		Name:  "nyx101-indi",
		Usage: "INDI driver for the Pegasus Astro NYX-101 mount",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
			&cli.StringFlag{
				Name:    "device",
				Usage:   "Device name on the bus",
				Value:   nyx.DeviceName,
				EnvVars: []string{"INDIDEV"},
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Serial port of the mount",
				EnvVars: []string{"NYX_PORT"},
			},
			&cli.IntFlag{
				Name:    "baud",
				Aliases: []string{"b"},
				Usage:   "Serial baud rate",
				Value:   transport.DefaultBaudRate,
				EnvVars: []string{"NYX_BAUD"},
			},
			&cli.StringFlag{
				Name:    "ws-url",
				Usage:   "WebSocket serial bridge URL, used instead of the serial port",
				EnvVars: []string{"NYX_WS_URL"},
			},
			&cli.StringFlag{
				Name:    "ws-username",
				Usage:   "WebSocket bridge username, the password is read from NYX_WS_PASSWORD or the terminal",
				EnvVars: []string{"NYX_WS_USERNAME"},
			},
			&cli.BoolFlag{
				Name:    "ws-insecure",
				Usage:   "Skip TLS certificate verification for the bridge",
				EnvVars: []string{"NYX_WS_INSECURE"},
			},
			&cli.BoolFlag{
				Name:    "simulate",
				Usage:   "Drive a simulated mount",
				EnvVars: []string{"NYX_SIMULATE"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Settings database",
				Value:   "nyx.db",
				EnvVars: []string{"NYX_DB"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "INDI config file (default $INDICONFIG or ~/.indi/<device>_config.xml)",
				EnvVars: []string{"NYX_CONFIG"},
			},
			&cli.DurationFlag{
				Name:    "poll",
				Usage:   "Poll interval",
				Value:   time.Second,
				EnvVars: []string{"NYX_POLL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Serial read timeout",
				Value:   transport.DefaultTimeout,
				EnvVars: []string{"NYX_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "diagnostics",
				Usage:   "Expose the raw status and the debug command properties",
				EnvVars: []string{"NYX_DIAGNOSTICS"},
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				Usage:   "MQTT broker for the status mirror, e.g. tcp://localhost:1883",
				EnvVars: []string{"NYX_MQTT_HOST"},
			},
			&cli.StringFlag{
				Name:    "mqtt-username",
				Usage:   "MQTT username",
				EnvVars: []string{"NYX_MQTT_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "mqtt-password",
				Usage:   "MQTT password",
				EnvVars: []string{"NYX_MQTT_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "mqtt-topic",
				Usage:   "MQTT topic root",
				EnvVars: []string{"NYX_MQTT_TOPIC"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
