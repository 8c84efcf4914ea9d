// Command tiger-shell is an interactive console for Tiger controllers.
//
// It opens the controller's serial port, optionally brings up the
// peripherals declared in a setup file, and then accepts commands: raw
// serial commands pass straight through to the controller, and property
// commands drive the initialized peripherals.
//
// Usage:
//
//	# Raw console on a bare port
//	tiger-shell -port /dev/ttyUSB0
//
//	# Full setup with peripherals and traffic logging
//	tiger-shell -config scope.yaml -log session.tlog
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/config"
	"github.com/asi-tiger/tiger-go/pkg/drivers"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/log"
	"github.com/asi-tiger/tiger-go/pkg/profile"
	"github.com/asi-tiger/tiger-go/pkg/serial"
)

func main() {
	var (
		configPath = flag.String("config", "", "setup file (YAML)")
		portPath   = flag.String("port", "", "serial device path (overrides config)")
		baudRate   = flag.Int("baud", 0, "baud rate (overrides config)")
		logPath    = flag.String("log", "", "write traffic log to this file")
		verbose    = flag.Bool("verbose", false, "echo serial traffic to stderr")
	)
	flag.Parse()

	if err := run(*configPath, *portPath, *baudRate, *logPath, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "tiger-shell:", err)
		os.Exit(1)
	}
}

func run(configPath, portPath string, baudRate int, logPath string, verbose bool) error {
	var cfg *config.Config
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	serialCfg := serial.Config{}
	if cfg != nil {
		serialCfg.Address = cfg.Port.Device
		serialCfg.BaudRate = cfg.Port.BaudRate
		serialCfg.Timeout = cfg.Port.Timeout()
		if logPath == "" {
			logPath = cfg.LogFile
		}
	}
	if portPath != "" {
		serialCfg.Address = portPath
	}
	if baudRate != 0 {
		serialCfg.BaudRate = baudRate
	}
	if serialCfg.Address == "" {
		return fmt.Errorf("no serial port: pass -port or -config")
	}

	var loggers []log.Logger
	if logPath != "" {
		fl, err := log.NewFileLogger(logPath)
		if err != nil {
			return err
		}
		defer fl.Close()
		loggers = append(loggers, fl)
	}
	if verbose {
		sl := slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
		loggers = append(loggers, log.NewSlogAdapter(sl))
	}
	switch len(loggers) {
	case 0:
	case 1:
		serialCfg.Logger = loggers[0]
	default:
		serialCfg.Logger = log.NewMultiLogger(loggers...)
	}

	port, err := serial.Open(serialCfg)
	if err != nil {
		return err
	}
	h := hub.New(port)
	defer h.Close()
	h.SetLogger(serialCfg.Logger)

	var devices []profile.Peripheral
	if cfg != nil {
		for _, pc := range cfg.Peripherals {
			d, err := newPeripheral(h, pc.Name)
			if err != nil {
				return fmt.Errorf("initialize %s: %w", pc.Name, err)
			}
			for name, value := range pc.Properties {
				if err := d.Props().Set(name, value); err != nil {
					return fmt.Errorf("%s: %w", pc.Name, err)
				}
			}
			fmt.Printf("initialized %s\n", pc.Name)
			devices = append(devices, d)
		}
	}

	console, err := newConsole(h, devices)
	if err != nil {
		return err
	}
	return console.run()
}

// newPeripheral constructs the driver matching the type field of an
// extended device name.
func newPeripheral(h *hub.Hub, name string) (profile.Peripheral, error) {
	typ, err := address.Type(name)
	if err != nil {
		return nil, err
	}
	switch typ {
	case "XYStage":
		return drivers.NewXYStage(h, name)
	case "ZStage":
		return drivers.NewZStage(h, name)
	case "Piezo":
		return drivers.NewPiezo(h, name)
	case "Lens":
		return drivers.NewLens(h, name)
	case "PMT":
		return drivers.NewPMT(h, name)
	case "PLogic":
		return drivers.NewPLogic(h, name)
	default:
		return nil, fmt.Errorf("unknown peripheral type %q", typ)
	}
}
