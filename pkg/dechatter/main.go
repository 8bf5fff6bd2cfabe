package dechatter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
)

// DefaultNodeTimeout is how long DechatterMain waits for the device nodes
// of the fake keyboard.
const DefaultNodeTimeout = 5 * time.Second

func ListMain(w io.Writer, opts DisplayOpts, log logrus.FieldLogger) error {
	devices, err := ListDevices(log)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if err := PrintDevice(w, d, opts); err != nil {
			return err
		}
	}
	return nil
}

func DechatterMain(ctx context.Context, config DechatterCmdConfig, log logrus.FieldLogger) error {
	if config.ConfigFile != "" {
		fc, err := LoadConfigFile(config.ConfigFile)
		if err != nil {
			return err
		}
		if err := config.ApplyFile(fc); err != nil {
			return fmt.Errorf("%q: %w", config.ConfigFile, err)
		}
	}
	if len(config.Timeouts) == 0 {
		log.Warn("No timeouts given. All events get forwarded unchanged")
	}
	if config.NodeTimeout <= 0 {
		config.NodeTimeout = DefaultNodeTimeout
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, orig, closeOrig, err := openSelectedDevice(config.SelectCmdConfig, log)
	if err != nil {
		return err
	}
	defer closeOrig()
	log.Infof("Picked the original keyboard: %s; path: %q", info.Name, info.Path)

	fake, name, err := CreateVirtualKeyboard(info)
	if err != nil {
		return err
	}
	defer fake.Close()

	nodes, err := WaitForNodes(ctx, inputDir, name, config.NodeTimeout, evdev.ListDevicePaths)
	if err != nil {
		log.Warnf("Created a fake keyboard, but its device nodes were not found: %s", err.Error())
	} else {
		log.Infof("Created a fake keyboard; it is available as %v", nodes)
	}

	table := NewTimeoutTable(config.Timeouts, info.MaxKeyCode(), log)
	pump := NewPump(orig, fake, NewEngine(table, log), config.SkipFirst, info.PhysicalPath, log)
	return runUntilDone(ctx, pump.Run, closeOrig, log)
}

// RecordMain prints the events of the selected device in csv format,
// until the process gets terminated.
func RecordMain(ctx context.Context, w io.Writer, config SelectCmdConfig, log logrus.FieldLogger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, orig, closeOrig, err := openSelectedDevice(config, log)
	if err != nil {
		return err
	}
	defer closeOrig()

	fmt.Fprintf(w, "#Reading %s %s %s\n", info.Name, info.Path, time.Now().String())
	out := NewCsvWriter(w, true)
	return runUntilDone(ctx, func() error {
		for {
			ev, err := orig.ReadOne()
			if err != nil {
				return err
			}
			if err := out.WriteOne(ev); err != nil {
				return err
			}
		}
	}, closeOrig, log)
}

type SimulateCmdConfig struct {
	CsvFile  string
	Timeouts KeyRangeTimeouts
}

// SimulateMain runs the events of a csv file through the filter and writes
// the forwarded events as csv to w.
func SimulateMain(w io.Writer, config SimulateCmdConfig, log logrus.FieldLogger) error {
	file, err := os.Open(config.CsvFile)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", config.CsvFile, err)
	}
	defer file.Close()
	events, err := ReadCsv(file)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", config.CsvFile, err)
	}
	dropped, err := simulate(events, config.Timeouts, w, log)
	if err != nil {
		return err
	}
	if dropped == "" {
		dropped = "nothing"
	}
	fmt.Fprintf(w, "#Throttled: %s\n", dropped)
	return nil
}

func simulate(events []Event, timeouts KeyRangeTimeouts, w io.Writer, log logrus.FieldLogger) (string, error) {
	var maxCode KeyCode
	for i := range events {
		if events[i].Type == evdev.EV_KEY {
			maxCode = max(maxCode, events[i].Code)
		}
	}
	engine := NewEngine(NewTimeoutTable(timeouts, maxCode, log), log)
	pump := NewPump(NewSliceSource(events), NewCsvWriter(w, true), engine, false, "simulation", log)
	err := pump.Run()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return engine.Stats().String(), nil
}

// openSelectedDevice opens the selected device for reading. The returned
// close function may be called more than once.
func openSelectedDevice(config SelectCmdConfig, log logrus.FieldLogger) (DeviceInfo, *evdev.InputDevice, func(), error) {
	devices, err := ListDevices(log)
	if err != nil {
		return DeviceInfo{}, nil, nil, err
	}
	info, err := SelectDevice(devices, config.Filters, config.Index, log)
	if err != nil {
		return DeviceInfo{}, nil, nil, err
	}
	dev, err := evdev.Open(info.Path)
	if err != nil {
		return DeviceInfo{}, nil, nil, fmt.Errorf("failed to open the source device %q: %w", info.Path, err)
	}
	var once sync.Once
	closeDev := func() {
		once.Do(func() {
			if err := dev.Close(); err != nil {
				log.Debugf("Closing %q failed: %s", info.Path, err.Error())
			}
		})
	}
	return info, dev, closeDev, nil
}

// runUntilDone calls run. If ctx gets cancelled, interrupt gets called, which
// must make run return. An error caused by the interruption is not reported.
func runUntilDone(ctx context.Context, run func() error, interrupt func(), log logrus.FieldLogger) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			interrupt()
		case <-done:
		}
	}()
	err := run()
	if ctx.Err() != nil {
		log.Infof("Shutting down: %s", context.Cause(ctx))
		return nil
	}
	return err
}
