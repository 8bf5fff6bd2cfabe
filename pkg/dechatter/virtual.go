package dechatter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/holoplot/go-evdev"
)

const (
	inputDir          = "/dev/input"
	virtualNamePrefix = "De-chattered Keyboard: "
	maxDeviceName     = 79 // UINPUT_MAX_NAME_SIZE without the trailing NUL
)

var virtualID = evdev.InputID{
	BusType: 0x06, // BUS_VIRTUAL
	Vendor:  0x4711,
	Product: 0x0816,
	Version: 1,
}

func virtualName(orig string) string {
	name := virtualNamePrefix + orig
	if len(name) <= maxDeviceName {
		return name
	}
	// cut at a rune boundary
	end := maxDeviceName
	for end > 0 && !utf8.RuneStart(name[end]) {
		end--
	}
	return name[:end]
}

// CreateVirtualKeyboard creates a uinput device which supports exactly the
// keys of the original device.
func CreateVirtualKeyboard(orig DeviceInfo) (dev *evdev.InputDevice, name string, err error) {
	name = virtualName(orig.Name)
	dev, err = evdev.CreateDevice(name, virtualID, map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: orig.SortedKeys(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create the fake keyboard %q: %w", name, err)
	}
	return dev, name, nil
}

type deviceLister func() ([]evdev.InputPath, error)

var NodeWatchClosedErr = errors.New("watcher was closed")

// WaitForNodes blocks until a device called name shows up in dir, and
// returns its device nodes. list gets called initially and after every
// change in dir.
func WaitForNodes(ctx context.Context, dir, name string, timeout time.Duration, list deviceLister) ([]string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		paths, err := list()
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		if nodes := nodesNamed(paths, name); len(nodes) > 0 {
			return nodes, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no device node for %q in %s: %w", name, dir, ctx.Err())
		case _, ok := <-watcher.Events:
			if !ok {
				return nil, NodeWatchClosedErr
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, NodeWatchClosedErr
			}
			return nil, fmt.Errorf("watching %q failed: %w", dir, err)
		}
	}
}

func nodesNamed(paths []evdev.InputPath, name string) []string {
	var nodes []string
	for _, p := range paths {
		if p.Name == name {
			nodes = append(nodes, p.Path)
		}
	}
	slices.Sort(nodes)
	return nodes
}
