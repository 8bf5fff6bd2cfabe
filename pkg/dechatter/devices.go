package dechatter

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
)

var (
	NoDeviceFoundErr   = errors.New("no device found for given filters")
	IndexOutOfRangeErr = errors.New("device index out of range")
)

const unnamedDevice = "Unnamed device"

// DeviceInfo describes one evdev device, as needed for filtering, ordering
// and cloning its keys.
type DeviceInfo struct {
	Path         string
	PhysicalPath string
	Name         string
	ID           evdev.InputID
	Keys         mapset.Set[KeyCode]
}

func deviceInfoFromDevice(path string, dev *evdev.InputDevice) DeviceInfo {
	info := DeviceInfo{
		Path: path,
		Name: unnamedDevice,
		Keys: mapset.NewThreadUnsafeSet(dev.CapableEvents(evdev.EV_KEY)...),
	}
	if name, err := dev.Name(); err == nil && name != "" {
		info.Name = name
	}
	if phys, err := dev.PhysicalLocation(); err == nil {
		info.PhysicalPath = phys
	}
	if id, err := dev.InputID(); err == nil {
		info.ID = id
	}
	return info
}

// SortedKeys returns the supported key codes in ascending order.
func (d *DeviceInfo) SortedKeys() []KeyCode {
	if d.Keys == nil {
		return nil
	}
	keys := d.Keys.ToSlice()
	slices.Sort(keys)
	return keys
}

// MaxKeyCode returns the highest supported key code, 0 if there is none.
func (d *DeviceInfo) MaxKeyCode() KeyCode {
	keys := d.SortedKeys()
	if len(keys) == 0 {
		return 0
	}
	return keys[len(keys)-1]
}

// CompareDevices orders by bus type, vendor, product, version, name and path.
func CompareDevices(a, b DeviceInfo) int {
	return cmp.Or(
		cmp.Compare(a.ID.BusType, b.ID.BusType),
		cmp.Compare(a.ID.Vendor, b.ID.Vendor),
		cmp.Compare(a.ID.Product, b.ID.Product),
		cmp.Compare(a.ID.Version, b.ID.Version),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Path, b.Path),
	)
}

// ListDevices returns all readable input devices, ordered by CompareDevices.
func ListDevices(log logrus.FieldLogger) ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.OpenWithFlags(p.Path, os.O_RDONLY)
		if err != nil {
			log.Debugf("Failed to open %q: %s", p.Path, err.Error())
			continue
		}
		devices = append(devices, deviceInfoFromDevice(p.Path, dev))
		dev.Close()
	}
	if len(paths) > 0 && len(devices) == 0 {
		return nil, fmt.Errorf("no single device could be opened. It is likely that you have no permission to access /dev/input/... (`sudo` might help)")
	}
	slices.SortFunc(devices, CompareDevices)
	return devices, nil
}

type FilterKind int

const (
	Equals FilterKind = iota
	StartsWith
	EndsWith
	Contains
)

// Filter matches a device attribute. The textual form is "s:prefix",
// "e:suffix", "c:substring" or just "value" for an exact match.
type Filter struct {
	Kind  FilterKind
	Value string
}

func ParseFilter(raw string) Filter {
	prefix, value, found := strings.Cut(raw, ":")
	if found {
		switch prefix {
		case "s":
			return Filter{StartsWith, value}
		case "e":
			return Filter{EndsWith, value}
		case "c":
			return Filter{Contains, value}
		}
	}
	return Filter{Equals, raw}
}

func (f Filter) Matches(s string) bool {
	switch f.Kind {
	case StartsWith:
		return strings.HasPrefix(s, f.Value)
	case EndsWith:
		return strings.HasSuffix(s, f.Value)
	case Contains:
		return strings.Contains(s, f.Value)
	default:
		return s == f.Value
	}
}

func (f Filter) String() string {
	switch f.Kind {
	case StartsWith:
		return "s:" + f.Value
	case EndsWith:
		return "e:" + f.Value
	case Contains:
		return "c:" + f.Value
	default:
		return f.Value
	}
}

// Filters is a repeatable command-line value.
type Filters []Filter

func (f *Filters) Set(raw string) error {
	*f = append(*f, ParseFilter(raw))
	return nil
}

func (f *Filters) String() string {
	s := make([]string, 0, len(*f))
	for _, filter := range *f {
		s = append(s, filter.String())
	}
	return "[" + strings.Join(s, ",") + "]"
}

func (f *Filters) Type() string {
	return "filter"
}

func (f Filters) matchAll(s string) bool {
	for _, filter := range f {
		if !filter.Matches(s) {
			return false
		}
	}
	return true
}

// DeviceFilters selects devices. A device must match all filters of
// every category.
type DeviceFilters struct {
	Name         Filters
	Path         Filters
	PhysicalPath Filters
}

func (df DeviceFilters) Matches(d DeviceInfo) bool {
	return df.Path.matchAll(d.Path) &&
		df.Name.matchAll(d.Name) &&
		df.PhysicalPath.matchAll(d.PhysicalPath)
}

// FilterDevices keeps the order of devices.
func FilterDevices(devices []DeviceInfo, df DeviceFilters) []DeviceInfo {
	var ret []DeviceInfo
	for _, d := range devices {
		if df.Matches(d) {
			ret = append(ret, d)
		}
	}
	return ret
}

// SelectDevice filters the ordered devices and returns the one at index.
func SelectDevice(devices []DeviceInfo, df DeviceFilters, index int, log logrus.FieldLogger) (DeviceInfo, error) {
	candidates := FilterDevices(devices, df)
	for i, d := range candidates {
		log.Infof("A device with index=%d after applying filters: %s [%s]", i, d.Name, d.Path)
	}
	if len(candidates) == 0 {
		return DeviceInfo{}, NoDeviceFoundErr
	}
	if index < 0 || index >= len(candidates) {
		return DeviceInfo{}, fmt.Errorf("index %d, but only %d devices match: %w", index, len(candidates), IndexOutOfRangeErr)
	}
	return candidates[index], nil
}
