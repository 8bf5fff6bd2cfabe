package dechatter

import (
	"fmt"
	"io"
	"strings"
)

type DisplayOpts struct {
	Path         bool
	PhysicalPath bool
	Name         bool
	ID           bool
	Keys         bool
	All          bool
	Color        bool
}

func (o DisplayOpts) resolve() DisplayOpts {
	if o.All {
		o.Path, o.PhysicalPath, o.Name, o.ID, o.Keys = true, true, true, true, true
	}
	return o
}

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

type painter bool

func (p painter) paint(s string, codes ...string) string {
	if !p {
		return s
	}
	return strings.Join(codes, "") + s + ansiReset
}

// see BUS_* in linux/input.h
var busNames = map[uint16]string{
	0x01: "PCI",
	0x02: "ISAPNP",
	0x03: "USB",
	0x04: "HIL",
	0x05: "BLUETOOTH",
	0x06: "VIRTUAL",
	0x10: "ISA",
	0x11: "I8042",
	0x12: "XTKBD",
	0x13: "RS232",
	0x14: "GAMEPORT",
	0x15: "PARPORT",
	0x16: "AMIGA",
	0x17: "ADB",
	0x18: "I2C",
	0x19: "HOST",
	0x1A: "GSC",
	0x1B: "ATARI",
	0x1C: "SPI",
	0x1D: "RMI",
	0x1E: "CEC",
	0x1F: "INTEL_ISHTP",
}

func busName(bus uint16) string {
	if name, ok := busNames[bus]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%#x)", bus)
}

// PrintDevice writes one line of "key=value" pairs for d. With Keys, the
// supported keys follow on a second, indented line.
func PrintDevice(w io.Writer, d DeviceInfo, opts DisplayOpts) error {
	opts = opts.resolve()
	p := painter(opts.Color)
	var pairs []string
	kv := func(key string, value any) {
		pairs = append(pairs, p.paint(key, ansiBlue)+"="+p.paint(fmt.Sprint(value), ansiMagenta))
	}
	orUnknown := func(s string) string {
		if s == "" {
			return "?"
		}
		return s
	}

	if opts.Path {
		kv("path", d.Path)
	}
	if opts.PhysicalPath {
		kv("physical_path", orUnknown(d.PhysicalPath))
	}
	if opts.Name {
		kv("name", orUnknown(d.Name))
	}
	if opts.ID {
		kv("bus", busName(d.ID.BusType))
		kv("bus_id", fmt.Sprintf("%#x", d.ID.BusType))
		kv("vendor", fmt.Sprintf("%#x", d.ID.Vendor))
		kv("product", fmt.Sprintf("%#x", d.ID.Product))
		kv("version", fmt.Sprintf("%#x", d.ID.Version))
	}
	line := strings.Join(pairs, " ")

	if opts.Keys {
		keys := d.SortedKeys()
		var s string
		if len(keys) == 0 {
			s = p.paint("None", ansiRed)
		} else {
			parts := make([]string, 0, len(keys))
			for _, key := range keys {
				parts = append(parts, p.paint(keyName(key), ansiBold, ansiBlue)+"="+p.paint(fmt.Sprint(key), ansiCyan))
			}
			s = strings.Join(parts, ", ")
		}
		line += fmt.Sprintf("\n\t%s: %s", p.paint("Keys", ansiMagenta), s)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
