package dechatter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/holoplot/go-evdev"
)

// The CSV format has one event per line: "sec;usec;type;code;value",
// for example "1711354959;655837;EV_KEY;KEY_A;down". Lines starting
// with "#" are comments.

func csvlineToEvent(line string) (Event, error) {
	var ev Event
	parts := strings.Split(line, ";")
	if len(parts) != 5 {
		return ev, fmt.Errorf("failed to parse csv line: %s", line)
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ev, fmt.Errorf("failed to parse col 1 (sec) from line: %s. %w", line, err)
	}

	usec, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ev, fmt.Errorf("failed to parse col 2 (usec) from line: %s. %w", line, err)
	}

	// EV_KEY, EV_SYN, EV_MSC, ...
	evType, ok := evdev.EVFromString[parts[2]]
	if !ok {
		return ev, fmt.Errorf("failed to parse col 3 (EvType) from line: %s. %q", line, parts[2])
	}

	var code evdev.EvCode
	switch parts[3] {
	case "SYN_REPORT":
		code = evdev.SYN_REPORT
	case "MSC_SCAN":
		code = evdev.MSC_SCAN
	default:
		code, ok = evdev.KEYFromString[parts[3]]
		if !ok {
			n, err := strconv.ParseUint(parts[3], 10, 16)
			if err != nil {
				return ev, fmt.Errorf("failed to parse col 4 (Key) from line: %s. %q", line, parts[3])
			}
			code = evdev.EvCode(n)
		}
	}
	var value int64
	switch parts[4] {
	case "up":
		value = UP
	case "down":
		value = DOWN
	case "repeat":
		value = REPEAT
	default:
		value, err = strconv.ParseInt(parts[4], 10, 32)
		if err != nil {
			return ev, fmt.Errorf("failed to parse col 5 (value) from line: %s. %w", line, err)
		}
	}
	return Event{
		Time:  timeval(sec, usec),
		Type:  evType,
		Code:  code,
		Value: int32(value),
	}, nil
}

func timeval(sec, usec int64) syscall.Timeval {
	return syscall.NsecToTimeval(sec*1e9 + usec*1e3)
}

func eventToCsvLine(ev Event) string {
	value := ""
	if ev.Type == evdev.EV_KEY {
		switch ev.Value {
		case DOWN:
			value = "down"
		case UP:
			value = "up"
		case REPEAT:
			value = "repeat"
		}
	}
	if value == "" {
		value = fmt.Sprint(ev.Value)
	}
	sec, nsec := ev.Time.Unix()
	return fmt.Sprintf("%d;%d;%s;%s;%s\n", sec, nsec/1000,
		ev.TypeName(), ev.CodeName(),
		value)
}

// ReadCsv reads all events from r.
func ReadCsv(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	var s []Event
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := csvlineToEvent(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		s = append(s, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading csv: %w", err)
	}
	return s, nil
}

func eventToSkip(ev *Event) bool {
	if ev.Type == evdev.EV_SYN {
		return true
	}
	if ev.Type == evdev.EV_MSC && ev.Code == evdev.MSC_SCAN {
		return true
	}
	return false
}

// CsvWriter writes every event it gets as one csv line.
type CsvWriter struct {
	w        io.Writer
	skipNoop bool
}

func NewCsvWriter(w io.Writer, skipNoop bool) *CsvWriter {
	return &CsvWriter{w: w, skipNoop: skipNoop}
}

func (c *CsvWriter) WriteOne(ev *Event) error {
	if c.skipNoop && eventToSkip(ev) {
		return nil
	}
	_, err := io.WriteString(c.w, eventToCsvLine(*ev))
	return err
}

var _ EventWriter = (*CsvWriter)(nil)

// SliceSource replays events from memory. ReadOne returns io.EOF after
// the last event.
type SliceSource struct {
	events  []Event
	grabbed bool
}

func NewSliceSource(events []Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) ReadOne() (*Event, error) {
	if len(s.events) == 0 {
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return &ev, nil
}

func (s *SliceSource) Grab() error {
	s.grabbed = true
	return nil
}

func (s *SliceSource) Ungrab() error {
	s.grabbed = false
	return nil
}

var _ Source = (*SliceSource)(nil)
