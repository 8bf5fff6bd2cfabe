package dechatter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	InvalidKeyRangeErr = errors.New("invalid key range, expected <start>:<end>:<timeout_ms>")
	EmptyKeyRangeErr   = errors.New("key range is empty, start must not be greater than end")
	ZeroTimeoutErr     = errors.New("timeout must be greater than zero")
)

// KeyRangeTimeout debounces the key codes Start..End (inclusive) with Timeout.
type KeyRangeTimeout struct {
	Start   uint16
	End     uint16
	Timeout time.Duration
}

func (k KeyRangeTimeout) String() string {
	return fmt.Sprintf("%d:%d:%d", k.Start, k.End, k.Timeout.Milliseconds())
}

// ParseKeyRangeTimeout parses "start:end:timeout_ms", for example "1:83:30".
func ParseKeyRangeTimeout(raw string) (KeyRangeTimeout, error) {
	var k KeyRangeTimeout
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return k, fmt.Errorf("%q has %d fields: %w", raw, len(parts), InvalidKeyRangeErr)
	}
	values := make([]uint16, 0, 3)
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return k, fmt.Errorf("%q field %d: %w: %w", raw, i+1, InvalidKeyRangeErr, err)
		}
		values = append(values, uint16(v))
	}
	k = KeyRangeTimeout{
		Start:   values[0],
		End:     values[1],
		Timeout: time.Duration(values[2]) * time.Millisecond,
	}
	if err := k.Validate(); err != nil {
		return KeyRangeTimeout{}, fmt.Errorf("%q: %w", raw, err)
	}
	return k, nil
}

func (k KeyRangeTimeout) Validate() error {
	if k.Start > k.End {
		return EmptyKeyRangeErr
	}
	if k.Timeout <= 0 {
		return ZeroTimeoutErr
	}
	return nil
}

// KeyRangeTimeouts is a repeatable command-line value.
type KeyRangeTimeouts []KeyRangeTimeout

func (k *KeyRangeTimeouts) Set(raw string) error {
	krt, err := ParseKeyRangeTimeout(raw)
	if err != nil {
		return err
	}
	*k = append(*k, krt)
	return nil
}

func (k *KeyRangeTimeouts) String() string {
	s := make([]string, 0, len(*k))
	for _, krt := range *k {
		s = append(s, krt.String())
	}
	return "[" + strings.Join(s, ",") + "]"
}

func (k *KeyRangeTimeouts) Type() string {
	return "start:end:ms"
}

// TimeoutTable holds the debounce window of each key code.
// Zero means the key code is never filtered.
type TimeoutTable []time.Duration

// Timeout returns the debounce window for code. ok is false if the key code
// is not debounced.
func (t TimeoutTable) Timeout(code KeyCode) (d time.Duration, ok bool) {
	if int(code) >= len(t) {
		return 0, false
	}
	d = t[code]
	return d, d > 0
}

// NewTimeoutTable builds the table for a device whose highest key code is
// maxKeyCode. The table covers min(maxKeyCode, highest requested code) + 1
// codes. Codes beyond that are skipped with a warning. If two ranges
// overlap, the range given first wins.
func NewTimeoutTable(timeouts []KeyRangeTimeout, maxKeyCode KeyCode, log logrus.FieldLogger) TimeoutTable {
	maxRequested := 0
	for _, krt := range timeouts {
		maxRequested = max(maxRequested, int(krt.End))
	}
	size := min(int(maxKeyCode), maxRequested) + 1
	table := make(TimeoutTable, size)

	for _, krt := range timeouts {
		for code := int(krt.Start); code <= int(krt.End); code++ {
			if code >= size {
				log.Warnf("Key code %d from range %s is out of the keyboard's range: keyboard has %d key codes",
					code, krt, maxKeyCode)
				break
			}
			if table[code] > 0 {
				log.Warnf("Key code %d is already throttled with timeout %s, ignoring the new timeout %s",
					code, table[code], krt.Timeout)
				continue
			}
			table[code] = krt.Timeout
		}
	}
	return table
}
