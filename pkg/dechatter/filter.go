package dechatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
)

type Decision int

const (
	Forward Decision = iota
	Drop
)

func (d Decision) String() string {
	if d == Drop {
		return "drop"
	}
	return "forward"
}

// DropStats counts the dropped events per key code. Counters saturate.
type DropStats []uint64

func (s DropStats) inc(code KeyCode) {
	if int(code) >= len(s) || s[code] == math.MaxUint64 {
		return
	}
	s[code]++
}

// Total returns the sum of all counters.
func (s DropStats) Total() uint64 {
	var total uint64
	for _, count := range s {
		if total > math.MaxUint64-count {
			return math.MaxUint64
		}
		total += count
	}
	return total
}

// String formats the non-zero counters as "KEY_A:30x5, KEY_S:31x2".
func (s DropStats) String() string {
	var parts []string
	for code, count := range s {
		if count == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%dx%d", keyName(KeyCode(code)), code, count))
	}
	return strings.Join(parts, ", ")
}

// Engine decides for each event whether it gets forwarded to the
// synthetic device or dropped.
type Engine struct {
	timeouts TimeoutTable
	tracker  KeyTracker
	stats    DropStats
	log      logrus.FieldLogger
	debug    bool
}

func NewEngine(timeouts TimeoutTable, log logrus.FieldLogger) *Engine {
	return &Engine{
		timeouts: timeouts,
		tracker:  NewKeyTracker(len(timeouts)),
		stats:    make(DropStats, len(timeouts)),
		log:      log,
		debug:    levelEnabled(log, logrus.DebugLevel),
	}
}

func (e *Engine) Stats() DropStats {
	return e.stats
}

// State returns the tracked state of code.
func (e *Engine) State(code KeyCode) (KeyState, bool) {
	if int(code) >= len(e.tracker) {
		return KeyState{}, false
	}
	return e.tracker[code], true
}

func (e *Engine) Decide(ev *Event) Decision {
	d, r, elapsed := decide(ev, e.timeouts, e.tracker)
	switch r {
	case clockDrift:
		e.log.Errorf("Clock drift detected for %s: event is %s older than the last transition. Not filtering",
			keyName(ev.Code), -elapsed)
	case throttledDownDown, throttledUpDown, throttledUpUp:
		if e.debug {
			e.log.Debugf("%s %s:%d; elapsed: %dms", r, keyName(ev.Code), ev.Code, elapsed.Milliseconds())
		}
	}
	if d == Drop {
		e.stats.inc(ev.Code)
	}
	return d
}

type reason int

const (
	passed reason = iota
	clockDrift
	throttledDownDown
	throttledUpDown
	throttledUpUp
)

func (r reason) String() string {
	switch r {
	case clockDrift:
		return "Clock drift"
	case throttledDownDown:
		return "Throttled repeated down-down"
	case throttledUpDown:
		return "Throttled repeated up-down"
	case throttledUpUp:
		return "Unconditionally throttled repeated up-up"
	}
	return "Passed"
}

// decide runs one event through the state machine of its key code and
// updates the tracker.
func decide(ev *Event, timeouts TimeoutTable, tracker KeyTracker) (Decision, reason, time.Duration) {
	if ev.Type != evdev.EV_KEY {
		return Forward, passed, 0
	}
	timeout, ok := timeouts.Timeout(ev.Code)
	if !ok {
		return Forward, passed, 0
	}

	now := syscallTimevalToTime(ev.Time)
	state := &tracker[ev.Code]
	elapsed, ok := state.since(now)
	if !ok {
		return Forward, clockDrift, elapsed
	}

	isDown := ev.Value >= DOWN
	if state.Down {
		if isDown {
			// Held down: a repeat. Filter it only inside the window and
			// keep the anchor on the last forwarded event.
			if elapsed < timeout {
				return Drop, throttledDownDown, elapsed
			}
			state.At = now
			return Forward, passed, elapsed
		}
		// Releases are never filtered, otherwise keys could get stuck.
		*state = KeyState{Down: false, At: now}
		return Forward, passed, elapsed
	}
	if isDown {
		// Pressed again after a release. The state changes even if the
		// event gets dropped, so the window is measured from the last bounce.
		*state = KeyState{Down: true, At: now}
		if elapsed < timeout {
			return Drop, throttledUpDown, elapsed
		}
		return Forward, passed, elapsed
	}
	// Released twice. An event got lost or duplicated.
	return Drop, throttledUpUp, elapsed
}

// levelEnabled reports whether log emits entries at level. Unknown
// implementations are assumed to log everything.
func levelEnabled(log logrus.FieldLogger, level logrus.Level) bool {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(level)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(level)
	}
	return true
}

func keyName(code KeyCode) string {
	return evdev.CodeName(evdev.EV_KEY, code)
}
