package dechatter

import (
	"math"
	"testing"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)

func keyEv(code KeyCode, value int32, at time.Duration) *Event {
	return &Event{
		Time:  timeToSyscallTimeval(t0.Add(at)),
		Type:  evdev.EV_KEY,
		Code:  code,
		Value: value,
	}
}

const ms = time.Millisecond

// newTestEngine debounces KEY_ESC and KEY_1 with 10ms. KEY_RESERVED (0)
// is not debounced.
func newTestEngine() (*Engine, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	table := TimeoutTable{0, 10 * ms, 10 * ms}
	return NewEngine(table, log), hook
}

func requireState(t *testing.T, e *Engine, code KeyCode, down bool, at time.Duration) {
	t.Helper()
	state, ok := e.State(code)
	require.True(t, ok)
	require.Equal(t, down, state.Down, "state %s", state)
	require.True(t, t0.Add(at).Equal(state.At), "state %s", state)
}

func requireInitialState(t *testing.T, e *Engine, code KeyCode) {
	t.Helper()
	state, ok := e.State(code)
	require.True(t, ok)
	require.False(t, state.Down)
	require.True(t, epoch.Equal(state.At), "state %s", state)
}

func TestDecide_noTimeoutAlwaysForwards(t *testing.T) {
	e, _ := newTestEngine()
	for i, value := range []int32{DOWN, DOWN, UP, UP, DOWN, REPEAT, UP} {
		require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_RESERVED, value, time.Duration(i)*ms)))
	}
	requireInitialState(t, e, evdev.KEY_RESERVED)

	// Key codes outside of the table are not debounced either.
	for i, value := range []int32{DOWN, DOWN, UP, UP} {
		require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_A, value, time.Duration(i)*ms)))
	}
	_, ok := e.State(evdev.KEY_A)
	require.False(t, ok)
	require.Zero(t, e.Stats().Total())
}

func TestDecide_downDown(t *testing.T) {
	e, _ := newTestEngine()
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 0)))
	requireState(t, e, evdev.KEY_ESC, true, 0)

	// within the window: dropped, anchor stays
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 9*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 0)

	// elapsed == timeout: forwarded, anchor moves
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 10*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 10*ms)

	// auto-repeat (value 2) counts as down
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, REPEAT, 15*ms)))
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, REPEAT, 45*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 45*ms)

	require.Equal(t, DropStats{0, 2, 0}, e.Stats())
}

func TestDecide_upDownUsesNewTimestamp(t *testing.T) {
	e, _ := newTestEngine()
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 0)))
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, UP, 3*ms)))
	requireState(t, e, evdev.KEY_ESC, false, 3*ms)

	// bounce: dropped, but the state is Down(8ms) now
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 8*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 8*ms)

	// 15ms after the first down, but only 7ms after the bounce
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 15*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 8*ms)

	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 18*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 18*ms)
}

func TestDecide_upDownAfterWindow(t *testing.T) {
	e, _ := newTestEngine()
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_1, DOWN, 0)))
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_1, UP, 50*ms)))
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_1, DOWN, 60*ms)))
	requireState(t, e, evdev.KEY_1, true, 60*ms)
}

func TestDecide_downUpAlwaysForwards(t *testing.T) {
	for _, elapsed := range []time.Duration{0, 1 * ms, 9 * ms, 10 * ms, time.Hour} {
		e, _ := newTestEngine()
		require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 0)))
		require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, UP, elapsed)), "elapsed %s", elapsed)
		requireState(t, e, evdev.KEY_ESC, false, elapsed)
	}
}

func TestDecide_upUpAlwaysDrops(t *testing.T) {
	for _, elapsed := range []time.Duration{0, 1 * ms, 10 * ms, time.Hour} {
		e, hook := newTestEngine()
		require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, UP, elapsed)), "elapsed %s", elapsed)
		requireInitialState(t, e, evdev.KEY_ESC)
		require.Equal(t, uint64(1), e.Stats()[evdev.KEY_ESC])
		require.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
		require.Contains(t, hook.LastEntry().Message, "up-up KEY_ESC:1")
	}

	e, _ := newTestEngine()
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 0)))
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, UP, 20*ms)))
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, UP, 40*ms)))
	requireState(t, e, evdev.KEY_ESC, false, 20*ms)
}

func TestDecide_nonKeyEvents(t *testing.T) {
	e, _ := newTestEngine()
	events := []Event{
		{Time: timeToSyscallTimeval(t0), Type: evdev.EV_SYN, Code: evdev.SYN_REPORT},
		{Time: timeToSyscallTimeval(t0), Type: evdev.EV_MSC, Code: 1, Value: 1},
		{Time: timeToSyscallTimeval(t0), Type: evdev.EV_LED, Code: 1, Value: 0},
		{Time: timeToSyscallTimeval(t0), Type: evdev.EV_MSC, Code: 1, Value: 0},
	}
	for i := range events {
		require.Equal(t, Forward, e.Decide(&events[i]))
	}
	requireInitialState(t, e, 1)
	require.Zero(t, e.Stats().Total())
}

func TestDecide_clockDrift(t *testing.T) {
	e, hook := newTestEngine()
	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 100*ms)))

	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, DOWN, 50*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 100*ms)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	require.Contains(t, hook.LastEntry().Message, "Clock drift")

	require.Equal(t, Forward, e.Decide(keyEv(evdev.KEY_ESC, UP, 50*ms)))
	requireState(t, e, evdev.KEY_ESC, true, 100*ms)
	require.Zero(t, e.Stats().Total())
}

func TestDropStats(t *testing.T) {
	s := make(DropStats, 31)
	s.inc(evdev.KEY_ESC)
	s.inc(evdev.KEY_A)
	s.inc(evdev.KEY_A)
	s.inc(200) // out of range, ignored
	require.Equal(t, "KEY_ESC:1x1, KEY_A:30x2", s.String())
	require.Equal(t, uint64(3), s.Total())

	s[evdev.KEY_A] = math.MaxUint64
	s.inc(evdev.KEY_A)
	require.Equal(t, uint64(math.MaxUint64), s[evdev.KEY_A])
	require.Equal(t, uint64(math.MaxUint64), s.Total())

	require.Equal(t, "", make(DropStats, 3).String())
}

func TestDecide_dropsAreCounted(t *testing.T) {
	e, _ := newTestEngine()
	e.stats[evdev.KEY_ESC] = math.MaxUint64
	require.Equal(t, Drop, e.Decide(keyEv(evdev.KEY_ESC, UP, 0)))
	require.Equal(t, uint64(math.MaxUint64), e.Stats()[evdev.KEY_ESC])
}

func TestLevelEnabled(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	entry := log.WithField("device", "/dev/input/event3")
	require.False(t, levelEnabled(log, logrus.DebugLevel))
	require.False(t, levelEnabled(entry, logrus.DebugLevel))

	log.SetLevel(logrus.TraceLevel)
	require.True(t, levelEnabled(log, logrus.TraceLevel))
	require.True(t, levelEnabled(entry, logrus.TraceLevel))
	require.True(t, NewEngine(TimeoutTable{0, 10 * ms}, entry).debug)
}
