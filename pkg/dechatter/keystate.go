package dechatter

import (
	"fmt"
	"syscall"
	"time"

	"github.com/holoplot/go-evdev"
)

const (
	UP     = 0
	DOWN   = 1
	REPEAT = 2
)

type Event = evdev.InputEvent

type KeyCode = evdev.EvCode // for example KEY_A, KEY_B, ...

var epoch = time.Unix(0, 0)

// KeyState is the last logical state seen for one key code.
// Down is either true (pressed at At) or false (released at At).
type KeyState struct {
	Down bool
	At   time.Time
}

func (s KeyState) String() string {
	if s.Down {
		return fmt.Sprintf("Down(%s)", s.At.Format(time.StampMicro))
	}
	return fmt.Sprintf("Up(%s)", s.At.Format(time.StampMicro))
}

// since returns the time elapsed between the recorded transition and now.
// ok is false if now is older than the recorded transition.
func (s KeyState) since(now time.Time) (elapsed time.Duration, ok bool) {
	elapsed = now.Sub(s.At)
	if elapsed < 0 {
		return elapsed, false
	}
	return elapsed, true
}

// KeyTracker holds one KeyState per key code. Every slot starts as Up(epoch).
type KeyTracker []KeyState

func NewKeyTracker(size int) KeyTracker {
	tracker := make(KeyTracker, size)
	for i := range tracker {
		tracker[i] = KeyState{At: epoch}
	}
	return tracker
}

func timeToSyscallTimeval(t time.Time) syscall.Timeval {
	return syscall.NsecToTimeval(t.UnixNano())
}

func syscallTimevalToTime(tv syscall.Timeval) time.Time {
	return time.Unix(tv.Unix())
}
