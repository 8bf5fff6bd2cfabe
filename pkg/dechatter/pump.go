package dechatter

import (
	"fmt"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
)

// StatsInterval is the minimum time between two "Throttled: ..." reports.
const StatsInterval = 30 * time.Second

type EventReader interface {
	ReadOne() (*Event, error)
}

type EventWriter interface {
	WriteOne(event *Event) error
}

// Source is the physical device. *evdev.InputDevice implements it.
type Source interface {
	EventReader
	Grab() error
	Ungrab() error
}

var _ Source = (*evdev.InputDevice)(nil)

// Pump reads batches from the source, runs every event through the engine
// and writes the surviving events to the sink in their original order.
type Pump struct {
	source       Source
	sink         EventWriter
	engine       *Engine
	log          logrus.FieldLogger
	tracer       logrus.Ext1FieldLogger // nil unless trace level is enabled
	skipFirst    bool
	physicalPath string

	now              func() time.Time
	lastStatsPrinted time.Time
	batch            []Event
}

func NewPump(source Source, sink EventWriter, engine *Engine, skipFirst bool, physicalPath string, log logrus.FieldLogger) *Pump {
	p := &Pump{
		source:       source,
		sink:         sink,
		engine:       engine,
		log:          log,
		skipFirst:    skipFirst,
		physicalPath: physicalPath,
		now:          time.Now,
		batch:        make([]Event, 0, 64),
	}
	if t, ok := log.(logrus.Ext1FieldLogger); ok && levelEnabled(log, logrus.TraceLevel) {
		p.tracer = t
	}
	p.lastStatsPrinted = p.now()
	return p
}

// Run blocks until reading or writing fails. The source is grabbed while
// Run is active.
func (p *Pump) Run() error {
	if p.skipFirst {
		batch, err := p.fetchBatch()
		for i := range batch {
			p.log.Infof("Skipping %s", batch[i].String())
		}
		if err != nil {
			return fmt.Errorf("failed to read the first batch of events: %w", err)
		}
	}

	if err := p.source.Grab(); err != nil {
		return fmt.Errorf("failed to grab the original keyboard: %w", err)
	}
	defer func() {
		if err := p.source.Ungrab(); err != nil {
			p.log.Debugf("Ungrab failed: %s", err.Error())
		}
	}()
	p.log.Infof("Grabbed the original keyboard: %s", p.physicalPath)

	for {
		if err := p.processEventBatch(); err != nil {
			return err
		}
	}
}

// fetchBatch reads events up to and including the next SYN_REPORT.
// On error the events read so far are returned, too.
func (p *Pump) fetchBatch() ([]Event, error) {
	p.batch = p.batch[:0]
	for {
		ev, err := p.source.ReadOne()
		if err != nil {
			return p.batch, err
		}
		p.batch = append(p.batch, *ev)
		if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
			return p.batch, nil
		}
	}
}

func (p *Pump) processEventBatch() error {
	batch, readErr := p.fetchBatch()
	filtered := false
	for i := range batch {
		ev := &batch[i]
		if p.engine.Decide(ev) == Drop {
			filtered = true
			continue
		}
		if p.tracer != nil {
			p.tracer.Tracef("Forwarding %s", ev.String())
		}
		if err := p.sink.WriteOne(ev); err != nil {
			return fmt.Errorf("failed to write to the fake keyboard: %w", err)
		}
	}
	if filtered {
		p.printStats()
	}
	if readErr != nil {
		return fmt.Errorf("failed to read from the original keyboard: %w", readErr)
	}
	return nil
}

func (p *Pump) printStats() {
	now := p.now()
	if now.Sub(p.lastStatsPrinted) < StatsInterval {
		return
	}
	p.lastStatsPrinted = now
	s := p.engine.Stats().String()
	if s == "" {
		return
	}
	p.log.Infof("Throttled: %s", s)
}
