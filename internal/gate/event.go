package gate

import (
	"log/slog"
	"time"
)

// Event is the immutable audit record of one gate evaluation. Every
// evaluation produces exactly one event, FIRE and HOLD alike.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Checks    Checks    `json:"checks"`
	Decision  Decision  `json:"decision"`
}

// Sink receives gate events. Implementations must treat events as
// append-only and must report their own failures (the evaluator does not
// propagate sink errors into decisions).
type Sink interface {
	Emit(ev Event)
}

// discardSink drops events. Used when no sink is configured.
type discardSink struct{}

func (discardSink) Emit(Event) {}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over the given logger. A nil logger uses the
// default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit logs the full event.
func (s *LogSink) Emit(ev Event) {
	s.logger.Info("gate event",
		"seq", ev.Seq,
		"timestamp", ev.Timestamp,
		"por", string(ev.Checks.PoR),
		"delta_pi", ev.Checks.DeltaPi,
		"phi", ev.Checks.Phi,
		"delta_v", ev.Checks.DeltaV,
		"commit", ev.Decision.Commit,
		"reason", ev.Decision.Reason)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink. Nil members are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

// Emit delivers the event to every sink.
func (m *MultiSink) Emit(ev Event) {
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}

// RecordingSink retains every emitted event in order. Test helper.
type RecordingSink struct {
	Events []Event
}

// Emit appends the event.
func (r *RecordingSink) Emit(ev Event) {
	r.Events = append(r.Events, ev)
}
