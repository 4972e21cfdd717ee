package quotesync

import (
	"time"

	"StockDog/internal/recorder"
)

// State of the engine.
type State int32

const (
	StateIdle State = iota
	StateRequesting
	StateApplying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateApplying:
		return "applying"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Trigger says what started a cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Status is the outcome of a cycle.
type Status string

const (
	StatusBusy    Status = "busy"    // another request was in flight
	StatusEmpty   Status = "empty"   // nothing registered, no request sent
	StatusNoData  Status = "no_data" // provider answered with zero quotes
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

// Result describes one cycle.
type Result struct {
	RequestID string        `json:"request_id,omitempty"`
	Trigger   Trigger       `json:"trigger"`
	Status    Status        `json:"status"`
	Symbols   []string      `json:"symbols,omitempty"`
	Received  int           `json:"received"`
	Applied   int           `json:"applied"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
	Err       error         `json:"-"`
}

func (r Result) event() *recorder.SyncEvent {
	evt := &recorder.SyncEvent{
		RequestID: r.RequestID,
		Trigger:   string(r.Trigger),
		Status:    string(r.Status),
		Symbols:   r.Symbols,
		Received:  r.Received,
		Applied:   r.Applied,
		Duration:  r.Duration,
	}
	if r.Err != nil {
		evt.Error = r.Err.Error()
	}
	return evt
}
