// Package progress tracks live counters for a running grab.
package progress

import "sync/atomic"

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	ChannelsDone  int64 `json:"channels_done"`
	DaysCompleted int64 `json:"days_completed"`
	DaysAbandoned int64 `json:"days_abandoned"`
	Programmes    int64 `json:"programmes"`
}

// Tracker accumulates run counters. Safe for concurrent use, and all
// methods are no-ops on a nil receiver so callers can leave it unwired.
type Tracker struct {
	channelsDone  atomic.Int64
	daysCompleted atomic.Int64
	daysAbandoned atomic.Int64
	programmes    atomic.Int64
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// ChannelDone records one fully processed channel.
func (t *Tracker) ChannelDone() {
	if t == nil {
		return
	}
	t.channelsDone.Add(1)
}

// DayCompleted records one channel-day whose listing was obtained.
func (t *Tracker) DayCompleted() {
	if t == nil {
		return
	}
	t.daysCompleted.Add(1)
}

// DayAbandoned records one channel-day given up on.
func (t *Tracker) DayAbandoned() {
	if t == nil {
		return
	}
	t.daysAbandoned.Add(1)
}

// ProgrammeWritten records one record handed to the sink.
func (t *Tracker) ProgrammeWritten() {
	if t == nil {
		return
	}
	t.programmes.Add(1)
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	return Snapshot{
		ChannelsDone:  t.channelsDone.Load(),
		DaysCompleted: t.daysCompleted.Load(),
		DaysAbandoned: t.daysAbandoned.Load(),
		Programmes:    t.programmes.Load(),
	}
}
