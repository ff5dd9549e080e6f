package migrate

import "sync/atomic"

// RunCounters tallies per-run item outcomes. The batch loop is the only
// writer; the status endpoint reads snapshots concurrently, hence atomics.
type RunCounters struct {
	checked atomic.Int64
	updated atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// NewRunCounters creates a zeroed counter set
func NewRunCounters() *RunCounters {
	return &RunCounters{}
}

// CountersSnapshot is a point-in-time copy of the counters
type CountersSnapshot struct {
	Checked int64 `json:"checked"`
	Updated int64 `json:"updated"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Reset zeroes all counters at the start of a run
func (c *RunCounters) Reset() {
	c.checked.Store(0)
	c.updated.Store(0)
	c.skipped.Store(0)
	c.failed.Store(0)
}

// IncChecked records one inspected item
func (c *RunCounters) IncChecked() { c.checked.Add(1) }

// IncUpdated records one successfully updated item
func (c *RunCounters) IncUpdated() { c.updated.Add(1) }

// IncSkipped records one item that needed no update
func (c *RunCounters) IncSkipped() { c.skipped.Add(1) }

// IncFailed records one item whose update call failed
func (c *RunCounters) IncFailed() { c.failed.Add(1) }

// Snapshot returns a consistent-enough copy for status reporting
func (c *RunCounters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		Checked: c.checked.Load(),
		Updated: c.updated.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}
