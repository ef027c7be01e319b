package prefilter

// Tracker wraps a Prefilter with effectiveness tracking across many inputs.
//
// The tracker monitors how many inputs the prefilter lets through and how
// many of those actually match. When almost every input passes, scanning
// with the automaton is wasted work, and the tracker retires the prefilter.
//
// Algorithm:
//  1. Track candidates (inputs passed) and rejects (inputs skipped)
//  2. After the warmup period, check the reject ratio every N inputs
//  3. If the ratio is below the threshold, disable the prefilter
//  4. Once disabled, never re-enable
//
// Example usage:
//
//	tracker := prefilter.NewTracker(pf)
//	for _, file := range files {
//	    if !tracker.MayMatch(data) {
//	        continue
//	    }
//	    if matched(data) {
//	        tracker.ConfirmMatch()
//	    }
//	}
type Tracker struct {
	inner *Prefilter

	// Statistics
	inputs   uint64
	rejects  uint64
	confirms uint64

	// Configuration
	checkInterval  uint64
	minRejectRatio float64
	warmupPeriod   uint64
	lastCheckpoint uint64

	active bool
}

// TrackerConfig holds configuration for the effectiveness tracker.
type TrackerConfig struct {
	// CheckInterval is how often to check effectiveness (in inputs).
	// Default: 16
	CheckInterval uint64

	// MinRejectRatio is the minimum share of inputs the prefilter must
	// reject to stay active.
	// Default: 0.05 (5%)
	MinRejectRatio float64

	// WarmupPeriod is the minimum number of inputs before checking.
	// Default: 32
	WarmupPeriod uint64
}

// DefaultTrackerConfig returns the default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		CheckInterval:  16,
		MinRejectRatio: 0.05,
		WarmupPeriod:   32,
	}
}

// NewTracker creates a new tracker for the given prefilter with default config.
//
// A nil inner prefilter yields an inactive tracker that accepts everything.
func NewTracker(inner *Prefilter) *Tracker {
	return NewTrackerWithConfig(inner, DefaultTrackerConfig())
}

// NewTrackerWithConfig creates a new tracker with custom configuration.
func NewTrackerWithConfig(inner *Prefilter, config TrackerConfig) *Tracker {
	return &Tracker{
		inner:          inner,
		checkInterval:  config.CheckInterval,
		minRejectRatio: config.MinRejectRatio,
		warmupPeriod:   config.WarmupPeriod,
		active:         inner != nil,
	}
}

// MayMatch reports whether data may contain a match. Once the tracker is
// disabled it always returns true.
func (t *Tracker) MayMatch(data []byte) bool {
	if !t.active {
		return true
	}
	t.inputs++
	ok := t.inner.MayMatch(data)
	if !ok {
		t.rejects++
	}
	t.checkEffectiveness()
	return ok
}

// ConfirmMatch records that an input the prefilter passed did match.
func (t *Tracker) ConfirmMatch() {
	t.confirms++
}

func (t *Tracker) checkEffectiveness() {
	if t.inputs < t.warmupPeriod {
		return
	}
	if t.inputs-t.lastCheckpoint < t.checkInterval {
		return
	}
	t.lastCheckpoint = t.inputs
	if t.RejectRatio() < t.minRejectRatio {
		t.active = false
	}
}

// IsActive returns whether the prefilter is still in use.
func (t *Tracker) IsActive() bool {
	return t.active
}

// RejectRatio returns the share of inputs rejected so far.
func (t *Tracker) RejectRatio() float64 {
	if t.inputs == 0 {
		return 1.0
	}
	return float64(t.rejects) / float64(t.inputs)
}

// Stats returns the number of inputs checked, rejected, and confirmed.
func (t *Tracker) Stats() (inputs, rejects, confirms uint64) {
	return t.inputs, t.rejects, t.confirms
}
