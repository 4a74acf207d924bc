// Package diag collects diagnostics from the real-time audio path without
// blocking it. Counters are plain atomics; textual notes go through a
// bounded channel that drops on overflow instead of waiting.
package diag

import "sync/atomic"

// Counters accumulates per-generator diagnostics. All methods are safe to
// call from the audio goroutine: they never allocate or block.
type Counters struct {
	underruns    atomic.Uint64
	fallbacks    atomic.Uint64
	nanReplaced  atomic.Uint64
	clamped      atomic.Uint64
	blocksServed atomic.Uint64

	// blockEnergy holds math.Float64bits of the most recent block's
	// summed squared output, for host-side metering.
	blockEnergy atomic.Uint64

	notes chan string
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	// Underruns counts blocks where the stretch engine produced fewer
	// frames than requested after priming completed.
	Underruns uint64

	// Fallbacks counts blocks where unprocessed audio was substituted
	// for stretch-engine output to avoid an audible dropout.
	Fallbacks uint64

	// NaNReplaced counts samples replaced with zero after the stretch
	// engine emitted NaN or Inf.
	NaNReplaced uint64

	// Clamped counts samples limited to the soft-clip ceiling.
	Clamped uint64

	// BlocksServed counts completed generateBlock calls that produced audio.
	BlocksServed uint64
}

// noteBacklog bounds the note channel; writes beyond it are dropped.
const noteBacklog = 32

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{notes: make(chan string, noteBacklog)}
}

func (c *Counters) AddUnderrun()        { c.underruns.Add(1) }
func (c *Counters) AddFallback()        { c.fallbacks.Add(1) }
func (c *Counters) AddNaNReplaced()     { c.nanReplaced.Add(1) }
func (c *Counters) AddClamped()         { c.clamped.Add(1) }
func (c *Counters) AddBlockServed()     { c.blocksServed.Add(1) }
func (c *Counters) SetBlockEnergy(bits uint64) { c.blockEnergy.Store(bits) }

// BlockEnergyBits returns the raw float64 bits of the last block energy.
func (c *Counters) BlockEnergyBits() uint64 { return c.blockEnergy.Load() }

// Note records a diagnostic message without blocking; the message is
// dropped if the backlog is full. Callers on the audio thread must pass
// pre-built constant strings to avoid allocation.
func (c *Counters) Note(msg string) {
	select {
	case c.notes <- msg:
	default:
	}
}

// DrainNotes returns all queued notes. Intended for control-plane or
// test use only.
func (c *Counters) DrainNotes() []string {
	var out []string
	for {
		select {
		case n := <-c.notes:
			out = append(out, n)
		default:
			return out
		}
	}
}

// Snapshot copies the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Underruns:    c.underruns.Load(),
		Fallbacks:    c.fallbacks.Load(),
		NaNReplaced:  c.nanReplaced.Load(),
		Clamped:      c.clamped.Load(),
		BlocksServed: c.blocksServed.Load(),
	}
}
