package stretch

import (
	"math"

	"github.com/audiokit/playback/internal/diag"
	"github.com/audiokit/playback/internal/engine"
)

// Purpose identifies which transformation a processor performs.
type Purpose int

const (
	// PitchOnly shifts pitch while preserving duration.
	PitchOnly Purpose = iota

	// SpeedOnly changes duration while preserving pitch.
	SpeedOnly

	// Combined applies independent pitch and speed changes together.
	Combined
)

// State reports where a processor is in its lifecycle. Mostly useful
// for tests and diagnostics; the block path never branches on it alone.
type State int

const (
	// StatePriming: input is being accumulated and fed, output is gated.
	StatePriming State = iota

	// StateSteady: the priming threshold has been reached and blocks
	// drain output normally.
	StateSteady

	// StateDraining: input is exhausted and remaining engine history is
	// being flushed out.
	StateDraining
)

// Tuning holds the implementation-defined constants of the adapter.
// There is no single right value for any of them, so they are
// configuration, not contract.
type Tuning struct {
	// ChunkFrames is the feed granularity into the engine. Larger chunks
	// amortize per-call overhead, smaller ones reduce added latency.
	ChunkFrames int

	// PrimingChunks is the number of chunks that must be fed before
	// output draining is allowed. Draining earlier yields zero-length or
	// unstable output from the engine.
	PrimingChunks int

	// CrossfadeFrames is the length of the crossfade between old and new
	// pitch on a pitch change, in frames. Zero disables crossfading.
	CrossfadeFrames int

	// FallbackBlocks is the number of consecutive post-priming blocks
	// with zero drained frames after which unprocessed audio is
	// substituted instead of silence.
	FallbackBlocks int

	// AntiAliasThreshold is the pitch ratio above which the low-pass
	// pre-filter engages.
	AntiAliasThreshold float64

	// Quality selects the engine quality tier.
	Quality Quality
}

// DefaultTuning returns the defaults used when the host does not
// override them. 4×2048 frames of priming comfortably exceeds the
// engine's internal analysis window at common sample rates.
func DefaultTuning() Tuning {
	return Tuning{
		ChunkFrames:        2048,
		PrimingChunks:      4,
		CrossfadeFrames:    64,
		FallbackBlocks:     3,
		AntiAliasThreshold: 1.3,
		Quality:            QualityBalanced,
	}
}

// Reconfiguration epsilons. Changes smaller than these are ignored so
// steady-state automation noise does not trigger engine clears.
const (
	speedEpsilon    = 0.01
	pitchEpsilon    = 0.001
	speedClearJump  = 0.1
	unsetParam      = -1.0
	softClipCeiling = 0.95
)

// Processor wraps one Engine instance for one Purpose and carries the
// buffering, priming and fallback state around it. A processor is owned
// by exactly one generator and touched only from the audio goroutine.
type Processor struct {
	purpose    Purpose
	sampleRate int
	channels   int
	blockSize  int
	tuning     Tuning
	counters   *diag.Counters
	factory    EngineFactory

	eng Engine
	acc *fifo
	aa  *antiAliasFilter

	lastPitch float64
	lastSpeed float64

	// Crossfade against the previous pitch value.
	fade          Engine
	fadeRemaining int

	primedChunks     int
	consecutiveEmpty int
	flushed          bool
	draining         bool

	// Preallocated scratch; no allocation per block once constructed.
	chunk     []int16
	drain     []int16
	fadeDrain []int16
	filtered  []int16
}

// NewProcessor builds a processor. The engine itself is constructed
// immediately (construction is the lazy step at the caller's level).
func NewProcessor(purpose Purpose, sampleRate, channels, blockSize int, tuning Tuning, counters *diag.Counters, factory EngineFactory) *Processor {
	p := &Processor{
		purpose:    purpose,
		sampleRate: sampleRate,
		channels:   channels,
		blockSize:  blockSize,
		tuning:     tuning,
		counters:   counters,
		factory:    factory,
		eng:        factory(sampleRate, channels),
		acc:        newFIFO(channels, tuning.ChunkFrames*2),
		aa:         newAntiAliasFilter(channels),
		lastPitch:  unsetParam,
		lastSpeed:  unsetParam,
		chunk:      make([]int16, tuning.ChunkFrames*channels),
		drain:      make([]int16, blockSize*channels),
		fadeDrain:  make([]int16, blockSize*channels),
		filtered:   make([]int16, blockSize*channels),
	}
	return p
}

// CurrentState reports the lifecycle state.
func (p *Processor) CurrentState() State {
	switch {
	case p.draining:
		return StateDraining
	case p.primedChunks >= p.tuning.PrimingChunks:
		return StateSteady
	default:
		return StatePriming
	}
}

// Configure applies the current pitch and speed ratios, reconfiguring
// the engine only when a value moved beyond its epsilon. Discontinuous
// jumps clear engine history; small adjustments do not.
func (p *Processor) Configure(pitch, speed float64) {
	switch p.purpose {
	case PitchOnly:
		p.configurePitchOnly(pitch)
	case SpeedOnly:
		p.configureSpeedOnly(speed)
	case Combined:
		p.configureCombined(pitch, speed)
	}
}

func (p *Processor) configurePitchOnly(pitch float64) {
	if p.lastPitch != unsetParam && math.Abs(pitch-p.lastPitch) <= pitchEpsilon {
		return
	}

	// Retune through a short crossfade: a transient second engine keeps
	// producing the old pitch while the retuned main engine fades in.
	if p.lastPitch > 0 && p.tuning.CrossfadeFrames > 0 {
		p.fade = p.factory(p.sampleRate, p.channels)
		p.fade.SetTempo(1.0)
		p.fade.SetPitchSemitones(PitchRatioToSemitones(p.lastPitch))
		p.fadeRemaining = p.tuning.CrossfadeFrames
	}

	p.eng.Clear()
	p.primedChunks = 0
	p.eng.SetTempo(1.0)
	p.eng.SetPitchSemitones(PitchRatioToSemitones(pitch))
	p.lastPitch = pitch
	p.aa.configure(pitch, p.tuning.AntiAliasThreshold)
}

func (p *Processor) configureSpeedOnly(speed float64) {
	needTempo := p.lastSpeed == unsetParam || math.Abs(speed-p.lastSpeed) > speedEpsilon
	needPitchReset := p.lastPitch != 1.0

	if !needTempo && !needPitchReset {
		return
	}

	// Only a large jump or a stale pitch setting justifies dropping
	// engine history; small tempo nudges reconfigure in place.
	if needPitchReset || p.lastSpeed == unsetParam || math.Abs(speed-p.lastSpeed) > speedClearJump {
		p.eng.Clear()
		p.primedChunks = 0
	}
	if needTempo {
		p.eng.SetTempo(speed)
		p.lastSpeed = speed
	}
	if needPitchReset {
		p.eng.SetPitchSemitones(0)
		p.lastPitch = 1.0
	}
	p.aa.configure(1.0, p.tuning.AntiAliasThreshold)
}

func (p *Processor) configureCombined(pitch, speed float64) {
	speedMoved := p.lastSpeed == unsetParam || math.Abs(speed-p.lastSpeed) > speedEpsilon
	pitchMoved := p.lastPitch == unsetParam || math.Abs(pitch-p.lastPitch) > pitchEpsilon
	if !speedMoved && !pitchMoved {
		return
	}
	p.eng.Clear()
	p.primedChunks = 0
	p.eng.SetTempo(speed)
	p.eng.SetPitchSemitones(PitchRatioToSemitones(pitch))
	p.lastSpeed = speed
	p.lastPitch = pitch
	p.aa.configure(pitch, p.tuning.AntiAliasThreshold)
}

// Reset discards all processor and engine state. Called when the
// underlying buffer is swapped so no stale history bleeds across
// unrelated audio sources.
func (p *Processor) Reset() {
	p.eng.Clear()
	p.fade = nil
	p.fadeRemaining = 0
	p.acc.Clear()
	p.aa.reset()
	p.primedChunks = 0
	p.consecutiveEmpty = 0
	p.flushed = false
	p.draining = false
	p.lastPitch = unsetParam
	p.lastSpeed = unsetParam
}

// ProcessBlock feeds inFrames of source audio and mixes up to blockSize
// frames of stretched output into out, additively, applying the
// per-frame gain callback. exhausted marks that the source has no more
// input after this block, which triggers the final partial feed and
// engine flush. The call never blocks; a shortfall is left as silence
// unless the fallback policy kicks in.
func (p *Processor) ProcessBlock(out []float32, in []int16, inFrames int, exhausted bool, gain func(int) float32) {
	feed := in
	if p.aa.active && inFrames > 0 {
		p.aa.apply(p.filtered, in, p.channels, inFrames)
		feed = p.filtered
	}
	if inFrames > 0 {
		p.acc.Write(feed, inFrames)
	}

	// Feed whole chunks; each feed bumps the priming counter.
	for p.acc.Frames() >= p.tuning.ChunkFrames {
		n := p.acc.Read(p.chunk, p.tuning.ChunkFrames)
		p.feedEngines(p.chunk, n)
	}

	// Input exhausted: the leftover partial chunk is fed once so the
	// engine's history is flushed rather than silently dropped.
	if exhausted && !p.flushed {
		if rem := p.acc.Frames(); rem > 0 {
			n := p.acc.Read(p.chunk, rem)
			p.feedEngines(p.chunk, n)
		}
		_ = p.eng.Flush()
		p.flushed = true
		p.draining = true
	}

	if p.primedChunks < p.tuning.PrimingChunks && !p.draining {
		// Still priming: graceful silence, never a stall.
		return
	}

	total := 0
	for total < p.blockSize {
		n, err := p.eng.ReceiveSamples(p.drain, p.blockSize-total)
		if err != nil || n <= 0 {
			break
		}
		p.mixDrained(out, total, n, gain)
		total += n
	}

	if total == 0 {
		p.counters.AddUnderrun()
		p.consecutiveEmpty++
		if p.consecutiveEmpty >= p.tuning.FallbackBlocks && inFrames > 0 {
			// Last resort: pass the unprocessed input through rather
			// than staying silent indefinitely.
			engine.AccumulateCopy(out, in, p.channels, inFrames, 0, gain)
			p.counters.AddFallback()
			p.counters.Note("stretch fallback: passthrough after repeated empty drains")
		}
		return
	}
	p.consecutiveEmpty = 0
	if total < p.blockSize {
		// Shortfall stays silent for this block and is made up as
		// priming continues.
		p.counters.AddUnderrun()
	}
}

// feedEngines pushes one chunk into the main engine and, while a pitch
// crossfade is active, into the crossfade engine as well.
func (p *Processor) feedEngines(chunk []int16, frames int) {
	_ = p.eng.PutSamples(chunk, frames)
	if p.fade != nil && p.fadeRemaining > 0 {
		_ = p.fade.PutSamples(chunk, frames)
	}
	p.primedChunks++
}

// mixDrained converts drained engine output to float, validates it,
// applies gain and any active pitch crossfade, and accumulates it into
// the output block starting at frame offset.
func (p *Processor) mixDrained(out []float32, offset, frames int, gain func(int) float32) {
	fadeFrames := 0
	if p.fade != nil && p.fadeRemaining > 0 {
		n, err := p.fade.ReceiveSamples(p.fadeDrain, frames)
		if err == nil {
			fadeFrames = n
		}
	}

	window := float32(p.tuning.CrossfadeFrames)
	for i := 0; i < frames; i++ {
		newWeight := float32(1)
		oldWeight := float32(0)
		if p.fadeRemaining > 0 && fadeFrames > 0 {
			progress := (window - float32(p.fadeRemaining)) / window
			newWeight = progress
			oldWeight = 1 - progress
			p.fadeRemaining--
		}

		g := gain(offset + i)
		dst := (offset + i) * p.channels
		src := i * p.channels
		for ch := 0; ch < p.channels; ch++ {
			sample := float32(p.drain[src+ch]) * engine.Int16Scale * newWeight
			if oldWeight > 0 && i < fadeFrames {
				sample += float32(p.fadeDrain[src+ch]) * engine.Int16Scale * oldWeight
			}

			// Soft limit before gain so upstream corruption cannot slam
			// the mix bus.
			if sample > softClipCeiling {
				sample = softClipCeiling
				p.counters.AddClamped()
			} else if sample < -softClipCeiling {
				sample = -softClipCeiling
				p.counters.AddClamped()
			}

			v := sample * g
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				v = 0
				p.counters.AddNaNReplaced()
			}
			out[dst+ch] += v
		}
	}

	if p.fade != nil && p.fadeRemaining <= 0 {
		p.fade = nil
	}
}
