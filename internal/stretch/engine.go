// Package stretch adapts a streaming time-domain pitch/tempo engine to
// the block-oriented real-time generation loop. The adapter owns the
// buffering, priming, reconfiguration and fallback policy; the engine
// itself only has to honor the narrow Engine contract.
package stretch

import (
	"math"

	sonic "github.com/alttagil/sonic-go"
)

// Engine is the contract the adapter requires from a streaming stretch
// implementation.
//
// PutSamples enqueues interleaved input; ReceiveSamples dequeues whatever
// output is ready, possibly zero frames while the engine is still
// priming. SetTempo and SetPitchSemitones reconfigure without discarding
// internal history; Clear discards it (needed after a buffer swap or a
// discontinuous parameter jump). Flush squeezes remaining history into
// the output queue when input is exhausted.
type Engine interface {
	PutSamples(in []int16, frames int) error
	ReceiveSamples(dst []int16, maxFrames int) (int, error)
	SetTempo(ratio float64)
	SetPitchSemitones(semitones float64)
	Flush() error
	Clear()
	OutputFrames() int
}

// EngineFactory constructs a fresh engine instance. The adapter calls it
// lazily for the main processor and transiently for pitch crossfades.
type EngineFactory func(sampleRate, channels int) Engine

// Quality selects the underlying engine's speed/quality trade-off.
type Quality int

const (
	// QualityLowLatency favors response time over artifact suppression.
	QualityLowLatency Quality = iota

	// QualityBalanced is the default.
	QualityBalanced

	// QualityHigh enables the engine's most expensive processing.
	QualityHigh
)

// PitchRatioToSemitones converts a pitch ratio to semitones.
func PitchRatioToSemitones(ratio float64) float64 {
	return 12 * math.Log2(ratio)
}

// semitonesToPitchRatio is the inverse conversion.
func semitonesToPitchRatio(semitones float64) float64 {
	return math.Exp2(semitones / 12)
}

// sonicEngine implements Engine on top of github.com/alttagil/sonic-go,
// a streaming time-domain (PICOLA-style) speed and pitch changer.
type sonicEngine struct {
	st       *sonic.Stream
	channels int
}

// SonicFactory returns an EngineFactory producing sonic-backed engines
// with the given quality tier. Sonic exposes a single quality switch
// (whole-spectrum compression on speedup); the low and balanced tiers
// both leave it off and differ only in the adapter's tuning defaults.
func SonicFactory(quality Quality) EngineFactory {
	return func(sampleRate, channels int) Engine {
		st := sonic.NewSonicStream(sampleRate, channels)
		st.SetQuality(quality == QualityHigh)
		return &sonicEngine{st: st, channels: channels}
	}
}

func (e *sonicEngine) PutSamples(in []int16, frames int) error {
	// Write both enqueues and runs the engine over the new input.
	return e.st.Write(in[:frames*e.channels])
}

func (e *sonicEngine) ReceiveSamples(dst []int16, maxFrames int) (int, error) {
	avail := e.st.NumOutputSamples()
	if avail <= 0 {
		return 0, nil
	}
	n := maxFrames
	if n > avail {
		n = avail
	}
	out, err := e.st.Read(n)
	if err != nil {
		return 0, err
	}
	frames := len(out) / e.channels
	copy(dst, out[:frames*e.channels])
	return frames, nil
}

func (e *sonicEngine) SetTempo(ratio float64) {
	e.st.SetSpeed(ratio)
}

func (e *sonicEngine) SetPitchSemitones(semitones float64) {
	e.st.SetPitch(semitonesToPitchRatio(semitones))
}

func (e *sonicEngine) Flush() error {
	return e.st.Flush()
}

func (e *sonicEngine) Clear() {
	e.st.Reset()
}

func (e *sonicEngine) OutputFrames() int {
	return e.st.NumOutputSamples()
}
