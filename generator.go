package playback

import (
	"fmt"
	"math"

	"github.com/audiokit/playback/internal/diag"
	"github.com/audiokit/playback/internal/engine"
	"github.com/audiokit/playback/internal/simdops"
	"github.com/audiokit/playback/internal/stretch"
)

// Generator produces fixed-size blocks of interleaved float32 audio
// from a bound Buffer, applying pitch, speed, looping and eventing.
//
// GenerateBlock must be called from exactly one goroutine (the audio
// goroutine) and never blocks. All property setters and Seek may be
// called concurrently from other goroutines; they hand their values to
// the audio goroutine through atomic snapshots.
type Generator struct {
	cfg      Config
	ctrl     *controlPlane
	counters *diag.Counters
	ops      *simdops.Ops
	factory  stretch.EngineFactory

	// State below is owned by the audio goroutine.
	buf       *Buffer
	pos       engine.Position
	finished  bool
	scratch   []int16
	inScratch []int16
	procs     [3]*stretch.Processor
}

// New constructs a generator from the configuration. The returned
// generator has no buffer bound; until SetBuffer is called every block
// is a silent no-op.
func New(cfg Config) (*Generator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:      cfg,
		ctrl:     newControlPlane(),
		counters: diag.NewCounters(),
		ops:      simdops.Float32Ops(),
		factory:  stretch.SonicFactory(stretch.Quality(cfg.Quality)),
	}, nil
}

// BlockSize returns the number of frames produced per block.
func (g *Generator) BlockSize() int { return g.cfg.BlockSize }

// Channels returns the channel count of the currently set buffer, or 0
// when none is set. Control-plane view; safe from any goroutine.
func (g *Generator) Channels() int {
	if b := g.ctrl.load().buffer; b != nil {
		return b.channels
	}
	return 0
}

// SetBuffer binds a PCM buffer. The audio goroutine picks the change up
// at its next block: stretch history is discarded and playback seeks to
// a pending explicit position, or to 0. Passing nil unbinds.
func (g *Generator) SetBuffer(b *Buffer) {
	g.ctrl.update(func(p *props) { p.buffer = b })
}

// SetPitch sets the pitch ratio. In classic mode it scales both pitch
// and speed; in time-stretch mode pitch alone.
func (g *Generator) SetPitch(ratio float64) error {
	if math.IsNaN(ratio) || !validRatio(ratio) {
		return fmt.Errorf("%w: pitch ratio %g not in [%g, %g]", ErrInvalidParam, ratio, MinRatio, MaxRatio)
	}
	g.ctrl.update(func(p *props) { p.pitch = ratio })
	return nil
}

// SetSpeed sets the speed multiplier. Only meaningful in time-stretch
// mode; classic mode ignores it.
func (g *Generator) SetSpeed(ratio float64) error {
	if math.IsNaN(ratio) || !validRatio(ratio) {
		return fmt.Errorf("%w: speed multiplier %g not in [%g, %g]", ErrInvalidParam, ratio, MinRatio, MaxRatio)
	}
	g.ctrl.update(func(p *props) { p.speed = ratio })
	return nil
}

// SetLooping toggles loop playback.
func (g *Generator) SetLooping(loop bool) {
	g.ctrl.update(func(p *props) { p.looping = loop })
}

// SetMode selects classic or time-stretch interpretation of pitch and
// speed.
func (g *Generator) SetMode(m Mode) {
	g.ctrl.update(func(p *props) { p.mode = m })
}

// Seek requests a jump to the given position in seconds. The jump is
// applied by the audio goroutine at its next block and clears the
// finished state. Seeking past the end parks playback on the last real
// frame. Calling Seek with no buffer bound is a usage error.
func (g *Generator) Seek(seconds float64) error {
	if g.ctrl.load().buffer == nil {
		return ErrNoBuffer
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: seek position %g", ErrInvalidParam, seconds)
	}
	g.ctrl.requestSeek(seconds)
	return nil
}

// PositionFrames returns the playback position, in frames, as of the
// most recently completed block.
func (g *Generator) PositionFrames() uint64 { return g.ctrl.positionFrames() }

// PositionSeconds returns the playback position in seconds as of the
// most recently completed block.
func (g *Generator) PositionSeconds() float64 {
	b := g.ctrl.load().buffer
	if b == nil {
		return 0
	}
	return g.ctrl.positionSeconds(b.sampleRate)
}

// StartLingering switches the generator into run-out mode: looping is
// disabled and the remaining natural playback time is reported so the
// host knows how long to keep the generator alive before teardown.
// Returns false when no buffer is bound.
func (g *Generator) StartLingering() (float64, bool) {
	g.ctrl.update(func(p *props) { p.looping = false })
	p := g.ctrl.load()
	if p.buffer == nil {
		return 0, false
	}

	frames := p.buffer.frames
	current := g.ctrl.positionFrames()
	if current >= frames {
		return 0, true
	}
	rate := p.pitch
	if p.mode == ModeTimeStretch {
		rate = p.speed
	}
	if rate <= 0 {
		rate = 1
	}
	remaining := float64(frames-current) / float64(p.buffer.sampleRate)
	return remaining / rate, true
}

// Diagnostics returns a snapshot of the generator's counters.
func (g *Generator) Diagnostics() diag.Snapshot { return g.counters.Snapshot() }

// DiagnosticNotes drains queued diagnostic messages. Control-plane use.
func (g *Generator) DiagnosticNotes() []string { return g.counters.DrainNotes() }

// BlockEnergy returns the summed squared output of the last block, for
// host-side metering.
func (g *Generator) BlockEnergy() float64 {
	return math.Float64frombits(g.counters.BlockEnergyBits())
}

// GenerateBlock mixes one block of audio into out, additively. out must
// hold BlockSize()*Channels() floats. gain supplies per-frame gain; nil
// means unity. The call never blocks and recovers every runtime
// condition locally; a block that cannot produce audio leaves out
// untouched.
func (g *Generator) GenerateBlock(out []float32, gain GainFunc) {
	if gain == nil {
		gain = Unity
	}

	p := g.ctrl.load()
	g.reconcile(p)

	if g.buf == nil || g.buf.channels == 0 || g.buf.frames == 0 || g.finished {
		g.ctrl.publishPosition(g.pos.Scaled())
		return
	}

	blockSize := g.cfg.BlockSize
	scaledLen := g.buf.frames << engine.PosScaleBits

	var increment uint64
	switch {
	case p.mode == ModeClassic && p.pitch != 1:
		increment = engine.RateIncrement(p.pitch)
		g.generateBend(out, p, increment, scaledLen, gain)
	case p.mode == ModeTimeStretch && (p.pitch != 1 || p.speed != 1):
		increment = engine.RateIncrement(p.speed)
		g.generateStretch(out, p, increment, scaledLen, gain)
	default:
		increment = engine.PosScale
		g.generateDirect(out, p, gain)
	}

	// Loop and finish edge triggers, strictly after the audio.
	newScaled := g.pos.Advance(increment, blockSize)
	if p.looping {
		for crossings := newScaled / scaledLen; crossings > 0; crossings-- {
			g.emitLooped()
		}
		g.pos.WrapTo(g.buf.frames)
	} else if newScaled >= scaledLen {
		g.pos.ClampToEnd(g.buf.frames)
		g.finished = true
		g.emitFinished()
	}

	g.counters.AddBlockServed()
	energy := g.ops.DotProductUnsafe(out, out)
	g.counters.SetBlockEnergy(math.Float64bits(float64(energy)))
	g.ctrl.publishPosition(g.pos.Scaled())
}

// reconcile applies control-plane changes before generation: a buffer
// swap discards stretch history and reseeks, a pending seek repositions
// and rearms the finish trigger.
func (g *Generator) reconcile(p *props) {
	if p.buffer != g.buf {
		old := g.buf
		g.buf = p.buffer
		g.finished = false
		if g.buf != nil && old != nil &&
			g.buf.sampleRate == old.sampleRate && g.buf.channels == old.channels {
			// Same format: keep the processors and their allocations,
			// just drop the stretch history of the previous source.
			for _, proc := range g.procs {
				if proc != nil {
					proc.Reset()
				}
			}
		} else {
			g.procs = [3]*stretch.Processor{}
		}
		if g.buf != nil {
			spanSamples := (g.cfg.BlockSize*int(MaxRatio) + 4) * g.buf.channels
			g.scratch = make([]int16, spanSamples)
			g.inScratch = make([]int16, spanSamples)
			if seconds, ok := g.ctrl.takeSeek(); ok {
				g.applySeek(seconds)
			} else {
				g.pos.SeekFrame(0, g.buf.frames)
			}
		} else {
			g.pos.SetScaled(0)
		}
		return
	}

	if seconds, ok := g.ctrl.takeSeek(); ok && g.buf != nil {
		g.applySeek(seconds)
		g.finished = false
	}
}

func (g *Generator) applySeek(seconds float64) {
	frame := uint64(seconds * float64(g.buf.sampleRate))
	g.pos.SeekFrame(frame, g.buf.frames)
}

// generateDirect is the no-resampling fast path: position advances one
// frame per output frame and samples are copied with gain. Bit-exact
// with respect to the source.
func (g *Generator) generateDirect(out []float32, p *props, gain GainFunc) {
	channels := g.buf.channels
	frame := g.pos.FrameIndex()

	if !p.looping {
		avail := g.buf.frames - frame
		run := g.cfg.BlockSize
		if uint64(run) > avail {
			run = int(avail)
		}
		if run > 0 {
			src := g.buf.slice(frame, run, false, g.scratch)
			engine.AccumulateCopy(out, src, channels, run, 0, gain)
		}
		return
	}

	// Looping: fill the whole block, wrapping at the loop boundary. The
	// gain callback sees block-relative frame indices across the wrap.
	written := 0
	for written < g.cfg.BlockSize {
		run := int(g.buf.frames - frame)
		if rem := g.cfg.BlockSize - written; run > rem {
			run = rem
		}
		src := g.buf.slice(frame, run, false, g.scratch)
		engine.AccumulateCopy(out[written*channels:], src, channels, run, written, gain)
		written += run
		frame = 0
	}
}

// generateBend is the interpolating pitch-bend path for classic mode.
func (g *Generator) generateBend(out []float32, p *props, delta, scaledLen uint64, gain GainFunc) {
	params := engine.ComputeBendParams(g.pos.Scaled(), delta, scaledLen, g.cfg.BlockSize, p.looping)
	if params.Iterations == 0 {
		return
	}

	var src []int16
	if p.looping && params.SpanStart+uint64(params.SpanFrames) > g.buf.frames {
		src = g.buf.sliceWrapped(params.SpanStart, params.SpanFrames, g.scratch)
	} else {
		src = g.buf.slice(params.SpanStart, params.SpanFrames, params.IncludeImplicitZero, g.scratch)
	}

	switch g.cfg.Interpolation {
	case InterpCubic:
		engine.BendCubic(out, src, g.buf.channels, params, delta, gain)
	default:
		engine.BendLinear(out, src, g.buf.channels, params, delta, gain)
	}
}

// generateStretch feeds the time-stretch adapter for the current
// purpose and mixes its drained output.
func (g *Generator) generateStretch(out []float32, p *props, increment, scaledLen uint64, gain GainFunc) {
	purpose := stretch.Combined
	switch {
	case p.speed == 1:
		purpose = stretch.PitchOnly
	case p.pitch == 1:
		purpose = stretch.SpeedOnly
	}

	proc := g.processor(purpose)
	proc.Configure(p.pitch, p.speed)

	oldFrame := g.pos.FrameIndex()
	newScaled := g.pos.Scaled() + increment*uint64(g.cfg.BlockSize)
	newFrame := newScaled >> engine.PosScaleBits

	exhausted := false
	var in []int16
	inFrames := 0
	if p.looping {
		inFrames = int(newFrame - oldFrame)
		if inFrames > 0 {
			in = g.buf.sliceWrapped(oldFrame, inFrames, g.inScratch)
		}
	} else {
		if newScaled >= scaledLen {
			exhausted = true
			newFrame = g.buf.frames
		}
		inFrames = int(newFrame - oldFrame)
		if inFrames > 0 {
			in = g.buf.slice(oldFrame, inFrames, false, g.inScratch)
		}
	}

	proc.ProcessBlock(out, in, inFrames, exhausted, gain)
}

// processor returns the stretch processor for a purpose, constructing
// it on first need. Construction happens at most three times per bound
// buffer; the steady-state path never allocates.
func (g *Generator) processor(purpose stretch.Purpose) *stretch.Processor {
	if g.procs[purpose] == nil {
		g.procs[purpose] = stretch.NewProcessor(
			purpose, g.buf.sampleRate, g.buf.channels, g.cfg.BlockSize,
			g.cfg.internalTuning(), g.counters, g.factory,
		)
	}
	return g.procs[purpose]
}

func (g *Generator) emitLooped() {
	if g.cfg.Events != nil {
		g.cfg.Events.Looped(g)
	}
}

func (g *Generator) emitFinished() {
	if g.cfg.Events != nil {
		g.cfg.Events.Finished(g)
	}
}
