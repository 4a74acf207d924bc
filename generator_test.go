package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiokit/playback/internal/testutil"
)

func newTestGenerator(t *testing.T, cfg Config) (*Generator, *EventQueue) {
	t.Helper()
	events := NewEventQueue(256)
	cfg.Events = events
	gen, err := New(cfg)
	require.NoError(t, err)
	return gen, events
}

func generate(gen *Generator, out []float32) {
	clear(out)
	gen.GenerateBlock(out, nil)
}

func countKinds(events []Event) (loops, finishes int) {
	for _, e := range events {
		switch e.Kind {
		case EventLooped:
			loops++
		case EventFinished:
			finishes++
		}
	}
	return loops, finishes
}

func TestGenerateNoBufferIsSilentNoOp(t *testing.T) {
	gen, events := newTestGenerator(t, Config{})
	out := make([]float32, gen.BlockSize())
	gen.GenerateBlock(out, nil)

	testutil.AssertSilent(t, out, 0)
	assert.Empty(t, events.Drain())
	assert.Zero(t, gen.Diagnostics().BlocksServed)
}

func TestGenerateDirectBitExact(t *testing.T) {
	const frames = 4096
	src := testutil.RampInt16(frames)
	buf, err := NewBuffer(44100, 1, src)
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{})
	gen.SetBuffer(buf)

	out := make([]float32, gen.BlockSize())
	for block := 0; block < frames/gen.BlockSize(); block++ {
		generate(gen, out)
		for i := range out {
			want := float32(src[block*gen.BlockSize()+i]) / 32768
			if out[i] != want {
				t.Fatalf("block %d sample %d: got %v want %v", block, i, out[i], want)
			}
		}
	}
}

func TestGenerateIsAdditive(t *testing.T) {
	buf, err := NewBuffer(44100, 1, []int16{16384, 16384, 16384, 16384})
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 4})
	gen.SetBuffer(buf)

	out := []float32{0.25, 0.25, 0.25, 0.25}
	gen.GenerateBlock(out, nil)
	for i := range out {
		assert.InDelta(t, 0.75, out[i], 1e-6, "sample %d", i)
	}
}

func TestGenerateAppliesGainFunc(t *testing.T) {
	buf, err := NewBuffer(44100, 1, []int16{16384, 16384, 16384, 16384})
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 4})
	gen.SetBuffer(buf)

	out := make([]float32, 4)
	gen.GenerateBlock(out, ConstGain(0.5))
	for i := range out {
		assert.InDelta(t, 0.25, out[i], 1e-6)
	}
}

func TestConcreteScenario48kFinishedOnce(t *testing.T) {
	const frames = 48000
	buf, err := NewBuffer(48000, 1, testutil.SineInt16(frames, 1, 48000, 440, 0.5))
	require.NoError(t, err)

	gen, events := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	require.NoError(t, gen.Seek(0))

	out := make([]float32, 1024)
	finishBlock := -1
	totalFinished := 0
	for block := 0; block < 50; block++ {
		generate(gen, out)
		_, finishes := countKinds(events.Drain())
		totalFinished += finishes
		if finishes > 0 && finishBlock == -1 {
			finishBlock = block
		}
		if finishBlock >= 0 && block > finishBlock {
			testutil.AssertSilent(t, out, 0)
		}
	}

	assert.Equal(t, 1, totalFinished, "finished fires exactly once")
	// 47 blocks of 1024 cover 48128 frames; the crossing happens in
	// block index 46.
	assert.Equal(t, 46, finishBlock)
	assert.Equal(t, uint64(frames), gen.PositionFrames(), "position clamps to end-of-data")
}

func TestLoopEventExactness(t *testing.T) {
	// A 256-frame buffer against 1024-frame blocks crosses the loop
	// boundary exactly four times per block.
	buf, err := NewBuffer(44100, 1, testutil.RampInt16(256))
	require.NoError(t, err)

	gen, events := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	gen.SetLooping(true)

	out := make([]float32, 1024)
	for block := 0; block < 3; block++ {
		generate(gen, out)
		loops, finishes := countKinds(events.Drain())
		assert.Equal(t, 4, loops, "block %d", block)
		assert.Zero(t, finishes)
	}
	assert.Equal(t, uint64(0), gen.PositionFrames(), "1024 is a multiple of 256")
}

func TestLoopingFillsWholeBlockAcrossBoundary(t *testing.T) {
	buf, err := NewBuffer(44100, 1, []int16{16384, 16384, 16384})
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 8})
	gen.SetBuffer(buf)
	gen.SetLooping(true)

	out := make([]float32, 8)
	generate(gen, out)
	for i := range out {
		assert.InDelta(t, 0.5, out[i], 1e-6, "sample %d must not be a boundary gap", i)
	}
}

func TestLoopingGainRampContinuesAcrossBoundary(t *testing.T) {
	buf, err := NewBuffer(44100, 1, []int16{16384, 16384, 16384})
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 8})
	gen.SetBuffer(buf)
	gen.SetLooping(true)

	out := make([]float32, 8)
	ramp := LinearRamp(0, 1, 8)
	gen.GenerateBlock(out, ramp)

	// The gain callback sees block-relative frame indices; the ramp does
	// not restart at the loop seam.
	for i := range out {
		assert.InDelta(t, 0.5*float64(ramp(i)), float64(out[i]), 1e-6, "sample %d", i)
	}
}

func TestPitchBendFinishedExactlyOncePerRatio(t *testing.T) {
	const frames = 2000
	src := testutil.SineInt16(frames, 1, 44100, 440, 0.5)

	for _, ratio := range []float64{0.1, 0.5, 1.3, 2.0, 4.0} {
		buf, err := NewBuffer(44100, 1, src)
		require.NoError(t, err)

		gen, events := newTestGenerator(t, Config{BlockSize: 256})
		gen.SetBuffer(buf)
		require.NoError(t, gen.SetPitch(ratio))

		out := make([]float32, 256)
		totalFinished := 0
		for block := 0; block < 1000 && totalFinished == 0; block++ {
			generate(gen, out)
			testutil.AssertNoNaNOrInf(t, out)
			_, finishes := countKinds(events.Drain())
			totalFinished += finishes
		}
		require.Equal(t, 1, totalFinished, "ratio %v", ratio)

		// The trigger must not repeat.
		for block := 0; block < 3; block++ {
			generate(gen, out)
			testutil.AssertSilent(t, out, 0)
		}
		_, finishes := countKinds(events.Drain())
		assert.Zero(t, finishes, "ratio %v: finished repeated", ratio)
	}
}

func TestPitchBendHalfRateValues(t *testing.T) {
	buf, err := NewBuffer(44100, 1, []int16{0, 8192, 16384, 24576, 32000, 32000, 32000, 32000})
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 4})
	gen.SetBuffer(buf)
	require.NoError(t, gen.SetPitch(0.5))

	out := make([]float32, 4)
	generate(gen, out)

	want := []float32{0, 4096.0 / 32768, 8192.0 / 32768, 12288.0 / 32768}
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-5, "sample %d", i)
	}
}

func TestSeekRearmsFinish(t *testing.T) {
	const frames = 2048
	buf, err := NewBuffer(44100, 1, testutil.SineInt16(frames, 1, 44100, 440, 0.5))
	require.NoError(t, err)

	gen, events := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)

	out := make([]float32, 1024)
	generate(gen, out)
	generate(gen, out)
	_, finishes := countKinds(events.Drain())
	require.Equal(t, 1, finishes)

	require.NoError(t, gen.Seek(0))
	generate(gen, out)
	assert.Greater(t, testutil.RMS(out), 0.1, "seek resumes audio after finish")
}

func TestSeekClampsPastEnd(t *testing.T) {
	buf, err := NewBuffer(44100, 1, testutil.SineInt16(44100, 1, 44100, 440, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{})
	gen.SetBuffer(buf)
	require.NoError(t, gen.Seek(100))

	out := make([]float32, gen.BlockSize())
	generate(gen, out)
	assert.Equal(t, uint64(44100), gen.PositionFrames(), "parked on the end after the clamped block")
}

func TestSeekValidation(t *testing.T) {
	gen, _ := newTestGenerator(t, Config{})
	assert.ErrorIs(t, gen.Seek(0), ErrNoBuffer)

	buf, err := NewBuffer(44100, 1, make([]int16, 128))
	require.NoError(t, err)
	gen.SetBuffer(buf)
	assert.ErrorIs(t, gen.Seek(-1), ErrInvalidParam)
	assert.NoError(t, gen.Seek(0))
}

func TestPositionPublishedAfterBlocks(t *testing.T) {
	buf, err := NewBuffer(44100, 1, testutil.SineInt16(44100, 1, 44100, 440, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)

	out := make([]float32, 1024)
	for i := 0; i < 10; i++ {
		generate(gen, out)
	}
	assert.Equal(t, uint64(10240), gen.PositionFrames())
	assert.InDelta(t, 10240.0/44100.0, gen.PositionSeconds(), 1e-9)
}

func TestStretchSpeedPreservesPitch(t *testing.T) {
	const (
		sampleRate = 44100
		freq       = 440.0
	)
	buf, err := NewBuffer(sampleRate, 1, testutil.SineInt16(sampleRate*2, 1, sampleRate, freq, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	gen.SetMode(ModeTimeStretch)
	require.NoError(t, gen.SetSpeed(1.25))

	out := make([]float32, 1024)
	var tail []float32
	for block := 0; block < 40; block++ {
		generate(gen, out)
		testutil.AssertNoNaNOrInf(t, out)
		if block >= 20 {
			tail = append(tail, out...)
		}
	}

	require.NotEmpty(t, tail)
	assert.Greater(t, testutil.RMS(tail), 0.05, "stretch output carries energy after priming")
	assert.InDelta(t, freq, testutil.DominantFrequency(tail, sampleRate),
		testutil.FrequencyToleranceHz, "speed change must not move the pitch")
}

func TestStretchCombinedShiftsPitchIndependently(t *testing.T) {
	const (
		sampleRate = 44100
		freq       = 440.0
		pitch      = 1.5
		speed      = 0.8
	)
	buf, err := NewBuffer(sampleRate, 1, testutil.SineInt16(sampleRate*3, 1, sampleRate, freq, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	gen.SetMode(ModeTimeStretch)
	require.NoError(t, gen.SetPitch(pitch))
	require.NoError(t, gen.SetSpeed(speed))

	out := make([]float32, 1024)
	var tail []float32
	for block := 0; block < 60; block++ {
		generate(gen, out)
		testutil.AssertNoNaNOrInf(t, out)
		testutil.AssertAllInRange(t, out, -1, 1)
		if block >= 30 {
			tail = append(tail, out...)
		}
	}

	require.NotEmpty(t, tail)
	assert.Greater(t, testutil.RMS(tail), 0.05, "combined path carries energy after priming")
	assert.InDelta(t, freq*pitch, testutil.DominantFrequency(tail, sampleRate),
		testutil.FrequencyToleranceHz, "pitch moves independently of speed")
}

func TestStretchOutputStaysInRange(t *testing.T) {
	buf, err := NewBuffer(44100, 1, testutil.SineInt16(44100, 1, 44100, 440, 0.95))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	gen.SetMode(ModeTimeStretch)
	require.NoError(t, gen.SetPitch(1.5))

	out := make([]float32, 1024)
	for block := 0; block < 30; block++ {
		generate(gen, out)
		testutil.AssertAllInRange(t, out, -1, 1)
	}
}

func TestBufferSwapDiscardsStretchHistory(t *testing.T) {
	const sampleRate = 44100
	tone, err := NewBuffer(sampleRate, 1, testutil.SineInt16(sampleRate, 1, sampleRate, 440, 0.5))
	require.NoError(t, err)
	silence, err := NewBuffer(sampleRate, 1, make([]int16, sampleRate))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(tone)
	gen.SetMode(ModeTimeStretch)
	require.NoError(t, gen.SetSpeed(1.25))

	out := make([]float32, 1024)
	for block := 0; block < 20; block++ {
		generate(gen, out)
	}

	gen.SetBuffer(silence)
	for block := 0; block < 20; block++ {
		generate(gen, out)
		testutil.AssertSilent(t, out, 1e-4)
	}
}

func TestBufferSwapAppliesPendingSeek(t *testing.T) {
	first, err := NewBuffer(44100, 1, make([]int16, 44100))
	require.NoError(t, err)
	second, err := NewBuffer(44100, 1, make([]int16, 44100))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(first)
	out := make([]float32, 1024)
	generate(gen, out)

	// Seek and swap land in the same reconciliation: the new buffer
	// starts at the seek target, not at zero.
	require.NoError(t, gen.Seek(0.5))
	gen.SetBuffer(second)
	generate(gen, out)
	assert.Equal(t, uint64(22050+1024), gen.PositionFrames())
}

func TestStartLingering(t *testing.T) {
	const sampleRate = 44100
	buf, err := NewBuffer(sampleRate, 1, testutil.SineInt16(sampleRate, 1, sampleRate, 440, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)
	gen.SetLooping(true)

	out := make([]float32, 1024)
	for i := 0; i < 10; i++ {
		generate(gen, out)
	}

	remaining, ok := gen.StartLingering()
	require.True(t, ok)
	want := float64(sampleRate-10240) / float64(sampleRate)
	assert.InDelta(t, want, remaining, 1e-9)

	// Lingering disabled looping, so playback now runs out naturally.
	for i := 0; i < 40; i++ {
		generate(gen, out)
	}
	assert.Equal(t, uint64(sampleRate), gen.PositionFrames())
}

func TestStartLingeringScalesByRate(t *testing.T) {
	const sampleRate = 44100
	buf, err := NewBuffer(sampleRate, 1, testutil.SineInt16(sampleRate, 1, sampleRate, 440, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{})
	gen.SetBuffer(buf)
	require.NoError(t, gen.SetPitch(2.0))

	remaining, ok := gen.StartLingering()
	require.True(t, ok)
	assert.InDelta(t, 0.5, remaining, 1e-9, "double rate halves the remaining time")
}

func TestStartLingeringWithoutBuffer(t *testing.T) {
	gen, _ := newTestGenerator(t, Config{})
	_, ok := gen.StartLingering()
	assert.False(t, ok)
}

func TestChannelsReflectsBuffer(t *testing.T) {
	gen, _ := newTestGenerator(t, Config{})
	assert.Zero(t, gen.Channels())

	buf, err := NewBuffer(44100, 2, make([]int16, 256))
	require.NoError(t, err)
	gen.SetBuffer(buf)
	assert.Equal(t, 2, gen.Channels())
}

func TestBlockEnergyMetering(t *testing.T) {
	buf, err := NewBuffer(44100, 1, testutil.SineInt16(4096, 1, 44100, 440, 0.5))
	require.NoError(t, err)

	gen, _ := newTestGenerator(t, Config{BlockSize: 1024})
	gen.SetBuffer(buf)

	out := make([]float32, 1024)
	generate(gen, out)
	assert.Greater(t, gen.BlockEnergy(), 0.0)
	assert.Equal(t, uint64(1), gen.Diagnostics().BlocksServed)
}
