package playback

import (
	"errors"
	"fmt"

	"github.com/audiokit/playback/internal/stretch"
)

// Sentinel errors returned by the package. Wrap with errors.Is to test.
var (
	// ErrInvalidConfig indicates a Config field is out of range.
	ErrInvalidConfig = errors.New("playback: invalid configuration")

	// ErrNoBuffer indicates an operation that requires a bound buffer was
	// called before one was set.
	ErrNoBuffer = errors.New("playback: no buffer assigned")

	// ErrInvalidPCM indicates buffer construction received malformed PCM.
	ErrInvalidPCM = errors.New("playback: invalid PCM data")

	// ErrInvalidParam indicates a pitch or speed value outside the
	// supported range.
	ErrInvalidParam = errors.New("playback: parameter out of range")
)

// Mode selects how pitch and speed properties are interpreted.
type Mode int

const (
	// ModeClassic ties pitch and speed together: the pitch ratio changes
	// both, via interpolated resampling. Zero added latency.
	ModeClassic Mode = iota

	// ModeTimeStretch decouples them: speed changes duration without
	// pitch, pitch changes tone without duration, at the cost of the
	// stretch engine's priming latency.
	ModeTimeStretch
)

// Interpolation selects the resampling kernel of the pitch-bend path.
type Interpolation int

const (
	// InterpLinear is two-tap linear interpolation.
	InterpLinear Interpolation = iota

	// InterpCubic is four-point cubic Hermite interpolation.
	InterpCubic
)

// StretchQuality selects the time-stretch engine's quality tier.
type StretchQuality int

const (
	QualityLowLatency StretchQuality = iota
	QualityBalanced
	QualityHigh
)

// Supported range for pitch ratios and speed multipliers.
const (
	MinRatio = 0.1
	MaxRatio = 10.0
)

// Default configuration values.
const (
	DefaultBlockSize = 1024
)

// StretchTuning exposes the time-stretch adapter's tunable constants.
// Zero fields take package defaults; see DefaultStretchTuning.
type StretchTuning struct {
	// ChunkFrames is the feed granularity into the stretch engine.
	ChunkFrames int

	// PrimingChunks gates output draining until this many chunks have
	// been fed.
	PrimingChunks int

	// CrossfadeFrames is the crossfade length on a pitch retune.
	CrossfadeFrames int

	// FallbackBlocks is the number of consecutive empty drains after
	// which unprocessed audio is substituted for silence.
	FallbackBlocks int

	// AntiAliasThreshold is the pitch ratio above which the low-pass
	// pre-filter engages.
	AntiAliasThreshold float64
}

// DefaultStretchTuning returns the default adapter constants.
func DefaultStretchTuning() StretchTuning {
	t := stretch.DefaultTuning()
	return StretchTuning{
		ChunkFrames:        t.ChunkFrames,
		PrimingChunks:      t.PrimingChunks,
		CrossfadeFrames:    t.CrossfadeFrames,
		FallbackBlocks:     t.FallbackBlocks,
		AntiAliasThreshold: t.AntiAliasThreshold,
	}
}

// Config describes a Generator. The zero value plus applyDefaults is a
// valid configuration producing 1024-frame blocks with linear
// interpolation and balanced stretch quality.
type Config struct {
	// BlockSize is the number of frames produced per GenerateBlock call.
	// Defaults to DefaultBlockSize.
	BlockSize int

	// Interpolation selects the pitch-bend resampling kernel.
	Interpolation Interpolation

	// Quality selects the time-stretch engine tier.
	Quality StretchQuality

	// Tuning overrides the stretch adapter constants. Zero fields take
	// defaults.
	Tuning StretchTuning

	// Events receives loop and finish notifications. May be nil.
	Events EventSink
}

// applyDefaults fills zero fields in place.
func (c *Config) applyDefaults() {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	def := DefaultStretchTuning()
	if c.Tuning.ChunkFrames == 0 {
		c.Tuning.ChunkFrames = def.ChunkFrames
		if c.Tuning.ChunkFrames < c.BlockSize {
			c.Tuning.ChunkFrames = c.BlockSize
		}
	}
	if c.Tuning.PrimingChunks == 0 {
		c.Tuning.PrimingChunks = def.PrimingChunks
	}
	if c.Tuning.CrossfadeFrames == 0 {
		c.Tuning.CrossfadeFrames = def.CrossfadeFrames
	}
	if c.Tuning.FallbackBlocks == 0 {
		c.Tuning.FallbackBlocks = def.FallbackBlocks
	}
	if c.Tuning.AntiAliasThreshold == 0 {
		c.Tuning.AntiAliasThreshold = def.AntiAliasThreshold
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d must be positive", ErrInvalidConfig, c.BlockSize)
	}
	if c.Interpolation != InterpLinear && c.Interpolation != InterpCubic {
		return fmt.Errorf("%w: unknown interpolation %d", ErrInvalidConfig, c.Interpolation)
	}
	if c.Quality < QualityLowLatency || c.Quality > QualityHigh {
		return fmt.Errorf("%w: unknown quality %d", ErrInvalidConfig, c.Quality)
	}
	if c.Tuning.ChunkFrames < c.BlockSize {
		return fmt.Errorf("%w: chunk frames %d must be >= block size %d",
			ErrInvalidConfig, c.Tuning.ChunkFrames, c.BlockSize)
	}
	if c.Tuning.PrimingChunks <= 0 {
		return fmt.Errorf("%w: priming chunks %d must be positive", ErrInvalidConfig, c.Tuning.PrimingChunks)
	}
	if c.Tuning.CrossfadeFrames < 0 {
		return fmt.Errorf("%w: crossfade frames %d must not be negative", ErrInvalidConfig, c.Tuning.CrossfadeFrames)
	}
	if c.Tuning.FallbackBlocks <= 0 {
		return fmt.Errorf("%w: fallback blocks %d must be positive", ErrInvalidConfig, c.Tuning.FallbackBlocks)
	}
	if c.Tuning.AntiAliasThreshold < 1 {
		return fmt.Errorf("%w: anti-alias threshold %g must be >= 1", ErrInvalidConfig, c.Tuning.AntiAliasThreshold)
	}
	return nil
}

// internalTuning converts to the adapter's tuning struct.
func (c *Config) internalTuning() stretch.Tuning {
	return stretch.Tuning{
		ChunkFrames:        c.Tuning.ChunkFrames,
		PrimingChunks:      c.Tuning.PrimingChunks,
		CrossfadeFrames:    c.Tuning.CrossfadeFrames,
		FallbackBlocks:     c.Tuning.FallbackBlocks,
		AntiAliasThreshold: c.Tuning.AntiAliasThreshold,
		Quality:            stretch.Quality(c.Quality),
	}
}

// validRatio reports whether a pitch or speed value is acceptable.
func validRatio(v float64) bool {
	return v >= MinRatio && v <= MaxRatio
}
