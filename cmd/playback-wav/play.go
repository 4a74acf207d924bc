package main

import (
	"encoding/binary"
	"io"
	"log"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/audiokit/playback"
)

const (
	bytesPerFloat32 = 4
	playPollPeriod  = 10 * time.Millisecond
)

// playLive renders the generator to the default audio device until
// playback finishes, the duration elapses, or forever when looping with
// no duration.
func playLive(gen *playback.Generator, buf *playback.Buffer, events *playback.EventQueue, duration float64, verbose bool) error {
	op := &oto.NewContextOptions{
		SampleRate:   buf.SampleRate(),
		ChannelCount: buf.Channels(),
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	var maxFrames int64 = -1
	if duration > 0 {
		maxFrames = int64(duration * float64(buf.SampleRate()))
	}

	r := &blockReader{
		gen:       gen,
		events:    events,
		channels:  buf.Channels(),
		block:     make([]float32, gen.BlockSize()*buf.Channels()),
		maxFrames: maxFrames,
	}

	player := ctx.NewPlayer(r)
	player.Play()
	for player.IsPlaying() {
		time.Sleep(playPollPeriod)
	}

	if verbose {
		d := gen.Diagnostics()
		log.Printf("Diagnostics: underruns=%d fallbacks=%d clamped=%d nan=%d",
			d.Underruns, d.Fallbacks, d.Clamped, d.NaNReplaced)
	}
	return player.Close()
}

// blockReader adapts the generator's block loop to the pull-style
// io.Reader the audio device consumes, encoding float32 little-endian.
type blockReader struct {
	gen      *playback.Generator
	events   *playback.EventQueue
	channels int
	block    []float32

	pending   []byte
	encoded   []byte
	maxFrames int64 // -1 means until finished
	served    int64
	done      bool
}

func (r *blockReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		r.renderBlock()
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *blockReader) renderBlock() {
	clear(r.block)
	r.gen.GenerateBlock(r.block, nil)

	if len(r.encoded) < len(r.block)*bytesPerFloat32 {
		r.encoded = make([]byte, len(r.block)*bytesPerFloat32)
	}
	for i, v := range r.block {
		binary.LittleEndian.PutUint32(r.encoded[i*bytesPerFloat32:], math.Float32bits(v))
	}
	r.pending = r.encoded[:len(r.block)*bytesPerFloat32]

	for _, e := range r.events.Drain() {
		if e.Kind == playback.EventFinished {
			r.done = true
		}
	}
	r.served += int64(len(r.block) / r.channels)
	if r.maxFrames >= 0 && r.served >= r.maxFrames {
		r.done = true
	}
}
