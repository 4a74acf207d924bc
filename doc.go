// Package playback generates fixed-size blocks of audio from in-memory
// PCM buffers in real time, with sample-accurate pitch shifting,
// independent time stretching, looping and finish/loop eventing.
//
// A Generator is driven from a single audio goroutine via
// GenerateBlock, which never blocks, never allocates in steady state
// and recovers every runtime condition locally. Properties (buffer,
// pitch, speed, looping, mode, seek) are set from any goroutine and
// reach the audio goroutine through lock-free atomic snapshots.
//
// Three generation paths exist. With pitch and speed at unity, a direct
// copy path reproduces the source bit-exactly. In classic mode a
// non-unity pitch ratio drives an interpolating resampler over a
// fixed-point position, changing pitch and speed together with zero
// added latency. In time-stretch mode pitch and speed are decoupled and
// routed through a streaming time-domain stretch engine, at the cost of
// a priming window during which the generator emits silence.
//
// Position is tracked as 64-bit fixed point so long playbacks at
// non-unity rates never accumulate floating-point drift.
//
// Basic use:
//
//	gen, err := playback.New(playback.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	buf, err := playback.NewBuffer(44100, 2, samples)
//	if err != nil {
//		log.Fatal(err)
//	}
//	gen.SetBuffer(buf)
//
//	out := make([]float32, gen.BlockSize()*buf.Channels())
//	for {
//		clear(out)
//		gen.GenerateBlock(out, nil)
//		// hand out to the audio device
//	}
//
// Decoding audio files into buffers lives in the decode subpackage.
package playback
