package playback

import (
	"sync"
	"sync/atomic"

	"github.com/audiokit/playback/internal/engine"
)

// props is one immutable snapshot of the externally-settable properties.
// Control-plane writers publish a fresh copy; the audio goroutine loads
// the pointer once per block and never sees a torn update.
type props struct {
	buffer  *Buffer
	pitch   float64
	speed   float64
	looping bool
	mode    Mode
}

// controlPlane is the seam between control threads and the audio
// goroutine. Properties travel as copy-on-write snapshots, a pending
// seek as a consume-once pointer, and the playback position back out as
// packed atomic bits. Nothing here can block the audio goroutine.
type controlPlane struct {
	current atomic.Pointer[props]

	// pendingSeek holds a target in seconds until the audio goroutine
	// consumes it with Swap(nil). A second seek before consumption simply
	// replaces the first.
	pendingSeek atomic.Pointer[float64]

	// position is the scaled playback position republished after every
	// block for host-side reads.
	position atomic.Uint64

	// mu serializes control-plane writers only. The audio goroutine
	// never takes it.
	mu sync.Mutex
}

func newControlPlane() *controlPlane {
	cp := &controlPlane{}
	cp.current.Store(&props{pitch: 1, speed: 1, mode: ModeClassic})
	return cp
}

// update publishes a modified copy of the current snapshot. Writers are
// serialized so concurrent setters cannot lose each other's fields.
func (cp *controlPlane) update(mutate func(*props)) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	next := *cp.current.Load()
	mutate(&next)
	cp.current.Store(&next)
}

// load returns the current snapshot. Audio-goroutine side.
func (cp *controlPlane) load() *props { return cp.current.Load() }

// requestSeek stores a seek target for the audio goroutine.
func (cp *controlPlane) requestSeek(seconds float64) {
	cp.pendingSeek.Store(&seconds)
}

// takeSeek consumes the pending seek, if any. Audio-goroutine side.
func (cp *controlPlane) takeSeek() (float64, bool) {
	if p := cp.pendingSeek.Swap(nil); p != nil {
		return *p, true
	}
	return 0, false
}

// publishPosition makes the scaled position visible to host threads.
func (cp *controlPlane) publishPosition(scaled uint64) {
	cp.position.Store(scaled)
}

// positionFrames returns the last published position as a frame index.
func (cp *controlPlane) positionFrames() uint64 {
	return cp.position.Load() >> engine.PosScaleBits
}

// positionSeconds returns the last published position in seconds at the
// given sample rate.
func (cp *controlPlane) positionSeconds(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	scaled := cp.position.Load()
	return float64(scaled) / engine.PosScale / float64(sampleRate)
}
