package stretch

// fifo is a frame-oriented FIFO for interleaved int16 samples, used to
// accumulate input between stretch-engine feeds. Capacity is a power of
// two so read/write positions wrap with a mask instead of a modulo.
//
// The buffer is owned by a single processor on the audio goroutine; it
// needs no locking. It grows only when a write exceeds capacity, which
// in steady state never happens after the first few blocks.
type fifo struct {
	data     []int16
	mask     uint32
	channels int
	size     int // samples
	readPos  uint32
	writePos uint32
}

func newFIFO(channels, capacityFrames int) *fifo {
	cap2 := 1
	for cap2 < capacityFrames*channels {
		cap2 <<= 1
	}
	return &fifo{
		data:     make([]int16, cap2),
		mask:     uint32(cap2 - 1),
		channels: channels,
	}
}

// Frames returns the number of whole frames available for reading.
func (f *fifo) Frames() int { return f.size / f.channels }

// Write appends frames*channels samples from src.
func (f *fifo) Write(src []int16, frames int) {
	n := frames * f.channels
	for f.size+n > len(f.data) {
		f.grow()
	}
	for i := 0; i < n; i++ {
		f.data[f.writePos&f.mask] = src[i]
		f.writePos++
	}
	f.size += n
}

// Read copies up to frames whole frames into dst and consumes them.
// Returns the number of frames actually read.
func (f *fifo) Read(dst []int16, frames int) int {
	if avail := f.Frames(); frames > avail {
		frames = avail
	}
	n := frames * f.channels
	for i := 0; i < n; i++ {
		dst[i] = f.data[f.readPos&f.mask]
		f.readPos++
	}
	f.size -= n
	return frames
}

// Clear drops all buffered samples.
func (f *fifo) Clear() {
	f.size = 0
	f.readPos = 0
	f.writePos = 0
}

func (f *fifo) grow() {
	newData := make([]int16, len(f.data)*2)
	for i := 0; i < f.size; i++ {
		newData[i] = f.data[(f.readPos+uint32(i))&f.mask]
	}
	f.data = newData
	f.mask = uint32(len(newData) - 1)
	f.readPos = 0
	f.writePos = uint32(f.size)
}
