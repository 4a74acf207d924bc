package diag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersSnapshot(t *testing.T) {
	c := NewCounters()
	c.AddUnderrun()
	c.AddUnderrun()
	c.AddFallback()
	c.AddNaNReplaced()
	c.AddClamped()
	c.AddBlockServed()

	s := c.Snapshot()
	assert.Equal(t, uint64(2), s.Underruns)
	assert.Equal(t, uint64(1), s.Fallbacks)
	assert.Equal(t, uint64(1), s.NaNReplaced)
	assert.Equal(t, uint64(1), s.Clamped)
	assert.Equal(t, uint64(1), s.BlocksServed)
}

func TestBlockEnergyRoundTrip(t *testing.T) {
	c := NewCounters()
	c.SetBlockEnergy(math.Float64bits(0.125))
	assert.Equal(t, 0.125, math.Float64frombits(c.BlockEnergyBits()))
}

func TestNotesDropOnOverflow(t *testing.T) {
	c := NewCounters()
	for i := 0; i < noteBacklog*2; i++ {
		c.Note("overflowing note")
	}
	notes := c.DrainNotes()
	assert.Len(t, notes, noteBacklog, "notes beyond the backlog are dropped")
	assert.Empty(t, c.DrainNotes(), "drain consumes everything")
}

func TestNoteNeverBlocks(t *testing.T) {
	c := NewCounters()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			c.Note("spam")
		}
		close(done)
	}()
	<-done
}
