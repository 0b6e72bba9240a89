package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"consentd/internal/eventbus"
)

func TestRingBuffer_FIFOAndWraparound(t *testing.T) {
	b := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c"} {
		assert.False(t, b.Enqueue(eventbus.Event{Name: name}))
	}

	got := b.DequeueBatch(2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)

	b.Enqueue(eventbus.Event{Name: "d"})
	b.Enqueue(eventbus.Event{Name: "e"})
	assert.Equal(t, 3, b.Len())

	assert.True(t, b.Enqueue(eventbus.Event{Name: "f"}), "full buffer drops oldest")
	assert.Equal(t, int64(1), b.Dropped())

	var names []string
	for _, e := range b.DequeueBatch(10) {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"d", "e", "f"}, names)
	assert.Nil(t, b.DequeueBatch(1))
}
