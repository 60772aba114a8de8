package hsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRingBoundsAndOverwrite(t *testing.T) {
	r := newLogRing(3)
	for i := 0; i < 5; i++ {
		r.append(LogRec{Kind: RecMessage, What: i})
	}
	assert.Equal(t, 3, r.recSize())
	assert.Equal(t, uint64(5), r.recCount())

	recs := r.copyAll()
	require.Len(t, recs, 3)
	// Oldest two entries (What 0, 1) were evicted; ring holds 2,3,4.
	assert.Equal(t, 2, recs[0].What)
	assert.Equal(t, 3, recs[1].What)
	assert.Equal(t, 4, recs[2].What)
}

func TestLogRingSetCapacityShrinkKeepsMostRecent(t *testing.T) {
	r := newLogRing(5)
	for i := 0; i < 5; i++ {
		r.append(LogRec{Kind: RecMessage, What: i})
	}
	r.setCapacity(2)
	recs := r.copyAll()
	require.Len(t, recs, 2)
	assert.Equal(t, 3, recs[0].What)
	assert.Equal(t, 4, recs[1].What)
}

func TestLogRingGetByIndex(t *testing.T) {
	r := newLogRing(4)
	r.append(LogRec{Kind: RecEnter, Handler: "A"})
	r.append(LogRec{Kind: RecExit, Handler: "A"})

	rec, ok := r.get(1)
	require.True(t, ok)
	assert.Equal(t, RecExit, rec.Kind)

	_, ok = r.get(5)
	assert.False(t, ok)
}

func TestRecKindString(t *testing.T) {
	assert.Equal(t, "enter", RecEnter.String())
	assert.Equal(t, "exit", RecExit.String())
	assert.Equal(t, "onQuitting", RecOnQuitting.String())
	assert.Equal(t, "onHalting", RecOnHalting.String())
	assert.Equal(t, "message", RecMessage.String())
}
