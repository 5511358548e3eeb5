package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewGeneratorValidatesDiscriminators(t *testing.T) {
	_, err := NewGenerator(32, 0)
	require.Error(t, err)
	_, err = NewGenerator(0, 32)
	require.Error(t, err)
	_, err = NewGenerator(-1, 0)
	require.Error(t, err)

	g, err := NewGenerator(3, 7)
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestNewGeneratorRejectsClockBeforeEpoch(t *testing.T) {
	g := &Generator{workerID: 1, processID: 1, now: fixedClock(time.UnixMilli(Epoch - 1))}
	require.Negative(t, g.sinceEpoch())

	_, err := NewGenerator(1, 1)
	require.NoError(t, err, "the real clock is past the platform epoch")
}

func TestGeneratePanicsOnClockRegression(t *testing.T) {
	g := &Generator{workerID: 1, processID: 1, now: fixedClock(time.UnixMilli(Epoch - 1000))}
	assert.Panics(t, func() { g.Generate() })
}

func TestGenerateEmbedsFields(t *testing.T) {
	at := time.UnixMilli(Epoch + 123456)
	g := &Generator{workerID: 5, processID: 9, now: fixedClock(at)}

	id := g.Generate()
	assert.Equal(t, int64(123456), id>>timestampShift)
	assert.Equal(t, int64(5), id>>workerShift&maxWorkerID)
	assert.Equal(t, int64(9), id>>processShift&maxProcessID)
	assert.Equal(t, int64(1), id&sequenceMask)

	assert.Equal(t, at.UnixMilli(), Timestamp(id).UnixMilli())
}

func TestGenerateDistinctWithinTick(t *testing.T) {
	// Frozen clock: distinctness within a tick rests entirely on the sequence.
	g := &Generator{workerID: 1, processID: 1, now: fixedClock(time.UnixMilli(Epoch + 5))}

	const n = 4096
	seen := make(map[int64]struct{}, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestGenerateMonotonicAcrossTicks(t *testing.T) {
	g, err := NewGenerator(1, 1)
	require.NoError(t, err)

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		assert.GreaterOrEqual(t, next>>timestampShift, prev>>timestampShift)
		prev = next
	}
}

func TestBucket(t *testing.T) {
	week := int64(1000 * 60 * 60 * 24 * 7)

	first := int64(0) << timestampShift
	assert.Equal(t, int64(0), Bucket(first))

	later := (week*3 + 1) << timestampShift
	assert.Equal(t, int64(3), Bucket(later))

	lo, hi := Buckets(first, later)
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(3), hi)

	// Open-ended range runs up to the current bucket.
	lo, hi = Buckets(later, 0)
	assert.Equal(t, int64(3), lo)
	assert.GreaterOrEqual(t, hi, lo)
}

func TestThreshold(t *testing.T) {
	at := time.UnixMilli(Epoch + 10_000)
	g := &Generator{workerID: maxWorkerID, processID: maxProcessID, now: fixedClock(at.Add(-time.Second))}

	old := g.Generate()
	assert.Less(t, old, Threshold(at))
	assert.Equal(t, int64(0), Threshold(time.UnixMilli(Epoch-1)))
}
