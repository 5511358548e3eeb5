// Package snowflake mints the time-ordered 64-bit identifiers used as primary
// keys for every entity on the platform.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the platform epoch in milliseconds since the Unix epoch. Every
// identifier embeds its creation time relative to this instant.
const Epoch int64 = 1649325271415

const (
	timestampShift = 22
	workerShift    = 17
	processShift   = 12

	maxWorkerID  = 1<<5 - 1
	maxProcessID = 1<<5 - 1
	sequenceMask = 1<<12 - 1

	// bucketSize is one week in milliseconds.
	bucketSize int64 = 1000 * 60 * 60 * 24 * 7
)

// Generator produces identifiers for a single process. The sequence counter is
// the only shared mutable state; the critical section is the increment alone,
// never the timestamp read or any I/O.
type Generator struct {
	workerID  int64
	processID int64

	mu  sync.Mutex
	seq int64

	now func() time.Time
}

// NewGenerator builds a Generator for the given worker and process
// discriminators. Discriminator uniqueness across processes is assigned
// out-of-band; nothing here coordinates between processes.
func NewGenerator(workerID, processID int64) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("snowflake: worker id %d out of range [0, %d]", workerID, maxWorkerID)
	}
	if processID < 0 || processID > maxProcessID {
		return nil, fmt.Errorf("snowflake: process id %d out of range [0, %d]", processID, maxProcessID)
	}
	g := &Generator{workerID: workerID, processID: processID, now: time.Now}
	if g.sinceEpoch() < 0 {
		return nil, fmt.Errorf("snowflake: system clock reads before platform epoch")
	}
	return g, nil
}

// Generate returns the next identifier. Safe for concurrent use; any 4096
// calls within one millisecond tick yield pairwise distinct identifiers.
func (g *Generator) Generate() int64 {
	g.mu.Lock()
	g.seq = (g.seq + 1) & sequenceMask
	seq := g.seq
	g.mu.Unlock()

	ts := g.sinceEpoch()
	if ts < 0 {
		// A negative timestamp field would corrupt every id minted afterwards.
		panic("snowflake: system clock reads before platform epoch")
	}
	return ts<<timestampShift | g.workerID<<workerShift | g.processID<<processShift | seq
}

func (g *Generator) sinceEpoch() int64 {
	return g.now().UnixMilli() - Epoch
}

// Timestamp re-extracts the creation time embedded in an identifier.
func Timestamp(id int64) time.Time {
	return time.UnixMilli(id>>timestampShift + Epoch)
}

// Bucket maps an identifier to its one-week time bucket, used for partitioned
// range queries.
func Bucket(id int64) int64 {
	return id >> timestampShift / bucketSize
}

// Buckets returns the inclusive bucket range covering startID through endID.
// A non-positive endID means "now".
func Buckets(startID, endID int64) (int64, int64) {
	if endID <= 0 {
		endID = (time.Now().UnixMilli() - Epoch) << timestampShift
	}
	return Bucket(startID), Bucket(endID)
}

// Threshold returns the smallest identifier that could have been minted at t.
// Identifiers below it predate t regardless of worker, process or sequence.
func Threshold(t time.Time) int64 {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		ms = 0
	}
	return ms << timestampShift
}
