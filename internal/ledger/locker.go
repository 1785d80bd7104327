package ledger

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// bucketLocker serializes ledger writers per bucket inside this process.
// Row locks in the database cover writers in other processes.
type bucketLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*bucketLock
}

type bucketLock struct {
	mu   sync.Mutex
	refs int
}

func newBucketLocker() *bucketLocker {
	return &bucketLocker{locks: make(map[uuid.UUID]*bucketLock)}
}

// lock acquires every id in a stable order and returns the release func.
// Duplicate ids are taken once.
func (l *bucketLocker) lock(ids ...uuid.UUID) func() {
	keys := sortedUnique(ids)

	held := make([]*bucketLock, 0, len(keys))
	for _, id := range keys {
		bl := l.acquire(id)
		bl.mu.Lock()
		held = append(held, bl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *bucketLocker) acquire(id uuid.UUID) *bucketLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	bl, ok := l.locks[id]
	if !ok {
		bl = &bucketLock{}
		l.locks[id] = bl
	}
	bl.refs++
	return bl
}

func (l *bucketLocker) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bl := l.locks[id]
	bl.refs--
	if bl.refs == 0 {
		delete(l.locks, id)
	}
}

// size returns the number of buckets currently tracked
func (l *bucketLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(out)
}
