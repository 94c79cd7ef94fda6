package firsthit

import (
	"slices"
	"strings"
	"sync"
)

type tagLock struct {
	mtx  sync.Mutex
	refs int
}

// tagLocks hands out one mutex per distinct tag set and forgets it once the
// last holder releases it. Overlapping sets such as {a} and {a, b} get
// different mutexes, so both can still pick and update a record tagged {a, b}.
type tagLocks struct {
	locks map[string]*tagLock
	mtx   sync.Mutex
}

func (l *tagLocks) lock(tags []string) func() {
	key := lockKey(tags)

	l.mtx.Lock()
	tl, ok := l.locks[key]
	if !ok {
		tl = &tagLock{}
		l.locks[key] = tl
	}
	tl.refs++
	l.mtx.Unlock()

	tl.mtx.Lock()

	return func() {
		tl.mtx.Unlock()

		l.mtx.Lock()
		defer l.mtx.Unlock()

		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, key)
		}
	}
}

func lockKey(tags []string) string {
	sorted := slices.Clone(tags)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}

func newTagLocks() *tagLocks {
	return &tagLocks{
		locks: map[string]*tagLock{},
	}
}
