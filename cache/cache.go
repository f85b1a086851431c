// Package cache implements the response cache/coalescer (C8): a
// bounded, content-addressed store keyed by a serialized HBFI, plus a
// prefix-watch primitive endpoints use to wait for a response that
// hasn't arrived yet. Backed by cockroachdb/pebble for the on-disk KV
// store, with a container/list-based bookkeeping structure for the
// bounded eviction queue — insertion-order FIFO rather than
// access-order LRU, since the response cache must evict oldest-first
// rather than least-recently-used.
package cache

import (
	"container/list"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// ErrNotFound is a sentinel for callers that need a distinguishable
// miss. No Store method returns it; Get reports a miss with a plain ok
// bool.
var ErrNotFound = errors.New("cache: key not found")

// Store is a bounded, FIFO-evicting response cache backed by a pebble
// instance on disk, with a one-shot prefix-watch coalescer layered on
// top.
type Store struct {
	mu       sync.Mutex
	db       *pebble.DB
	order    *list.List // front = oldest
	elements map[string]*list.Element
	capacity int

	watchers map[string][]chan []byte
}

// Open creates or reopens a Store rooted at dir, bounded to capacity
// entries. capacity
// <= 0 disables the bound.
func Open(dir string, capacity int) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "open pebble store")
	}
	s := &Store{
		db:       db,
		order:    list.New(),
		elements: make(map[string]*list.Element),
		capacity: capacity,
		watchers: make(map[string][]chan []byte),
	}
	return s, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached value for key, if present.
func (s *Store) Get(key []byte) ([]byte, bool) {
	v, closer, err := s.db.Get(key)
	if err != nil {
		return nil, false
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Put inserts value under key, evicting the oldest entry if the store
// is over capacity, and wakes any WatchPrefix subscriber whose prefix
// matches key.
func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebble set")
	}

	keyStr := string(key)
	if el, ok := s.elements[keyStr]; ok {
		s.order.MoveToBack(el) // refreshed key keeps FIFO order fair
	} else {
		el := s.order.PushBack(keyStr)
		s.elements[keyStr] = el
	}
	s.evictLocked()
	s.wakeLocked(key, value)
	return nil
}

func (s *Store) evictLocked() {
	if s.capacity <= 0 {
		return
	}
	for s.order.Len() > s.capacity {
		front := s.order.Front()
		if front == nil {
			return
		}
		keyStr := front.Value.(string)
		s.order.Remove(front)
		delete(s.elements, keyStr)
		_ = s.db.Delete([]byte(keyStr), pebble.Sync)
	}
}

// WatchPrefix returns a channel that fires exactly once with the
// value of the next Put whose key has the given prefix. If a matching key is already present, it fires
// immediately with the existing value.
func (s *Store) WatchPrefix(prefix []byte) <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []byte, 1)

	if v, hit := s.lookupPrefixLocked(prefix); hit {
		ch <- v
		close(ch)
		return ch
	}

	key := string(prefix)
	s.watchers[key] = append(s.watchers[key], ch)
	return ch
}

func (s *Store) lookupPrefixLocked(prefix []byte) ([]byte, bool) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return nil, false
	}
	defer iter.Close()
	if !iter.First() || !hasPrefix(iter.Key(), prefix) {
		return nil, false
	}
	v := iter.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *Store) wakeLocked(key, value []byte) {
	for prefix, chans := range s.watchers {
		if !hasPrefix(key, []byte(prefix)) {
			continue
		}
		for _, ch := range chans {
			ch <- value
			close(ch)
		}
		delete(s.watchers, prefix)
	}
}

// BrokerView adapts a Store to broker.ResponseCache's narrower,
// error-free signature: the engine's own failure model treats a write failure the
// same as a dropped packet, so Put logs through ErrLogger rather than
// propagating.
type BrokerView struct {
	Store     *Store
	ErrLogger func(err error)
}

// Get satisfies broker.ResponseCache.
func (v BrokerView) Get(key []byte) ([]byte, bool) { return v.Store.Get(key) }

// Put satisfies broker.ResponseCache, swallowing write errors per the
// engine's drop-and-continue failure model.
func (v BrokerView) Put(key, value []byte) {
	if err := v.Store.Put(key, value); err != nil && v.ErrLogger != nil {
		v.ErrLogger(err)
	}
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
