package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreGetPutRoundtrip(t *testing.T) {
	s := newTestStore(t, 0)
	require.NoError(t, s.Put([]byte("k1"), []byte("v1")))

	v, ok := s.Get([]byte("k1"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	_, ok = s.Get([]byte("missing"))
	require.False(t, ok)
}

func TestStoreEvictsOldestBeyondCapacity(t *testing.T) {
	s := newTestStore(t, 2)
	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	require.NoError(t, s.Put([]byte("c"), []byte("3")))

	_, ok := s.Get([]byte("a"))
	require.False(t, ok, "oldest entry must be FIFO-evicted")

	_, ok = s.Get([]byte("b"))
	require.True(t, ok)
	_, ok = s.Get([]byte("c"))
	require.True(t, ok)
}

func TestWatchPrefixFiresOnMatchingInsert(t *testing.T) {
	s := newTestStore(t, 0)
	watch := s.WatchPrefix([]byte("hbfi:"))

	go func() {
		_ = s.Put([]byte("hbfi:abc"), []byte("payload"))
	}()

	select {
	case v := <-watch:
		require.Equal(t, []byte("payload"), v)
	case <-time.After(time.Second):
		t.Fatal("watcher did not fire on matching insert")
	}
}

func TestWatchPrefixFiresImmediatelyWhenAlreadyPresent(t *testing.T) {
	s := newTestStore(t, 0)
	require.NoError(t, s.Put([]byte("hbfi:already"), []byte("here")))

	watch := s.WatchPrefix([]byte("hbfi:"))
	select {
	case v := <-watch:
		require.Equal(t, []byte("here"), v)
	case <-time.After(time.Second):
		t.Fatal("watcher must fire immediately for an existing match")
	}
}

func TestWatchPrefixIgnoresNonMatchingInsert(t *testing.T) {
	s := newTestStore(t, 0)
	watch := s.WatchPrefix([]byte("hbfi:"))

	require.NoError(t, s.Put([]byte("other:xyz"), []byte("nope")))

	select {
	case <-watch:
		t.Fatal("watcher must not fire for a non-matching key")
	case <-time.After(100 * time.Millisecond):
	}
}
