package protocols

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/copernica-icn/copernica/identity"
	"github.com/copernica-icn/copernica/links"
	"github.com/copernica-icn/copernica/packets"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal in-memory stand-in for cache.Store's
// WatchPrefix, sufficient to drive Endpoint without pulling pebble
// into these tests.
type fakeSource struct {
	mu       sync.Mutex
	watchers map[string][]chan []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{watchers: make(map[string][]chan []byte)}
}

func (f *fakeSource) WatchPrefix(prefix []byte) <-chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []byte, 1)
	f.watchers[string(prefix)] = append(f.watchers[string(prefix)], ch)
	return ch
}

func (f *fakeSource) Deliver(key, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, chans := range f.watchers {
		if len(key) < len(prefix) || string(key[:len(prefix)]) != prefix {
			continue
		}
		for _, ch := range chans {
			ch <- value
			close(ch)
		}
		delete(f.watchers, prefix)
	}
}

func newTestEndpoint(t *testing.T, src *fakeSource) (*Endpoint, *identity.PrivateIdentity, chan links.InterLinkPacket) {
	t.Helper()
	requester, err := identity.NewPrivateIdentity()
	require.NoError(t, err)
	producer, err := identity.NewPrivateIdentity()
	require.NoError(t, err)
	out := make(chan links.InterLinkPacket, 8)
	return NewEndpoint(requester, out, src, producer.Public(), 0), producer, out
}

// serveOnce reads one request from out, builds a matching response
// signed by producer, and delivers it through src.
func serveOnce(t *testing.T, out chan links.InterLinkPacket, producer *identity.PrivateIdentity, src *fakeSource, payload []byte) {
	t.Helper()
	ilp := <-out
	req := ilp.NarrowWaist
	resp, err := packets.Response(producer, req.RequesterPublicID, req.HBFI, req.Nonce, payload, req.HBFI.Ost, req.HBFI.Ost)
	require.NoError(t, err)
	src.Deliver(req.HBFI.Encode(nil), resp.Encode(nil))
}

func TestRequestUnreliableUnorderedCollectsSingleChunk(t *testing.T) {
	src := newFakeSource()
	ep, producer, out := newTestEndpoint(t, src)

	hbfi := packets.New(nil, producer.Public(), "app", "module", "function", "argument")

	go serveOnce(t, out, producer, src, []byte("chunk-0"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunks, err := ep.Request(ctx, UnreliableUnordered, hbfi, 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, []byte("chunk-0"), chunks[0].Data)
}

func TestRequestReliableOrderedCollectsRangeInOrder(t *testing.T) {
	src := newFakeSource()
	ep, producer, out := newTestEndpoint(t, src)
	hbfi := packets.New(nil, producer.Public(), "app", "module", "function", "argument")

	go func() {
		for i := 0; i < 3; i++ {
			serveOnce(t, out, producer, src, []byte{byte('a' + i)})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunks, err := ep.Request(ctx, ReliableOrdered, hbfi, 0, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		require.Equal(t, uint64(i), c.Counter)
		require.Equal(t, []byte{byte('a' + i)}, c.Data)
	}
}

func TestRequestReliableUnorderedRetransmitsOnTimeout(t *testing.T) {
	src := newFakeSource()
	ep, producer, out := newTestEndpoint(t, src)
	hbfi := packets.New(nil, producer.Public(), "app", "module", "function", "argument")

	go func() {
		<-out // first attempt: dropped, forcing a timeout + retransmit
		serveOnce(t, out, producer, src, []byte("retried"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	chunks, err := ep.Request(ctx, ReliableUnordered, hbfi, 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, []byte("retried"), chunks[0].Data)
}

func TestRequestSequencedJumpsAheadOnSkippedCounter(t *testing.T) {
	src := newFakeSource()
	ep, producer, out := newTestEndpoint(t, src)
	hbfi := packets.New(nil, producer.Public(), "app", "module", "function", "argument")

	go func() {
		ilp := <-out
		req := ilp.NarrowWaist
		// Answer with a chunk for counter 2, even though counter 0 was
		// requested, to trigger the sequenced jump-ahead rule.
		ahead := hbfi.Offset(2)
		resp, err := packets.Response(producer, req.RequesterPublicID, ahead, req.Nonce, []byte("ahead"), 2, 2)
		require.NoError(t, err)
		src.Deliver(ahead.Encode(nil), resp.Encode(nil))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunks, err := ep.Request(ctx, UnreliableSequenced, hbfi, 0, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, uint64(2), chunks[0].Counter)
}
