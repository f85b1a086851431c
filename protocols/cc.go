// Package protocols implements the endpoint protocol layer (C9): the
// five delivery disciplines and the congestion-control table that
// backs their retransmit timing. The CC table uses a
// container/list-backed LRU, reworked from a generic byte-budgeted
// value cache into a fixed-capacity nonce→timeout table.
package protocols

import (
	"container/list"
	"sync"
	"time"

	"github.com/copernica-icn/copernica/identity"
)

// DefaultBaseTimeout seeds a nonce's first wait when nothing is yet
// known about the path's RTT.
const DefaultBaseTimeout = 200 * time.Millisecond

type ccEntry struct {
	nonce    [identity.NonceSize]byte
	lastSent time.Time
	timeout  time.Duration
}

// ccTable is the bounded LRU of nonce → (last_sent_at, timeout)
// .8 names: Start seeds or refreshes an entry, Miss doubles
// the stored timeout on a retransmit, Hit resets it to the observed
// RTT.
type ccTable struct {
	mu          sync.Mutex
	ll          *list.List
	elements    map[[identity.NonceSize]byte]*list.Element
	capacity    int
	baseTimeout time.Duration
}

func newCCTable(capacity int) *ccTable {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ccTable{
		ll:          list.New(),
		elements:    make(map[[identity.NonceSize]byte]*list.Element),
		capacity:    capacity,
		baseTimeout: DefaultBaseTimeout,
	}
}

// Start records a send for nonce, returning the timeout to wait
// before considering it lost.
func (c *ccTable) Start(nonce [identity.NonceSize]byte) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[nonce]; ok {
		en := el.Value.(*ccEntry)
		en.lastSent = time.Now()
		c.ll.MoveToFront(el)
		return en.timeout
	}

	en := &ccEntry{nonce: nonce, lastSent: time.Now(), timeout: c.baseTimeout}
	el := c.ll.PushFront(en)
	c.elements[nonce] = el
	c.evictLocked()
	return en.timeout
}

// Miss doubles the stored timeout for nonce after a retransmit.
func (c *ccTable) Miss(nonce [identity.NonceSize]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[nonce]; ok {
		en := el.Value.(*ccEntry)
		en.timeout *= 2
	}
}

// Hit resets nonce's timeout to the observed round-trip time.
func (c *ccTable) Hit(nonce [identity.NonceSize]byte, rtt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[nonce]; ok {
		en := el.Value.(*ccEntry)
		en.timeout = rtt
	}
}

// Forget drops nonce's entry once its stream completes.
func (c *ccTable) Forget(nonce [identity.NonceSize]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[nonce]; ok {
		c.ll.Remove(el)
		delete(c.elements, nonce)
	}
}

func (c *ccTable) evictLocked() {
	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back == nil {
			return
		}
		en := back.Value.(*ccEntry)
		c.ll.Remove(back)
		delete(c.elements, en.nonce)
	}
}
