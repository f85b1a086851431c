// Package links implements Copernica's bearer layer (C4/C5): Reed-Solomon
// forward error correction framing, and the three pluggable Link
// drivers (UDP/IPv4, an in-process channel, and a corrupting variant
// of the channel for FEC testing).
package links

import "github.com/cockroachdb/errors"

var (
	// ErrPacketCorrupt means a Reed-Solomon shard could not be
	// corrected; the link packet it belonged to is unrecoverable and
	// must be dropped.
	ErrPacketCorrupt = errors.New("packet corrupt beyond recovery")
	// ErrLinkWriteFailed means the underlying bearer rejected a write
	// (socket error, closed channel).
	ErrLinkWriteFailed = errors.New("link write failed")
	// ErrLinkClosed means an operation was attempted on a link whose
	// run loop has already exited.
	ErrLinkClosed = errors.New("link closed")
	// ErrPayloadTooLarge means the caller asked to encode more data
	// than one link packet can carry once FEC parity is added.
	ErrPayloadTooLarge = errors.New("payload exceeds link MTU after FEC encoding")
)
