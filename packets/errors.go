package packets

import "github.com/cockroachdb/errors"

// Error kinds tested with errors.Is, not type assertions — package-level
// sentinel values rather than a custom error type per failure mode.
var (
	// ErrMalformedPacket means the encoding itself is invalid —
	// truncated, bad tag byte, length mismatch.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrAuthenticationFailed means an AEAD open or authenticator
	// check failed; the packet must be dropped, not cached, and must
	// not count toward the Bayes model.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrWrongKey means the caller presented key material that could
	// not possibly unlock this packet (wrong requester, wrong
	// producer).
	ErrWrongKey = errors.New("wrong key")
)
