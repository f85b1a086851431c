package packets

import "github.com/copernica-icn/copernica/identity"

// LinkID is a stable key-pair with an externally visible public
// identifier, used both to key the Bayes classifier/SDR and to key
// link-layer encryption. Remote is the
// peer's public half, known once a link is paired; it is nil for a
// link still listening for its first peer.
type LinkID struct {
	Private *identity.PrivateIdentity
	Remote  *identity.PublicID
	ReplyTo ReplyTo
}

// LinkKey is the comparable form of a link's public identifier, used
// as the map key in the Bayes classifier's per-link tables and the
// broker's per-link SDRs.
type LinkKey [identity.PublicIDSize]byte

// Public returns the link's own public identifier.
func (l LinkID) Public() identity.PublicID {
	return l.Private.Public()
}

// Key returns l's classifier/SDR map key.
func (l LinkID) Key() LinkKey {
	var k LinkKey
	copy(k[:], l.Public().Bytes())
	return k
}

// Paired reports whether a remote peer identity has been learned for
// this link yet.
func (l LinkID) Paired() bool {
	return l.Remote != nil
}
