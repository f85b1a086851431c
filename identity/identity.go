// Package identity implements Copernica's C1 component: long-term
// node/link keypairs, the per-packet AEAD envelope, and response
// signing. It is the cryptographic foundation narrow-waist packets
// and link packets build on.
//
// A single X25519 DH + HKDF + ChaCha20-Poly1305 envelope seals each
// packet (no PQ hybrid, no handshake session — Copernica keys are
// long-term and pre-shared out of band), with an Ed25519 signature
// for cleartext response authentication.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	// DHKeySize is the X25519 scalar/point size.
	DHKeySize = 32
	// SigningPublicKeySize is the Ed25519 public key size.
	SigningPublicKeySize = ed25519.PublicKeySize
	// NonceSize is the ChaCha20-Poly1305 nonce size used throughout
	// the narrow-waist and link-packet AEAD envelopes.
	NonceSize = chacha20poly1305.NonceSize
	// TagSize is the AEAD authentication tag size.
	TagSize = 16
	// PublicIDSize is the wire size of a PublicID: DH key || signing key.
	PublicIDSize = DHKeySize + SigningPublicKeySize
)

var (
	// ErrAuthenticationFailed is returned when an AEAD open or a
	// signature check fails.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrWrongKey is returned when the caller supplies a key that
	// cannot possibly unlock a packet (e.g. decrypting a response
	// addressed to a different requester).
	ErrWrongKey = errors.New("wrong key")
)

// PublicID is the externally-visible identity of a peer: an X25519
// public key for DH-derived AEAD keys, and an Ed25519 public key for
// verifying cleartext responses. It is the quantity hashed into an
// HBFI's requester_pid/response_pid bloom slots.
type PublicID struct {
	DH      [DHKeySize]byte
	Signing ed25519.PublicKey
}

// Bytes returns the canonical encoding of a PublicID, used both on
// the wire and as the hash input for HBFI pid slots.
func (p PublicID) Bytes() []byte {
	out := make([]byte, 0, PublicIDSize)
	out = append(out, p.DH[:]...)
	out = append(out, p.Signing...)
	return out
}

// PrivateIdentity is a node's long-term keypair: an X25519 private
// scalar for DH, and an Ed25519 private key for signing.
type PrivateIdentity struct {
	dhPriv      [DHKeySize]byte
	signingPriv ed25519.PrivateKey
	public      PublicID
}

// NewPrivateIdentity generates a fresh long-term keypair.
func NewPrivateIdentity() (*PrivateIdentity, error) {
	var dhPriv [DHKeySize]byte
	if _, err := io.ReadFull(rand.Reader, dhPriv[:]); err != nil {
		return nil, errors.Wrap(err, "generate dh private key")
	}
	var dhPub [DHKeySize]byte
	curve25519.ScalarBaseMult(&dhPub, &dhPriv)

	signingPub, signingPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate signing key")
	}

	return &PrivateIdentity{
		dhPriv:      dhPriv,
		signingPriv: signingPriv,
		public: PublicID{
			DH:      dhPub,
			Signing: signingPub,
		},
	}, nil
}

// Public returns the identity's public half.
func (p *PrivateIdentity) Public() PublicID {
	return p.public
}

// DeriveSharedKey performs X25519(localPriv, remotePub), then feeds
// the shared secret through HKDF-SHA256 to produce a ChaCha20-Poly1305
// key. Used for both the narrow-waist response AEAD (producer/
// requester pair) and the link-packet AEAD (link identity pair).
func (p *PrivateIdentity) DeriveSharedKey(remote [DHKeySize]byte, info string) ([]byte, error) {
	shared, err := curve25519.X25519(p.dhPriv[:], remote[:])
	if err != nil {
		return nil, errors.Wrap(err, "x25519")
	}
	kdf := hkdf.New(sha256.New, shared, nil, []byte(info))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, errors.Wrap(err, "hkdf expand")
	}
	return key, nil
}

// Sign produces an Ed25519 signature over msg.
func (p *PrivateIdentity) Sign(msg []byte) []byte {
	return ed25519.Sign(p.signingPriv, msg)
}

// Verify checks an Ed25519 signature against a public identity.
func Verify(pub PublicID, msg, sig []byte) bool {
	return ed25519.Verify(pub.Signing, msg, sig)
}

// Seal encrypts plaintext under key with a fresh random nonce,
// returning nonce||ciphertext||tag. aad is authenticated but not
// encrypted (used to bind ciphertext to (hbfi, offset, total)).
func Seal(key, aad, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new aead")
	}
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, errors.Wrap(err, "generate nonce")
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// SealWithNonce encrypts plaintext under key and a caller-supplied
// nonce, returning ciphertext||tag. The caller is responsible for
// never reusing (key, nonce) — used where a deterministic nonce is
// derived per chunk instead of carried on the wire.
func SealWithNonce(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "new aead")
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext (as produced by Seal) under key and aad.
func Open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "new aead")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
