package packets

import (
	"testing"

	"github.com/copernica-icn/copernica/identity"
	"github.com/stretchr/testify/require"
)

func mustIdentity(t *testing.T) *identity.PrivateIdentity {
	t.Helper()
	id, err := identity.NewPrivateIdentity()
	require.NoError(t, err)
	return id
}

func TestHBFIOffsetPreservesFingerprint(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "app", "mod", "fn", "arg")

	fp := h.Fingerprint()
	h2 := h.Offset(42)

	require.Equal(t, fp, h2.Fingerprint())
	require.Equal(t, uint64(42), h2.Ost)
	require.Equal(t, uint64(0), h.Ost)
}

func TestHBFICleartextClearsRequesterSlot(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "app", "mod", "fn", "arg")
	require.True(t, h.HasRequesterPID)

	c := h.Cleartext()
	require.False(t, c.HasRequesterPID)
	require.Equal(t, BFI{}, c.RequesterPID)
	require.Equal(t, h.ResponsePID, c.ResponsePID, "cleartext must not disturb the response slot")
}

func TestHBFIEncodeDecodeRoundtripWithRequester(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "store", "blocks", "get", "abc123").Offset(7)

	buf := h.Encode(nil)
	got, rest, err := DecodeHBFI(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, h, got)
}

func TestHBFIEncodeDecodeRoundtripWithoutRequester(t *testing.T) {
	producer := mustIdentity(t)
	h := New(nil, producer.Public(), "store", "blocks", "get", "abc123")
	require.False(t, h.HasRequesterPID)

	buf := h.Encode(nil)
	got, rest, err := DecodeHBFI(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, h, got)
}

func TestDecodeHBFITruncated(t *testing.T) {
	producer := mustIdentity(t)
	h := New(nil, producer.Public(), "store", "blocks", "get", "abc123")
	buf := h.Encode(nil)

	_, _, err := DecodeHBFI(buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func ptr(p identity.PublicID) *identity.PublicID { return &p }
