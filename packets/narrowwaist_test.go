package packets

import (
	"testing"

	"github.com/copernica-icn/copernica/identity"
	"github.com/stretchr/testify/require"
)

func TestRequestRequiresMatchingRequesterPublicID(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "a", "m", "f", "x")

	_, err := Request(h, nil)
	require.ErrorIs(t, err, ErrMalformedPacket)

	cleartext := h.Cleartext()
	_, err = Request(cleartext, ptr(requester.Public()))
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestEncryptedResponseRoundtrip(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, ptr(requester.Public()))
	require.NoError(t, err)

	resp, err := req.Transmute(producer, []byte("chunk payload"), 0, 1)
	require.NoError(t, err)
	require.Equal(t, KindResponse, resp.Kind)

	data, err := resp.Data(requester, producer.Public())
	require.NoError(t, err)
	require.Equal(t, []byte("chunk payload"), data)
}

func TestEncryptedResponseWrongRequesterFails(t *testing.T) {
	requester := mustIdentity(t)
	eve := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, ptr(requester.Public()))
	require.NoError(t, err)
	resp, err := req.Transmute(producer, []byte("chunk"), 0, 1)
	require.NoError(t, err)

	_, err = resp.Data(eve, producer.Public())
	require.Error(t, err)
}

func TestEncryptedResponseWrongProducerPublicIDFails(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	impostor := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, ptr(requester.Public()))
	require.NoError(t, err)
	resp, err := req.Transmute(producer, []byte("chunk"), 0, 1)
	require.NoError(t, err)

	_, err = resp.Data(requester, impostor.Public())
	require.ErrorIs(t, err, identity.ErrWrongKey)
}

func TestCleartextResponseRoundtrip(t *testing.T) {
	producer := mustIdentity(t)
	h := New(nil, producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, nil)
	require.NoError(t, err)

	resp, err := req.Transmute(producer, []byte("public chunk"), 0, 1)
	require.NoError(t, err)

	data, err := resp.Data(nil, producer.Public())
	require.NoError(t, err)
	require.Equal(t, []byte("public chunk"), data)
}

func TestCleartextResponseTamperedFails(t *testing.T) {
	producer := mustIdentity(t)
	h := New(nil, producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, nil)
	require.NoError(t, err)
	resp, err := req.Transmute(producer, []byte("public chunk"), 0, 1)
	require.NoError(t, err)

	resp.Payload = []byte("tampered chunk")
	_, err = resp.Data(nil, producer.Public())
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)
}

func TestTransmuteRejectsNonRequest(t *testing.T) {
	producer := mustIdentity(t)
	h := New(nil, producer.Public(), "store", "blocks", "get", "abc")
	req, err := Request(h, nil)
	require.NoError(t, err)
	resp, err := req.Transmute(producer, []byte("x"), 0, 1)
	require.NoError(t, err)

	_, err = resp.Transmute(producer, []byte("y"), 0, 1)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDistinctOffsetsUseDistinctNonces(t *testing.T) {
	requester := mustIdentity(t)
	producer := mustIdentity(t)
	h := New(ptr(requester.Public()), producer.Public(), "store", "blocks", "get", "abc")

	req, err := Request(h, ptr(requester.Public()))
	require.NoError(t, err)

	chunk0, err := Response(producer, ptr(requester.Public()), h.Offset(0), req.Nonce, []byte("same plaintext"), 0, 2)
	require.NoError(t, err)
	chunk1, err := Response(producer, ptr(requester.Public()), h.Offset(1), req.Nonce, []byte("same plaintext"), 1, 2)
	require.NoError(t, err)

	require.NotEqual(t, chunk0.Payload, chunk1.Payload, "same plaintext at different offsets must not share ciphertext")

	d0, err := chunk0.Data(requester, producer.Public())
	require.NoError(t, err)
	d1, err := chunk1.Data(requester, producer.Public())
	require.NoError(t, err)
	require.Equal(t, d0, d1)
}
