package packets

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplyToUDPRoundtrip(t *testing.T) {
	rt := ReplyTo{Kind: ReplyToUDPIP, UDP: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4848}}
	buf, err := rt.Encode(nil)
	require.NoError(t, err)

	got, rest, err := DecodeReplyTo(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, rt.Kind, got.Kind)
	require.True(t, rt.UDP.IP.Equal(got.UDP.IP))
	require.Equal(t, rt.UDP.Port, got.UDP.Port)
}

func TestReplyToMpscRoundtrip(t *testing.T) {
	rt := ReplyTo{Kind: ReplyToMpsc}
	buf, err := rt.Encode(nil)
	require.NoError(t, err)

	got, rest, err := DecodeReplyTo(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, ReplyToMpsc, got.Kind)
}

func TestReplyToRFRoundtrip(t *testing.T) {
	rt := ReplyTo{Kind: ReplyToRF, RF: 7}
	buf, err := rt.Encode(nil)
	require.NoError(t, err)

	got, rest, err := DecodeReplyTo(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, uint32(7), got.RF)
}

func TestReplyToUDPRejectsIPv6(t *testing.T) {
	rt := ReplyTo{Kind: ReplyToUDPIP, UDP: &net.UDPAddr{IP: net.ParseIP("::1"), Port: 1}}
	_, err := rt.Encode(nil)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodeReplyToTruncated(t *testing.T) {
	_, _, err := DecodeReplyTo(nil)
	require.ErrorIs(t, err, ErrMalformedPacket)
}
