package links

import (
	"context"

	"github.com/copernica-icn/copernica/packets"
)

// InterLinkPacket pairs a decoded LinkPacket with the LinkID it
// arrived on or is bound for, the unit the router/broker exchanges
// with every Link driver.
type InterLinkPacket struct {
	Link        packets.LinkID
	NarrowWaist packets.NarrowWaist
	ReplyTo     packets.ReplyTo
}

// Link is one bearer a broker forwards packets over: a UDP/IPv4
// socket, an in-process channel, or (in tests) a corrupting variant of
// the channel. Every driver frames outbound packets through
// EncodeFrame/DecodeFrame so the broker's forwarding logic never
// depends on which bearer it is talking to.
type Link interface {
	// Run drives the link until ctx is cancelled or the underlying
	// bearer closes, moving InterLinkPackets between the bearer and
	// the router channels supplied at construction.
	Run(ctx context.Context) error
	// ID returns the link's own identity.
	ID() packets.LinkID
}

// RouterChannels is the pair of channels a Link driver uses to
// exchange InterLinkPackets with the router/broker: ToRouter carries
// packets the link just received, FromRouter carries packets the
// broker wants sent out over this link.
type RouterChannels struct {
	ToRouter   chan<- InterLinkPacket
	FromRouter <-chan InterLinkPacket
}
