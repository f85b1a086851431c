package links

import (
	"context"

	"github.com/copernica-icn/copernica/packets"
)

// MpscChannel is an in-process Link driver: two instances wired
// together by a pair of raw-frame Go channels stand in for a bearer,
// used for broker-to-broker tests that would otherwise need a real
// socket.
type MpscChannel struct {
	id packets.LinkID

	wireOut chan<- []byte
	wireIn  <-chan []byte

	routerOut chan<- InterLinkPacket
	routerIn  <-chan InterLinkPacket
}

// NewMpscWire allocates the paired raw-frame channels two MpscChannel
// links share, standing in for the bearer between them.
func NewMpscWire(buf int) (aToB, bToA chan []byte) {
	return make(chan []byte, buf), make(chan []byte, buf)
}

// NewMpscChannel constructs an MpscChannel link. wireOut/wireIn are
// one leg of a wire allocated by NewMpscWire; router is this link's
// channel pair to the broker/router it feeds.
func NewMpscChannel(id packets.LinkID, wireOut chan<- []byte, wireIn <-chan []byte, router RouterChannels) *MpscChannel {
	return &MpscChannel{
		id:        id,
		wireOut:   wireOut,
		wireIn:    wireIn,
		routerOut: router.ToRouter,
		routerIn:  router.FromRouter,
	}
}

func (l *MpscChannel) ID() packets.LinkID { return l.id }

// Run moves InterLinkPackets between the router and the wire until ctx
// is cancelled or either the router channel or the wire channel is
// closed.
func (l *MpscChannel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ilp, ok := <-l.routerIn:
			if !ok {
				return nil
			}
			frame, err := encodeOutbound(l.id, ilp)
			if err != nil {
				continue
			}
			select {
			case l.wireOut <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		case raw, ok := <-l.wireIn:
			if !ok {
				return nil
			}
			ilp, err := decodeInbound(l.id, raw)
			if err != nil {
				continue
			}
			select {
			case l.routerOut <- ilp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
