package links

import (
	"context"

	"github.com/copernica-icn/copernica/packets"
)

// Corruption names byte offsets within one Reed-Solomon codeword of
// an outbound frame that MpscCorruptor should flip before delivery,
// simulating link-level bit damage. Offsets beyond
// packets.FECParityShards/2 in count exceed what FECShardTotalSize-
// packets.FECShardDataSize parity bytes can blindly repair and are
// used by tests to exercise the unrecoverable path deliberately.
type Corruption struct {
	CodewordIndex int
	ByteOffsets   []int
}

// corruptedFrame is the wire unit MpscCorruptor exchanges with its
// counterpart. It carries only the mangled bytes: a real bearer gives
// a receiver no hint about which bytes it damaged in flight, so the
// test harness doesn't either — DecodeFrame must recover blind, the
// same way a real link's decoder would.
type corruptedFrame struct {
	Frame []byte
}

// MpscCorruptor is an in-process Link driver that deliberately
// damages outbound frames according to a fixed corruption schedule,
// used to test FEC recovery and the ErrPacketCorrupt boundary
//.
type MpscCorruptor struct {
	id packets.LinkID

	wireOut chan<- corruptedFrame
	wireIn  <-chan corruptedFrame

	routerOut chan<- InterLinkPacket
	routerIn  <-chan InterLinkPacket

	schedule []Corruption
}

// NewCorruptorWire allocates the paired corrupted-frame channels two
// MpscCorruptor links share.
func NewCorruptorWire(buf int) (aToB, bToA chan corruptedFrame) {
	return make(chan corruptedFrame, buf), make(chan corruptedFrame, buf)
}

// NewMpscCorruptor constructs a corrupting link. schedule is replayed
// once per outbound frame, in order, clamped to how many codewords the
// frame actually has; a schedule shorter than the number of frames
// sent leaves the remainder uncorrupted.
func NewMpscCorruptor(id packets.LinkID, wireOut chan<- corruptedFrame, wireIn <-chan corruptedFrame, router RouterChannels, schedule []Corruption) *MpscCorruptor {
	return &MpscCorruptor{
		id:        id,
		wireOut:   wireOut,
		wireIn:    wireIn,
		routerOut: router.ToRouter,
		routerIn:  router.FromRouter,
		schedule:  schedule,
	}
}

func (l *MpscCorruptor) ID() packets.LinkID { return l.id }

func (l *MpscCorruptor) Run(ctx context.Context) error {
	sent := 0
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

			if sent < len(l.schedule) {
				c := l.schedule[sent]
				codewordStart := lengthPrefixSize + c.CodewordIndex*packets.FECShardTotalSize
				for _, off := range c.ByteOffsets {
					if off < 0 || off >= packets.FECShardTotalSize {
						continue
					}
					pos := codewordStart + off
					if pos >= 0 && pos < len(frame) {
						frame[pos] ^= 0xff
					}
				}
			}
			sent++

			select {
			case l.wireOut <- corruptedFrame{Frame: frame}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case cf, ok := <-l.wireIn:
			if !ok {
				return nil
			}
			ilp, err := decodeInbound(l.id, cf.Frame)
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
