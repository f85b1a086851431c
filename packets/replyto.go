package packets

import (
	"encoding/binary"
	"net"
)

// ReplyToKind discriminates the three bearer kinds a link packet can
// be replied to over.
type ReplyToKind uint8

const (
	ReplyToUDPIP ReplyToKind = replyToTagUdpIP
	ReplyToRF    ReplyToKind = replyToTagRf
	ReplyToMpsc  ReplyToKind = replyToTagMpsc
)

// ReplyTo carries enough information for the receiving side to
// address a reply back to the sender. Rf is a reserved opaque channel
// identifier for future radio bearers; this implementation never
// originates it.
type ReplyTo struct {
	Kind ReplyToKind
	UDP  *net.UDPAddr // IPv4 only
	RF   uint32
}

// Encode appends rt's wire representation to dst:
// reply_to := tag:u8 (0=UdpIp|1=Rf|2=Mpsc) ‖ addr
func (rt ReplyTo) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, byte(rt.Kind))
	switch rt.Kind {
	case ReplyToUDPIP:
		if rt.UDP == nil || rt.UDP.IP.To4() == nil {
			return nil, ErrMalformedPacket
		}
		dst = append(dst, rt.UDP.IP.To4()...)
		var portBuf [2]byte
		binary.LittleEndian.PutUint16(portBuf[:], uint16(rt.UDP.Port))
		dst = append(dst, portBuf[:]...)
	case ReplyToRF:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], rt.RF)
		dst = append(dst, buf[:]...)
	case ReplyToMpsc:
		// no address payload: in-process channels are addressed by
		// the process-local link table, not by wire bytes.
	default:
		return nil, ErrMalformedPacket
	}
	return dst, nil
}

// DecodeReplyTo reads a ReplyTo from its wire representation,
// returning the unconsumed remainder of src.
func DecodeReplyTo(src []byte) (ReplyTo, []byte, error) {
	if len(src) < 1 {
		return ReplyTo{}, nil, ErrMalformedPacket
	}
	kind := ReplyToKind(src[0])
	src = src[1:]

	switch kind {
	case ReplyToUDPIP:
		if len(src) < 6 {
			return ReplyTo{}, nil, ErrMalformedPacket
		}
		ip := net.IPv4(src[0], src[1], src[2], src[3])
		port := binary.LittleEndian.Uint16(src[4:6])
		return ReplyTo{Kind: kind, UDP: &net.UDPAddr{IP: ip, Port: int(port)}}, src[6:], nil
	case ReplyToRF:
		if len(src) < 4 {
			return ReplyTo{}, nil, ErrMalformedPacket
		}
		return ReplyTo{Kind: kind, RF: binary.LittleEndian.Uint32(src[:4])}, src[4:], nil
	case ReplyToMpsc:
		return ReplyTo{Kind: kind}, src, nil
	default:
		return ReplyTo{}, nil, ErrMalformedPacket
	}
}
