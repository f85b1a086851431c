package links

import (
	"context"
	"net"

	"github.com/copernica-icn/copernica/packets"
	"github.com/luxfi/log"
)

// UDPIPv4 is the production Link driver: one bound UDP/IPv4 socket,
// framed with EncodeFrame/DecodeFrame. Errors decoding an individual
// datagram are logged and dropped rather than torn down — one bad
// peer must not take the socket offline.
type UDPIPv4 struct {
	id packets.LinkID

	conn *net.UDPConn

	routerOut chan<- InterLinkPacket
	routerIn  <-chan InterLinkPacket

	logger log.Logger
}

// NewUDPIPv4 binds laddr and constructs a UDPIPv4 link.
func NewUDPIPv4(id packets.LinkID, laddr *net.UDPAddr, router RouterChannels, logger log.Logger) (*UDPIPv4, error) {
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &UDPIPv4{
		id:        id,
		conn:      conn,
		routerOut: router.ToRouter,
		routerIn:  router.FromRouter,
		logger:    logger,
	}, nil
}

func (l *UDPIPv4) ID() packets.LinkID { return l.id }

// Run reads datagrams off the socket and forwards FromRouter frames to
// their reply_to address until ctx is cancelled.
func (l *UDPIPv4) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	go l.writeLoop(ctx)

	buf := make([]byte, packets.LinkMTU)
	for {
		n, raddr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		frame := append([]byte(nil), buf[:n]...)
		ilp, err := decodeInbound(l.id, frame)
		if err != nil {
			l.logger.Debug("dropping malformed datagram", "peer", raddr.String(), "error", err)
			continue
		}
		select {
		case l.routerOut <- ilp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *UDPIPv4) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ilp, ok := <-l.routerIn:
			if !ok {
				return
			}
			frame, err := encodeOutbound(l.id, ilp)
			if err != nil {
				l.logger.Debug("dropping unencodable outbound packet", "error", err)
				continue
			}
			if ilp.ReplyTo.Kind != packets.ReplyToUDPIP || ilp.ReplyTo.UDP == nil {
				continue
			}
			if _, err := l.conn.WriteToUDP(frame, ilp.ReplyTo.UDP); err != nil {
				l.logger.Debug("udp write failed", "error", err)
			}
		}
	}
}
