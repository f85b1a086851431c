package protocols

import (
	"context"
	"time"

	"github.com/copernica-icn/copernica/identity"
	"github.com/copernica-icn/copernica/links"
	"github.com/copernica-icn/copernica/packets"
)

// ResponseSource is the subset of cache.Store the endpoint needs to
// await a response: a one-shot wakeup on the next insert matching a
// key prefix.
type ResponseSource interface {
	WatchPrefix(prefix []byte) <-chan []byte
}

// Chunk is one delivered, decoded response payload, tagged with the
// counter it answers so callers can detect gaps left by
// non-retransmitting disciplines.
type Chunk struct {
	Counter uint64
	Data    []byte
}

// Endpoint is the per-requester protocol-layer driver: it turns a
// discipline + HBFI range into a sequence of outbound requests and
// collects the matching responses.
type Endpoint struct {
	Local      *identity.PrivateIdentity
	Out        chan<- links.InterLinkPacket
	Responses  ResponseSource
	ProducerID identity.PublicID

	cc *ccTable
}

// NewEndpoint constructs an Endpoint bound to a single outbound sink
// and response source. ccCapacity bounds the congestion-control
// table; 0 or less uses the table's default capacity of 4096 entries.
func NewEndpoint(local *identity.PrivateIdentity, out chan<- links.InterLinkPacket, responses ResponseSource, producer identity.PublicID, ccCapacity int) *Endpoint {
	return &Endpoint{
		Local:      local,
		Out:        out,
		Responses:  responses,
		ProducerID: producer,
		cc:         newCCTable(ccCapacity),
	}
}

// Request drives hbfi's [start, end] counter range under discipline,
// returning every chunk it managed to collect. A context cancellation aborts mid-stream.
func (e *Endpoint) Request(ctx context.Context, discipline Discipline, hbfi packets.HBFI, start, end uint64) ([]Chunk, error) {
	var chunks []Chunk
	requesterPublic := e.Local.Public()

	for counter := start; counter <= end; {
		occHBFI := hbfi.Offset(counter)

		var requesterPID *identity.PublicID
		if hbfi.HasRequesterPID {
			requesterPID = &requesterPublic
		}
		req, err := packets.Request(occHBFI, requesterPID)
		if err != nil {
			return chunks, err
		}

		// Sequenced disciplines watch the stream's whole prefix (offset
		// stripped) so a response answering a later counter than the one
		// just requested still wakes this wait, enabling the jump-ahead
		// rule below. Non-sequenced disciplines watch the exact counter.
		var watchKey []byte
		if discipline.sequenced() {
			watchKey = streamPrefix(occHBFI)
		} else {
			watchKey = occHBFI.Encode(nil)
		}
		watch := e.Responses.WatchPrefix(watchKey)

		advance, err := e.awaitOne(ctx, discipline, req, watch, counter, &chunks)
		if err != nil {
			return chunks, err
		}
		counter = advance
	}

	return chunks, nil
}

// awaitOne sends req, waits for its matching response or timeout, and
// returns the counter the caller should resume from. Retransmits of
// the same counter reuse req's nonce and watch channel, so every copy
// correlates to the one pending congestion-control entry and cache
// subscription.
func (e *Endpoint) awaitOne(ctx context.Context, discipline Discipline, req packets.NarrowWaist, watch <-chan []byte, counter uint64, chunks *[]Chunk) (uint64, error) {
	for {
		sentAt := time.Now()
		e.Out <- links.InterLinkPacket{NarrowWaist: req}
		timeout := e.cc.Start(req.Nonce)

		select {
		case <-ctx.Done():
			return counter, ctx.Err()

		case raw := <-watch:
			e.cc.Hit(req.Nonce, time.Since(sentAt))
			nw, _, err := packets.Decode(raw)
			if err != nil {
				return counter, err
			}
			data, err := nw.Data(e.Local, e.ProducerID)
			if err != nil {
				return counter, err
			}

			if discipline.sequenced() && nw.HBFI.Ost < counter {
				continue // older-than-counter chunk; drop and wait again
			}
			*chunks = append(*chunks, Chunk{Counter: nw.HBFI.Ost, Data: data})
			e.cc.Forget(req.Nonce)

			if discipline.sequenced() && nw.HBFI.Ost > counter {
				return nw.HBFI.Ost + 1, nil // jump ahead.8 sequenced rule
			}
			return counter + 1, nil

		case <-time.After(timeout):
			e.cc.Miss(req.Nonce)
			if discipline.retransmitsOnTimeout() {
				continue // resend the same request, same nonce
			}
			return counter + 1, nil // give up on this chunk, advance
		}
	}
}

// streamPrefix returns hbfi's wire encoding with the trailing 8-byte
// offset stripped, matching every chunk of the stream regardless of
// counter.
func streamPrefix(hbfi packets.HBFI) []byte {
	buf := hbfi.Encode(nil)
	return buf[:len(buf)-8]
}

// Respond wraps payload into a Response narrow-waist bound to hbfi
// and pushes it onto the endpoint's single outbound channel.
func (e *Endpoint) Respond(hbfi packets.HBFI, nonce [identity.NonceSize]byte, requesterPublicID *identity.PublicID, data []byte, offset, total uint64) error {
	resp, err := packets.Response(e.Local, requesterPublicID, hbfi, nonce, data, offset, total)
	if err != nil {
		return err
	}
	e.Out <- links.InterLinkPacket{NarrowWaist: resp}
	return nil
}
