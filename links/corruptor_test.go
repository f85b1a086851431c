package links

import (
	"context"
	"testing"
	"time"

	"github.com/copernica-icn/copernica/packets"
	"github.com/stretchr/testify/require"
)

func TestMpscCorruptorRecoversWithinParityBudget(t *testing.T) {
	producer := mustLinkIdentity(t)
	aToB, bToA := NewCorruptorWire(4)

	aID := newUnpairedLinkID(t)
	bID := newUnpairedLinkID(t)

	aFromRouter := make(chan InterLinkPacket, 4)
	bToRouter := make(chan InterLinkPacket, 4)

	schedule := []Corruption{{CodewordIndex: 0, ByteOffsets: []int{2, 10, 20}}}
	a := NewMpscCorruptor(aID, aToB, bToA, RouterChannels{ToRouter: make(chan InterLinkPacket, 4), FromRouter: aFromRouter}, schedule)
	b := NewMpscCorruptor(bID, bToA, aToB, RouterChannels{ToRouter: bToRouter, FromRouter: make(chan InterLinkPacket, 4)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	h := packets.New(nil, producer.Public(), "store", "blocks", "get", "abc")
	req, err := packets.Request(h, nil)
	require.NoError(t, err)

	aFromRouter <- InterLinkPacket{ReplyTo: packets.ReplyTo{Kind: packets.ReplyToMpsc}, NarrowWaist: req}

	select {
	case got := <-bToRouter:
		require.Equal(t, req.HBFI, got.NarrowWaist.HBFI)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for recovered delivery despite corruption within parity budget")
	}
}

func TestMpscCorruptorDropsBeyondParityBudget(t *testing.T) {
	producer := mustLinkIdentity(t)
	aToB, bToA := NewCorruptorWire(4)

	aID := newUnpairedLinkID(t)
	bID := newUnpairedLinkID(t)

	aFromRouter := make(chan InterLinkPacket, 4)
	bToRouter := make(chan InterLinkPacket, 4)

	schedule := []Corruption{{CodewordIndex: 0, ByteOffsets: []int{1, 2, 3, 4, 5, 6, 7}}}
	a := NewMpscCorruptor(aID, aToB, bToA, RouterChannels{ToRouter: make(chan InterLinkPacket, 4), FromRouter: aFromRouter}, schedule)
	b := NewMpscCorruptor(bID, bToA, aToB, RouterChannels{ToRouter: bToRouter, FromRouter: make(chan InterLinkPacket, 4)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	h := packets.New(nil, producer.Public(), "store", "blocks", "get", "abc")
	req, err := packets.Request(h, nil)
	require.NoError(t, err)

	aFromRouter <- InterLinkPacket{ReplyTo: packets.ReplyTo{Kind: packets.ReplyToMpsc}, NarrowWaist: req}

	select {
	case <-bToRouter:
		t.Fatal("expected corruption beyond parity budget to be dropped, not delivered")
	case <-time.After(200 * time.Millisecond):
	}
}
