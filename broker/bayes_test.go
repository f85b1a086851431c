package broker

import (
	"math"
	"testing"

	"github.com/copernica-icn/copernica/identity"
	"github.com/copernica-icn/copernica/packets"
	"github.com/stretchr/testify/require"
)

func newTestFingerprint(t *testing.T, app, module, function, argument string) packets.Fingerprint {
	t.Helper()
	producer, err := identity.NewPrivateIdentity()
	require.NoError(t, err)
	h := packets.New(nil, producer.Public(), app, module, function, argument)
	return h.Fingerprint()
}

func newTestLinkKey(t *testing.T) packets.LinkKey {
	t.Helper()
	id, err := identity.NewPrivateIdentity()
	require.NoError(t, err)
	return packets.LinkID{Private: id}.Key()
}

func TestBayesPriorUnanimous(t *testing.T) {
	b := NewBayes()
	fp := newTestFingerprint(t, "a", "m", "f", "x")
	l1 := newTestLinkKey(t)

	b.Train(fp, l1)

	p, ok := b.prior(l1)
	require.True(t, ok)
	require.Equal(t, 1.0, p)
}

func TestBayesPriorNonexistentLink(t *testing.T) {
	b := NewBayes()
	fp := newTestFingerprint(t, "a", "m", "f", "x")
	l1 := newTestLinkKey(t)
	l2 := newTestLinkKey(t)
	b.Train(fp, l1)

	_, ok := b.prior(l2)
	require.False(t, ok)
}

// TestBayesClassifyTwoLinks reproduces the canonical two-link
// classification scenario: one link trained once on the fingerprint
// being classified, a second link trained once on a different
// fingerprint, yields weights 0.5 and minProb*0.5 = 5e-10.
func TestBayesClassifyTwoLinks(t *testing.T) {
	b := NewBayes()
	fpMin := newTestFingerprint(t, "a", "m", "f", "x")
	fpMid := newTestFingerprint(t, "b", "n", "g", "y")
	l1 := newTestLinkKey(t)
	l2 := newTestLinkKey(t)

	b.Train(fpMin, l1)
	b.Train(fpMid, l2)

	classes := b.Classify(fpMin)
	require.Len(t, classes, 2)
	require.Equal(t, l1, classes[0].Link)
	require.InDelta(t, 0.5, classes[0].Weight, 1e-15)
	require.Equal(t, l2, classes[1].Link)
	require.InDelta(t, 5e-10, classes[1].Weight, 1e-20)
}

// TestBayesLogClassifyTwoLinks is TestBayesClassifyTwoLinks's
// log-domain twin.
func TestBayesLogClassifyTwoLinks(t *testing.T) {
	b := NewBayes()
	fpMin := newTestFingerprint(t, "a", "m", "f", "x")
	fpMid := newTestFingerprint(t, "b", "n", "g", "y")
	l1 := newTestLinkKey(t)
	l2 := newTestLinkKey(t)

	b.Train(fpMin, l1)
	b.Train(fpMid, l2)

	classes := b.LogClassify(fpMin)
	require.Len(t, classes, 2)
	require.Equal(t, l1, classes[0].Link)
	require.InDelta(t, -math.Ln2, classes[0].Weight, 1e-12)
	require.Equal(t, l2, classes[1].Link)
	require.InDelta(t, -100.0-math.Ln2, classes[1].Weight, 1e-9)
}

func TestBayesSuperTrainOutweighsTrain(t *testing.T) {
	b := NewBayes()
	fp := newTestFingerprint(t, "a", "m", "f", "x")
	l1 := newTestLinkKey(t)
	l2 := newTestLinkKey(t)

	b.Train(fp, l1)
	b.SuperTrain(fp, l2)

	classes := b.Classify(fp)
	require.Len(t, classes, 2)
	require.Equal(t, l2, classes[0].Link, "super-trained link must outrank a merely-trained one")
}

func TestBayesAddLinkWithoutTrainingStillAppearsAsCandidate(t *testing.T) {
	b := NewBayes()
	fp := newTestFingerprint(t, "a", "m", "f", "x")
	l1 := newTestLinkKey(t)
	l2 := newTestLinkKey(t)
	b.Train(fp, l1)
	b.AddLink(l2)

	classes := b.Classify(fp)
	var sawL2 bool
	for _, c := range classes {
		if c.Link == l2 {
			sawL2 = true
			require.Equal(t, 0.0, c.Weight)
		}
	}
	require.True(t, sawL2)
}
