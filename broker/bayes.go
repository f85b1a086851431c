// Package broker implements Copernica's forwarding core (C6/C7/C10):
// the naive-Bayes link classifier, the per-link sparse distributed
// representations used for request dedup and forwarding hints, and
// the engine that ties classification, SDR bookkeeping and response
// caching together into one packet-handling loop. Both the classifier
// and the SDR key off packets.Fingerprint/packets.LinkKey directly, so
// they can use plain Go maps rather than a dedicated key-wrapper type.
package broker

import (
	"math"
	"sort"

	"github.com/copernica-icn/copernica/packets"
)

// LinkWeight pairs a link with its classification weight, sorted
// highest-weight-first by Classify/LogClassify.
type LinkWeight struct {
	Link   packets.LinkKey
	Weight float64
}

type linkFreq struct {
	count map[packets.LinkKey]int64
}

func newLinkFreq() *linkFreq { return &linkFreq{count: make(map[packets.LinkKey]int64)} }

func (l *linkFreq) train(link packets.LinkKey)      { l.count[link]++ }
func (l *linkFreq) superTrain(link packets.LinkKey) { l.count[link] += 4 }

func (l *linkFreq) get(link packets.LinkKey) (int64, bool) {
	v, ok := l.count[link]
	return v, ok
}

func (l *linkFreq) total() int64 {
	var t int64
	for _, v := range l.count {
		t += v
	}
	return t
}

func (l *linkFreq) keys() []packets.LinkKey {
	keys := make([]packets.LinkKey, 0, len(l.count))
	for k := range l.count {
		keys = append(keys, k)
	}
	return keys
}

type bfiFreq struct {
	// counts[fingerprint][link] is how many times link has been
	// trained against that fingerprint.
	counts map[packets.Fingerprint]map[packets.LinkKey]int64
}

func newBFIFreq() *bfiFreq {
	return &bfiFreq{counts: make(map[packets.Fingerprint]map[packets.LinkKey]int64)}
}

func (b *bfiFreq) train(fp packets.Fingerprint, link packets.LinkKey) {
	m, ok := b.counts[fp]
	if !ok {
		m = make(map[packets.LinkKey]int64)
		b.counts[fp] = m
	}
	m[link]++
}

func (b *bfiFreq) superTrain(fp packets.Fingerprint, link packets.LinkKey) {
	m, ok := b.counts[fp]
	if !ok {
		m = make(map[packets.LinkKey]int64)
		b.counts[fp] = m
	}
	m[link] += 4
}

// getFrequency returns a two-valued result: (count, fingerprintKnown).
// A known fingerprint with no count at all for this particular link is
// distinct from a fingerprint the classifier has never seen.
func (b *bfiFreq) getFrequency(fp packets.Fingerprint, link packets.LinkKey) (int64, bool) {
	m, known := b.counts[fp]
	if !known {
		return 0, false
	}
	count, hasLink := m[link]
	_ = hasLink
	return count, true
}

// Bayes is the per-broker naive-Bayes link classifier.
// Not safe for concurrent use without external synchronization. Engine
// calls it from its Run goroutine without locking, and from
// RegisterLink under its registration mutex.
type Bayes struct {
	links *linkFreq
	bfis  *bfiFreq

	minProb    float64
	minLogProb float64
}

// NewBayes constructs an empty classifier.
func NewBayes() *Bayes {
	return &Bayes{
		links:      newLinkFreq(),
		bfis:       newBFIFreq(),
		minProb:    packets.MinProb,
		minLogProb: packets.MinLogProb,
	}
}

// AddLink registers link with zero observations, so it appears as a
// forwarding candidate even before it has ever been trained.
func (b *Bayes) AddLink(link packets.LinkKey) {
	if _, ok := b.links.get(link); !ok {
		b.links.count[link] = 0
	}
}

// Train records one observation of fp having been served over link.
func (b *Bayes) Train(fp packets.Fingerprint, link packets.LinkKey) {
	b.links.train(link)
	b.bfis.train(fp, link)
}

// SuperTrain records a weight-4 observation, used when a link is known
// authoritatively to be the right answer (e.g. it is the producer
// itself) rather than merely having forwarded traffic for fp before.
func (b *Bayes) SuperTrain(fp packets.Fingerprint, link packets.LinkKey) {
	b.links.superTrain(link)
	b.bfis.superTrain(fp, link)
}

func (b *Bayes) prior(link packets.LinkKey) (float64, bool) {
	total := float64(b.links.total())
	count, ok := b.links.get(link)
	if !ok || total <= 0 {
		return 0, false
	}
	return float64(count) / total, true
}

func (b *Bayes) logPrior(link packets.LinkKey) (float64, bool) {
	total := float64(b.links.total())
	count, ok := b.links.get(link)
	if !ok || total <= 0 {
		return 0, false
	}
	return math.Log(float64(count)) - math.Log(total), true
}

func (b *Bayes) attrProb(fp packets.Fingerprint, link packets.LinkKey) (float64, bool) {
	freq, known := b.bfis.getFrequency(fp, link)
	if !known {
		return 0, false
	}
	count, ok := b.links.get(link)
	if !ok {
		return 0, false
	}
	if freq == 0 {
		return b.minProb, true
	}
	return float64(freq) / float64(count), true
}

func (b *Bayes) attrLogProb(fp packets.Fingerprint, link packets.LinkKey) (float64, bool) {
	freq, known := b.bfis.getFrequency(fp, link)
	if !known {
		return 0, false
	}
	count, ok := b.links.get(link)
	if !ok {
		return 0, false
	}
	if freq == 0 {
		return b.minLogProb, true
	}
	return math.Log(float64(freq)) - math.Log(float64(count)), true
}

func sortDescending(result []LinkWeight) {
	sort.Slice(result, func(i, j int) bool { return result[i].Weight > result[j].Weight })
}

// Classify ranks every known link by its naive-Bayes posterior weight
// for fp, highest first.
func (b *Bayes) Classify(fp packets.Fingerprint) []LinkWeight {
	var result []LinkWeight
	for _, link := range b.links.keys() {
		prior, ok := b.prior(link)
		if !ok {
			continue
		}
		weight := prior
		if p, known := b.attrProb(fp, link); known {
			weight *= p
		}
		result = append(result, LinkWeight{Link: link, Weight: weight})
	}
	sortDescending(result)
	return result
}

// LogClassify is Classify's log-domain twin, using a log-sum-exp-style
// formulation to avoid underflow on long-lived high-traffic brokers.
// With a single fingerprint term (this broker always classifies one
// fingerprint at a time) the "sum" degenerates to that one term, but
// the shape stays identical to a multi-term log-domain classifier.
func (b *Bayes) LogClassify(fp packets.Fingerprint) []LinkWeight {
	var result []LinkWeight
	for _, link := range b.links.keys() {
		logPrior, ok := b.logPrior(link)
		if !ok {
			continue
		}
		logProb, known := b.attrLogProb(fp, link)
		if !known {
			continue
		}
		weight := logProb + logPrior
		result = append(result, LinkWeight{Link: link, Weight: weight})
	}
	sortDescending(result)
	return result
}
