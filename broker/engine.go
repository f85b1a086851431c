package broker

import (
	"context"
	"sync"

	"github.com/copernica-icn/copernica/links"
	"github.com/copernica-icn/copernica/packets"
	"github.com/luxfi/log"
)

// ResponseCache is the subset of the response cache/coalescer (C8)
// the engine needs: a bounded, content-addressed store keyed by the
// serialized HBFI. The concrete implementation lives in
// package cache; this interface exists so broker never imports it
// directly, keeping the dependency direction leaf-first.
type ResponseCache interface {
	Get(key []byte) ([]byte, bool)
	Put(key, value []byte)
}

// linkSDRs is the three per-link sparse distributed representations
// the engine maintains.
type linkSDRs struct {
	pending        *SDR
	forwarded      *SDR
	forwardingHint *SDR
}

func newLinkSDRs() *linkSDRs {
	return &linkSDRs{pending: NewSDR(), forwarded: NewSDR(), forwardingHint: NewSDR()}
}

// EngineMetrics is the subset of Prometheus instrumentation the engine
// touches; nil fields are simply skipped, so tests can run without
// wiring a real registry.
type EngineMetrics struct {
	RequestsSeen     Counter
	ResponsesCached  Counter
	CacheHits        Counter
	ForwardsIssued   Counter
	BroadcastsIssued Counter
	PartialForgets   Counter
	PacketsDropped   Counter
}

// Counter is the minimal increment-only sink EngineMetrics needs,
// satisfied by metrics.Counter or a prometheus.Counter adapter.
type Counter interface{ Inc() }

func (m *EngineMetrics) inc(c Counter) {
	if m != nil && c != nil {
		c.Inc()
	}
}

// Engine is the broker/router engine (C7): it classifies, dedups,
// forwards, and serves narrow-waist traffic crossing link boundaries
//. One Engine owns the Bayes model and every link's
// SDR triple; apart from RegisterLink, which runs on the caller's
// goroutine under mu, all mutation happens on the single goroutine
// running Run.
type Engine struct {
	mu sync.Mutex // guards egress registration only; Run owns everything else

	Inbound chan links.InterLinkPacket

	egress map[packets.LinkKey]chan<- links.InterLinkPacket

	bayes *Bayes
	sdrs  map[packets.LinkKey]*linkSDRs

	cache ResponseCache

	topK             int
	decoherenceLimit uint8

	metrics *EngineMetrics
	logger  log.Logger
}

// NewEngine constructs an Engine. topK bounds how many ranked links a
// request fans out to;
// cache may be nil for tests that only exercise routing.
func NewEngine(cache ResponseCache, topK int, metrics *EngineMetrics, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Engine{
		Inbound:          make(chan links.InterLinkPacket, 256),
		egress:           make(map[packets.LinkKey]chan<- links.InterLinkPacket),
		bayes:            NewBayes(),
		sdrs:             make(map[packets.LinkKey]*linkSDRs),
		cache:            cache,
		topK:             topK,
		decoherenceLimit: packets.SDRForgetThresholdPercent,
		metrics:          metrics,
		logger:           logger,
	}
}

// RegisterLink makes a link known to the engine as both a classifier
// candidate and a forwarding destination.
func (e *Engine) RegisterLink(key packets.LinkKey, out chan<- links.InterLinkPacket) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.egress[key] = out
	e.bayes.AddLink(key)
	e.sdrs[key] = newLinkSDRs()
}

func (e *Engine) sdrsFor(key packets.LinkKey) *linkSDRs {
	s, ok := e.sdrs[key]
	if !ok {
		s = newLinkSDRs()
		e.sdrs[key] = s
	}
	return s
}

// Run drives the engine until ctx is cancelled, draining Inbound
// before returning.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.drain()
			return ctx.Err()
		case ilp, ok := <-e.Inbound:
			if !ok {
				return nil
			}
			e.handle(ilp)
		}
	}
}

func (e *Engine) drain() {
	for {
		select {
		case <-e.Inbound:
		default:
			return
		}
	}
}

func (e *Engine) handle(ilp links.InterLinkPacket) {
	ingress := ilp.Link.Key()
	switch ilp.NarrowWaist.Kind {
	case packets.KindRequest:
		e.metrics.inc(e.metrics.requestsSeen())
		e.handleRequest(ingress, ilp)
	case packets.KindResponse:
		e.handleResponse(ingress, ilp)
	default:
		e.metrics.inc(e.metrics.packetsDropped())
		e.logger.Warn("dropping packet with unknown kind", "kind", ilp.NarrowWaist.Kind)
	}
}

func (m *EngineMetrics) requestsSeen() Counter   { return m.fieldOrNil(func() Counter { return m.RequestsSeen }) }
func (m *EngineMetrics) packetsDropped() Counter { return m.fieldOrNil(func() Counter { return m.PacketsDropped }) }

func (m *EngineMetrics) fieldOrNil(f func() Counter) Counter {
	if m == nil {
		return nil
	}
	return f()
}

// handleRequest implements .
func (e *Engine) handleRequest(ingress packets.LinkKey, ilp links.InterLinkPacket) {
	hbfi := ilp.NarrowWaist.HBFI
	fp := hbfi.Fingerprint()
	indices := fp.SDRIndices()

	if e.cache != nil {
		if cached, hit := e.cache.Get(encodeHBFIKey(hbfi)); hit {
			e.metrics.inc(e.metrics.cacheHits())
			e.deliver(ingress, cached)
			return
		}
	}

	for _, s := range e.sdrs {
		if s.pending.Contains(indices) >= packets.SDRMatchThresholdPercent {
			return // another copy already in flight for this node, including a retransmit on ingress itself
		}
	}

	e.sdrsFor(ingress).pending.Insert(indices)
	e.bayes.Train(fp, ingress)

	ranked := e.bayes.Classify(fp)
	egressSet := e.topEgress(ranked, ingress)

	if len(egressSet) == 0 {
		e.broadcast(ingress, ilp)
		return
	}

	for _, key := range egressSet {
		e.sdrsFor(key).forwarded.Insert(indices)
		e.send(key, ilp)
	}
	e.metrics.inc(e.metrics.forwardsIssued())
	e.maintainSDRs()
}

// handleResponse implements .
func (e *Engine) handleResponse(ingress packets.LinkKey, ilp links.InterLinkPacket) {
	hbfi := ilp.NarrowWaist.HBFI
	fp := hbfi.Fingerprint()
	indices := fp.SDRIndices()

	if e.cache != nil {
		e.cache.Put(encodeHBFIKey(hbfi), ilp.NarrowWaist.Encode(nil))
		e.metrics.inc(e.metrics.responsesCached())
	}

	e.bayes.SuperTrain(fp, ingress)

	for key, s := range e.sdrs {
		if s.pending.Contains(indices) >= packets.SDRMatchThresholdPercent {
			e.send(key, ilp)
			s.pending.Delete(indices)
		}
	}

	e.sdrsFor(ingress).forwardingHint.Insert(indices)
	e.maintainSDRs()
}

// topEgress returns up to topK link keys from ranked, excluding
// ingress and any link with zero classifier weight.
func (e *Engine) topEgress(ranked []LinkWeight, ingress packets.LinkKey) []packets.LinkKey {
	var out []packets.LinkKey
	for _, lw := range ranked {
		if lw.Link == ingress || lw.Weight <= 0 {
			continue
		}
		out = append(out, lw.Link)
		if e.topK > 0 && len(out) >= e.topK {
			break
		}
	}
	return out
}

// broadcast implements the bootstrap fallback: no egress link has any
// prior evidence, so every non-ingress link is tried.
func (e *Engine) broadcast(ingress packets.LinkKey, ilp links.InterLinkPacket) {
	for key := range e.egress {
		if key == ingress {
			continue
		}
		e.send(key, ilp)
	}
	e.metrics.inc(e.metrics.broadcastsIssued())
}

func (e *Engine) send(key packets.LinkKey, ilp links.InterLinkPacket) {
	out, ok := e.egress[key]
	if !ok {
		return
	}
	select {
	case out <- ilp:
	default:
		e.metrics.inc(e.metrics.packetsDropped())
		e.logger.Warn("dropping forward: egress channel full", "link", key)
	}
}

func (e *Engine) deliver(ingress packets.LinkKey, cached []byte) {
	nw, _, err := packets.Decode(cached)
	if err != nil {
		e.logger.Warn("dropping corrupt cache entry", "error", err)
		return
	}
	e.send(ingress, links.InterLinkPacket{NarrowWaist: nw})
}

// maintainSDRs triggers PartiallyForget on any SDR whose decoherence
// has crossed the configured threshold.
func (e *Engine) maintainSDRs() {
	for _, s := range e.sdrs {
		for _, sdr := range []*SDR{s.pending, s.forwarded, s.forwardingHint} {
			if sdr.Decoherence() > e.decoherenceLimit {
				sdr.PartiallyForget()
				e.metrics.inc(e.metrics.partialForgets())
			}
		}
	}
}

func encodeHBFIKey(h packets.HBFI) []byte {
	return h.Encode(nil)
}

func (m *EngineMetrics) cacheHits() Counter       { return m.fieldOrNil(func() Counter { return m.CacheHits }) }
func (m *EngineMetrics) responsesCached() Counter { return m.fieldOrNil(func() Counter { return m.ResponsesCached }) }
func (m *EngineMetrics) forwardsIssued() Counter   { return m.fieldOrNil(func() Counter { return m.ForwardsIssued }) }
func (m *EngineMetrics) broadcastsIssued() Counter { return m.fieldOrNil(func() Counter { return m.BroadcastsIssued }) }
func (m *EngineMetrics) partialForgets() Counter   { return m.fieldOrNil(func() Counter { return m.PartialForgets }) }
