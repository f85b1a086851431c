package broker

import "github.com/copernica-icn/copernica/metrics"

// NewEngineMetrics registers the broker's counters against reg and
// returns them wrapped as an EngineMetrics.
func NewEngineMetrics(reg metrics.Registry) *EngineMetrics {
	return &EngineMetrics{
		RequestsSeen:     reg.NewCounter("broker_requests_seen"),
		ResponsesCached:  reg.NewCounter("broker_responses_cached"),
		CacheHits:        reg.NewCounter("broker_cache_hits"),
		ForwardsIssued:   reg.NewCounter("broker_forwards_issued"),
		BroadcastsIssued: reg.NewCounter("broker_broadcasts_issued"),
		PartialForgets:   reg.NewCounter("broker_sdr_partial_forgets"),
		PacketsDropped:   reg.NewCounter("broker_packets_dropped"),
	}
}
