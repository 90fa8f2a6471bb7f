package types

// BridgeStats is the counter snapshot published by the stats service and
// returned by the bridge's stats control.
type BridgeStats struct {
	ReceivedTotal  uint32 `json:"received_total"`
	ForwardedTotal uint32 `json:"forwarded_total"`
	Dropped        uint32 `json:"dropped"`
	TsMs           int64  `json:"ts_ms"`
}

// BridgeConfig arrives on the config/bridge topic.
type BridgeConfig struct {
	// RingSize is rounded up to the next power of two; 0 means default (512).
	RingSize int `json:"ring_size,omitempty"`
	// DrainIntervalMS is the drain task period; 0 means default (10).
	DrainIntervalMS int `json:"drain_interval_ms,omitempty"`
}

// StatsConfig arrives on the config/stats topic.
type StatsConfig struct {
	IntervalMS int `json:"interval_ms,omitempty"`
}
