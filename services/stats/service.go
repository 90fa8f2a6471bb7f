// Package stats periodically publishes the bridge's counter snapshot as a
// retained bus message, so late subscribers always see the latest figures.
package stats

import (
	"context"
	"encoding/json"
	"time"

	"cdcbridge-go/bus"
	"cdcbridge-go/types"
)

var (
	topicConfigStats = bus.Topic{"config", "stats"}
	topicBridgeStats = bus.Topic{"bridge", "stats"}
)

const defaultInterval = time.Second

// Source yields the snapshot to publish; the bridge's Stats method fits.
type Source func() types.BridgeStats

type Service struct {
	src Source
}

func New(src Source) *Service { return &Service{src: src} }

// Start launches the publish loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigStats)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			conn.Publish(conn.NewMessage(topicBridgeStats, s.src(), true))
		case msg := <-cfgSub.Channel():
			if iv := intervalFrom(msg.Payload); iv > 0 {
				tick.Reset(iv)
			}
		}
	}
}

func intervalFrom(payload any) time.Duration {
	switch v := payload.(type) {
	case types.StatsConfig:
		return time.Duration(v.IntervalMS) * time.Millisecond
	case *types.StatsConfig:
		return time.Duration(v.IntervalMS) * time.Millisecond
	case []byte:
		var cfg types.StatsConfig
		if json.Unmarshal(v, &cfg) == nil {
			return time.Duration(cfg.IntervalMS) * time.Millisecond
		}
	case map[string]any:
		if ms, ok := v["interval_ms"].(float64); ok {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 0
}
