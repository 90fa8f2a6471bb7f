package bridge

import (
	"context"
	"encoding/json"
	"time"

	"cdcbridge-go/bus"
	"cdcbridge-go/errcode"
	"cdcbridge-go/hal"
	"cdcbridge-go/types"
)

// Deps are the fixed collaborators Run hands to every Bridge it builds.
type Deps struct {
	UART      hal.UARTPort
	Formatter hal.UARTFormatter
	CDC       hal.CDCChannel
	USBSink   func(p []byte)
}

// Run hosts a Bridge under bus control: config/bridge reconfigures (the
// first config starts the bridge), bridge/control/stats answers with a
// counter snapshot. Blocks until ctx is cancelled.
//
// The started Bridge is also delivered on ready, if non-nil, so the caller
// can wire USB callbacks to it.
func Run(ctx context.Context, conn *bus.Connection, deps Deps, ready chan<- *Bridge) error {
	cfgSub := conn.Subscribe(bus.T("config", "bridge"))
	defer cfgSub.Unsubscribe()
	ctlSub := conn.Subscribe(bus.T("bridge", "control", bus.WildOne))
	defer ctlSub.Unsubscribe()

	var b *Bridge
	defer func() {
		if b != nil {
			b.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-cfgSub.Channel():
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				conn.Reply(msg, map[string]any{"error": errcode.Of(err).Error()}, false)
				continue
			}
			if b != nil {
				b.Stop()
			}
			b = New(Options{
				UART:          deps.UART,
				Formatter:     deps.Formatter,
				CDC:           deps.CDC,
				USBSink:       deps.USBSink,
				RingSize:      cfg.RingSize,
				DrainInterval: time.Duration(cfg.DrainIntervalMS) * time.Millisecond,
				Conn:          conn,
			})
			if err := b.Start(ctx); err != nil {
				return err
			}
			if ready != nil {
				select {
				case ready <- b:
				default:
				}
			}

		case msg := <-ctlSub.Channel():
			op, _ := msg.Topic[len(msg.Topic)-1].(string)
			switch {
			case b == nil:
				conn.Reply(msg, map[string]any{"error": errcode.NotStarted.Error()}, false)
			case op == "stats":
				conn.Reply(msg, b.Stats(), false)
			case op == "line_coding":
				conn.Reply(msg, b.GetLineCoding(), false)
			default:
				conn.Reply(msg, map[string]any{"error": errcode.Unsupported.Error()}, false)
			}
		}
	}
}

// decodeConfig accepts either a ready struct or raw JSON from the config
// service.
func decodeConfig(payload any) (types.BridgeConfig, error) {
	switch v := payload.(type) {
	case types.BridgeConfig:
		return v, nil
	case *types.BridgeConfig:
		return *v, nil
	case []byte:
		var cfg types.BridgeConfig
		if err := json.Unmarshal(v, &cfg); err != nil {
			return types.BridgeConfig{}, &errcode.E{C: errcode.InvalidPayload, Op: "decode_config", Err: err}
		}
		return cfg, nil
	default:
		return types.BridgeConfig{}, errcode.InvalidPayload
	}
}
