// Package bus provides the signal bus that fans pipeline events out to
// push-transport observers. The default implementation is in-process; a
// Redis-backed implementation is available for multi-process deployments.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// Well-known broadcast channels consumed by the WebSocket hub.
const (
	ChannelTweet     = "tweet"            // raw event received
	ChannelMarkets   = "markets"          // catalog refresh
	ChannelBalance   = "balance"          // wallet balance snapshot
	ChannelSession   = "session"          // session snapshot on every step transition
	ChannelAnalytics = "sessions:analytics" // analytics snapshot
)

// Envelope is the JSON frame published on every channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Emit marshals payload into an Envelope for the given channel and publishes
// it on the bus.
func Emit(ctx context.Context, b domain.SignalBus, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: marshal %s payload: %w", channel, err)
	}
	data, err := json.Marshal(Envelope{Type: channel, Payload: raw})
	if err != nil {
		return fmt.Errorf("bus: marshal %s envelope: %w", channel, err)
	}
	return b.Publish(ctx, channel, data)
}
