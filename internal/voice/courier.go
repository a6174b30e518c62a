// Package voice bridges the executor to the external voice session.
//
// The voice transport itself (connect, speak, listen, audio capture) is a
// third-party SDK running in the browser; the server only needs a way to
// push short out-of-band context strings that the spoken agent can use in
// its next utterance. Delivery is best-effort and must never fail or
// block the operation that produced the update.
package voice

import (
	"log/slog"

	"github.com/starford/ansuz/internal/sse"
)

// Courier delivers contextual updates into an active voice session.
type Courier interface {
	ContextualUpdate(text string)
}

// SSECourier forwards contextual updates over the SSE stream; the browser
// client relays them into the voice SDK session.
type SSECourier struct {
	broker *sse.Broker
}

// NewSSECourier creates a courier publishing on the given broker.
func NewSSECourier(b *sse.Broker) *SSECourier {
	return &SSECourier{broker: b}
}

// ContextualUpdate publishes a context.update event. Never blocks.
func (c *SSECourier) ContextualUpdate(text string) {
	c.broker.Publish(sse.Event{
		Type: "context.update",
		Data: map[string]string{"text": text},
	})
}

// LogCourier records contextual updates to the log. Used when no voice
// session transport is wired, e.g. in the MCP stdio mode.
type LogCourier struct {
	Logger *slog.Logger
}

// ContextualUpdate logs the update text.
func (c *LogCourier) ContextualUpdate(text string) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("contextual update", slog.String("text", text))
}
