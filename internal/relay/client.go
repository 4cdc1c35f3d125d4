package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/Element-Re/crossblade/internal/game"
)

// Client connects to a host's relay and mirrors its custom event into the
// local game state.
type Client struct {
	url    string
	custom *game.CustomEvent
}

// NewClient creates a relay client for the given websocket URL.
func NewClient(url string, custom *game.CustomEvent) *Client {
	return &Client{url: url, custom: custom}
}

// Run connects and applies event frames until ctx is cancelled. A dropped
// connection is retried with a fixed backoff.
func (c *Client) Run(ctx context.Context) error {
	const retryDelay = 5 * time.Second

	for {
		if err := c.runOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("relay: connection lost, retrying", "url", c.url, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	slog.Info("relay: connected", "url", c.url)

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("relay: invalid frame", "err", err)
			continue
		}
		if frame.Error != "" {
			slog.Warn("relay: server error", "err", frame.Error)
			continue
		}
		if frame.Type == frameEvent {
			slog.Debug("relay: applying event", "value", frame.Value)
			c.custom.Set(frame.Value)
		}
	}
}

// Send pushes a custom event change to the host.
func Send(ctx context.Context, conn *websocket.Conn, value string) error {
	data, err := json.Marshal(&Frame{Type: frameEvent, Value: value})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
