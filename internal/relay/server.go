// Package relay synchronizes the custom event trigger between players over
// websockets: the host broadcasts every change, clients apply it to their
// local game state so all tables crossfade together.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/game"
	"github.com/Element-Re/crossblade/pkg/events"
)

const (
	frameEvent = "event"
	frameHello = "hello"
)

// Frame is one relay message in either direction.
type Frame struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan *Frame
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsClient) closeChannels() {
	c.closeOnce.Do(func() {
		close(c.send)
		close(c.done)
	})
}

// Server accepts relay connections and keeps every client's custom event in
// step with the host's.
type Server struct {
	custom *game.CustomEvent
	bus    *events.Bus

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewServer creates a relay server bound to the host's custom event.
func NewServer(custom *game.CustomEvent, bus *events.Bus) *Server {
	return &Server{
		custom:  custom,
		bus:     bus,
		clients: make(map[*wsClient]struct{}),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("relay: failed to accept websocket connection", "err", err)
		return
	}
	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan *Frame, 64),
		done: make(chan struct{}),
	}

	s.addClient(client)
	slog.Info("relay: client connected", "client", client.id)

	// New clients start from the current trigger.
	s.sendToClient(client, &Frame{Type: frameEvent, Value: s.custom.Get()})

	var wg sync.WaitGroup
	wg.Go(func() { s.writeLoop(ctx, client) })
	wg.Go(func() { s.readLoop(ctx, client) })
	wg.Wait()
}

// Run broadcasts custom event changes to every connected client until ctx
// is cancelled. Changes arriving over the relay re-enter through the bus,
// so remote and local edits follow the same path.
func (s *Server) Run(ctx context.Context) {
	ch := s.bus.Subscribe(api.SignalCustomEvent)
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			value, _ := sig.Payload.(string)
			s.broadcast(&Frame{Type: frameEvent, Value: value})
		}
	}
}

func (s *Server) readLoop(ctx context.Context, client *wsClient) {
	defer func() {
		s.removeClient(client)
		_ = client.conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("relay: client disconnected", "client", client.id)
	}()
	for {
		msgType, data, err := client.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				slog.Warn("relay: read failed", "client", client.id, "err", err)
			}
			return
		}
		if msgType != websocket.MessageText {
			s.sendToClient(client, &Frame{Error: "invalid message type"})
			continue
		}
		s.handleFrame(client, data)
	}
}

func (s *Server) writeLoop(ctx context.Context, client *wsClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-client.send:
			if !ok {
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				slog.Error("relay: marshal error", "err", err)
				continue
			}
			if err := client.conn.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Warn("relay: write failed", "client", client.id, "err", err)
				return
			}
		}
	}
}

// handleFrame applies one inbound frame. An event frame sets the custom
// trigger; the resulting bus signal fans it back out to every client.
func (s *Server) handleFrame(client *wsClient, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendToClient(client, &Frame{Error: "invalid frame: " + err.Error()})
		return
	}
	switch frame.Type {
	case frameEvent:
		slog.Debug("relay: event received", "client", client.id, "value", frame.Value)
		s.custom.Set(frame.Value)
	case frameHello:
		s.sendToClient(client, &Frame{Type: frameEvent, Value: s.custom.Get()})
	default:
		s.sendToClient(client, &Frame{Error: "unsupported type: " + frame.Type})
	}
}

func (s *Server) addClient(client *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = struct{}{}
}

func (s *Server) removeClient(client *wsClient) {
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	client.closeChannels()
}

func (s *Server) sendToClient(client *wsClient, frame *Frame) {
	select {
	case <-client.done:
	case client.send <- frame:
	}
}

func (s *Server) broadcast(frame *Frame) {
	s.mu.RLock()
	targets := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		targets = append(targets, client)
	}
	s.mu.RUnlock()

	for _, target := range targets {
		select {
		case <-target.done:
		case target.send <- frame:
		}
	}
}
