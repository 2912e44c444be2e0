package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/campusfest/tournament-live/metrics"
)

// ErrHubNotRunning is returned when publish or subscribe is attempted before
// Run has been started. There is exactly one hub per process and no
// reinitialization path, so this always indicates a wiring bug at startup.
var ErrHubNotRunning = errors.New("live hub is not running")

const (
	// EventLiveScores carries a full match snapshot (or a slice of them on
	// the initial frame) out to every connected viewer.
	EventLiveScores = "liveScoresUpdate"

	// EventAdminUpdateScore is the inbound frame an admin client may send
	// instead of the REST PATCH. It is routed through the same store.
	EventAdminUpdateScore = "adminUpdateScore"
)

// Message is the JSON envelope for every websocket frame, in and out.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewFrame wraps payload in the wire envelope for the given event.
func NewFrame(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Message{Type: event, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}
	return frame, nil
}

// ScoreUpdate mirrors the REST state-update body for inbound admin frames.
type ScoreUpdate struct {
	MatchID    int     `json:"match_id"`
	Status     *string `json:"status,omitempty"`
	Team1Score *int    `json:"team1_score,omitempty"`
	Team2Score *int    `json:"team2_score,omitempty"`
	WinnerTeam *string `json:"winner_team,omitempty"`
}

// ScoreUpdater persists an inbound score change. Implemented by the match
// service so socket-originated updates take the exact same validated path as
// REST ones, broadcast included.
type ScoreUpdater interface {
	ApplyScoreUpdate(ctx context.Context, upd ScoreUpdate) error
}

// Hub is the process-wide broadcast channel. It is constructed once in main,
// started with Run, and injected into whatever needs to publish.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	clients map[*Client]bool
	mu      sync.RWMutex

	updater ScoreUpdater
	running atomic.Bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// SetScoreUpdater wires the store behind inbound admin frames. Called once
// during startup, before any client connects.
func (h *Hub) SetScoreUpdater(updater ScoreUpdater) {
	h.updater = updater
}

// Run owns the client set mutations. It must be started before any
// subscribe or publish call.
func (h *Hub) Run() {
	h.running.Store(true)
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.ConnectedViewers.Inc()
			log.Printf("viewer %s connected, %d connected total", client.ID, h.ClientCount())

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				metrics.ConnectedViewers.Dec()
				log.Printf("viewer %s disconnected, %d connected total", client.ID, len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe registers a client for all future publishes.
func (h *Hub) Subscribe(client *Client) error {
	if !h.running.Load() {
		return ErrHubNotRunning
	}
	h.Register <- client
	return nil
}

// Unsubscribe removes a client from the fan-out set and closes its send
// channel. Safe to call more than once for the same client.
func (h *Hub) Unsubscribe(client *Client) error {
	if !h.running.Load() {
		return ErrHubNotRunning
	}
	h.Unregister <- client
	return nil
}

// Publish fans payload out to every connected viewer on the given event.
// Delivery is best-effort: a viewer whose send buffer is full misses the
// frame and catches up on the next one. With zero viewers the frame is
// dropped, never queued.
func (h *Hub) Publish(event string, payload interface{}) error {
	if !h.running.Load() {
		return ErrHubNotRunning
	}

	frame, err := NewFrame(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.TrySend(frame) {
			metrics.DroppedFramesTotal.Inc()
			log.Printf("viewer %s send buffer full, dropping frame", client.ID)
		}
	}
	metrics.BroadcastsTotal.Inc()
	return nil
}

// ClientCount returns the number of currently connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleInbound(client *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("viewer %s sent malformed frame: %v", client.ID, err)
		return
	}

	switch msg.Type {
	case EventAdminUpdateScore:
		if h.updater == nil {
			log.Printf("viewer %s sent %s but no score updater is wired", client.ID, msg.Type)
			return
		}
		var upd ScoreUpdate
		if err := json.Unmarshal(msg.Payload, &upd); err != nil {
			log.Printf("viewer %s sent malformed %s payload: %v", client.ID, msg.Type, err)
			return
		}
		// The service persists and republishes; nothing to emit here.
		if err := h.updater.ApplyScoreUpdate(context.Background(), upd); err != nil {
			log.Printf("inbound score update for match %d rejected: %v", upd.MatchID, err)
		}
	default:
		log.Printf("viewer %s sent unknown frame type %q, ignoring", client.ID, msg.Type)
	}
}
