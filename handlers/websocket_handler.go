package handlers

import (
	"log"
	"net/http"

	"github.com/campusfest/tournament-live/live"
	"github.com/campusfest/tournament-live/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub          *live.Hub
	matchService services.MatchService
	upgrader     websocket.Upgrader
}

func NewWebSocketHandler(hub *live.Hub, matchService services.MatchService, allowedOrigins []string) *WebSocketHandler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &WebSocketHandler{
		hub:          hub,
		matchService: matchService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// ServeWs upgrades the connection and subscribes it to live snapshots. The
// first frame is the full current match list; everything after is
// incremental pushes.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("failed to upgrade viewer connection: %v", err)
		return
	}

	client := live.NewClient(h.hub, conn)
	if err := h.hub.Subscribe(client); err != nil {
		log.Printf("failed to subscribe viewer %s: %v", client.ID, err)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	list, err := h.matchService.ListMatches(r.Context())
	if err != nil {
		// The viewer still gets incremental updates; it can refetch the
		// list over REST.
		log.Printf("failed to load initial match list for viewer %s: %v", client.ID, err)
		return
	}
	frame, err := live.NewFrame(live.EventLiveScores, list.Matches)
	if err != nil {
		log.Printf("failed to build initial frame for viewer %s: %v", client.ID, err)
		return
	}
	client.TrySend(frame)
}
