package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cipher-arena/internal/domain"
)

// Message types
const (
	MessageTypeScoreUpdate       = "score_update"
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeLifelineUsed      = "lifeline_used"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ScoreUpdate announces one player's new point total
type ScoreUpdate struct {
	PlayerID string `json:"player_id"`
	Points   int    `json:"points"`
}

// LifelineEvent announces a lifeline invocation. The effect payload is
// never broadcast; spectators only learn that a charge was spent.
type LifelineEvent struct {
	Kind     domain.LifelineKind `json:"kind"`
	PlayerID string              `json:"player_id"`
}

// LeaderboardUpdate carries a full ranked snapshot for a session
type LeaderboardUpdate struct {
	SessionID string                `json:"session_id"`
	Players   []domain.RankedPlayer `json:"players"`
}

// Hub maintains the set of active clients and broadcasts session
// events to subscribers
type Hub struct {
	// Registered clients by session ID
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	// validate gates subscribe requests against known sessions;
	// nil accepts everything
	validate func(sessionID string) error

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client    *Client
	sessionID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetSessionValidator installs the check run against every subscribe
// request. Set before Run.
func (h *Hub) SetSessionValidator(fn func(sessionID string) error) {
	h.validate = fn
}

// validSession reports whether a subscribe request names a session the
// hub will accept
func (h *Hub) validSession(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	if h.validate == nil {
		return true
	}
	return h.validate(sessionID) == nil
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for sessionID, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, sessionID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.sessionID]; !ok {
				h.clients[req.sessionID] = make(map[*Client]bool)
			}
			h.clients[req.sessionID][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "session_id", req.sessionID)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.sessionID]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.sessionID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "session_id", req.sessionID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to all subscribed clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	// Session-scoped messages only go to that session's subscribers
	if message.SessionID != "" {
		if clients, ok := h.clients[message.SessionID]; ok {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("client buffer full, skipping", "client_id", client.id)
				}
			}
		}
	} else {
		for client := range h.allClients {
			select {
			case client.send <- data:
			default:
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	}
}

// enqueue drops messages rather than blocking the caller
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// ScoreChanged announces a player's committed point total to the
// session's subscribers
func (h *Hub) ScoreChanged(sessionID, playerID string, points int) {
	h.enqueue(&Message{
		Type:      MessageTypeScoreUpdate,
		SessionID: sessionID,
		Data:      ScoreUpdate{PlayerID: playerID, Points: points},
		Timestamp: time.Now(),
	})
}

// LifelineUsed announces a lifeline invocation to the session's
// subscribers
func (h *Hub) LifelineUsed(sessionID string, kind domain.LifelineKind, actorID string) {
	h.enqueue(&Message{
		Type:      MessageTypeLifelineUsed,
		SessionID: sessionID,
		Data:      LifelineEvent{Kind: kind, PlayerID: actorID},
		Timestamp: time.Now(),
	})
}

// BroadcastLeaderboard pushes a full ranked snapshot to the session's
// subscribers
func (h *Hub) BroadcastLeaderboard(sessionID string, players []domain.RankedPlayer) {
	h.enqueue(&Message{
		Type:      MessageTypeLeaderboardUpdate,
		SessionID: sessionID,
		Data:      LeaderboardUpdate{SessionID: sessionID, Players: players},
		Timestamp: time.Now(),
	})
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a session subscription
func (h *Hub) Subscribe(client *Client, sessionID string) {
	h.subscribe <- &subscriptionRequest{
		client:    client,
		sessionID: sessionID,
	}
}

// Unsubscribe removes a client from a session subscription
func (h *Hub) Unsubscribe(client *Client, sessionID string) {
	h.unsubscribe <- &subscriptionRequest{
		client:    client,
		sessionID: sessionID,
	}
}

// GetSubscriberCount returns the number of subscribers for a session
func (h *Hub) GetSubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[sessionID]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
