package websocket

import (
	"encoding/json"
	"sync"
)

// BalanceUpdate is pushed to a wallet owner after a committed balance change.
type BalanceUpdate struct {
	WalletID      string `json:"wallet_id"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id,omitempty"`
	Type          string `json:"type,omitempty"`
}

type Hub struct {
	mu             sync.RWMutex
	clients        map[string]map[*Client]struct{}
	allowedOrigins map[string]struct{}
}

// NewHub builds a hub. An empty origin list accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			origins = map[string]struct{}{}
			break
		}
		origins[origin] = struct{}{}
	}
	return &Hub{
		clients:        make(map[string]map[*Client]struct{}),
		allowedOrigins: origins,
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Connections counts open client connections across all users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// BroadcastBalance never blocks; a client whose buffer is full misses the update.
func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if len(h.allowedOrigins) == 0 || origin == "" {
		return true
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}
