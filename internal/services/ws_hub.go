package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections. The UI keeps one connection per
// user and receives gift/friend events for documents it displays.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existingConn, exists := h.connections[userID]; exists {
		existingConn.Close()
	}

	h.connections[userID] = conn
	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[userID]; exists {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyGiftReceived tells a user a friend left a gift on their tree
func (h *WSHub) NotifyGiftReceived(receiverID, senderID string, amount int) {
	h.notify(receiverID, WSMessage{
		Type: "gift_received",
		Data: map[string]interface{}{
			"sender_id": senderID,
			"amount":    amount,
		},
	})
}

// NotifyGiftClaimed tells a sender their gift was absorbed
func (h *WSHub) NotifyGiftClaimed(senderID, receiverID string, amount int) {
	h.notify(senderID, WSMessage{
		Type: "gift_claimed",
		Data: map[string]interface{}{
			"receiver_id": receiverID,
			"amount":      amount,
		},
	})
}

// NotifyFriendAccepted tells a user their friend request was accepted
func (h *WSHub) NotifyFriendAccepted(userID, friendID string) {
	h.notify(userID, WSMessage{
		Type: "friend_accepted",
		Data: map[string]interface{}{
			"friend_id": friendID,
		},
	})
}

// NotifyFriendRemoved tells a user a friendship was dissolved
func (h *WSHub) NotifyFriendRemoved(userID, friendID string) {
	h.notify(userID, WSMessage{
		Type: "friend_removed",
		Data: map[string]interface{}{
			"friend_id": friendID,
		},
	})
}

func (h *WSHub) notify(userID string, message WSMessage) {
	if !h.IsOnline(userID) {
		return
	}
	if err := h.SendToUser(userID, message); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("type", message.Type).
			Msg("Failed to notify user")
	}
}
