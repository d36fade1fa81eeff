// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	mailboxTTL   = 7 * 24 * time.Hour
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The chat front-end is served from its own origin.
		return true
	},
}

// Message is the JSON frame written to websocket clients.
type Message struct {
	Type   string    `json:"type"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// WebSocketHub delivers messages to users connected over websocket. When a
// redis client is configured, messages for users that are not connected are
// parked in a per-user mailbox and flushed on their next connect.
type WebSocketHub struct {
	clients     map[int64]*client
	clientsMu   sync.RWMutex
	redisClient *redis.Client
	pingTicker  *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWebSocketHub creates a hub. redisClient may be nil.
func NewWebSocketHub(redisClient *redis.Client) *WebSocketHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &WebSocketHub{
		clients:     make(map[int64]*client),
		redisClient: redisClient,
		pingTicker:  time.NewTicker(pingInterval),
		ctx:         ctx,
		cancel:      cancel,
	}

	go h.pingLoop()

	return h
}

func mailboxKey(userID int64) string {
	return "mailbox:" + strconv.FormatInt(userID, 10)
}

// pingLoop sends ping messages to all connected clients
func (h *WebSocketHub) pingLoop() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.pingTicker.C:
			h.pingAllClients()
		}
	}
}

// pingAllClients sends ping to all connected clients and removes dead connections
func (h *WebSocketHub) pingAllClients() {
	h.clientsMu.RLock()
	clients := make(map[int64]*client, len(h.clients))
	for id, c := range h.clients {
		clients[id] = c
	}
	h.clientsMu.RUnlock()

	for userID, c := range clients {
		if err := c.write(websocket.PingMessage, nil); err != nil {
			log.Printf("pingAllClients: userId=%d ping failed, removing connection: %v", userID, err)
			h.remove(userID, c)
			c.conn.Close()
		}
	}
}

func (h *WebSocketHub) remove(userID int64, c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if current, ok := h.clients[userID]; ok && current == c {
		delete(h.clients, userID)
	}
}

// Online reports whether the user has a live connection.
func (h *WebSocketHub) Online(userID int64) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleWebSocket upgrades the request and keeps the connection registered
// for the user given by the user_id query parameter.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("HandleWebSocket: failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	c := &client{id: uuid.New().String(), conn: conn}
	log.Printf("HandleWebSocket: userId=%d connected conn=%s", userID, c.id)

	// a newer connection replaces the previous one for the same user
	h.clientsMu.Lock()
	if prev, ok := h.clients[userID]; ok {
		prev.conn.Close()
	}
	h.clients[userID] = c
	h.clientsMu.Unlock()

	defer func() {
		h.remove(userID, c)
		log.Printf("HandleWebSocket: userId=%d disconnected conn=%s", userID, c.id)
	}()

	if err := h.sendPendingMessages(r.Context(), userID, c); err != nil {
		log.Printf("HandleWebSocket: failed to send pending messages to userId=%d: %v", userID, err)
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("HandleWebSocket: userId=%d read error: %v", userID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// Send delivers text to the user. If the user is offline the message goes
// to their redis mailbox, or ErrRecipientOffline is returned when there is none.
func (h *WebSocketHub) Send(ctx context.Context, userID int64, text string) error {
	data, err := json.Marshal(Message{Type: "notification", Text: text, SentAt: time.Now()})
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	c, online := h.clients[userID]
	h.clientsMu.RUnlock()

	if online {
		err := c.write(websocket.TextMessage, data)
		if err == nil {
			return nil
		}
		log.Printf("Send: userId=%d websocket write failed, falling back to mailbox: %v", userID, err)
	}

	if h.redisClient == nil {
		return fmt.Errorf("user %d: %w", userID, ErrRecipientOffline)
	}

	key := mailboxKey(userID)
	if err := h.redisClient.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to park message for user %d: %w", userID, err)
	}
	h.redisClient.Expire(ctx, key, mailboxTTL)

	log.Printf("Send: userId=%d offline, message parked in mailbox", userID)
	return nil
}

// sendPendingMessages flushes the user's mailbox, oldest first.
func (h *WebSocketHub) sendPendingMessages(ctx context.Context, userID int64, c *client) error {
	if h.redisClient == nil {
		return nil
	}

	key := mailboxKey(userID)
	for {
		result, err := h.redisClient.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := c.write(websocket.TextMessage, []byte(result)); err != nil {
			// put it back so it is not lost
			h.redisClient.RPush(ctx, key, result)
			return err
		}
	}
}

// Stop stops the ping loop and closes every connection.
func (h *WebSocketHub) Stop() {
	h.cancel()
	h.pingTicker.Stop()

	h.clientsMu.Lock()
	for userID, c := range h.clients {
		c.conn.Close()
		delete(h.clients, userID)
	}
	h.clientsMu.Unlock()

	log.Printf("WebSocketHub: stopped")
}
