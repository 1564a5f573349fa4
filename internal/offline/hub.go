// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/cardbinder/internal/platform/ctxutil"
	"github.com/taibuivan/cardbinder/pkg/uuidv7"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only answer pings; anything larger is a protocol error.
	maxMessageSize = 512

	// Pending messages per client before it counts as too slow.
	sendBuffer = 16
)

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans notifications out to every connected client context over websockets.
//
// Delivery is at most once: a client whose buffer is full is dropped and
// reconnects on its own.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*hubClient
	closed  bool
}

// NewHub creates a [Hub]. checkOrigin decides which pages may connect.
func NewHub(checkOrigin func(*http.Request) bool, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:  logger,
		clients: make(map[string]*hubClient),
	}
}

// Broadcast implements [Notifier]. It never blocks.
func (hub *Hub) Broadcast(notification Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		hub.logger.Error("hub_marshal_failed", slog.Any("error", err))
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	for id, client := range hub.clients {
		select {
		case client.send <- payload:
		default:
			delete(hub.clients, id)
			close(client.send)
			hub.logger.Warn("hub_client_dropped", slog.String("client_id", id))
		}
	}
}

// ClientCount returns the number of connected clients.
func (hub *Hub) ClientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// Close disconnects every client and refuses new ones. Safe to call twice.
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.closed {
		return
	}
	hub.closed = true
	for id, client := range hub.clients {
		delete(hub.clients, id)
		close(client.send)
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (hub *Hub) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	hub.mu.RLock()
	closed := hub.closed
	hub.mu.RUnlock()
	if closed {
		http.Error(writer, "notification hub is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := hub.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		hub.logger.Debug("hub_upgrade_failed", slog.Any("error", err))
		return
	}

	client := &hubClient{id: uuidv7.New(), conn: conn, send: make(chan []byte, sendBuffer)}

	hub.mu.Lock()
	hub.clients[client.id] = client
	count := len(hub.clients)
	hub.mu.Unlock()

	ctx := ctxutil.WithClientID(request.Context(), client.id)
	hub.logger.InfoContext(ctx, "hub_client_connected", slog.String("client_id", client.id), slog.Int("clients", count))

	go hub.writePump(client)
	hub.readPump(ctx, client)
}

func (hub *Hub) unregister(ctx context.Context, client *hubClient) {
	hub.mu.Lock()
	if current, ok := hub.clients[client.id]; ok && current == client {
		delete(hub.clients, client.id)
		close(client.send)
	}
	count := len(hub.clients)
	hub.mu.Unlock()

	hub.logger.InfoContext(ctx, "hub_client_disconnected", slog.String("client_id", ctxutil.GetClientID(ctx)), slog.Int("clients", count))
}

// readPump discards inbound frames and notices when the peer goes away.
func (hub *Hub) readPump(ctx context.Context, client *hubClient) {
	defer func() {
		hub.unregister(ctx, client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (hub *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
