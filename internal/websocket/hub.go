package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries every asset status/error event the workers publish.
const BroadcastChannel = "asset_updates"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub bridges Redis pub/sub to WebSocket clients. Connections are grouped by
// the Redis channel they listen on: anonymous clients share the broadcast
// channel, authenticated clients get their own user channel. One Redis
// subscription exists per channel with at least one listener.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	jwtSecret   []byte
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client, jwtSecret string) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		jwtSecret:   []byte(jwtSecret),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	channel := BroadcastChannel

	// With auth configured, a token is required and scopes the stream to the
	// caller's own assets. Unauthenticated deployments share the broadcast.
	if len(h.jwtSecret) > 0 {
		userID, ok := h.verifyToken(r.URL.Query().Get("token"))
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		channel = "user_updates:" + userID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(channel, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(channel, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) verifyToken(tokenStr string) (string, bool) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	userID, _ := claims["user_id"].(string)
	return userID, userID != ""
}

func (h *Hub) registerConnection(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[channel] = append(h.connections[channel], conn)

	// First listener on this channel starts its pub/sub subscription
	if len(h.connections[channel]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[channel] = cancel
		go h.subscribeToPubSub(ctx, channel)
	}

	log.Printf("WebSocket connected: channel %s (total: %d)", channel, len(h.connections[channel]))
}

func (h *Hub) unregisterConnection(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[channel]
	for i, c := range conns {
		if c == conn {
			h.connections[channel] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[channel]) == 0 {
		delete(h.connections, channel)
		if cancel, ok := h.cancelFuncs[channel]; ok {
			cancel()
			delete(h.cancelFuncs, channel)
		}
	}

	log.Printf("WebSocket disconnected: channel %s", channel)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, channel string) {
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(channel, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[channel] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
