package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"restoreview/internal/metrics"
	"restoreview/internal/modules/rating"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// read-only public feed
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is pushed to feed clients.
type Event struct {
	Type         string      `json:"type"`
	RestaurantID int64       `json:"restaurant_id,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

const (
	EventRatingUpdated = "rating_updated"
	EventSubscribed    = "subscribed"
	EventUnsubscribed  = "unsubscribed"
)

type RatingPayload struct {
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// connection is one websocket client. A restaurant id of 0 in restaurants
// subscribes to every restaurant.
type connection struct {
	conn        *websocket.Conn
	send        chan []byte
	restaurants map[int64]bool
}

func (c *connection) wants(restaurantID int64) bool {
	return c.restaurants[0] || c.restaurants[restaurantID]
}

// Hub fans rating changes out to subscribed websocket clients.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*connection]struct{}),
		logger:      logger,
	}
}

func (h *Hub) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/ws/ratings", h.Handle)
}

// Handle upgrades the request and serves the connection until it closes.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.ServeWS(conn)
}

// AggregateChanged broadcasts the new aggregate to its subscribers.
func (h *Hub) AggregateChanged(_ context.Context, agg rating.Aggregate) {
	h.Broadcast(&Event{
		Type:         EventRatingUpdated,
		RestaurantID: agg.RestaurantID,
		Payload: RatingPayload{
			Rating:      agg.Rating,
			ReviewCount: agg.ReviewCount,
			UpdatedAt:   agg.UpdatedAt,
		},
	})
}

// Broadcast sends an event to every client subscribed to its restaurant.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if c.wants(event.RestaurantID) {
			select {
			case c.send <- data:
			default:
				// client too slow, skip
			}
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.connections {
		delete(h.connections, c)
		close(c.send)
	}
	metrics.FeedConnections.Set(0)
}

func (h *Hub) ServeWS(conn *websocket.Conn) {
	c := &connection{
		conn:        conn,
		send:        make(chan []byte, 256),
		restaurants: make(map[int64]bool),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c) // blocks until disconnect
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
	metrics.FeedConnections.Inc()
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
		metrics.FeedConnections.Dec()
	}
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Type         string `json:"type"`
			RestaurantID int64  `json:"restaurant_id"`
		}
		if err := json.Unmarshal(msg, &req); err != nil || req.RestaurantID < 0 {
			continue
		}

		var ack string
		h.mu.Lock()
		switch req.Type {
		case "subscribe":
			c.restaurants[req.RestaurantID] = true
			ack = EventSubscribed
		case "unsubscribe":
			delete(c.restaurants, req.RestaurantID)
			ack = EventUnsubscribed
		}
		h.mu.Unlock()

		if ack != "" {
			h.reply(c, &Event{Type: ack, RestaurantID: req.RestaurantID})
		}
	}
}

func (h *Hub) reply(c *connection, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
