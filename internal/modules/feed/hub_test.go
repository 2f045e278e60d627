package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restoreview/internal/modules/rating"
)

type wireEvent struct {
	Type         string        `json:"type"`
	RestaurantID int64         `json:"restaurant_id"`
	Payload      RatingPayload `json:"payload"`
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(zap.NewNop())
	r := gin.New()
	hub.RegisterRoutes(r.Group("/api/v1"))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/ratings"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func subscribe(t *testing.T, conn *websocket.Conn, restaurantID int64) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "restaurant_id": restaurantID}))
	ack := readEvent(t, conn)
	require.Equal(t, EventSubscribed, ack.Type)
	require.Equal(t, restaurantID, ack.RestaurantID)
}

func TestHub_DeliversToSubscribers(t *testing.T) {
	hub, url := startHub(t)

	a := dial(t, url)
	b := dial(t, url)
	subscribe(t, a, 1)
	subscribe(t, b, 2)
	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 1, Rating: 4.5, ReviewCount: 2})
	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 2, Rating: 3.0, ReviewCount: 1})

	ev := readEvent(t, a)
	assert.Equal(t, EventRatingUpdated, ev.Type)
	assert.Equal(t, int64(1), ev.RestaurantID)
	assert.Equal(t, 4.5, ev.Payload.Rating)
	assert.Equal(t, 2, ev.Payload.ReviewCount)

	// b never sees restaurant 1
	ev = readEvent(t, b)
	assert.Equal(t, int64(2), ev.RestaurantID)
	assert.Equal(t, 3.0, ev.Payload.Rating)
}

func TestHub_SubscribeAllAndUnsubscribe(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	subscribe(t, conn, 0)

	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 9, Rating: 5, ReviewCount: 1})
	ev := readEvent(t, conn)
	assert.Equal(t, int64(9), ev.RestaurantID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "unsubscribe", "restaurant_id": 0}))
	assert.Equal(t, EventUnsubscribed, readEvent(t, conn).Type)
	subscribe(t, conn, 3)

	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 9, Rating: 4, ReviewCount: 2})
	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 3, Rating: 2, ReviewCount: 1})
	ev = readEvent(t, conn)
	assert.Equal(t, int64(3), ev.RestaurantID)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	subscribe(t, conn, 1)
	require.Equal(t, 1, hub.Len())

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// no panic broadcasting with nobody listening
	hub.AggregateChanged(context.Background(), rating.Aggregate{RestaurantID: 1})
}
