package ws

import (
	"device-management-api/logger"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("added", map[string]interface{}{"device_id": 5, "device_name": "Thermostat"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "added", event.Type)
	assert.NotEmpty(t, event.Timestamp)

	payload, ok := event.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Thermostat", payload["device_name"])
}

func TestHub_DisconnectedClientIsRemoved(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting into an empty hub is a no-op, not a panic.
	hub.Broadcast("deleted", nil)
}

func TestHub_BroadcastDuringDisconnectDoesNotPanic(t *testing.T) {
	hub := NewHub()

	// Hammer broadcasts while clients churn so sends race against the
	// channel close in unregister.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Broadcast("updated", nil)
				}
			}
		}()
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		c := &client{send: make(chan []byte, 1)}
		hub.register(c)
		hub.unregister(c)
	}

	close(stop)
	wg.Wait()
	assert.Zero(t, hub.ClientCount())
}

func TestHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// Flood well past the send buffer without the client reading; the
	// broadcaster must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize*4; i++ {
			hub.Broadcast("updated", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
}
