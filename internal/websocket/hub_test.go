package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pillscare/internal/logging"
	"pillscare/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// connect dials a test server that registers the connection for user and
// returns once the hub has accepted it.
func connect(t *testing.T, hub *Hub, user uuid.UUID) *websocket.Conn {
	t.Helper()
	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, user, conn).Serve()
		close(registered)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestMessageSentReachesReceiver(t *testing.T) {
	hub := startHub(t)
	sender, receiver := uuid.New(), uuid.New()
	conn := connect(t, hub, receiver)

	msg := &models.Message{ID: uuid.New(), SenderID: sender, ReceiverID: receiver, Body: "hello"}
	hub.MessageSent(msg, 3)

	ev := readEvent(t, conn)
	assert.Equal(t, EventMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hello", ev.Message.Body)

	ev = readEvent(t, conn)
	assert.Equal(t, EventUnread, ev.Type)
	require.NotNil(t, ev.Unread)
	assert.Equal(t, int64(3), *ev.Unread)
}

func TestMessagesReadReachesSender(t *testing.T) {
	hub := startHub(t)
	sender, receiver := uuid.New(), uuid.New()
	conn := connect(t, hub, sender)

	hub.MessagesRead(sender, receiver, 2, 0)

	ev := readEvent(t, conn)
	assert.Equal(t, EventRead, ev.Type)
	require.NotNil(t, ev.ReaderID)
	assert.Equal(t, receiver, *ev.ReaderID)
	assert.Equal(t, int64(2), ev.Count)
}

func TestMessagesReadRefreshesReaderBadge(t *testing.T) {
	hub := startHub(t)
	sender, receiver := uuid.New(), uuid.New()
	conn := connect(t, hub, receiver)

	hub.MessagesRead(sender, receiver, 2, 1)

	ev := readEvent(t, conn)
	assert.Equal(t, EventUnread, ev.Type)
	require.NotNil(t, ev.Unread)
	assert.Equal(t, int64(1), *ev.Unread)
}

func TestStoppedHubRejectsClients(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(&Client{UserID: uuid.New(), send: make(chan []byte, 1)}))
	// Neither call may block once the hub is gone.
	hub.SendEvent(uuid.New(), Event{Type: EventUnread})
	hub.Unregister(&Client{})
}
