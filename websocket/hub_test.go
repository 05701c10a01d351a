package websocket

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"reprise/types"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestClient upgrades a connection against a live hub and registers it
// on the given topic
func dialTestClient(t *testing.T, h Hub, topic string) *gorilla.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := GetUpgrader()
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := NewClient(h, conn, topic)
		h.RegisterClient(client)
		client.StartPumps()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStatusMessage(t *testing.T, conn *gorilla.Conn) types.StatusMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg types.StatusMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastReachesTrackSubscriber(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := dialTestClient(t, h, strconv.FormatInt(42, 10))
	// Registration races the broadcast; give the hub loop a beat.
	time.Sleep(50 * time.Millisecond)

	h.BroadcastStatus(42, types.StatusProcessing, 0, "extension started")

	msg := readStatusMessage(t, conn)
	assert.Equal(t, int64(42), msg.TrackID)
	assert.Equal(t, types.StatusProcessing, msg.Status)
	assert.Equal(t, "extension started", msg.Message)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestBroadcastReachesGlobalSubscriber(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := dialTestClient(t, h, TopicAll)
	time.Sleep(50 * time.Millisecond)

	h.BroadcastStatus(7, types.StatusCompleted, 1, "extension complete")

	msg := readStatusMessage(t, conn)
	assert.Equal(t, int64(7), msg.TrackID)
	assert.Equal(t, types.StatusCompleted, msg.Status)
	assert.Equal(t, 1, msg.Version)
}

func TestBroadcastSkipsOtherTracks(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := dialTestClient(t, h, strconv.FormatInt(1, 10))
	time.Sleep(50 * time.Millisecond)

	h.BroadcastStatus(2, types.StatusError, 0, "unrelated track")
	h.BroadcastStatus(1, types.StatusCompleted, 1, "mine")

	msg := readStatusMessage(t, conn)
	assert.Equal(t, int64(1), msg.TrackID, "subscriber must only see its own track")
}
