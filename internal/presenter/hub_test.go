package presenter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"story-engine/internal/judgment"
	"story-engine/internal/story"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub, playerID uuid.UUID) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, playerID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(playerID) > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_PresenterPushesToPlayer(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	player := uuid.New()
	session := uuid.New()
	conn := dialHub(t, hub, player)

	p := hub.PresenterFor(player, session)
	p.Render(&story.Node{ID: "p1", ChapterID: "prologue", Speaker: "Narrator", Text: "Hello", Background: "gate.png"})
	p.RenderChoices([]story.Choice{{Text: "Go", Type: "good"}, {Text: "Stay"}})
	p.RenderResult(judgment.Result{Passed: true, Provenance: judgment.ProvenanceLocal})
	p.PlayToken("good_deed")

	msg := readMessage(t, conn)
	assert.Equal(t, MessageRender, msg.Type)
	assert.Equal(t, session.String(), msg.SessionID)
	node := msg.Payload.(map[string]interface{})
	assert.Equal(t, "p1", node["nodeId"])
	assert.Equal(t, "gate.png", node["background"])

	msg = readMessage(t, conn)
	assert.Equal(t, MessageChoices, msg.Type)
	assert.Len(t, msg.Payload, 2)

	msg = readMessage(t, conn)
	assert.Equal(t, MessageResult, msg.Type)
	assert.Equal(t, true, msg.Payload.(map[string]interface{})["passed"])

	msg = readMessage(t, conn)
	assert.Equal(t, MessageToken, msg.Type)
	assert.Equal(t, "good_deed", msg.Payload.(map[string]interface{})["category"])
}

func TestHub_OtherPlayersDoNotReceive(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	alice := uuid.New()
	dialHub(t, hub, alice)

	assert.Zero(t, hub.SendToPlayer(uuid.New(), []byte(`{}`)))
	assert.Equal(t, 1, hub.SendToPlayer(alice, []byte(`{}`)))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	player := uuid.New()
	conn := dialHub(t, hub, player)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(player) == 0 }, 2*time.Second, 10*time.Millisecond)
}
