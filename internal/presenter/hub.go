// Package presenter доставляет события сессий клиентам по WebSocket.
package presenter

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"story-engine/internal/judgment"
	"story-engine/internal/story"
	"story-engine/internal/traversal"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Типы сообщений для клиента.
const (
	MessageRender    = "render"
	MessageChoices   = "choices"
	MessageChallenge = "challenge"
	MessageResult    = "result"
	MessageToken     = "token"
	MessageAdvisory  = "advisory"
)

// Message - конверт сообщения в WebSocket.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
}

type client struct {
	playerID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

// Hub хранит соединения игроков. У игрока может быть несколько вкладок.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	closed  bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger.Named("PresenterHub"),
		clients: map[uuid.UUID]map[*client]struct{}{},
	}
}

// ServeWS поднимает соединение до WebSocket и держит его до разрыва или закрытия хаба.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{playerID: playerID, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return nil
	}
	log := h.logger.With(zap.String("player_id", playerID.String()))
	log.Info("WebSocket connection established")

	go c.writePump(log)
	c.readPump(h, log)
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[c.playerID] == nil {
		h.clients[c.playerID] = map[*client]struct{}{}
	}
	h.clients[c.playerID][c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.playerID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.playerID)
	}
	close(c.send)
}

// Connections returns the number of open connections of a player.
func (h *Hub) Connections(playerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID])
}

// SendToPlayer ставит сообщение в очередь всех соединений игрока и возвращает
// число соединений, которые его приняли. Переполненная очередь сообщение теряет.
func (h *Hub) SendToPlayer(playerID uuid.UUID, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients[playerID] {
		select {
		case c.send <- message:
			delivered++
		default:
			h.logger.Warn("Send queue full, message dropped", zap.String("player_id", playerID.String()))
		}
	}
	return delivered
}

// Close разрывает все соединения. Новые после этого не принимаются.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		_ = c.conn.Close()
	}
}

// Run закрывает хаб при отмене ctx.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

func (c *client) readPump(h *Hub, log *zap.Logger) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		log.Debug("readPump finished")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		// Клиент ничего не присылает, входящие сообщения игнорируются
	}
}

func (c *client) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("Failed to write message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PresenterFor возвращает presenter, который шлет события сессии всем соединениям игрока.
func (h *Hub) PresenterFor(playerID, sessionID uuid.UUID) traversal.Presenter {
	return &sessionPresenter{hub: h, playerID: playerID, sessionID: sessionID.String()}
}

type sessionPresenter struct {
	hub       *Hub
	playerID  uuid.UUID
	sessionID string
}

var _ traversal.Presenter = (*sessionPresenter)(nil)

func (p *sessionPresenter) push(kind string, payload interface{}) {
	data, err := json.Marshal(Message{Type: kind, SessionID: p.sessionID, Payload: payload})
	if err != nil {
		p.hub.logger.Error("Failed to marshal presenter message", zap.String("type", kind), zap.Error(err))
		return
	}
	p.hub.SendToPlayer(p.playerID, data)
}

func (p *sessionPresenter) Render(node *story.Node) { p.push(MessageRender, NewNodeView(node)) }

func (p *sessionPresenter) RenderChoices(choices []story.Choice) {
	p.push(MessageChoices, NewChoiceViews(choices))
}

func (p *sessionPresenter) RenderChallenge(c *story.Challenge) {
	p.push(MessageChallenge, NewChallengeView(c))
}

func (p *sessionPresenter) RenderResult(r judgment.Result) { p.push(MessageResult, r) }

func (p *sessionPresenter) PlayToken(category string) {
	p.push(MessageToken, map[string]string{"category": category})
}

func (p *sessionPresenter) RenderAdvisory(message string) {
	p.push(MessageAdvisory, map[string]string{"message": message})
}
