package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"grand-strategy/internal/protocol"
)

// Hub tracks connected clients and the game each one is watching.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]bool
	gameClients map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		gameClients: make(map[string]map[*Client]bool),
	}
}

// Register adds a client and greets it.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	msg, _ := protocol.NewMessage(protocol.TypeWelcome, protocol.WelcomePayload{
		ServerVersion: Version,
	})
	client.Send(msg)
}

// Unregister removes a client from the hub and every game.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	if clients, ok := h.gameClients[client.GameID()]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.gameClients, client.GameID())
		}
	}
	h.mu.Unlock()
	client.Close()
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// AddClientToGame moves a client into a game's broadcast list.
func (h *Hub) AddClientToGame(client *Client, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.gameClients[client.GameID()]; ok {
		delete(old, client)
	}
	if h.gameClients[gameID] == nil {
		h.gameClients[gameID] = make(map[*Client]bool)
	}
	h.gameClients[gameID][client] = true
	client.setGame(gameID)
}

// notifyGame sends a message to every client watching a game.
func (h *Hub) notifyGame(gameID string, msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		slog.Error("failed to build message", "type", msgType, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.gameClients[gameID]))
	for c := range h.gameClients[gameID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 65536
)

// Client represents a connected WebSocket client. Identity fields are only
// written by the client's own read loop.
type Client struct {
	conn    *websocket.Conn
	send    chan *protocol.Message
	limiter *rate.Limiter
	cancel  context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}

	PlayerID string
	Name     string

	gameMu sync.RWMutex
	gameID string
}

// NewClient creates a new client. cancel stops the connection's context.
func NewClient(conn *websocket.Conn, limiter *rate.Limiter, cancel context.CancelFunc) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan *protocol.Message, 256),
		limiter: limiter,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// GameID returns the game the client is watching.
func (c *Client) GameID() string {
	c.gameMu.RLock()
	defer c.gameMu.RUnlock()
	return c.gameID
}

func (c *Client) setGame(id string) {
	c.gameMu.Lock()
	c.gameID = id
	c.gameMu.Unlock()
}

// Send queues a message. A client that cannot keep up is disconnected.
func (c *Client) Send(msg *protocol.Message) {
	if msg == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		slog.Warn("client too slow, disconnecting")
		c.Close()
	}
}

// Close stops the client's pumps. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// ReadPump reads messages and dispatches them in order until the
// connection fails.
func (c *Client) ReadPump(ctx context.Context, handlers *Handlers) {
	defer c.Close()

	for {
		var msg protocol.Message
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				slog.Debug("websocket read ended", "player", c.PlayerID, "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.sendError(msg.ID, protocol.ErrCodeRateLimited, "too many messages")
			continue
		}
		handlers.Handle(ctx, c, &msg)
	}
}

// WritePump writes queued messages and keeps the connection alive.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}

// reply sends a response correlated with a request.
func (c *Client) reply(requestID string, msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		slog.Error("failed to build message", "type", msgType, "error", err)
		return
	}
	msg.ID = requestID
	c.Send(msg)
}

func (c *Client) sendError(requestID string, code protocol.ErrorCode, message string) {
	c.reply(requestID, protocol.TypeError, protocol.ErrorPayload{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}
