package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/lobby"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection is one websocket client watching a table
type Connection struct {
	conn     *websocket.Conn
	send     chan *Message
	lobby    *lobby.Registry
	tableID  int
	playerID string
	logger   zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps ws. playerID may be empty for spectators.
func NewConnection(ws *websocket.Conn, logger zerolog.Logger, reg *lobby.Registry, tableID int, playerID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:     ws,
		send:     make(chan *Message, 256),
		lobby:    reg,
		tableID:  tableID,
		playerID: playerID,
		logger:   logger.With().Str("component", "conn").Int("table_id", tableID).Str("player_id", playerID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the pumps. unsubscribe is called once the connection ends.
func (c *Connection) Start(notes <-chan lobby.Notification, unsubscribe func()) {
	go c.writePump()
	go c.readPump()
	go c.forward(notes, unsubscribe)
}

// Done is closed when the connection has ended
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close ends the connection. The write pump closes the socket.
func (c *Connection) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// SendMessage queues msg, closing the connection when the client is too
// slow to keep up
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// forward relays lobby notifications until either side ends
func (c *Connection) forward(notes <-chan lobby.Notification, unsubscribe func()) {
	defer unsubscribe()
	for {
		select {
		case n, ok := <-notes:
			if !ok {
				_ = c.Close()
				return
			}
			for _, ev := range n.Events {
				msg, err := EventMessage(ev)
				if err != nil {
					c.logger.Error().Err(err).Str("event", ev.EventType().String()).Msg("Failed to encode event")
					continue
				}
				if c.SendMessage(msg) != nil {
					return
				}
			}
			c.sendState()
		case <-c.ctx.Done():
			return
		}
	}
}

// sendState sends the player's own view after every notification
func (c *Connection) sendState() {
	if c.playerID == "" {
		return
	}
	view, err := c.lobby.Snapshot(c.tableID, c.playerID)
	if err != nil {
		return
	}
	if msg, err := NewMessage(MessageTypeState, view); err == nil {
		_ = c.SendMessage(msg)
	}
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}
		if !c.handleMessage(&msg) {
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write message")
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes a client message and reports whether to keep
// reading
func (c *Connection) handleMessage(msg *Message) bool {
	c.logger.Debug().Str("type", string(msg.Type)).Msg("Received message")

	if c.playerID == "" {
		c.sendError("spectator", "spectators cannot send messages")
		return true
	}

	switch msg.Type {
	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse action data")
			return true
		}
		// Events reach this client through its subscription
		if _, err := c.lobby.Act(c.tableID, c.playerID, game.Action{Kind: data.Action, Amount: data.Amount}); err != nil {
			c.sendError(errorCode(err), err.Error())
		}
		return true

	case MessageTypeExit:
		return false

	default:
		c.sendError("unknown_message", "Unknown message type: "+string(msg.Type))
		return true
	}
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = c.SendMessage(msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrInvalidAction):
		return "invalid_action"
	default:
		return "error"
	}
}
