package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
)

const eventBuffer = 32

// EventKind classifies channel events.
type EventKind int

const (
	// EventConnected fires once after the handshake succeeds.
	EventConnected EventKind = iota
	// EventDisconnected is always the final event on the channel.
	EventDisconnected
	// EventMessage carries a decoded ServerMessage.
	EventMessage
	// EventError reports a decode or socket failure. A decode failure
	// keeps the connection alive; a socket failure is followed by
	// EventDisconnected.
	EventError
)

// Event is one occurrence on the realtime channel.
type Event struct {
	Kind    EventKind
	Message ServerMessage
	Err     error
}

// Channel manages the WebSocket into one coaching session. A Channel holds
// at most one socket at a time; Connect while active fails. It is safe for
// concurrent use.
type Channel struct {
	base   url.URL
	logger logger.Logger

	mu         sync.Mutex
	active     bool
	userClosed bool
	conn       *websocket.Conn
}

// New builds a Channel. base is the HTTP base address of the backend; the
// scheme is rewritten to the WebSocket equivalent at connect time.
func New(base url.URL, log logger.Logger) *Channel {
	return &Channel{
		base:   base,
		logger: log.With("component", "realtime"),
	}
}

// Connect starts dialing /v1/ws/{sessionID} and returns the event channel
// immediately; the handshake completes in the background and reports
// EventConnected or EventError+EventDisconnected. The channel is closed
// after EventDisconnected. Connecting while a connection is active is an
// error.
func (c *Channel) Connect(ctx context.Context, sessionID uuid.UUID, token string) (<-chan Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil, errors.New("realtime: already connected")
	}
	c.active = true
	c.userClosed = false

	events := make(chan Event, eventBuffer)
	go c.run(ctx, c.endpoint(sessionID, token), sessionID, events)
	return events, nil
}

// Send pushes one frame to the backend. It fails when no connection is
// established.
func (c *Channel) Send(ctx context.Context, msg ClientMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return &apperrors.NetworkError{Err: errors.New("realtime: not connected")}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return &apperrors.UnknownError{Err: err}
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &apperrors.NetworkError{Err: err}
	}
	return nil
}

// Disconnect closes the connection with a going-away status. Calling it
// with no active connection, or twice, is a no-op.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if !c.active || c.userClosed {
		c.mu.Unlock()
		return
	}
	c.userClosed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusGoingAway, "going away")
	}
}

// endpoint rewrites the backend base address into the session's WebSocket
// URL. The token travels as a query parameter because the browser-style
// handshake carries no Authorization header.
func (c *Channel) endpoint(sessionID uuid.UUID, token string) string {
	u := c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/v1/ws/" + sessionID.String()

	q := url.Values{}
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String()
}

func (c *Channel) run(ctx context.Context, endpoint string, sessionID uuid.UUID, events chan Event) {
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.active = false
		c.mu.Unlock()
		close(events)
	}()

	c.logger.Info("connecting", "session_id", sessionID)

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		c.logger.Error("connect failed", "session_id", sessionID, "err", err)
		events <- Event{Kind: EventError, Err: &apperrors.NetworkError{Err: err}}
		events <- Event{Kind: EventDisconnected}
		return
	}

	c.mu.Lock()
	if c.userClosed {
		// Disconnect won the race with the handshake.
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "going away")
		events <- Event{Kind: EventDisconnected}
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("connected", "session_id", sessionID)
	events <- Event{Kind: EventConnected}

	c.readLoop(ctx, conn, events)
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, events chan Event) {
	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			deliberate := c.userClosed
			c.mu.Unlock()

			status := websocket.CloseStatus(err)
			if deliberate || status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.logger.Info("connection closed")
			} else {
				c.logger.Warn("connection lost", "err", err)
				events <- Event{Kind: EventError, Err: &apperrors.NetworkError{Err: err}}
			}
			events <- Event{Kind: EventDisconnected}
			return
		}

		if mt != websocket.MessageText {
			c.logger.Warn("dropping non-text frame", "message_type", int(mt))
			continue
		}

		msg, err := DecodeServerMessage(data)
		if err != nil {
			// one bad frame must not kill the stream
			c.logger.Warn("undecodable frame", "err", err)
			events <- Event{Kind: EventError, Err: &apperrors.DecodingError{Err: err}}
			continue
		}

		events <- Event{Kind: EventMessage, Message: msg}
	}
}
