// Package realtime maintains the live WebSocket channel into a coaching
// session: chat traffic plus the join/created announcements the backend
// pushes while a session screen is open.
package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Wire values of the "type" tag on server frames. Client frames use their
// own, shorter discriminators.
const (
	typeChatMessage    = "chat_message"
	typeSessionJoined  = "session.joined"
	typeSessionCreated = "session.created"

	msgTypeChat = "chat"
)

// ClientMessage is a frame sent to the backend.
type ClientMessage struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

// NewChatMessage builds a chat frame.
func NewChatMessage(content string) ClientMessage {
	return ClientMessage{MsgType: msgTypeChat, Content: content}
}

// ServerMessage is one of ChatMessage, SessionJoined, SessionCreated or
// Unknown. The union is closed: only this package constructs values.
type ServerMessage interface {
	serverMessage()
}

// Sender identifies the account behind a chat message.
type Sender struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ChatMessage is a chat line pushed by the backend. ID is assigned
// client-side; the wire frame carries none and list rendering needs a
// stable identity.
type ChatMessage struct {
	ID      uuid.UUID
	Sender  Sender
	Content string
}

// SessionJoined announces another attendee joining the session.
type SessionJoined struct {
	SessionID uuid.UUID
}

// SessionCreated announces a session going live.
type SessionCreated struct {
	SessionID uuid.UUID
}

// Unknown preserves frames with a type this client does not know about.
// New server-side message types must never break an installed client.
type Unknown struct {
	Type string
}

func (ChatMessage) serverMessage()    {}
func (SessionJoined) serverMessage()  {}
func (SessionCreated) serverMessage() {}
func (Unknown) serverMessage()        {}

type serverEnvelope struct {
	Type      string    `json:"type"`
	Sender    *Sender   `json:"sender"`
	Content   string    `json:"content"`
	SessionID uuid.UUID `json:"session_id"`
}

// DecodeServerMessage parses one server frame. An unrecognized type decodes
// to Unknown; only malformed JSON is an error.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var env serverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case typeChatMessage:
		msg := ChatMessage{ID: uuid.New(), Content: env.Content}
		if env.Sender != nil {
			msg.Sender = *env.Sender
		}
		return msg, nil
	case typeSessionJoined:
		return SessionJoined{SessionID: env.SessionID}, nil
	case typeSessionCreated:
		return SessionCreated{SessionID: env.SessionID}, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}
