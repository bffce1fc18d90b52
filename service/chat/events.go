package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"wavechat/tools/decode"
)

// Client -> server events.
const (
	EvtRoomJoin    = "room:join"
	EvtRoomLeave   = "room:leave"
	EvtMessageSend = "message:send"
	EvtTypingStart = "typing:start"
	EvtTypingStop  = "typing:stop" // also server -> client
)

// Server -> client events.
const (
	EvtConnected      = "connected"
	EvtStatsUpdate    = "stats:update"
	EvtMessageReceive = "message:receive"
	EvtMessageSent    = "message:sent"
	EvtMessageError   = "message:error"
	EvtRoomError      = "room:error"
	EvtTypingUser     = "typing:user"
)

// Stats event tags carried inside stats:update.
const (
	TagUserOnline  = "user:online"
	TagUserOffline = "user:offline"
	TagUserJoined  = "user:joined"
	TagUserLeft    = "user:left"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event")
	}
	return &f, nil
}

// Envelope marshals an outbound frame. Marshal failures return nil and
// the caller drops the event.
func Envelope(event string, data any) []byte {
	b, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}

// ===== inbound payloads =====

// SendPayload is the message:send body.
type SendPayload struct {
	Receiver string `json:"receiver"`
	Room     string `json:"room"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

// TypingPayload addresses a typing indicator like a message, minus content.
type TypingPayload struct {
	Receiver string `json:"receiver"`
	Room     string `json:"room"`
}

// DecodeData turns a frame's data object into a typed payload, rejecting
// non-object shapes.
func DecodeData[T any](f *Frame) (*T, error) {
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("event %s missing data", f.Event)
	}
	var m map[string]any
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return nil, fmt.Errorf("event %s data is not an object", f.Event)
	}
	return decode.DecodeMap[T](m)
}

// DecodeRoomName accepts the room events' data either as a bare JSON
// string or as {"room": "..."} and returns the trimmed name.
func DecodeRoomName(f *Frame) (string, error) {
	if len(f.Data) == 0 {
		return "", fmt.Errorf("event %s missing room name", f.Event)
	}
	var s string
	if err := json.Unmarshal(f.Data, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	p, err := DecodeData[struct {
		Room string `json:"room"`
	}](f)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(p.Room), nil
}

// ===== outbound payloads =====

// UserRef identifies a user inside message payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
}

// MessagePayload is the canonical shape delivered for both room and
// private messages, and echoed in the sender ack.
type MessagePayload struct {
	ID        string   `json:"_id"`
	Sender    UserRef  `json:"sender"`
	Receiver  *UserRef `json:"receiver"`
	Room      string   `json:"room"`
	Content   string   `json:"content"`
	Type      string   `json:"type"`
	IsRead    bool     `json:"isRead"`
	IsEdited  bool     `json:"isEdited"`
	CreatedAt string   `json:"createdAt"` // ISO-8601
}

type ActiveUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ConnectedPayload is the one-shot sync ack for a fresh connection.
type ConnectedPayload struct {
	UserID      string         `json:"userId"`
	Username    string         `json:"username"`
	ActiveUsers []ActiveUser   `json:"activeUsers"`
	RoomStats   map[string]int `json:"roomStats"`
	TotalOnline int            `json:"totalOnline"`
}

// StatsPayload is broadcast to every connection after any membership
// change, tagged with the event that triggered it.
type StatsPayload struct {
	RoomStats   map[string]int `json:"roomStats"`
	TotalOnline int            `json:"totalOnline"`
	Event       string         `json:"event"`
	Room        string         `json:"room,omitempty"`
	UserID      string         `json:"userId"`
	Username    string         `json:"username"`
}

type ErrorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TypingEventPayload is relayed for typing:user / typing:stop.
type TypingEventPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}
