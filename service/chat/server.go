package chat

import (
	"net/http"
	"strings"
	"time"

	"wavechat/logger"
	"wavechat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxFrameBytes = 8 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server ties the gate, hub and pipeline to the WebSocket endpoint.
type Server struct {
	hub      *Hub
	pipeline *Pipeline
	gate     *Gate

	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewServer(hub *Hub, pipeline *Pipeline, gate *Gate, pingInterval, pongTimeout time.Duration) *Server {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	if pongTimeout <= 0 {
		pongTimeout = 60 * time.Second
	}
	return &Server{
		hub:          hub,
		pipeline:     pipeline,
		gate:         gate,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
	}
}

// HandleWS authenticates the handshake, upgrades, registers the presence
// entry and runs the connection's read loop on this goroutine. Commands
// from one connection are therefore processed strictly in arrival order.
func (s *Server) HandleWS(c *gin.Context) {
	user, cerr := s.gate.Authenticate(c.Request)
	if cerr != nil {
		logger.Infof("[ws] handshake rejected: %v", cerr)
		c.AbortWithStatusJSON(http.StatusUnauthorized, cerr)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := newClient(ws, user.ID.Hex(), user.Username)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	safe.Go(func() { client.writePump(s.pingInterval, s.pongTimeout) })

	client.readLoop(s.pongTimeout, maxFrameBytes, func(raw []byte) {
		// one bad frame must never take down the connection or the loop
		safe.Call(func() { s.dispatch(client, raw) })
	})
}

// dispatch decodes one inbound frame and routes it to the owning
// component. Malformed payloads and unknown events get a scoped error
// event; the connection stays up.
func (s *Server) dispatch(c *Client, raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Infof("[ws] bad frame user=%s err=%v sample=%q", c.userID, err, sample)
		c.enqueue(EvtMessageError, &ErrorPayload{Error: "malformed frame"})
		return
	}

	switch frame.Event {
	case EvtRoomJoin:
		room, err := DecodeRoomName(frame)
		if err != nil || room == "" {
			c.enqueue(EvtRoomError, &ErrorPayload{Error: "invalid room name"})
			return
		}
		s.hub.Join(c, room)

	case EvtRoomLeave:
		room, err := DecodeRoomName(frame)
		if err != nil || room == "" {
			c.enqueue(EvtRoomError, &ErrorPayload{Error: "invalid room name"})
			return
		}
		s.hub.Leave(c, room)

	case EvtMessageSend:
		data, err := DecodeData[SendPayload](frame)
		if err != nil {
			c.enqueue(EvtMessageError, &ErrorPayload{Error: "malformed message payload", Details: err.Error()})
			return
		}
		s.pipeline.Send(c, data)

	case EvtTypingStart, EvtTypingStop:
		data, err := DecodeData[TypingPayload](frame)
		if err != nil {
			// typing is best-effort; drop silently
			return
		}
		s.pipeline.Typing(c, data, frame.Event == EvtTypingStop)

	default:
		logger.Infof("[ws] unknown event %q user=%s", frame.Event, c.userID)
		c.enqueue(EvtMessageError, &ErrorPayload{
			Error:   "unsupported event",
			Details: strings.TrimSpace(frame.Event),
		})
	}
}
