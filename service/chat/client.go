package chat

import (
	"sync"
	"time"

	"wavechat/logger"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 64

// Client is one live authenticated connection. The hub addresses it only
// through enqueue; the write pump is the sole writer on the socket.
type Client struct {
	conn     *websocket.Conn
	userID   string
	username string

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		conn:     conn,
		userID:   userID,
		username: username,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) UserID() string   { return c.userID }
func (c *Client) Username() string { return c.username }

// enqueue pushes an event onto the connection's send queue without
// blocking. A full queue means a dead or hopeless consumer: drop it.
func (c *Client) enqueue(event string, data any) {
	b := Envelope(event, data)
	if b == nil {
		logger.Warnf("[ws] drop unmarshalable event %s user=%s", event, c.userID)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	default:
		logger.Warnf("[ws] send queue full, dropping connection user=%s", c.userID)
		c.close()
	}
}

// close is idempotent and safe from any goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// writePump owns all writes: queued events plus the liveness pings.
func (c *Client) writePump(pingInterval, pongTimeout time.Duration) {
	writeWait := pongTimeout / 6
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop feeds raw frames to handle until the connection dies. Pongs
// extend the read deadline; a silent peer times out after pongTimeout.
func (c *Client) readLoop(pongTimeout time.Duration, maxFrameBytes int64, handle func([]byte)) {
	defer c.close()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] read err user=%s err=%v", c.userID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		handle(data)
	}
}
