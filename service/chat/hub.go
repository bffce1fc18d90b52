package chat

import (
	"context"
	"sync"
	"time"

	"wavechat/logger"
	usermodel "wavechat/module/user/model"
	"wavechat/tools/safe"
)

// StatusWriter is the durable side of presence: marking a user
// online/offline with a timestamp. Writes are fire-and-forget; failures
// are logged, never fatal to the connection.
type StatusWriter interface {
	SetStatus(ctx context.Context, userID, status string, at time.Time) error
}

const statusWriteTimeout = 3 * time.Second

// Hub owns the Presence Registry and the Room Membership Index and fans
// events out to connections.
//
// A single mutex guards both structures. Every membership mutation and
// the stats broadcast it triggers happen inside one critical section, so
// a broadcast always reflects exactly the mutation that caused it and no
// other event can interleave between the two. Broadcasting under the
// lock is safe because enqueue never blocks.
type Hub struct {
	mu       sync.Mutex
	presence presenceRegistry
	rooms    roomIndex

	status StatusWriter
}

func NewHub(status StatusWriter) *Hub {
	return &Hub{
		presence: make(presenceRegistry),
		rooms:    make(roomIndex),
		status:   status,
	}
}

// ===== connection lifecycle =====

// Register installs the connection's Presence Entry and emits the initial
// sync ack plus a presence delta to everyone else.
//
// Reconnect policy: a second connection for the same user force-closes
// the first one and replaces its entry. The replaced connection's room
// memberships are dropped with it; the fresh entry starts with an empty
// room set and must join explicitly. No room is auto-joined.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()

	if old := h.presence[c.userID]; old != nil {
		for room := range old.rooms {
			h.rooms.remove(room, c.userID)
		}
		delete(h.presence, c.userID)
		old.client.close()
		logger.Infof("[hub] duplicate connection, kicked previous user=%s", c.userID)
	}

	e := newPresenceEntry(c)
	h.presence[c.userID] = e

	c.enqueue(EvtConnected, &ConnectedPayload{
		UserID:      c.userID,
		Username:    c.username,
		ActiveUsers: h.presence.activeUsers(),
		RoomStats:   h.rooms.stats(),
		TotalOnline: len(h.presence),
	})
	h.broadcastStatsLocked(&StatsPayload{
		Event:    TagUserOnline,
		UserID:   c.userID,
		Username: c.username,
	}, c)

	h.mu.Unlock()

	logger.Infof("[hub] user connected user=%s name=%s", c.userID, c.username)
	h.writeStatus(c.userID, usermodel.StatusOnline)
}

// Unregister tears the entry down: leaves every room, deletes the entry,
// broadcasts updated stats. Idempotent, and a no-op when the entry has
// already been replaced by a newer connection for the same user.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()

	e := h.presence[c.userID]
	if e == nil || e.client != c {
		h.mu.Unlock()
		c.close()
		return
	}

	for room := range e.rooms {
		h.rooms.remove(room, c.userID)
	}
	delete(h.presence, c.userID)

	h.broadcastStatsLocked(&StatsPayload{
		Event:    TagUserOffline,
		UserID:   c.userID,
		Username: c.username,
	}, nil)

	h.mu.Unlock()

	c.close()
	logger.Infof("[hub] user disconnected user=%s name=%s", c.userID, c.username)
	h.writeStatus(c.userID, usermodel.StatusOffline)
}

// ===== room membership =====

// Join adds the caller to a room and globally broadcasts the recomputed
// stats. Joining a room twice is absorbed by set semantics but still
// broadcasts.
func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		c.enqueue(EvtRoomError, &ErrorPayload{Error: "invalid room name"})
		return
	}

	h.mu.Lock()
	e := h.presence[c.userID]
	if e == nil || e.client != c {
		h.mu.Unlock()
		return
	}
	e.rooms[room] = struct{}{}
	h.rooms.add(room, c.userID)

	h.broadcastStatsLocked(&StatsPayload{
		Event:    TagUserJoined,
		Room:     room,
		UserID:   c.userID,
		Username: c.username,
	}, nil)
	h.mu.Unlock()

	logger.Infof("[hub] user joined room user=%s room=%s", c.userID, room)
}

// Leave mirrors Join. Leaving a room the user is not in changes nothing
// and is not an error; the stats broadcast still goes out.
func (h *Hub) Leave(c *Client, room string) {
	if room == "" {
		c.enqueue(EvtRoomError, &ErrorPayload{Error: "invalid room name"})
		return
	}

	h.mu.Lock()
	e := h.presence[c.userID]
	if e == nil || e.client != c {
		h.mu.Unlock()
		return
	}
	delete(e.rooms, room)
	h.rooms.remove(room, c.userID)

	h.broadcastStatsLocked(&StatsPayload{
		Event:    TagUserLeft,
		Room:     room,
		UserID:   c.userID,
		Username: c.username,
	}, nil)
	h.mu.Unlock()

	logger.Infof("[hub] user left room user=%s room=%s", c.userID, room)
}

// ===== fan-out =====

// RouteMessage delivers a shaped message payload. Receiver takes
// precedence: deliver to the receiver's connection when online and always
// ack the sender. Otherwise every current room member gets it, the sender
// included when joined.
func (h *Hub) RouteMessage(senderID, receiverID, room string, payload *MessagePayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if receiverID != "" {
		if e := h.presence[receiverID]; e != nil {
			e.client.enqueue(EvtMessageReceive, payload)
		}
		if e := h.presence[senderID]; e != nil {
			e.client.enqueue(EvtMessageSent, payload)
		}
		return
	}

	for uid := range h.rooms.members(room) {
		if e := h.presence[uid]; e != nil {
			e.client.enqueue(EvtMessageReceive, payload)
		}
	}
}

// RelayTyping routes a typing indicator with the same addressing as
// messages, except the sender never hears its own typing.
func (h *Hub) RelayTyping(senderID, username, receiverID, room string, stop bool) {
	evt := EvtTypingUser
	if stop {
		evt = EvtTypingStop
	}
	payload := &TypingEventPayload{UserID: senderID, Username: username}
	if receiverID == "" {
		payload.Room = room
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if receiverID != "" {
		if e := h.presence[receiverID]; e != nil {
			e.client.enqueue(evt, payload)
		}
		return
	}
	for uid := range h.rooms.members(room) {
		if uid == senderID {
			continue
		}
		if e := h.presence[uid]; e != nil {
			e.client.enqueue(evt, payload)
		}
	}
}

// ===== snapshots =====

// ActiveUsers returns (user id, display name) pairs for every presence
// entry.
func (h *Hub) ActiveUsers() []ActiveUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presence.activeUsers()
}

// Stats returns the room -> member count view plus the online total.
func (h *Hub) Stats() (map[string]int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.stats(), len(h.presence)
}

// IsOnline reports whether the user currently has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presence[userID] != nil
}

// Close force-closes every connection; used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.presence {
		e.client.close()
	}
	h.presence = make(presenceRegistry)
	h.rooms = make(roomIndex)
}

// ===== internals =====

// broadcastStatsLocked completes the tagged payload with the current
// stats view and pushes it to every connection except skip. Callers hold
// the lock, so the snapshot is exactly the post-mutation state.
func (h *Hub) broadcastStatsLocked(p *StatsPayload, skip *Client) {
	p.RoomStats = h.rooms.stats()
	p.TotalOnline = len(h.presence)
	for _, e := range h.presence {
		if e.client == skip {
			continue
		}
		e.client.enqueue(EvtStatsUpdate, p)
	}
}

// writeStatus persists the online/offline flip off the hot path.
func (h *Hub) writeStatus(userID, status string) {
	if h.status == nil {
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
		defer cancel()
		if err := h.status.SetStatus(ctx, userID, status, time.Now()); err != nil {
			logger.Errorf("[hub] status write failed user=%s status=%s err=%v", userID, status, err)
		}
	})
}
