package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client with no socket; events land in its send
// queue where tests read them back.
func newTestClient(userID, username string) *Client {
	return newClient(nil, userID, username)
}

func nextFrame(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case b := <-c.send:
		f, err := ParseFrame(b)
		require.NoError(t, err)
		return f
	default:
		t.Fatal("expected a queued event, got none")
		return nil
	}
}

func decodeInto(t *testing.T, f *Frame, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Data, out))
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("expected no event, got %s", b)
	default:
	}
}

func isClosed(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func TestRegisterSendsConnectedAck(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient("u1", "alice")
	h.Register(c)

	f := nextFrame(t, c)
	assert.Equal(t, EvtConnected, f.Event)

	var p ConnectedPayload
	decodeInto(t, f, &p)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, 1, p.TotalOnline)
	assert.Len(t, p.ActiveUsers, 1)
	assert.Empty(t, p.RoomStats)

	// the actor is skipped by its own online broadcast
	assertNoEvent(t, c)
}

func TestRegisterBroadcastsOnlineToOthers(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	b := newTestClient("u2", "bob")
	h.Register(a)
	drain(a)

	h.Register(b)

	f := nextFrame(t, a)
	assert.Equal(t, EvtStatsUpdate, f.Event)

	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserOnline, p.Event)
	assert.Equal(t, "u2", p.UserID)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, 2, p.TotalOnline)

	// bob only gets his connected ack
	f = nextFrame(t, b)
	assert.Equal(t, EvtConnected, f.Event)
	assertNoEvent(t, b)
}

func TestJoinBroadcastsToEveryone(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	b := newTestClient("u2", "bob")
	h.Register(a)
	h.Register(b)
	drain(a)
	drain(b)

	h.Join(a, "general")

	for _, c := range []*Client{a, b} {
		f := nextFrame(t, c)
		assert.Equal(t, EvtStatsUpdate, f.Event)
		var p StatsPayload
		decodeInto(t, f, &p)
		assert.Equal(t, TagUserJoined, p.Event)
		assert.Equal(t, "general", p.Room)
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, map[string]int{"general": 1}, p.RoomStats)
		assert.Equal(t, 2, p.TotalOnline)
	}
}

func TestJoinTwiceKeepsCountStable(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	h.Register(a)
	drain(a)

	h.Join(a, "general")
	drain(a)
	h.Join(a, "general")

	f := nextFrame(t, a)
	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserJoined, p.Event)
	assert.Equal(t, map[string]int{"general": 1}, p.RoomStats)

	stats, online := h.Stats()
	assert.Equal(t, map[string]int{"general": 1}, stats)
	assert.Equal(t, 1, online)
}

func TestLeaveRemovesEmptyRoom(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	h.Register(a)
	h.Join(a, "general")
	drain(a)

	h.Leave(a, "general")

	f := nextFrame(t, a)
	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserLeft, p.Event)
	assert.Equal(t, "general", p.Room)
	assert.Empty(t, p.RoomStats)
}

func TestLeaveNotJoinedStillBroadcasts(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	h.Register(a)
	drain(a)

	h.Leave(a, "nowhere")

	f := nextFrame(t, a)
	assert.Equal(t, EvtStatsUpdate, f.Event)
	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserLeft, p.Event)
	assert.Empty(t, p.RoomStats)
	assert.Equal(t, 1, p.TotalOnline)
}

func TestJoinEmptyRoomRejected(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	h.Register(a)
	drain(a)

	h.Join(a, "")

	f := nextFrame(t, a)
	assert.Equal(t, EvtRoomError, f.Event)

	stats, _ := h.Stats()
	assert.Empty(t, stats)
}

func TestUnregisterCleansRoomsAndBroadcasts(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	b := newTestClient("u2", "bob")
	h.Register(a)
	h.Register(b)
	h.Join(a, "general")
	h.Join(a, "dev")
	h.Join(b, "general")
	drain(a)
	drain(b)

	h.Unregister(a)

	assert.True(t, isClosed(a))
	f := nextFrame(t, b)
	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserOffline, p.Event)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, map[string]int{"general": 1}, p.RoomStats)
	assert.Equal(t, 1, p.TotalOnline)

	assert.False(t, h.IsOnline("u1"))
	assert.True(t, h.IsOnline("u2"))
}

func TestReconnectReplacesOldConnection(t *testing.T) {
	h := NewHub(nil)
	old := newTestClient("u1", "alice")
	h.Register(old)
	h.Join(old, "general")
	drain(old)

	fresh := newTestClient("u1", "alice")
	h.Register(fresh)

	assert.True(t, isClosed(old))

	// the fresh entry starts with no room memberships
	f := nextFrame(t, fresh)
	assert.Equal(t, EvtConnected, f.Event)
	var p ConnectedPayload
	decodeInto(t, f, &p)
	assert.Equal(t, 1, p.TotalOnline)
	assert.Empty(t, p.RoomStats)

	stats, online := h.Stats()
	assert.Empty(t, stats)
	assert.Equal(t, 1, online)
}

func TestUnregisterStaleConnectionIsNoop(t *testing.T) {
	h := NewHub(nil)
	old := newTestClient("u1", "alice")
	h.Register(old)
	fresh := newTestClient("u1", "alice")
	h.Register(fresh)
	drain(fresh)

	// the read loop of the replaced connection exits and unregisters
	h.Unregister(old)

	assert.True(t, h.IsOnline("u1"))
	assertNoEvent(t, fresh)
}

func TestRouteMessagePrivate(t *testing.T) {
	h := NewHub(nil)
	sender := newTestClient("u1", "alice")
	receiver := newTestClient("u2", "bob")
	other := newTestClient("u3", "carol")
	h.Register(sender)
	h.Register(receiver)
	h.Register(other)
	drain(sender)
	drain(receiver)
	drain(other)

	payload := &MessagePayload{ID: "m1", Content: "hi"}
	h.RouteMessage("u1", "u2", "", payload)

	f := nextFrame(t, receiver)
	assert.Equal(t, EvtMessageReceive, f.Event)
	f = nextFrame(t, sender)
	assert.Equal(t, EvtMessageSent, f.Event)
	assertNoEvent(t, other)
}

func TestRouteMessagePrivateOfflineReceiverStillAcks(t *testing.T) {
	h := NewHub(nil)
	sender := newTestClient("u1", "alice")
	h.Register(sender)
	drain(sender)

	h.RouteMessage("u1", "u2", "", &MessagePayload{ID: "m1"})

	f := nextFrame(t, sender)
	assert.Equal(t, EvtMessageSent, f.Event)
	assertNoEvent(t, sender)
}

func TestRouteMessageRoom(t *testing.T) {
	h := NewHub(nil)
	sender := newTestClient("u1", "alice")
	member := newTestClient("u2", "bob")
	outsider := newTestClient("u3", "carol")
	h.Register(sender)
	h.Register(member)
	h.Register(outsider)
	h.Join(sender, "general")
	h.Join(member, "general")
	drain(sender)
	drain(member)
	drain(outsider)

	h.RouteMessage("u1", "", "general", &MessagePayload{ID: "m1", Room: "general"})

	// room fan-out includes the sender
	for _, c := range []*Client{sender, member} {
		f := nextFrame(t, c)
		assert.Equal(t, EvtMessageReceive, f.Event)
	}
	assertNoEvent(t, outsider)
}

func TestRelayTypingRoomSkipsSender(t *testing.T) {
	h := NewHub(nil)
	sender := newTestClient("u1", "alice")
	member := newTestClient("u2", "bob")
	h.Register(sender)
	h.Register(member)
	h.Join(sender, "general")
	h.Join(member, "general")
	drain(sender)
	drain(member)

	h.RelayTyping("u1", "alice", "", "general", false)

	f := nextFrame(t, member)
	assert.Equal(t, EvtTypingUser, f.Event)
	var p TypingEventPayload
	decodeInto(t, f, &p)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "general", p.Room)
	assertNoEvent(t, sender)
}

func TestRelayTypingPrivateStop(t *testing.T) {
	h := NewHub(nil)
	sender := newTestClient("u1", "alice")
	receiver := newTestClient("u2", "bob")
	h.Register(sender)
	h.Register(receiver)
	drain(sender)
	drain(receiver)

	h.RelayTyping("u1", "alice", "u2", "", true)

	f := nextFrame(t, receiver)
	assert.Equal(t, EvtTypingStop, f.Event)
	var p TypingEventPayload
	decodeInto(t, f, &p)
	assert.Equal(t, "u1", p.UserID)
	assert.Empty(t, p.Room)
	assertNoEvent(t, sender)
}

func TestStatsConsistency(t *testing.T) {
	h := NewHub(nil)
	clients := []*Client{
		newTestClient("u1", "alice"),
		newTestClient("u2", "bob"),
		newTestClient("u3", "carol"),
	}
	for _, c := range clients {
		h.Register(c)
	}
	h.Join(clients[0], "general")
	h.Join(clients[1], "general")
	h.Join(clients[1], "dev")
	h.Join(clients[2], "dev")

	stats, online := h.Stats()
	assert.Equal(t, map[string]int{"general": 2, "dev": 2}, stats)
	assert.Equal(t, 3, online)
	assert.Len(t, h.ActiveUsers(), 3)

	h.Unregister(clients[1])
	stats, online = h.Stats()
	assert.Equal(t, map[string]int{"general": 1, "dev": 1}, stats)
	assert.Equal(t, 2, online)
}

func TestCloseDropsEveryone(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient("u1", "alice")
	b := newTestClient("u2", "bob")
	h.Register(a)
	h.Register(b)

	h.Close()

	assert.True(t, isClosed(a))
	assert.True(t, isClosed(b))
	_, online := h.Stats()
	assert.Zero(t, online)
}
