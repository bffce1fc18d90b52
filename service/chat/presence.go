package chat

// presenceEntry is the live record for one connected user: its connection
// and the set of rooms it has joined. At most one entry exists per user id;
// a reconnect replaces the entry and force-closes the previous connection.
//
// Entries are only touched while holding the hub lock.
type presenceEntry struct {
	userID   string
	username string
	client   *Client
	rooms    map[string]struct{}
}

func newPresenceEntry(c *Client) *presenceEntry {
	return &presenceEntry{
		userID:   c.userID,
		username: c.username,
		client:   c,
		rooms:    make(map[string]struct{}),
	}
}

type presenceRegistry map[string]*presenceEntry

func (p presenceRegistry) activeUsers() []ActiveUser {
	out := make([]ActiveUser, 0, len(p))
	for _, e := range p {
		out = append(out, ActiveUser{UserID: e.userID, Username: e.username})
	}
	return out
}
