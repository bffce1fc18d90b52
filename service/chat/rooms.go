package chat

// roomIndex maps room name -> member user ids. Records exist only while
// they have at least one member, so stats never report empty rooms.
//
// Only touched while holding the hub lock.
type roomIndex map[string]map[string]struct{}

func (r roomIndex) add(room, userID string) {
	members := r[room]
	if members == nil {
		members = make(map[string]struct{})
		r[room] = members
	}
	members[userID] = struct{}{}
}

// remove is idempotent; deleting the last member drops the record.
func (r roomIndex) remove(room, userID string) {
	members := r[room]
	if members == nil {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r, room)
	}
}

func (r roomIndex) members(room string) map[string]struct{} {
	return r[room]
}

// stats recomputes the room -> member count view.
func (r roomIndex) stats() map[string]int {
	out := make(map[string]int, len(r))
	for room, members := range r {
		out[room] = len(members)
	}
	return out
}
