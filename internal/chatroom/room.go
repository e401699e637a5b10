package chatroom

import "sort"

// Room groups the clients currently occupying the same channel. A
// Room with no members is never kept in the Registry — it is deleted
// at the instant its last member leaves, for any reason.
type Room struct {
	ID      int
	Title   string
	members map[*Client]struct{}
}

func newRoom(id int, title string) *Room {
	return &Room{ID: id, Title: title, members: make(map[*Client]struct{})}
}

func (r *Room) add(c *Client) {
	r.members[c] = struct{}{}
	c.setRoomID(r.ID)
}

func (r *Room) remove(c *Client) {
	delete(r.members, c)
	c.setRoomID(0)
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// MemberNames returns the display names of every current member,
// sorted so repeated calls are deterministic; member order otherwise
// carries no meaning.
func (r *Room) MemberNames() []string {
	names := make([]string, 0, len(r.members))
	for c := range r.members {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}
