package domain

// Room is a snapshot of one room's membership. Members are listed in
// join order.
type Room struct {
	ID      RoomID
	Members []ConnectionID
}

func (r Room) Size() int {
	return len(r.Members)
}
