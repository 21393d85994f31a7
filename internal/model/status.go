package model

// Status is the delivery state of a message. States form a total order
// SENT < DELIVERED < READ and may only ever move forward; READ is terminal.
type Status string

const (
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of s in the lattice. Unknown states rank
// below SENT so that any valid state supersedes them.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Advances reports whether moving from s to next strictly increases rank.
// Out-of-order push notifications are rejected by this check.
func (s Status) Advances(next Status) bool {
	return next.Valid() && next.Rank() > s.Rank()
}
