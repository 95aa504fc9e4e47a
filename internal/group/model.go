package group

import "time"

// Status is the lifecycle state of a group
type Status string

const (
	StatusForming   Status = "forming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

const (
	// RequiredMembers is the number of paid members that completes a group
	RequiredMembers = 3
	// Window is how long a group stays open after it starts
	Window = 24 * time.Hour
	// InvitesPerCreator is the number of codes issued to the initiator
	InvitesPerCreator = RequiredMembers - 1
)

// Group represents a purchase group
type Group struct {
	ID          int64      `json:"id"`
	InitiatorID int64      `json:"initiator_tg_id"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Deadline is the instant after which a forming group fails
func (g *Group) Deadline() time.Time {
	return g.StartTime.Add(Window)
}

// Expired reports whether now is past the deadline
func (g *Group) Expired(now time.Time) bool {
	return now.After(g.Deadline())
}

// TimeLeft returns the time until the deadline, never negative
func (g *Group) TimeLeft(now time.Time) time.Duration {
	left := g.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Member represents a user's membership in a group
type Member struct {
	ID       int64     `json:"id"`
	GroupID  int64     `json:"group_id"`
	UserID   int64     `json:"user_tg_id"`
	Paid     bool      `json:"paid"`
	JoinedAt time.Time `json:"joined_at"`

	// Populated from JOIN
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// PaidCount counts members that have paid
func PaidCount(members []*Member) int {
	n := 0
	for _, m := range members {
		if m.Paid {
			n++
		}
	}
	return n
}
