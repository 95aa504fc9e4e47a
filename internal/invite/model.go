package invite

import "time"

// Invite is a single-use code that admits one user into a group
type Invite struct {
	Code          string     `json:"code"`
	GroupID       int64      `json:"group_id"`
	OwnerMemberID int64      `json:"owner_member_id"`
	RedeemedBy    *int64     `json:"redeemed_by,omitempty"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Redeemed reports whether the code has been consumed
func (i *Invite) Redeemed() bool {
	return i.RedeemedBy != nil
}
