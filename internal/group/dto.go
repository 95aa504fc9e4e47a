package group

import "time"

// ParticipateRequest creates a group, or joins one when RefCode is set
type ParticipateRequest struct {
	RefCode string `json:"ref_code,omitempty" validate:"omitempty,max=64"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID          int64      `json:"id"`
	InitiatorID int64      `json:"initiator_tg_id"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	Deadline    time.Time  `json:"deadline"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	UserID    int64     `json:"user_tg_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	Paid      bool      `json:"paid"`
	JoinedAt  time.Time `json:"joined_at"`
}

// StatusResponse is the group status view
type StatusResponse struct {
	Group           *GroupResponse    `json:"group"`
	TimeLeftSeconds int64             `json:"time_left_seconds"`
	PaidCount       int               `json:"paid_count"`
	RequiredMembers int               `json:"required_members"`
	Members         []*MemberResponse `json:"members"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		InitiatorID: g.InitiatorID,
		Status:      g.Status,
		StartTime:   g.StartTime,
		Deadline:    g.Deadline(),
		ClosedAt:    g.ClosedAt,
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		UserID:    m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		Paid:      m.Paid,
		JoinedAt:  m.JoinedAt,
	}
}

// ToResponse converts a View to a StatusResponse DTO
func (v *View) ToResponse() *StatusResponse {
	members := make([]*MemberResponse, 0, len(v.Members))
	for _, m := range v.Members {
		members = append(members, m.ToResponse())
	}

	return &StatusResponse{
		Group:           v.Group.ToResponse(),
		TimeLeftSeconds: int64(v.TimeLeft / time.Second),
		PaidCount:       PaidCount(v.Members),
		RequiredMembers: RequiredMembers,
		Members:         members,
	}
}
