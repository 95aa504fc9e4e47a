package user

import "time"

// AuthRequest carries the raw Telegram initData string
type AuthRequest struct {
	InitData string `json:"init_data" validate:"required"`
}

// SetLanguageRequest represents the request to change the user's locale
type SetLanguageRequest struct {
	Language string `json:"lang" validate:"required,max=35"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	TelegramID int64  `json:"tg_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Language   string `json:"language"`
	CreatedAt  string `json:"created_at"`
}

// AuthResponse is returned after a successful identity verification
type AuthResponse struct {
	User  *UserResponse `json:"user"`
	Token string        `json:"token"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Language:   u.Language,
		CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
