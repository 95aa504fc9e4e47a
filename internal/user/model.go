package user

import "time"

// DefaultLanguage is assigned when the client locale is not supported
const DefaultLanguage = "ru"

// User represents a platform (Telegram) user
type User struct {
	TelegramID int64     `json:"tg_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
