package models

import "time"

// User represents a registered bot user, keyed by Telegram chat ID
type User struct {
	ChatID       int64     `json:"chat_id"`
	FirstName    string    `json:"first_name"`
	UserName     string    `json:"user_name"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ChatTurn is one completed user/bot exchange. Turns are append-only
// and never mutated after creation.
type ChatTurn struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileRecord holds metadata for a successfully analyzed upload. Records
// are append-only and never mutated after creation.
type FileRecord struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	FileName    string    `json:"file_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
