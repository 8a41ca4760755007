package storage

import (
	"context"
	"errors"

	"github.com/dkhr/sage-bot/internal/models"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage persists users, chat turns and file records. ChatTurn and
// FileRecord collections are append-only; a user is created once and
// only their phone number is ever updated afterwards.
type Storage interface {
	GetUser(ctx context.Context, chatID int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserPhone(ctx context.Context, chatID int64, phoneNumber string) error

	AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error
	AppendFileRecord(ctx context.Context, record *models.FileRecord) error

	Close() error
}
