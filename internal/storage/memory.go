package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkhr/sage-bot/internal/models"
)

type MemoryStorage struct {
	mu          sync.RWMutex
	users       map[int64]*models.User
	chatTurns   []*models.ChatTurn
	fileRecords []*models.FileRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64]*models.User),
	}
}

func (s *MemoryStorage) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[chatID]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ChatID]; exists {
		return fmt.Errorf("user %d already exists", user.ChatID)
	}

	copied := *user
	s.users[user.ChatID] = &copied
	return nil
}

func (s *MemoryStorage) UpdateUserPhone(ctx context.Context, chatID int64, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[chatID]
	if !exists {
		return ErrNotFound
	}

	user.PhoneNumber = phoneNumber
	return nil
}

func (s *MemoryStorage) AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *turn
	s.chatTurns = append(s.chatTurns, &copied)
	return nil
}

func (s *MemoryStorage) AppendFileRecord(ctx context.Context, record *models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.fileRecords = append(s.fileRecords, &copied)
	return nil
}

// ChatTurns returns a snapshot of all stored chat turns, oldest first.
func (s *MemoryStorage) ChatTurns() []*models.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ChatTurn, len(s.chatTurns))
	copy(out, s.chatTurns)
	return out
}

// FileRecords returns a snapshot of all stored file records, oldest first.
func (s *MemoryStorage) FileRecords() []*models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.FileRecord, len(s.fileRecords))
	copy(out, s.fileRecords)
	return out
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
