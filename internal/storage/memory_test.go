package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhr/sage-bot/internal/models"
)

func TestMemoryStorageUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	_, err := s.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	user := &models.User{
		ChatID:       42,
		FirstName:    "Alice",
		UserName:     "alice",
		RegisteredAt: time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "alice", got.UserName)
	assert.Empty(t, got.PhoneNumber)

	// Duplicate registration must not be possible at the storage level.
	assert.Error(t, s.CreateUser(ctx, user))

	require.NoError(t, s.UpdateUserPhone(ctx, 42, "+15550100"))
	got, err = s.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", got.PhoneNumber)

	assert.ErrorIs(t, s.UpdateUserPhone(ctx, 99, "+15550101"), ErrNotFound)
}

func TestMemoryStorageGetUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.CreateUser(ctx, &models.User{ChatID: 1, FirstName: "Bob"}))

	got, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	got.FirstName = "mutated"

	again, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bob", again.FirstName)
}

func TestMemoryStorageAppendChatTurns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	first := &models.ChatTurn{ID: "a", ChatID: 1, UserMessage: "hi", BotResponse: "hello", CreatedAt: time.Now()}
	second := &models.ChatTurn{ID: "b", ChatID: 1, UserMessage: "bye", BotResponse: "later", CreatedAt: time.Now()}

	require.NoError(t, s.AppendChatTurn(ctx, first))
	require.NoError(t, s.AppendChatTurn(ctx, second))

	turns := s.ChatTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, "a", turns[0].ID)
	assert.Equal(t, "b", turns[1].ID)

	// Stored turns are insulated from later caller mutation.
	first.UserMessage = "mutated"
	assert.Equal(t, "hi", s.ChatTurns()[0].UserMessage)
}

func TestMemoryStorageAppendFileRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.AppendFileRecord(ctx, &models.FileRecord{
		ID:          "f1",
		ChatID:      7,
		FileName:    "report.pdf",
		Description: "a quarterly report",
		CreatedAt:   time.Now(),
	}))

	records := s.FileRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "report.pdf", records[0].FileName)
	assert.Equal(t, int64(7), records[0].ChatID)
}
