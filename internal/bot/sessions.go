package bot

import "sync"

// chatMode steers how the next plain-text message from a chat is interpreted.
type chatMode int

const (
	modeIdle chatMode = iota
	modeAwaitingSearchQuery
)

// sessionStore holds per-chat ephemeral modes. At most one mode is active
// per chat, and nothing here survives a restart.
type sessionStore struct {
	mu    sync.Mutex
	modes map[int64]chatMode
}

func newSessionStore() *sessionStore {
	return &sessionStore{modes: make(map[int64]chatMode)}
}

// enterSearchMode marks the chat so that its next text message is treated
// as a search query.
func (s *sessionStore) enterSearchMode(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[chatID] = modeAwaitingSearchQuery
}

// consumeMode returns the chat's current mode and resets it to idle in one
// step, so each mode is consumed by exactly one message.
func (s *sessionStore) consumeMode(chatID int64) chatMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.modes[chatID]
	if !ok {
		return modeIdle
	}
	delete(s.modes, chatID)
	return m
}
