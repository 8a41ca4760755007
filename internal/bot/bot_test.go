package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dkhr/sage-bot/internal/models"
	"github.com/dkhr/sage-bot/internal/search"
	"github.com/dkhr/sage-bot/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// fakeTelegram records outbound traffic instead of talking to Telegram.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	actions  []tgbotapi.ChatActionConfig
	sendErrs []error // consumed one per Send call; nil entries mean success
	fileURLs map[string]string
	fileReqs []string
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{fileURLs: make(map[string]string)}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}

	var err error
	if len(f.sendErrs) > 0 {
		err = f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
	}
	return tgbotapi.Message{}, err
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if action, ok := c.(tgbotapi.ChatActionConfig); ok {
		f.actions = append(f.actions, action)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetFileDirectURL(fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fileReqs = append(f.fileReqs, fileID)
	url, ok := f.fileURLs[fileID]
	if !ok {
		return "", errors.New("unknown file")
	}
	return url, nil
}

func (f *fakeTelegram) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeTelegram) StopReceivingUpdates() {}

func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

func (f *fakeTelegram) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeTelegram) lastMarkup() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1].ReplyMarkup
}

type analyzeCall struct {
	fileName string
	mimeType string
	hint     string
	size     int
}

// fakeModel returns canned replies and records every call.
type fakeModel struct {
	mu            sync.Mutex
	generateReply string
	generateErr   error
	analyzeReply  string
	analyzeErr    error

	prompts  []string
	analyzed []analyzeCall
}

func (m *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	return m.generateReply, m.generateErr
}

func (m *fakeModel) Analyze(ctx context.Context, data []byte, fileName, mimeType, hint string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyzed = append(m.analyzed, analyzeCall{
		fileName: fileName,
		mimeType: mimeType,
		hint:     hint,
		size:     len(data),
	})
	return m.analyzeReply, m.analyzeErr
}

// fakeSearch returns canned results and records every query.
type fakeSearch struct {
	mu      sync.Mutex
	results []search.Result
	err     error
	queries []string
}

func (s *fakeSearch) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

// flakyStorage injects write failures on top of the in-memory store.
type flakyStorage struct {
	*storage.MemoryStorage
	appendTurnErr error
	appendFileErr error
}

func (s *flakyStorage) AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	if s.appendTurnErr != nil {
		return s.appendTurnErr
	}
	return s.MemoryStorage.AppendChatTurn(ctx, turn)
}

func (s *flakyStorage) AppendFileRecord(ctx context.Context, record *models.FileRecord) error {
	if s.appendFileErr != nil {
		return s.appendFileErr
	}
	return s.MemoryStorage.AppendFileRecord(ctx, record)
}

type testBot struct {
	bot   *Bot
	tg    *fakeTelegram
	model *fakeModel
	srch  *fakeSearch
	store *storage.MemoryStorage
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()

	tg := newFakeTelegram()
	model := &fakeModel{}
	srch := &fakeSearch{}
	store := storage.NewMemoryStorage()

	b := newWithAPI(tg, store, model, srch, Options{MaxSearchResults: 5}, zap.NewNop())

	return &testBot{bot: b, tg: tg, model: model, srch: srch, store: store}
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: chatID, FirstName: "Pat", UserName: "pat"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	msg := textMessage(chatID, text)

	token := text
	if i := strings.IndexByte(token, ' '); i != -1 {
		token = token[:i]
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(token)}}
	return msg
}

func contactMessage(chatID int64, phone string) *tgbotapi.Message {
	msg := textMessage(chatID, "")
	msg.Contact = &tgbotapi.Contact{PhoneNumber: phone, UserID: chatID}
	return msg
}

func documentMessage(chatID int64, fileID, fileName string) *tgbotapi.Message {
	msg := textMessage(chatID, "")
	msg.Document = &tgbotapi.Document{FileID: fileID, FileName: fileName}
	return msg
}

func photoMessage(chatID int64, sizes ...tgbotapi.PhotoSize) *tgbotapi.Message {
	msg := textMessage(chatID, "")
	msg.Photo = sizes
	return msg
}
