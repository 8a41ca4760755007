package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dkhr/sage-bot/internal/search"
	"github.com/dkhr/sage-bot/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ModelClient is the generative-model boundary used by the pipelines.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Analyze(ctx context.Context, data []byte, fileName, mimeType, hint string) (string, error)
}

// SearchClient is the web-search boundary used by the search pipeline.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// telegramAPI is the slice of *tgbotapi.BotAPI the bot relies on; tests
// install their own implementation.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options carries the tunables the bot needs beyond its collaborators.
type Options struct {
	MaxSearchResults      int
	MaxConcurrentHandlers int
}

type Bot struct {
	api      telegramAPI
	storage  storage.Storage
	model    ModelClient
	searcher SearchClient
	logger   *zap.Logger

	sessions *sessionStore
	workers  *workerPool

	downloader *http.Client
	maxResults int

	loopDone chan struct{}
}

func New(token string, storage storage.Storage, model ModelClient, searcher SearchClient, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return newWithAPI(api, storage, model, searcher, opts, logger), nil
}

func newWithAPI(api telegramAPI, storage storage.Storage, model ModelClient, searcher SearchClient, opts Options, logger *zap.Logger) *Bot {
	maxResults := opts.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 5
	}

	return &Bot{
		api:        api,
		storage:    storage,
		model:      model,
		searcher:   searcher,
		logger:     logger,
		sessions:   newSessionStore(),
		workers:    newWorkerPool(opts.MaxConcurrentHandlers),
		downloader: &http.Client{Timeout: 60 * time.Second},
		maxResults: maxResults,
		loopDone:   make(chan struct{}),
	}
}

// Start polls for updates and dispatches each message to its chat's queue.
// It returns once the updates channel is closed by Stop.
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		message := update.Message
		b.workers.enqueue(message.Chat.ID, func() {
			b.handleMessage(message)
		})
	}

	close(b.loopDone)
	return nil
}

// Stop halts polling, waits for the update loop to drain, then waits for
// every queued handler to finish.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	<-b.loopDone
	b.workers.stop()
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	// Classification order: commands, contact cards, attachments, text.
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Contact != nil {
		b.handleContact(ctx, message)
		return
	}

	if len(message.Photo) > 0 || message.Document != nil {
		b.handleMedia(ctx, message)
		return
	}

	if message.Text != "" {
		if b.sessions.consumeMode(message.Chat.ID) == modeAwaitingSearchQuery {
			b.handleSearch(ctx, message)
			return
		}
		b.handleChat(ctx, message)
		return
	}

	// Unsupported payloads (stickers, voice notes, ...) are ignored.
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.handleHelp(message)
	case "websearch":
		b.handleWebSearch(message)
	case "sentiment":
		b.handleSentiment(ctx, message)
	case "translate":
		b.handleTranslate(ctx, message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// reply sends text to the chat, splitting it into transport-sized segments.
// A failed segment is logged and the remaining segments are still attempted.
func (b *Bot) reply(chatID int64, text string) {
	if text == "" {
		return
	}

	for _, segment := range splitMessage(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(chatID, segment)
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	}
}

// replyWithMarkup behaves like reply but attaches markup to the last
// segment, so keyboards arrive together with the end of the text.
func (b *Bot) replyWithMarkup(chatID int64, text string, markup interface{}) {
	segments := splitMessage(text, telegramMessageLimit)

	for i, segment := range segments {
		msg := tgbotapi.NewMessage(chatID, segment)
		if i == len(segments)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	}
}

func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("Failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
