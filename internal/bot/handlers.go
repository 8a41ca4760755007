package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkhr/sage-bot/internal/models"
	"github.com/dkhr/sage-bot/internal/search"
	"github.com/dkhr/sage-bot/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed user-facing strings. Every pipeline replies with something, even
// when the call behind it failed.
const (
	replyAlreadyRegistered = "You're already registered. Just send me a message!"
	replyContactSaved      = "Thanks! Your phone number has been saved."
	replyNoContactData     = "I didn't receive any contact data. Please use the button to share your phone number."
	replyChatFallback      = "I'm not sure how to respond to that."
	replyUnsupportedFile   = "Unsupported file type. I can analyze photos, JPEG/PNG images, and PDF documents."
	replyAnalyzeFailed     = "Sorry, I failed to analyze this file."
	replyNoResults         = "No results found."
	replySummaryFallback   = "I couldn't summarize the results, but here are the sources I found:"
	replySentimentFailed   = "Sorry, I couldn't analyze the sentiment right now."
	replyTranslateFailed   = "Sorry, I couldn't translate that right now."
	replySentimentUsage    = "Usage: /sentiment <text to analyze>"
	replyTranslateUsage    = "Usage: /translate <target language> <text to translate>"
	replySearchPrompt      = "What should I search for? Send your query as the next message."
)

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	_, err := b.storage.GetUser(ctx, chatID)
	if err == nil {
		b.reply(chatID, replyAlreadyRegistered)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		b.logger.Error("Failed to look up user",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	user := &models.User{
		ChatID:       chatID,
		RegisteredAt: time.Now(),
	}
	if message.From != nil {
		user.FirstName = message.From.FirstName
		user.UserName = message.From.UserName
	}

	if err := b.storage.CreateUser(ctx, user); err != nil {
		b.logger.Error("Failed to create user",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	welcome := `Welcome to SageBot! 🤖
I can chat with you, analyze photos and PDF documents, search the web, and more.

Share your phone number with the button below, or just send me a message.
Use /help to see all available commands.`

	b.replyWithMarkup(chatID, welcome, contactKeyboard())
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Register and get started
/help - Show this help message
/websearch - Search the web: I'll ask for your query
/sentiment <text> - Analyze the sentiment of a text
/translate <language> <text> - Translate text into a language

You can also send:
- Plain text to chat with me
- Photos (JPEG/PNG) or PDF documents for analysis
- Your contact card to save your phone number`

	b.reply(message.Chat.ID, help)
}

func (b *Bot) handleWebSearch(message *tgbotapi.Message) {
	b.sessions.enterSearchMode(message.Chat.ID)
	b.reply(message.Chat.ID, replySearchPrompt)
}

func (b *Bot) handleContact(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	phone := strings.TrimSpace(message.Contact.PhoneNumber)
	if phone == "" {
		b.reply(chatID, replyNoContactData)
		return
	}

	if err := b.storage.UpdateUserPhone(ctx, chatID, phone); err != nil {
		b.logger.Error("Failed to save phone number",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	b.replyWithMarkup(chatID, replyContactSaved, tgbotapi.NewRemoveKeyboard(false))
}

func (b *Bot) handleChat(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	b.sendTyping(chatID)

	response, err := b.model.Generate(ctx, message.Text)
	if err != nil {
		b.logger.Error("Failed to generate chat response",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		response = replyChatFallback
	}
	if response == "" {
		response = replyChatFallback
	}

	b.reply(chatID, response)

	turn := &models.ChatTurn{
		ID:          uuid.New().String(),
		ChatID:      chatID,
		UserMessage: message.Text,
		BotResponse: response,
		CreatedAt:   time.Now(),
	}
	if err := b.storage.AppendChatTurn(ctx, turn); err != nil {
		b.logger.Error("Failed to save chat turn",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("turn_id", turn.ID))
	}
}

func (b *Bot) handleMedia(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	fileID, fileName, mimeType := describeAttachment(message)
	if mimeType == "" {
		b.reply(chatID, replyUnsupportedFile)
		return
	}

	b.sendTyping(chatID)

	path, cleanup, err := b.downloadAttachment(ctx, fileID)
	if err != nil {
		b.logger.Error("Failed to download attachment",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_name", fileName))
		b.reply(chatID, replyAnalyzeFailed)
		return
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		b.logger.Error("Failed to read downloaded attachment",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_name", fileName))
		b.reply(chatID, replyAnalyzeFailed)
		return
	}

	description, err := b.model.Analyze(ctx, data, fileName, mimeType, message.Caption)
	if err != nil {
		b.logger.Error("Failed to analyze attachment",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_name", fileName),
			zap.String("mime_type", mimeType))
		b.reply(chatID, replyAnalyzeFailed)
		return
	}
	if description == "" {
		b.logger.Warn("Model returned an empty analysis",
			zap.Int64("chat_id", chatID),
			zap.String("file_name", fileName))
		b.reply(chatID, replyAnalyzeFailed)
		return
	}

	b.reply(chatID, description)

	record := &models.FileRecord{
		ID:          uuid.New().String(),
		ChatID:      chatID,
		FileName:    fileName,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := b.storage.AppendFileRecord(ctx, record); err != nil {
		b.logger.Error("Failed to save file record",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_name", fileName))
	}
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	query := strings.TrimSpace(message.Text)

	b.sendTyping(chatID)

	results, err := b.searcher.Search(ctx, query, b.maxResults)
	if err != nil {
		b.logger.Error("Failed to run web search",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", query))
		b.reply(chatID, replyNoResults)
		return
	}
	if len(results) == 0 {
		b.reply(chatID, replyNoResults)
		return
	}

	summary, err := b.model.Generate(ctx, buildSearchSummaryPrompt(query, results))
	if err != nil {
		b.logger.Error("Failed to summarize search results",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", query))
		summary = replySummaryFallback
	}
	if summary == "" {
		summary = replySummaryFallback
	}

	links := make([]string, len(results))
	for i, result := range results {
		links[i] = result.URL
	}

	b.reply(chatID, summary+"\n\n"+strings.Join(links, "\n"))
}

func (b *Bot) handleSentiment(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	text := strings.TrimSpace(message.CommandArguments())
	if text == "" {
		b.reply(chatID, replySentimentUsage)
		return
	}

	b.sendTyping(chatID)

	prompt := fmt.Sprintf("Analyze the sentiment of the following text. Answer with the overall sentiment (positive, negative or neutral) and a one-sentence explanation.\n\nText: %s", text)

	response, err := b.model.Generate(ctx, prompt)
	if err != nil {
		b.logger.Error("Failed to analyze sentiment",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		response = replySentimentFailed
	}
	if response == "" {
		response = replySentimentFailed
	}

	b.reply(chatID, response)
}

func (b *Bot) handleTranslate(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	args := strings.Fields(message.CommandArguments())
	if len(args) < 2 {
		b.reply(chatID, replyTranslateUsage)
		return
	}

	target := args[0]
	text := strings.Join(args[1:], " ")

	b.sendTyping(chatID)

	prompt := fmt.Sprintf("Translate the following text into %s. Reply with the translation only.\n\nText: %s", target, text)

	response, err := b.model.Generate(ctx, prompt)
	if err != nil {
		b.logger.Error("Failed to translate text",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("target_language", target))
		response = replyTranslateFailed
	}
	if response == "" {
		response = replyTranslateFailed
	}

	b.reply(chatID, response)
}

func buildSearchSummaryPrompt(query string, results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize what the following search results say about %q in a few sentences:\n", query)
	for _, result := range results {
		fmt.Fprintf(&sb, "- %s (%s)\n", result.Title, result.URL)
	}
	return sb.String()
}

// describeAttachment maps a message's attachment to the file to download and
// its MIME type. An empty MIME type means the attachment is unsupported.
// Photos always arrive as JPEG; Telegram sends several sizes and the largest
// one is picked.
func describeAttachment(message *tgbotapi.Message) (fileID, fileName, mimeType string) {
	if len(message.Photo) > 0 {
		largest := message.Photo[0]
		for _, size := range message.Photo[1:] {
			if size.Width*size.Height > largest.Width*largest.Height {
				largest = size
			}
		}
		return largest.FileID, "photo.jpg", "image/jpeg"
	}

	doc := message.Document
	if doc == nil {
		return "", "", ""
	}

	switch strings.ToLower(filepath.Ext(doc.FileName)) {
	case ".jpg", ".jpeg":
		return doc.FileID, doc.FileName, "image/jpeg"
	case ".png":
		return doc.FileID, doc.FileName, "image/png"
	case ".pdf":
		return doc.FileID, doc.FileName, "application/pdf"
	default:
		return "", doc.FileName, ""
	}
}

// downloadAttachment fetches the file behind fileID into a temporary file
// that lives only as long as the calling pipeline.
func (b *Bot) downloadAttachment(ctx context.Context, fileID string) (string, func(), error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", nil, err
	}

	resp, err := b.downloader.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "sage-bot-*")
	if err != nil {
		return "", nil, err
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Share my phone number"),
		),
	)
	keyboard.OneTimeKeyboard = true
	return keyboard
}
