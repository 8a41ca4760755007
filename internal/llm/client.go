package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	imagePrompt    = "Describe this image in detail. Mention any text it contains."
	documentPrompt = "Describe the attached document in a few sentences, covering its key points."

	runPollInterval = 2 * time.Second
)

type Client struct {
	client      *openai.Client
	model       string
	assistantID string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

func NewClient(apiKey, model, assistantID string, maxTokens int, temperature float64, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		assistantID: assistantID,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Generate sends a single-prompt chat completion and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty text")
	}

	return text, nil
}

// Analyze uploads a media blob and returns the model's description of it.
// Images go inline through the vision chat endpoint; documents are uploaded
// and attached to a one-off assistant thread. An optional hint (for example
// a user caption) replaces the default analysis prompt.
func (c *Client) Analyze(ctx context.Context, data []byte, fileName, mimeType, hint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if strings.HasPrefix(mimeType, "image/") {
		return c.analyzeImage(ctx, data, mimeType, hint)
	}

	return c.analyzeDocument(ctx, data, fileName, hint)
}

func (c *Client) analyzeImage(ctx context.Context, data []byte, mimeType, hint string) (string, error) {
	prompt := imagePrompt
	if hint != "" {
		prompt = hint
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("vision completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("vision completion returned empty text")
	}

	return text, nil
}

func (c *Client) analyzeDocument(ctx context.Context, data []byte, fileName, hint string) (string, error) {
	if c.assistantID == "" {
		return "", fmt.Errorf("assistant id is not configured")
	}

	prompt := documentPrompt
	if hint != "" {
		prompt = hint
	}

	file, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    fileName,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	defer func() {
		// The file only exists to feed this one run.
		if err := c.client.DeleteFile(context.Background(), file.ID); err != nil {
			c.logger.Warn("Failed to delete uploaded file",
				zap.Error(err),
				zap.String("file_id", file.ID))
		}
	}()

	run, err := c.client.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{AssistantID: c.assistantID},
		Thread: openai.ThreadRequest{
			Messages: []openai.ThreadMessage{
				{
					Role:    openai.ThreadMessageRoleUser,
					Content: prompt,
					Attachments: []openai.ThreadAttachment{
						{
							FileID: file.ID,
							Tools:  []openai.ThreadAttachmentTool{{Type: "file_search"}},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("assistant run failed: %w", err)
	}

	run, err = c.waitForRun(ctx, run)
	if err != nil {
		return "", err
	}

	return c.runReply(ctx, run)
}

func (c *Client) waitForRun(ctx context.Context, run openai.Run) (openai.Run, error) {
	ticker := time.NewTicker(runPollInterval)
	defer ticker.Stop()

	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			return run, nil
		case openai.RunStatusQueued, openai.RunStatusInProgress:
			// still working, poll again
		default:
			return run, fmt.Errorf("assistant run ended with status %s", run.Status)
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}

		var err error
		run, err = c.client.RetrieveRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("retrieve run failed: %w", err)
		}
	}
}

func (c *Client) runReply(ctx context.Context, run openai.Run) (string, error) {
	limit := 1
	order := "desc"
	msgs, err := c.client.ListMessage(ctx, run.ThreadID, &limit, &order, nil, nil, &run.ID)
	if err != nil {
		return "", fmt.Errorf("list messages failed: %w", err)
	}

	for _, msg := range msgs.Messages {
		for _, part := range msg.Content {
			if part.Text != nil && strings.TrimSpace(part.Text.Value) != "" {
				return strings.TrimSpace(part.Text.Value), nil
			}
		}
	}

	return "", fmt.Errorf("assistant run produced no text reply")
}
