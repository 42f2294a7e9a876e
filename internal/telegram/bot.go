package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/nutri-vision/internal/classify"
	"github.com/Brownie44l1/nutri-vision/internal/model"
)

const (
	msgStart = `Hi! Send me a photo of a fruit or vegetable and I will tell you what it is.

Commands:
/help - how to use the bot`

	msgHelp = `How it works:

1. Send a photo of a single fruit or vegetable
2. The bot recognises it and tells you its category
3. If available, you also get the calories per 100 grams

Tips: good light and a plain background help.`

	msgSendPhoto       = "Please send a photo of a fruit or vegetable."
	msgUnknownCommand  = "Unknown command. Use /help."
	msgProcessingError = "Could not process the image. Please try another photo."
)

// Classifier is the part of classify.Service the bot needs.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (*classify.Result, error)
}

type Bot struct {
	api        *tgbotapi.BotAPI
	classifier Classifier
	client     *http.Client
	log        zerolog.Logger
}

func NewBot(token string, classifier Classifier, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info().Str("account", api.Self.UserName).Msg("telegram bot authorized")

	return &Bot{
		api:        api,
		classifier: classifier,
		client:     http.DefaultClient,
		log:        log,
	}, nil
}

// Run handles updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, commandReply(msg.Command()))
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

func commandReply(command string) string {
	switch command {
	case "start":
		return msgStart
	case "help":
		return msgHelp
	default:
		return msgUnknownCommand
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	// Largest resolution comes last.
	photo := msg.Photo[len(msg.Photo)-1]
	log := b.log.With().Int64("chat_id", msg.Chat.ID).Str("file_id", photo.FileID).Logger()

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		log.Err(err).Msg("download photo")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	result, err := b.classifier.Classify(log.WithContext(ctx), imageData)
	if err != nil {
		if !errors.Is(err, model.ErrImageDecode) {
			log.Err(err).Msg("classify photo")
		}
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	b.sendMessage(msg.Chat.ID, FormatResult(result))
}

// FormatResult renders the category, prediction and optional nutrition lines.
func FormatResult(r *classify.Result) string {
	lines := []string{
		"Category: " + r.Category.Heading(),
		"Predicted: " + r.Label,
	}
	if r.Nutrition != "" {
		lines = append(lines, r.Nutrition)
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
