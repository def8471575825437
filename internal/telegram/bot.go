package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/crack-api/internal/verdict"
)

const (
	msgStart = `👋 Send me a photo of a wall, slab or beam and I will check it for structural cracks.

📋 Commands:
/help — usage tips`

	msgHelp = `ℹ️ How to use:

1️⃣ Send a photo of the surface
2️⃣ The image is classified as crack / no crack
3️⃣ Cracks get a severity tier and a suggested remedy

💡 Tips:
• Shoot in good light
• Fill the frame with the surface
• Keep the photo sharp`

	msgSendPhoto       = "📸 Please send a photo to check for cracks."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
	msgProcessing      = "⏳ Analyzing image..."
	msgProcessingError = "⚠️ Could not process the image. Please try another photo."
)

// ImageAnalyzer classifies a staged image file.
type ImageAnalyzer interface {
	Analyze(path string) verdict.Verdict
}

type Bot struct {
	api      *tgbotapi.BotAPI
	analyzer ImageAnalyzer
	tempDir  string
	logger   *slog.Logger
}

func NewBot(token string, analyzer ImageAnalyzer, tempDir string, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("authorized on telegram", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		analyzer: analyzer,
		tempDir:  tempDir,
		logger:   logger,
	}, nil
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(update.Message)
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendMessage(msg.Chat.ID, msgStart)
		case "help":
			b.sendMessage(msg.Chat.ID, msgHelp)
		default:
			b.sendMessage(msg.Chat.ID, msgUnknownCommand)
		}
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

func (b *Bot) handlePhoto(msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	// largest resolution comes last
	photo := msg.Photo[len(msg.Photo)-1]

	path, err := b.downloadFile(photo.FileID)
	if err != nil {
		b.logger.Error("failed to download photo", "chat_id", msg.Chat.ID, "err", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	defer os.Remove(path)

	result := b.analyzer.Analyze(path)
	if result.Failed() {
		b.logger.Warn("analysis failed", "chat_id", msg.Chat.ID, "err", result.Error)
	}
	b.sendMessage(msg.Chat.ID, FormatVerdict(result))
}

func (b *Bot) downloadFile(fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(b.tempDir, "tg-*.jpg")
	if err != nil {
		return "", fmt.Errorf("stage file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("read file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage file: %w", err)
	}
	return f.Name(), nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "err", err)
	}
}

// FormatVerdict renders a verdict as a chat reply.
func FormatVerdict(v verdict.Verdict) string {
	if v.Failed() {
		return "⚠️ " + v.Error
	}

	var sb strings.Builder
	if !v.HasCrack {
		fmt.Fprintf(&sb, "✅ %s\nConfidence: %s", v.Message, v.Confidence)
		return sb.String()
	}

	fmt.Fprintf(&sb, "🚧 %s detected\n", v.CrackType)
	fmt.Fprintf(&sb, "Severity: %s\n", v.Severity)
	fmt.Fprintf(&sb, "Confidence: %s\n\n", v.Confidence)
	fmt.Fprintf(&sb, "🛠 Remedy: %s\n\n", v.Remedy)
	fmt.Fprintf(&sb, "📚 %s", v.EducationalInfo)
	return sb.String()
}
