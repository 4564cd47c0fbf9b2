package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

var errDocumentTooLarge = errors.New("document too large")

type TelegramBot struct {
	api      botAPI
	service  *DatasetService
	links    *UploadLinks
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewTelegramBot(api botAPI, service *DatasetService, links *UploadLinks, maxBytes int64, logger *slog.Logger) *TelegramBot {
	return &TelegramBot{
		api:      api,
		service:  service,
		links:    links,
		client:   &http.Client{Timeout: 2 * time.Minute},
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "telegram")),
	}
}

// Run handles updates until ctx is done or the channel closes.
func (b *TelegramBot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

func (b *TelegramBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}
	switch {
	case message.Document != nil:
		b.handleDocument(ctx, message)
	case message.IsCommand():
		b.handleCommand(ctx, message)
	case message.Text != "":
		b.handleText(message)
	}
}

// handleText analyzes the numbers of a chat message. Messages without
// numbers get a link to the web upload form.
func (b *TelegramBot) handleText(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.service.HasNumbers(message.Text) {
		b.sendUploadLink(chatID, "Send numbers, a file or upload it here:")
		return
	}

	a, err := b.service.AnalyzeText(message.Text)
	if err != nil {
		b.logger.Error("analyze text", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		b.send(tgbotapi.NewMessage(chatID, "Could not analyze these numbers."))
		return
	}
	b.send(summaryMessage(chatID, a))
}

func (b *TelegramBot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	doc := message.Document
	log := b.logger.With(slog.Int64("chat_id", chatID), slog.String("file", doc.FileName))

	data, err := b.download(ctx, doc)
	if err != nil {
		log.Warn("download document", slog.String("error", err.Error()))
		b.sendUploadLink(chatID, "Could not fetch the file, it may be too big. Upload it here instead:")
		return
	}

	analysis, err := b.service.AnalyzeUpload(ctx, UploadForm{
		Title:    truncate(doc.FileName, 50),
		FileName: doc.FileName,
		Data:     data,
		Source:   sourceTelegram,
	})
	if err != nil {
		log.Warn("analyze document", slog.String("error", err.Error()))
		b.send(tgbotapi.NewMessage(chatID, uploadFailureText(doc.FileName, err)))
		return
	}
	b.sendAnalysis(chatID, analysis)
}

func (b *TelegramBot) download(ctx context.Context, doc *tgbotapi.Document) ([]byte, error) {
	if b.maxBytes > 0 && int64(doc.FileSize) > b.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", errDocumentTooLarge, doc.FileSize)
	}
	fileURL, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if b.maxBytes > 0 {
		body = io.LimitReader(resp.Body, b.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if b.maxBytes > 0 && int64(len(data)) > b.maxBytes {
		return nil, errDocumentTooLarge
	}
	return data, nil
}

func uploadFailureText(name string, err error) string {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		return fmt.Sprintf("Could not analyze %s.", name)
	}
	if details, ok := apiErr.Details.(string); ok {
		return fmt.Sprintf("Could not analyze %s: %s", name, details)
	}
	return fmt.Sprintf("Could not analyze %s: %s", name, err.Error())
}

func (b *TelegramBot) sendUploadLink(chatID int64, prompt string) {
	_, link := b.links.Issue(chatID)
	b.send(tgbotapi.NewMessage(chatID, prompt+" "+link))
}

func (b *TelegramBot) send(c tgbotapi.Chattable) bool {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("send message", slog.String("error", err.Error()))
		return false
	}
	return true
}
