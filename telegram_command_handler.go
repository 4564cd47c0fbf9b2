package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/pivolan/benford_analyzer/storage"
)

const datasetCommandPrefix = "dataset_"

const helpText = `Hi! I check whether numbers follow Benford's law.

What I can do:
- count the first significant digit of every number in a CSV, TSV, TXT or XLSX file
- read gzip, lz4 and zip archives
- compare the counts with the Benford distribution using a chi-square test
- draw a chart of observed and expected percentages

How to use me:
1. Send a file straight to the chat
2. Or send numbers as a message, for example "123 45.6 7890"
3. Or send any other message to get a link for the web upload

Commands:
/datasets - recent datasets
/dataset_<id> - show a saved dataset again
/upload - get a web upload link`

func (b *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	command := message.Command()

	switch {
	case command == "start" || command == "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
	case command == "upload":
		b.sendUploadLink(chatID, "Upload your file here:")
	case command == "datasets":
		b.handleRecentDatasets(ctx, chatID)
	case strings.HasPrefix(command, datasetCommandPrefix):
		slug := strings.TrimPrefix(command, datasetCommandPrefix)
		if slug == "" {
			b.send(tgbotapi.NewMessage(chatID, "Add the dataset id after /dataset_"))
			return
		}
		b.handleDataset(ctx, chatID, slug)
	default:
		b.send(tgbotapi.NewMessage(chatID, "Unknown command. Use /start to see what I can do."))
	}
}

func (b *TelegramBot) handleDataset(ctx context.Context, chatID int64, slug string) {
	analysis, err := b.service.Load(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		b.send(tgbotapi.NewMessage(chatID, "Dataset "+slug+" not found."))
		return
	}
	if err != nil {
		b.logger.Error("load dataset", slog.String("slug", slug), slog.String("error", err.Error()))
		b.send(tgbotapi.NewMessage(chatID, "Could not load dataset "+slug+"."))
		return
	}
	b.sendAnalysis(chatID, analysis)
}

func (b *TelegramBot) handleRecentDatasets(ctx context.Context, chatID int64) {
	datasets, _, err := b.service.List(ctx, 1, storage.DefaultPageSize)
	if err != nil {
		b.logger.Error("list datasets", slog.String("error", err.Error()))
		b.send(tgbotapi.NewMessage(chatID, "Could not list datasets."))
		return
	}
	if len(datasets) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "No datasets yet."))
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent datasets:\n")
	for _, ds := range datasets {
		fmt.Fprintf(&sb, "/%s%s %s (%d rows)\n", datasetCommandPrefix, ds.Slug, ds.DisplayTitle(), ds.RowCount)
	}
	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}
