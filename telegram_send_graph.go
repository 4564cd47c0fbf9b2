package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/plot"
	"github.com/pivolan/benford_analyzer/report"
)

// maxPhotoBytes is the largest chart still sent as a photo; bigger ones go
// out as a document.
const maxPhotoBytes = 150000

func summaryMessage(chatID int64, a *benford.Analyzer) tgbotapi.MessageConfig {
	text := "<pre>\n" + html.EscapeString(report.SummaryTable(a)) + "\n</pre>\n" + html.EscapeString(report.Verdict(a))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// sendAnalysis replies with the summary table, the chart and a link to the
// saved dataset.
func (b *TelegramBot) sendAnalysis(chatID int64, analysis *Analysis) {
	slug := analysis.Dataset.Slug
	if !b.send(summaryMessage(chatID, analysis.Analyzer)) {
		return
	}
	b.sendChart(chatID, analysis)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Details: %s\nShow again: /dataset_%s", b.links.DatasetURL(slug), slug)))
}

func (b *TelegramBot) sendChart(chatID int64, analysis *Analysis) {
	graph, err := plot.DrawDigitBars(plot.NewDigitDistribution(analysis.Analyzer))
	if errors.Is(err, plot.ErrNoData) {
		return
	}
	if err != nil {
		b.logger.Error("draw chart", slog.String("slug", analysis.Dataset.Slug), slog.String("error", err.Error()))
		return
	}

	file := tgbotapi.FileBytes{Name: analysis.Dataset.Slug + ".png", Bytes: graph}
	caption := "First significant digits: " + analysis.Dataset.DisplayTitle()
	if len(graph) < maxPhotoBytes {
		photo := tgbotapi.NewPhotoUpload(chatID, file)
		photo.Caption = caption
		b.send(photo)
		return
	}
	doc := tgbotapi.NewDocumentUpload(chatID, file)
	doc.Caption = caption
	b.send(doc)
}

// NotifyUpload reports a web upload made through a link issued to chatID.
func (b *TelegramBot) NotifyUpload(_ context.Context, chatID int64, analysis *Analysis) {
	b.send(tgbotapi.NewMessage(chatID, "Your upload "+analysis.Dataset.DisplayTitle()+" is analyzed."))
	b.sendAnalysis(chatID, analysis)
}
