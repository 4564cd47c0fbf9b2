package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/spf13/cobra"

	"github.com/pivolan/benford_analyzer/config"
	"github.com/pivolan/benford_analyzer/storage"
)

var rootCmd = &cobra.Command{
	Use:   "benford_analyzer",
	Short: "Check numeric datasets against Benford's law",
	Long: `benford_analyzer counts the first significant digit of every value in a
column of a CSV, TSV, text or XLSX file and compares the distribution with
the one predicted by Benford's law using a chi-square test.

Run "serve" for the web upload form, the JSON API and the Telegram bot, or
"analyze" to print a report for a single file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and, when TG_TOKEN is set, the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := newLogger(os.Stderr, level)

	benfordCfg, err := cfg.Benford()
	if err != nil {
		return err
	}

	var store storage.Store
	if cfg.DbDsn != "" {
		store, err = storage.OpenGorm(cfg.DbDsn, logger)
		if err != nil {
			return err
		}
		logger.Info("connected to database")
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("DB_DSN is empty, datasets are kept in memory only")
	}
	defer store.Close()

	metrics := NewMetrics()
	service, err := NewDatasetService(store, ServiceOptions{
		Benford:       benfordCfg,
		Upload:        cfg.UploadOptions(),
		MaxStoredRows: cfg.MaxStoredRows,
		CacheTTL:      cfg.CacheTTL,
	}, metrics, logger)
	if err != nil {
		return err
	}
	links := NewUploadLinks(cfg.PublicURL, cfg.UploadLinkTTL)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier uploadNotifier
	if cfg.TgToken != "" {
		bot, err := startBot(ctx, cfg.TgToken, service, links, cfg.MaxUploadBytes, logger)
		if err != nil {
			return err
		}
		notifier = bot
	} else {
		logger.Info("TG_TOKEN is empty, Telegram bot disabled")
	}

	web, err := NewWebHandler(service, links, notifier, metrics, logger, WebOptions{
		PageSize:       cfg.PageSize,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           web.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("public_url", cfg.PublicURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startBot(ctx context.Context, token string, service *DatasetService, links *UploadLinks, maxBytes int64, logger *slog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logger.Info("telegram bot authorized", slog.String("account", api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return nil, fmt.Errorf("telegram updates: %w", err)
	}

	bot := NewTelegramBot(api, service, links, maxBytes, logger)
	go bot.Run(ctx, updates)
	return bot, nil
}
