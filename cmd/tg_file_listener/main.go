package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/italolelis/tg_file_listener/internal/bot"
	"github.com/italolelis/tg_file_listener/internal/config"
	"github.com/italolelis/tg_file_listener/internal/http/rest"
	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/italolelis/tg_file_listener/internal/notifier"
	"github.com/italolelis/tg_file_listener/internal/storage/memory"
	"github.com/italolelis/tg_file_listener/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const serviceVersion = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := logctx.New(os.Stdout, slog.LevelInfo)
	slog.SetDefault(bootLogger)

	cfg, err := config.Load(logctx.WithLogger(ctx, bootLogger), instrumentedClient(0))
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := logctx.New(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger)

	logger.Info("tg file listener starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}

	logger.Info("stopped services")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	// =========================================================================
	// Start Link Registry
	links := memory.NewInstrumentedLinkRegistry(memory.NewLinkRegistry(), tel)

	// =========================================================================
	// Start Bot
	pollTimeout := time.Duration(cfg.BotPollTimeout) * time.Second
	botClient := bot.NewClient(cfg.BotToken, cfg.BotAPIEndpoint, instrumentedClient(pollTimeout+10*time.Second))

	logger.Info("creating bot client")

	botReady := true
	if err := botClient.Connect(ctx); err != nil {
		// The HTTP surface keeps serving lookups without the bot.
		logger.Error("failed to start bot session, bot features unavailable", "err", err)
		tel.RecordSystemError("bot", "connect")

		botReady = false
	}

	var notif notifier.Notifier
	if cfg.DiscordWebhookURL != "" {
		notif = notifier.NewDiscordNotifier(cfg.DiscordWebhookURL, instrumentedClient(10*time.Second))
	}

	dispatcher := bot.NewDispatcher(links, botClient, cfg.AuthorizedUsers, notif, tel)

	// =========================================================================
	// Start API Service
	status := rest.NewStatusHandler(botClient, instrumentedClient(0), cfg.Web.Port, cfg.StatusPingTimeout)
	server := setupServer(ctx, cfg, rest.NewRouter(ctx, rest.NewLinkHandler(links, status), tel))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("web server started", "host", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	if botReady {
		updates, err := botClient.Updates(cfg.BotPollTimeout)
		if err != nil {
			return fmt.Errorf("failed to receive bot updates: %w", err)
		}

		g.Go(func() error {
			if err := dispatcher.Run(gctx, updates); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("dispatcher error: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("start shutdown")

		botClient.Stop()

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}

		logger.Info("web server and bot stopped")

		return nil
	})

	return g.Wait()
}

// setupServer creates the http server around the API handler.
func setupServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.BindAddress(),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

// instrumentedClient returns an http client whose requests are traced. A zero
// timeout leaves deadlines to the caller's context.
func instrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}
