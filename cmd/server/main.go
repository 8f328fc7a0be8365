package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jornfrank/gatehouse/assets"
	"github.com/jornfrank/gatehouse/internal"
	"github.com/jornfrank/gatehouse/internal/auth"
	authdb "github.com/jornfrank/gatehouse/internal/auth/db"
	"github.com/jornfrank/gatehouse/internal/db"
	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/email/postmark"
	"github.com/jornfrank/gatehouse/internal/email/view"
	"github.com/jornfrank/gatehouse/internal/token"
	"github.com/jornfrank/gatehouse/internal/web"
)

const postmarkAPIURL = "https://api.postmarkapp.com/email"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	sqlDB, err := db.OpenSQLite(cfg.DBFile, true)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := db.Migrate(ctx, sqlDB); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return 1
	}

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
	})
	if err != nil {
		logger.Error("failed to create token service", "error", err)
		return 1
	}

	sender, err := emailSender(cfg, logger)
	if err != nil {
		logger.Error("failed to create email sender", "error", err)
		return 1
	}

	emailSvc := email.NewService(view.NewFSRenderer(assets.EmailFS), sender, logger, email.ServiceConfig{
		From: cfg.EmailFrom,
	})

	authSvc, err := auth.NewService(authdb.New(sqlDB), tokens, emailSvc, logger, auth.ServiceConfig{
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	srv := web.NewServer(&web.ServerDeps{
		Logger: logger,
		Auth:   authSvc,
		Tokens: tokens,
	}, web.ServerConfig{
		SecureCookie:    cfg.SecureCookie,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	// Three concurrent tasks:
	// - The HTTP server.
	// - The email delivery worker.
	// - Waiting for a signal to stop.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.HTTPAddr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		return srv.Listen(cfg.HTTPAddr)
	})

	g.Go(func() error {
		// Run delivers queued email until gCtx is cancelled, then
		// drains the queue before returning.
		return emailSvc.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != context.Canceled {
		logger.Error("server stopped with error", "error", err)
		return 1
	}

	logger.Info("server stopped successfully")

	return 0
}

func emailSender(cfg config, logger *slog.Logger) (email.Sender, error) {
	if cfg.EmailSender == "postmark" {
		apiURL, err := url.Parse(postmarkAPIURL)
		if err != nil {
			return nil, err
		}

		return postmark.NewSender(&http.Client{Timeout: 30 * time.Second}, postmark.Settings{
			APIURL:        apiURL,
			ServerToken:   cfg.PostmarkServerToken,
			MessageStream: cfg.PostmarkMessageStream,
		}), nil
	}

	return email.NewLogSender(logger), nil
}
