// The github-token-broker command runs the HTTP service that exchanges
// CI identity tokens for scoped GitHub App installation tokens
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

	"github.com/joho/godotenv"

	broker "github.com/OpsMx/github-token-broker"
	"github.com/OpsMx/github-token-broker/internal/config"
	"github.com/OpsMx/github-token-broker/pkg/github"
	"github.com/OpsMx/github-token-broker/pkg/oidc"
	"github.com/OpsMx/github-token-broker/pkg/policy"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("broker exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A .env file is a development convenience; deployments set real
	// environment variables.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded configuration from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// A policy without valid default permissions is fatal at startup,
	// not at first request.
	policies := policy.NewLoader(cfg.PolicyFile)
	if _, err := policies.Load(); err != nil {
		return fmt.Errorf("loading permission policy: %w", err)
	}

	verifier, err := oidc.NewVerifier(ctx, cfg.Issuer, cfg.JWKSURL)
	if err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHubAPIURL, cfg.AppID, cfg.PrivateKey)
	b := broker.New(verifier, policies, client, cfg.Audience, logger)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Drain on shutdown signal.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err.Error())
		}
	}()

	logger.Info("broker listening",
		"addr", cfg.ListenAddr,
		"app_id", cfg.AppID,
		"policy_file", cfg.PolicyFile,
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
