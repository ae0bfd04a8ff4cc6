package main

import (
	"context"
	"log"

	"github.com/rryowa/weq_api/internal/api"
	"github.com/rryowa/weq_api/internal/app"
	"github.com/rryowa/weq_api/internal/controller"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := util.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewZapLogger(cfg.App)
	defer func() { _ = logger.Sync() }()

	backends, err := app.OpenBackends(ctx, logger, cfg)
	if err != nil {
		logger.Fatalw("failed to open backends", "error", err)
	}
	defer backends.Cleanup()

	hasher, err := service.NewPasswordHasher(cfg.Password.BcryptCost, logger)
	if err != nil {
		logger.Fatalw("failed to build password hasher", "error", err)
	}
	tokenCodec, err := service.NewTokenCodec(cfg.Token, logger)
	if err != nil {
		logger.Fatalw("failed to build token codec", "error", err)
	}
	logger.Infow("token keys loaded", "kids", cfg.Token.KeyIDs(), "active", cfg.Token.ActiveKeyID)

	limiter := service.NewRateLimiter(cfg.LoginLimiter)
	go limiter.Run(ctx)

	if backends.Purger != nil {
		sweeper := service.NewRevocationSweeper(backends.Purger, cfg.DB.RevocationSweepInt, logger)
		go sweeper.Run(ctx)
	}

	notifier := service.NewSecurityNotifier(logger, cfg.WebhookURL)
	authService := service.NewAuthService(backends.Storage, backends.Revocation, hasher, tokenCodec, limiter, notifier, logger)
	noteService := service.NewNoteService(backends.Storage)
	infoService := service.NewInfoService(cfg.App)

	ctrl := controller.NewController(logger, authService, noteService, backends.Health, infoService)

	apiServer, err := api.NewAPI(ctrl, authService, logger, cfg)
	if err != nil {
		logger.Fatalw("failed to build api", "error", err)
	}
	apiServer.Run(ctx)
}
