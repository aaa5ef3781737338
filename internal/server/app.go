// Package server initializes and runs the content hub server: it opens the
// database, runs migrations, wires the services and the HTTP surface, and
// handles graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	"github.com/avoronov/contenthub/internal/server/auth"
	"github.com/avoronov/contenthub/internal/server/config"
	"github.com/avoronov/contenthub/internal/server/httpapi"
	"github.com/avoronov/contenthub/internal/server/repositories/repomanager"
	"github.com/avoronov/contenthub/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	closeDB func() error
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	codec, err := auth.NewCodec(cfg.SigningKey, cfg.ClockSkew)
	if err != nil {
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	db, err := repomanager.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	openAI := aiclient.NewHTTPCaller(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, aiclient.AuthBearer, cfg.AITimeout)
	googleNLP := aiclient.NewHTTPCaller(cfg.GoogleNLPBaseURL, cfg.GoogleAPIKey, aiclient.AuthQueryKey, cfg.AITimeout)

	userService := services.NewUserService(db, rm, logger)
	sessionService := services.NewSessionService(userService, codec, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	contentService := services.NewContentService(db, rm, openAI, cfg.OpenAIModel, logger)
	sentimentService := services.NewSentimentService(db, rm, googleNLP, logger)
	imageService := services.NewImageService(db, rm, openAI, cfg, logger)

	handler := httpapi.NewHandler(
		codec,
		userService,
		sessionService,
		userService,
		contentService,
		sentimentService,
		imageService,
		logger,
	)

	return &App{
		config:  cfg,
		logger:  logger,
		handler: handler,
		closeDB: db.Close,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.closeDB(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "app stopped")
}
