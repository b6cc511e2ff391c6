package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/config"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/routes"
	"github.com/phillip/campus-pay-go/services"
	"github.com/phillip/campus-pay-go/store"
	"github.com/phillip/campus-pay-go/store/memstore"
	"github.com/phillip/campus-pay-go/store/mongostore"
	"github.com/phillip/campus-pay-go/utils"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on exit")
		return memstore.New(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureIndexes(connectCtx); err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}
	logger.Info("Connected to MongoDB", "database", cfg.DBName)
	return st, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	media, err := utils.NewUploader(cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to set up media storage: %w", err)
	}

	var mailer services.Mailer
	if cfg.Email.Enabled() {
		mailer = utils.NewZeptoMailer(cfg.Email, &http.Client{Timeout: 10 * time.Second})
	} else {
		logger.Info("Email delivery disabled")
	}

	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	m := metrics.New()
	svc := services.New(st, services.Options{
		JWT:            jwt,
		Mailer:         mailer,
		Metrics:        m,
		Logger:         logger,
		AllowOverdraft: cfg.AllowOverdraft,
		BcryptCost:     cfg.BcryptCost,
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := routes.New(routes.Deps{
		Config:   cfg,
		Services: svc,
		JWT:      jwt,
		Media:    media,
		Metrics:  m,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(engine, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", srv.Addr, "store", cfg.StoreDriver, "media", cfg.Media.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed", "error", err)
	}
	svc.Notifications.Wait()
	return nil
}
