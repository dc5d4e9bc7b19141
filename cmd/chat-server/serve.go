package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/config"
	"chat-backend/pkg/logger"
	"chat-backend/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Consul.Address != "" {
		manager, err := newServiceManager(cfg, log)
		if err != nil {
			log.Warn("consul registration skipped", zap.Error(err))
		} else if err := manager.Start(); err != nil {
			log.Warn("consul registration failed", zap.Error(err))
		} else {
			defer manager.Stop()
		}
	}

	return g.Wait()
}

func newServiceManager(cfg *config.AppConfig, log *zap.Logger) (*registry.ServiceManager, error) {
	localIP, err := registry.GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("get local ip: %w", err)
	}
	return registry.NewServiceManager(
		&registry.ConsulConfig{
			Address:    cfg.Consul.Address,
			Scheme:     cfg.Consul.Scheme,
			Datacenter: cfg.Consul.Datacenter,
		},
		registry.HTTPService(cfg.Server.Name, cfg.Server.Version, localIP, cfg.Server.Port),
		log,
	)
}
