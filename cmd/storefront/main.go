// Package main запускает HTTP-сервер магазина и админ-панели.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront-admin/internal/config"
	"github.com/mmeshcher/storefront-admin/internal/gateway"
	"github.com/mmeshcher/storefront-admin/internal/handler"
	"github.com/mmeshcher/storefront-admin/internal/middleware"
	"github.com/mmeshcher/storefront-admin/internal/receipt"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/service"
)

func newRepository(dsn string) (service.Repository, error) {
	if strings.HasPrefix(dsn, repository.SQLitePrefix) {
		return repository.NewSQLiteRepository(dsn)
	}
	return repository.NewPostgresRepository(dsn)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	tiers, err := config.NewTierStore(cfg.TiersFile)
	if err != nil {
		sugar.Fatalw("tier thresholds error", "error", err.Error(), "path", cfg.TiersFile)
	}

	repo, err := newRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var gw service.PaymentGateway
	if cfg.PaymentGatewayAddress != "" {
		gw = gateway.NewClient(cfg.PaymentGatewayAddress)
	}

	renderer := receipt.NewRenderer(cfg.ReceiptBrowser)
	defer renderer.Close()

	svc := service.NewService(repo, gw, tiers, renderer, logger)
	defer svc.Close()

	if cfg.AdminPassword == "" {
		sugar.Warn("admin password is not set, admin panel login is disabled")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	adminAuth := middleware.NewAdminAuth(cfg.AdminLogin, cfg.AdminPassword, cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, adminAuth)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Сверка оплат с платёжным шлюзом
	g.Go(func() error {
		return svc.StartPaymentSync(ctx)
	})

	// Перечитывание порогов сегментации при изменении файла
	g.Go(func() error {
		if err := tiers.Watch(ctx, logger); err != nil {
			sugar.Warnw("tier thresholds watcher stopped", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
