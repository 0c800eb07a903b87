package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/market-backoffice/internal/app"
	"github.com/ignatzorin/market-backoffice/internal/config"
	httpHandlers "github.com/ignatzorin/market-backoffice/internal/http/handlers"
	httpRouter "github.com/ignatzorin/market-backoffice/internal/http/router"
	"github.com/ignatzorin/market-backoffice/internal/logger"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.IsProduction())

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось собрать приложение")
	}
	defer a.Close()

	go a.Hub.Run()
	defer a.Hub.Stop()

	var opener httpHandlers.FileOpener
	if a.LocalFiles != nil {
		opener = a.LocalFiles
	}

	router := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Disputes:      httpHandlers.NewDisputeHandler(a.Disputes, a.Escrow),
		Withdrawals:   httpHandlers.NewWithdrawalHandler(a.Withdrawals),
		Orders:        httpHandlers.NewOrderHandler(a.Escrow),
		Products:      httpHandlers.NewProductHandler(a.Moderation),
		Attachments:   httpHandlers.NewAttachmentHandler(a.Attachments, opener, cfg.EvidenceURLTTL),
		Notifications: httpHandlers.NewNotificationHandler(a.Notifications),
		WS:            httpHandlers.NewWSHandler(a.Hub, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(a.Ping),
	}, a.Tokens, a.Guard)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
}
