package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/market-backoffice/internal/cache"
	"github.com/ignatzorin/market-backoffice/internal/config"
	"github.com/ignatzorin/market-backoffice/internal/db"
	"github.com/ignatzorin/market-backoffice/internal/infrastructure/mail"
	"github.com/ignatzorin/market-backoffice/internal/infrastructure/payment"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/repository"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
	"github.com/ignatzorin/market-backoffice/internal/service"
	"github.com/ignatzorin/market-backoffice/internal/storage"
	"github.com/ignatzorin/market-backoffice/internal/ws"
)

// AttachmentsPrefix путь API, по которому отдаются файлы локального хранилища.
const AttachmentsPrefix = "/api/admin/attachments"

// App собранные зависимости процесса: база, репозитории, сервисы.
type App struct {
	Config *config.Config
	DB     *sqlx.DB
	Hub    *ws.Hub

	Admins        *repository.AdminRepository
	Notifications *repository.NotificationRepository

	Tokens      *service.TokenVerifier
	Guard       *service.IdentityGuard
	Escrow      *service.EscrowService
	Disputes    *service.DisputeService
	Withdrawals *service.WithdrawalService
	Moderation  *service.ProductModerationService

	Attachments storage.AttachmentStorage
	// LocalFiles задан, только если вложения лежат на диске.
	LocalFiles *storage.LocalStorage

	closers []func()
}

// New подключается к базе, применяет миграции и собирает сервисы.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL, cfg.DB)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: conn, Hub: ws.NewHub()}
	a.closers = append(a.closers, func() {
		if err := conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("app: ошибка закрытия базы")
		}
	})

	if err := db.RunMigrations(ctx, conn, cfg.MigrationsPath); err != nil {
		a.Close()
		return nil, err
	}

	adminCache, err := a.adminCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.attachmentStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var mailer service.Mailer
	if cfg.SMTP.Enabled() {
		m, err := mail.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			a.Close()
			return nil, err
		}
		mailer = m
	} else {
		logger.Log.Info("app: SMTP не настроен, письма не отправляются")
	}

	var gateway service.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.PayoutCurrency)
	} else {
		logger.Log.Warn("app: STRIPE_SECRET_KEY не задан, используется sandbox-провайдер")
		gateway = payment.NewSandboxGateway()
	}

	a.Admins = repository.NewAdminRepository(conn)
	a.Notifications = repository.NewNotificationRepository(conn)
	users := repository.NewUserRepository(conn)
	orders := repository.NewOrderRepository(conn)
	wallets := repository.NewWalletRepository(conn)

	notifier := service.NewNotificationService(a.Notifications, users, mailer)
	deps := service.WorkflowDeps{
		Tx:       common.NewTxManager(conn),
		Audit:    repository.NewAuditRepository(conn),
		Notifier: notifier,
		Events:   a.Hub,
		Now:      time.Now,
	}

	a.Tokens = service.NewTokenVerifier(cfg.JWTSecret)
	a.Guard = service.NewIdentityGuard(a.Admins, adminCache, cfg.AdminCacheTTL)
	a.Escrow = service.NewEscrowService(deps, orders, wallets, gateway, cfg.AutoRefundWindow)
	a.Disputes = service.NewDisputeService(deps, repository.NewDisputeRepository(conn), orders, a.Admins, a.Escrow).
		WithEvidence(a.Attachments, cfg.EvidenceURLTTL).
		WithPusher(a.Hub)
	a.Withdrawals = service.NewWithdrawalService(deps, repository.NewWithdrawalRepository(conn), wallets, gateway, cfg.PayoutCurrency)
	a.Moderation = service.NewProductModerationService(deps, repository.NewProductRepository(conn))

	return a, nil
}

func (a *App) adminCache(ctx context.Context) (cache.AdminCache, error) {
	if a.Config.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, a.Config.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { closeRedis(client) })
		logger.Log.WithField("addr", a.Config.Redis.Addr).Info("app: кэш администраторов в Redis")
		return cache.NewRedisAdminCache(client), nil
	}

	mem := cache.NewMemoryAdminCache(a.Config.AdminCacheTTL)
	a.closers = append(a.closers, mem.Close)
	return mem, nil
}

func (a *App) attachmentStorage(ctx context.Context) error {
	if a.Config.Minio.Enabled() {
		s, err := storage.NewMinioStorage(ctx, a.Config.Minio, a.Config.MaxUploadSizeMB)
		if err != nil {
			return err
		}
		a.Attachments = s
		logger.Log.WithField("bucket", a.Config.Minio.Bucket).Info("app: вложения в MinIO")
		return nil
	}

	local, err := storage.NewLocalStorage(a.Config.AttachmentStoragePath, AttachmentsPrefix, a.Config.MaxUploadSizeMB)
	if err != nil {
		return fmt.Errorf("app: не удалось подготовить файловое хранилище: %w", err)
	}
	a.Attachments = local
	a.LocalFiles = local
	return nil
}

// Ping проверяет базу для /health.
func (a *App) Ping(ctx context.Context) error {
	return db.Ping(ctx, a.DB)
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Log.WithError(err).Warn("app: ошибка закрытия Redis")
	}
}
