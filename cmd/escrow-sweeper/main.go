// Команда escrow-sweeper находит заказы, по которым продавец не выполнил
// доставку за окно автовозврата, и (с --apply) возвращает деньги покупателям.
// Запускается внешним планировщиком, например cron.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ignatzorin/market-backoffice/internal/app"
	"github.com/ignatzorin/market-backoffice/internal/config"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository"
)

const defaultReason = "автоматический возврат: продавец не выполнил доставку в срок"

type options struct {
	apply      bool
	limit      int
	adminEmail string
	reason     string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "escrow-sweeper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("escrow-sweeper", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.apply, "apply", false, "выполнить возвраты (без флага только список кандидатов)")
	flagSet.IntVar(&opts.limit, "limit", 100, "максимум заказов за один запуск")
	flagSet.StringVar(&opts.adminEmail, "admin-email", os.Getenv("SWEEPER_ADMIN_EMAIL"), "email системного администратора, от имени которого пишется журнал")
	flagSet.StringVar(&opts.reason, "reason", defaultReason, "причина возврата для покупателя и журнала")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.adminEmail == "" {
		return errors.New("--admin-email обязателен")
	}
	if opts.limit <= 0 {
		return fmt.Errorf("--limit должен быть положительным, получено %d", opts.limit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init("info", cfg.IsProduction())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.Admins.FindByEmail(ctx, opts.adminEmail)
	if errors.Is(err, repository.ErrAdminNotFound) {
		return fmt.Errorf("администратор %s не найден", opts.adminEmail)
	}
	if err != nil {
		return err
	}
	if !actor.IsActive {
		return fmt.Errorf("администратор %s отключён", opts.adminEmail)
	}

	summary, err := sweep(ctx, a.Escrow, actor, time.Now(), opts)
	if err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"candidates": summary.Candidates,
		"refunded":   summary.Refunded,
		"failed":     summary.Failed,
		"apply":      opts.apply,
	}).Info("escrow-sweeper: finished")

	if summary.Failed > 0 {
		return fmt.Errorf("не удалось вернуть %d заказ(ов)", summary.Failed)
	}
	return nil
}

type refunder interface {
	ListAutoRefundCandidates(ctx context.Context, actor *models.Admin, now time.Time, limit int) ([]models.Order, error)
	Refund(ctx context.Context, actor *models.Admin, orderID uuid.UUID, reason string) (*models.Order, error)
}

type sweepSummary struct {
	Candidates int
	Refunded   int
	Failed     int
}

// sweep возвращает деньги по каждому кандидату отдельно; ошибка одного заказа не останавливает остальные.
func sweep(ctx context.Context, escrow refunder, actor *models.Admin, now time.Time, opts options) (sweepSummary, error) {
	orders, err := escrow.ListAutoRefundCandidates(ctx, actor, now, opts.limit)
	if err != nil {
		return sweepSummary{}, err
	}

	summary := sweepSummary{Candidates: len(orders)}
	for _, order := range orders {
		fields := logrus.Fields{
			"order_id":       order.ID,
			"escrow_amount":  order.EscrowAmount.String(),
			"escrow_held_at": order.EscrowHeldAt,
		}
		if !opts.apply {
			logger.Log.WithFields(fields).Info("escrow-sweeper: candidate")
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if _, err := escrow.Refund(ctx, actor, order.ID, opts.reason); err != nil {
			summary.Failed++
			logger.Log.WithFields(fields).WithError(err).Error("escrow-sweeper: refund failed")
			continue
		}
		summary.Refunded++
		logger.Log.WithFields(fields).Info("escrow-sweeper: refunded")
	}
	return summary, nil
}
