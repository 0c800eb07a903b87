package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

// Transactor выполняет fn атомарно; репозитории берут транзакцию из ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DisputeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, f models.DisputeFilter) ([]models.Dispute, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []valueobject.DisputeStatus, to valueobject.DisputeStatus) error
	UpdatePriority(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, priority valueobject.DisputePriority) error
	Assign(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected *uuid.UUID, assignee uuid.UUID, at time.Time) error
	Unassign(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected uuid.UUID) error
	MarkResolved(ctx context.Context, id uuid.UUID, from []valueobject.DisputeStatus, res models.DisputeResolution) error
	AddMessage(ctx context.Context, m *models.DisputeMessage, open []valueobject.DisputeStatus) error
	ListMessages(ctx context.Context, disputeID uuid.UUID, includeInternal bool) ([]models.DisputeMessage, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	List(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error)
	Transition(ctx context.Context, id uuid.UUID, from []valueobject.WithdrawalStatus, to valueobject.WithdrawalStatus, patch models.WithdrawalPatch) error
}

type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []valueobject.OrderStatus, to valueobject.OrderStatus, patch models.OrderPatch) error
	ReleaseEscrow(ctx context.Context, id uuid.UUID, from []valueobject.OrderStatus, refunded decimal.Decimal, at time.Time) error
	AddNote(ctx context.Context, note *models.OrderNote) error
	ListAutoRefundCandidates(ctx context.Context, heldBefore time.Time, limit int) ([]models.Order, error)
}

type WalletRepository interface {
	Apply(ctx context.Context, entry *models.WalletTransaction) error
}

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SaveModeration(ctx context.Context, p *models.Product) error
	GetAppeal(ctx context.Context, id uuid.UUID) (*models.ProductAppeal, error)
	ResolveAppeal(ctx context.Context, id uuid.UUID, status valueobject.AppealStatus, note *string, reviewer uuid.UUID, at time.Time) error
}

type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
}

type AuditRepository interface {
	Record(ctx context.Context, e *models.AuditEntry) error
}

// PaymentGateway внешний платёжный провайдер.
type PaymentGateway interface {
	RefundOrder(ctx context.Context, req models.RefundRequest) (string, error)
	InitiateTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error)
}

// Notifier доставляет уведомление пользователю. Ошибка только логируется вызывающим.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error
}

// Broadcaster сообщает открытым админ-консолям, что сущность изменилась.
type Broadcaster interface {
	BroadcastAll(event string, payload interface{})
}

// EvidenceLinker выдаёт временные ссылки на файлы доказательств.
type EvidenceLinker interface {
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastAll(string, interface{}) {}

// Clock позволяет подменять текущее время в тестах.
type Clock func() time.Time

// UserPusher доставляет личное событие открытым консолям администратора.
type UserPusher interface {
	BroadcastToUser(adminID uuid.UUID, event string, data interface{}) error
}
