package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/models"
)

// ErrSandboxDeclined: песочница отклоняет счета, оканчивающиеся на "0000".
var ErrSandboxDeclined = errors.New("sandbox: перевод отклонён банком получателя")

// SandboxGateway платёжный шлюз для разработки без ключа Stripe.
// Повтор с тем же ключом идемпотентности возвращает ту же ссылку.
type SandboxGateway struct {
	mu        sync.Mutex
	refunds   map[string]string
	transfers map[uuid.UUID]string
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		refunds:   make(map[string]string),
		transfers: make(map[uuid.UUID]string),
	}
}

func (g *SandboxGateway) RefundOrder(_ context.Context, req models.RefundRequest) (string, error) {
	if req.PaymentReference == "" {
		return "", ErrMissingPaymentReference
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	if ref, ok := g.refunds[key]; ok {
		return ref, nil
	}
	ref := "re_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	g.refunds[key] = ref
	return ref, nil
}

func (g *SandboxGateway) InitiateTransfer(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	if strings.HasSuffix(req.Bank.AccountNumber, "0000") {
		return nil, ErrSandboxDeclined
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if ref, ok := g.transfers[req.WithdrawalID]; ok {
		return &models.TransferResult{Reference: ref}, nil
	}
	ref := "tr_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	g.transfers[req.WithdrawalID] = ref
	return &models.TransferResult{Reference: ref}, nil
}
