package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/http/middleware"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/service"
)

func testAdmin() *models.Admin {
	return &models.Admin{ID: uuid.New(), Email: "ops@market.test", Role: models.AdminRoleAdmin, IsActive: true}
}

// newTestEngine кладёт администратора в контекст так же, как RequireAdmin.
func newTestEngine(admin *models.Admin) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if admin != nil {
			c.Set(middleware.ContextAdminKey, admin)
		}
		c.Next()
	})
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

type mockDisputes struct{ mock.Mock }

func (m *mockDisputes) Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) List(ctx context.Context, actor *models.Admin, f models.DisputeFilter) ([]models.Dispute, error) {
	args := m.Called(ctx, actor, f)
	items, _ := args.Get(0).([]models.Dispute)
	return items, args.Error(1)
}

func (m *mockDisputes) ChangeStatus(ctx context.Context, actor *models.Admin, id uuid.UUID, status valueobject.DisputeStatus) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id, status)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) ChangePriority(ctx context.Context, actor *models.Admin, id uuid.UUID, priority valueobject.DisputePriority) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id, priority)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) Assign(ctx context.Context, actor *models.Admin, id uuid.UUID, assignee *uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id, assignee)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) Unassign(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) Resolve(ctx context.Context, actor *models.Admin, id uuid.UUID, in service.ResolveInput) (*models.Dispute, error) {
	args := m.Called(ctx, actor, id, in)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) AddNote(ctx context.Context, actor *models.Admin, id uuid.UUID, in service.NoteInput) (*models.DisputeMessage, error) {
	args := m.Called(ctx, actor, id, in)
	msg, _ := args.Get(0).(*models.DisputeMessage)
	return msg, args.Error(1)
}

type mockEscrow struct{ mock.Mock }

func (m *mockEscrow) Window() time.Duration { return 6 * 24 * time.Hour }

func (m *mockEscrow) Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, actor, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockEscrow) List(ctx context.Context, actor *models.Admin, f models.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, actor, f)
	items, _ := args.Get(0).([]models.Order)
	return items, args.Error(1)
}

func (m *mockEscrow) ReleaseEscrow(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, actor, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockEscrow) Refund(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Order, error) {
	args := m.Called(ctx, actor, id, reason)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockEscrow) Cancel(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Order, error) {
	args := m.Called(ctx, actor, id, reason)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockEscrow) AutoRefundEligibility(ctx context.Context, actor *models.Admin, id uuid.UUID) (models.AutoRefundEligibility, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).(models.AutoRefundEligibility), args.Error(1)
}

func (m *mockEscrow) ListAutoRefundCandidates(ctx context.Context, actor *models.Admin, now time.Time, limit int) ([]models.Order, error) {
	args := m.Called(ctx, actor, now, limit)
	items, _ := args.Get(0).([]models.Order)
	return items, args.Error(1)
}

type mockModeration struct{ mock.Mock }

func (m *mockModeration) product(args mock.Arguments) (*models.Product, error) {
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *mockModeration) Approve(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id))
}

func (m *mockModeration) Reject(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id, reason))
}

func (m *mockModeration) Suspend(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id, reason))
}

func (m *mockModeration) Unsuspend(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id))
}

func (m *mockModeration) Ban(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id, reason))
}

func (m *mockModeration) Unban(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return m.product(m.Called(ctx, actor, id))
}

func (m *mockModeration) BulkApprove(ctx context.Context, actor *models.Admin, ids []uuid.UUID) ([]models.BulkResult, error) {
	args := m.Called(ctx, actor, ids)
	res, _ := args.Get(0).([]models.BulkResult)
	return res, args.Error(1)
}

func (m *mockModeration) BulkReject(ctx context.Context, actor *models.Admin, ids []uuid.UUID, reason string) ([]models.BulkResult, error) {
	args := m.Called(ctx, actor, ids, reason)
	res, _ := args.Get(0).([]models.BulkResult)
	return res, args.Error(1)
}

func (m *mockModeration) ResolveAppeal(ctx context.Context, actor *models.Admin, id uuid.UUID, accept bool, note string) (*models.ProductAppeal, error) {
	args := m.Called(ctx, actor, id, accept, note)
	a, _ := args.Get(0).(*models.ProductAppeal)
	return a, args.Error(1)
}
