package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository"
)

type memNotifications struct {
	mu    sync.Mutex
	saved []models.Notification
	err   error
}

func (r *memNotifications) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	n.ID = uuid.New()
	r.saved = append(r.saved, *n)
	return nil
}

type memUsers map[uuid.UUID]models.User

func (u memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func syncRun(ctx context.Context, fn func(ctx context.Context)) { fn(ctx) }

func TestNotificationService_NotifyPersistsAndEmails(t *testing.T) {
	userID := uuid.New()
	repo := &memNotifications{}
	mailer := &mockMailer{}
	users := memUsers{userID: {ID: userID, Email: "buyer@market.test"}}

	mailer.On("Send", mock.Anything, "buyer@market.test", "Спор решён", "Деньги вернутся в течение 5 дней").
		Return(errors.New("smtp down")).Once()

	svc := NewNotificationService(repo, users, mailer)
	svc.async = syncRun

	err := svc.Notify(context.Background(), userID, models.NotificationDisputeResolved, "Спор решён", "Деньги вернутся в течение 5 дней")
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, models.NotificationDisputeResolved, repo.saved[0].Kind)
	mailer.AssertExpectations(t)
}

func TestNotificationService_SkipsEmailForUnknownUser(t *testing.T) {
	repo := &memNotifications{}
	mailer := &mockMailer{}

	svc := NewNotificationService(repo, memUsers{}, mailer)
	svc.async = syncRun

	require.NoError(t, svc.Notify(context.Background(), uuid.New(), models.NotificationOrderCancelled, "t", "m"))
	assert.Len(t, repo.saved, 1)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Errors(t *testing.T) {
	svc := NewNotificationService(&memNotifications{}, nil, nil)
	err := svc.Notify(context.Background(), uuid.Nil, models.NotificationOrderCancelled, "t", "m")
	assert.True(t, apperror.IsValidation(err))

	failing := NewNotificationService(&memNotifications{err: errors.New("db down")}, nil, nil)
	assert.Error(t, failing.Notify(context.Background(), uuid.New(), models.NotificationOrderCancelled, "t", "m"))
}

func TestWorkflowDeps_NotifyFailureDoesNotPropagate(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("queue full")
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct("approved")

	_, err := env.products.Suspend(context.Background(), admin, p.ID, "жалобы")
	assert.NoError(t, err)
	assert.Len(t, env.notifier.recipients(), 1)
}
