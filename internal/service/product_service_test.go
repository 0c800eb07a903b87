package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

func (e *testEnv) addProduct(status valueobject.ApprovalStatus) *models.Product {
	p := models.Product{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		Title:          "Ankara fabric 6 yards",
		ApprovalStatus: status,
		Version:        1,
	}
	p.Normalize()
	e.store.products[p.ID] = p
	return &p
}

func (e *testEnv) product(id uuid.UUID) models.Product {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.products[id]
}

func TestProductModeration_ApproveAndReject(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	ctx := context.Background()

	p := env.addProduct(valueobject.ApprovalStatusPending)
	got, err := env.products.Approve(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ApprovalStatusApproved, got.ApprovalStatus)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, admin.ID, *got.ModeratedBy)

	_, err = env.products.Reject(ctx, admin, p.ID, "дубликат")
	assert.True(t, apperror.IsInvalidTransition(err))

	other := env.addProduct(valueobject.ApprovalStatusPending)
	_, err = env.products.Reject(ctx, admin, other.ID, "")
	assert.True(t, apperror.IsValidation(err))

	got, err = env.products.Reject(ctx, admin, other.ID, "запрещённая категория")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ApprovalStatusRejected, got.ApprovalStatus)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, "запрещённая категория", *got.RejectionReason)
}

func TestProductModeration_BanMakesUnavailable(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct(valueobject.ApprovalStatusApproved)
	require.True(t, p.IsAvailable)

	got, err := env.products.Ban(context.Background(), admin, p.ID, "контрафакт")
	require.NoError(t, err)

	stored := env.product(p.ID)
	assert.True(t, stored.IsBanned)
	assert.True(t, stored.AdminSuspended)
	assert.False(t, stored.IsAvailable)
	assert.Equal(t, valueobject.ApprovalStatusApproved, stored.ApprovalStatus)
	assert.Equal(t, "контрафакт", *got.BanReason)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, p.SellerID, env.notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationProductModerated, env.notifier.sent[0].Kind)
}

func TestProductModeration_UnsuspendBlockedWhileBanned(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct(valueobject.ApprovalStatusApproved)
	ctx := context.Background()

	_, err := env.products.Ban(ctx, admin, p.ID, "контрафакт")
	require.NoError(t, err)

	_, err = env.products.Unsuspend(ctx, admin, p.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	got, err := env.products.Unban(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBanned)
	assert.True(t, got.AdminSuspended)
	assert.False(t, got.IsAvailable)

	got, err = env.products.Unsuspend(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.False(t, got.AdminSuspended)
	assert.True(t, got.IsAvailable)

	_, err = env.products.Unban(ctx, admin, p.ID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestProductModeration_SuspendKeepsApproval(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct(valueobject.ApprovalStatusApproved)
	ctx := context.Background()

	got, err := env.products.Suspend(ctx, admin, p.ID, "жалобы покупателей")
	require.NoError(t, err)
	assert.True(t, got.AdminSuspended)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, valueobject.ApprovalStatusApproved, got.ApprovalStatus)

	_, err = env.products.Suspend(ctx, admin, p.ID, "повторно")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestProductModeration_StaleVersionConflicts(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct(valueobject.ApprovalStatusApproved)

	stale := *p
	stale.AdminSuspended = true
	stale.Version = 0
	err := memProducts{env.store}.SaveModeration(context.Background(), &stale)
	assert.Error(t, err)

	_, err = env.products.Suspend(context.Background(), admin, p.ID, "жалобы")
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.product(p.ID).Version)
}

func TestProductModeration_BulkApprove(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	pending := env.addProduct(valueobject.ApprovalStatusPending)
	approved := env.addProduct(valueobject.ApprovalStatusApproved)
	missing := uuid.New()

	results, err := env.products.BulkApprove(context.Background(), admin, []uuid.UUID{pending.ID, approved.ID, missing, pending.ID})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].Success)
	assert.Equal(t, missing, results[2].ProductID)

	assert.Equal(t, pending.ID, results[3].ProductID)
	assert.False(t, results[3].Success)
	assert.True(t, results[3].Duplicate)
	assert.NotEmpty(t, results[3].Error)
	assert.False(t, results[0].Duplicate)

	assert.Equal(t, valueobject.ApprovalStatusApproved, env.product(pending.ID).ApprovalStatus)

	_, err = env.products.BulkApprove(context.Background(), admin, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestProductModeration_BulkRejectRequiresReason(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	p := env.addProduct(valueobject.ApprovalStatusPending)

	_, err := env.products.BulkReject(context.Background(), admin, []uuid.UUID{p.ID}, "")
	assert.True(t, apperror.IsValidation(err))

	results, err := env.products.BulkReject(context.Background(), admin, []uuid.UUID{p.ID}, "нет фото")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestProductModeration_ResolveAppeal(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	ctx := context.Background()

	p := env.addProduct(valueobject.ApprovalStatusApproved)
	_, err := env.products.Suspend(ctx, admin, p.ID, "жалобы")
	require.NoError(t, err)

	appeal := models.ProductAppeal{
		ID:        uuid.New(),
		ProductID: p.ID,
		SellerID:  p.SellerID,
		Message:   "жалобы ложные",
		Status:    valueobject.AppealStatusPending,
	}
	env.store.appeals[appeal.ID] = appeal

	got, err := env.products.ResolveAppeal(ctx, admin, appeal.ID, true, "проверено")
	require.NoError(t, err)
	assert.Equal(t, valueobject.AppealStatusAccepted, got.Status)
	assert.True(t, env.product(p.ID).IsAvailable)

	_, err = env.products.ResolveAppeal(ctx, admin, appeal.ID, false, "")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestProductModeration_AppealDoesNotLiftBan(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	ctx := context.Background()

	p := env.addProduct(valueobject.ApprovalStatusApproved)
	_, err := env.products.Ban(ctx, admin, p.ID, "контрафакт")
	require.NoError(t, err)

	appeal := models.ProductAppeal{ID: uuid.New(), ProductID: p.ID, SellerID: p.SellerID, Status: valueobject.AppealStatusPending}
	env.store.appeals[appeal.ID] = appeal

	_, err = env.products.ResolveAppeal(ctx, admin, appeal.ID, true, "")
	assert.True(t, apperror.IsInvalidTransition(err))

	got, err := env.products.ResolveAppeal(ctx, admin, appeal.ID, false, "бан остаётся")
	require.NoError(t, err)
	assert.Equal(t, valueobject.AppealStatusRejected, got.Status)
	assert.True(t, env.product(p.ID).IsBanned)
}
