package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

// memStore хранилище в памяти с условными записями и откатом транзакций.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	disputes    map[uuid.UUID]models.Dispute
	messages    []models.DisputeMessage
	orders      map[uuid.UUID]models.Order
	notes       []models.OrderNote
	withdrawals map[uuid.UUID]models.Withdrawal
	balances    map[uuid.UUID]decimal.Decimal
	ledger      []models.WalletTransaction
	products    map[uuid.UUID]models.Product
	appeals     map[uuid.UUID]models.ProductAppeal
	admins      map[uuid.UUID]models.Admin
	audit       []models.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		disputes:    map[uuid.UUID]models.Dispute{},
		orders:      map[uuid.UUID]models.Order{},
		withdrawals: map[uuid.UUID]models.Withdrawal{},
		balances:    map[uuid.UUID]decimal.Decimal{},
		products:    map[uuid.UUID]models.Product{},
		appeals:     map[uuid.UUID]models.ProductAppeal{},
		admins:      map[uuid.UUID]models.Admin{},
	}
}

type memTxKey struct{}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		disputes:    cloneMap(s.disputes),
		messages:    append([]models.DisputeMessage(nil), s.messages...),
		orders:      cloneMap(s.orders),
		notes:       append([]models.OrderNote(nil), s.notes...),
		withdrawals: cloneMap(s.withdrawals),
		balances:    cloneMap(s.balances),
		ledger:      append([]models.WalletTransaction(nil), s.ledger...),
		products:    cloneMap(s.products),
		appeals:     cloneMap(s.appeals),
		admins:      cloneMap(s.admins),
		audit:       append([]models.AuditEntry(nil), s.audit...),
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disputes, s.messages = snap.disputes, snap.messages
	s.orders, s.notes = snap.orders, snap.notes
	s.withdrawals, s.balances, s.ledger = snap.withdrawals, snap.balances, snap.ledger
	s.products, s.appeals = snap.products, snap.appeals
	s.admins, s.audit = snap.admins, snap.audit
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func has[S comparable](list []S, v S) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *memStore) balance(sellerID uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[sellerID]
}

func (s *memStore) ledgerFor(sellerID uuid.UUID) []models.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WalletTransaction
	for _, e := range s.ledger {
		if e.SellerID == sellerID {
			out = append(out, e)
		}
	}
	return out
}

// ---- споры ----

type memDisputes struct{ *memStore }

func (r memDisputes) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	return &d, nil
}

func (r memDisputes) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r memDisputes) List(_ context.Context, f models.DisputeFilter) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Dispute
	for _, d := range r.disputes {
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		if f.Unassigned && d.AssignedTo != nil {
			continue
		}
		if f.AssignedTo != nil && !d.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memDisputes) update(id uuid.UUID, allowed []valueobject.DisputeStatus, fn func(d *models.Dispute) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok || !has(allowed, d.Status) || !fn(&d) {
		return common.ErrStaleState
	}
	r.disputes[id] = d
	return nil
}

func (r memDisputes) UpdateStatus(_ context.Context, id uuid.UUID, from []valueobject.DisputeStatus, to valueobject.DisputeStatus) error {
	return r.update(id, from, func(d *models.Dispute) bool {
		d.Status = to
		return true
	})
}

func (r memDisputes) UpdatePriority(_ context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, priority valueobject.DisputePriority) error {
	return r.update(id, editable, func(d *models.Dispute) bool {
		d.Priority = priority
		return true
	})
}

func (r memDisputes) Assign(_ context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected *uuid.UUID, assignee uuid.UUID, at time.Time) error {
	return r.update(id, editable, func(d *models.Dispute) bool {
		if (expected == nil) != (d.AssignedTo == nil) || (expected != nil && *expected != *d.AssignedTo) {
			return false
		}
		d.AssignedTo = &assignee
		d.AssignedAt = &at
		return true
	})
}

func (r memDisputes) Unassign(_ context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected uuid.UUID) error {
	return r.update(id, editable, func(d *models.Dispute) bool {
		if !d.IsAssignedTo(expected) {
			return false
		}
		d.AssignedTo = nil
		d.AssignedAt = nil
		return true
	})
}

func (r memDisputes) MarkResolved(_ context.Context, id uuid.UUID, from []valueobject.DisputeStatus, res models.DisputeResolution) error {
	return r.update(id, from, func(d *models.Dispute) bool {
		d.Status = valueobject.DisputeStatusResolved
		d.AdminAction = &res.Action
		d.Resolution = &res.Resolution
		d.AdminNotes = res.AdminNotes
		d.ResolvedBy = &res.ResolvedBy
		d.ResolvedAt = &res.ResolvedAt
		return true
	})
}

func (r memDisputes) AddMessage(_ context.Context, m *models.DisputeMessage, open []valueobject.DisputeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[m.DisputeID]
	if !ok || !has(open, d.Status) {
		return common.ErrStaleState
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, *m)
	return nil
}

func (r memDisputes) ListMessages(_ context.Context, disputeID uuid.UUID, includeInternal bool) ([]models.DisputeMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DisputeMessage
	for _, m := range r.messages {
		if m.DisputeID == disputeID && (includeInternal || !m.IsInternal) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ---- заказы ----

type memOrders struct{ *memStore }

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrders) List(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.SellerID != nil && o.SellerID != *f.SellerID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r memOrders) TransitionStatus(_ context.Context, id uuid.UUID, from []valueobject.OrderStatus, to valueobject.OrderStatus, patch models.OrderPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !has(from, o.Status) {
		return common.ErrStaleState
	}
	o.Status = to
	if patch.RefundReason != nil {
		o.RefundReason = patch.RefundReason
	}
	if patch.CancelReason != nil {
		o.CancelReason = patch.CancelReason
	}
	o.RefundedAmount = o.RefundedAmount.Add(patch.RefundedAmount)
	r.orders[id] = o
	return nil
}

func (r memOrders) ReleaseEscrow(_ context.Context, id uuid.UUID, from []valueobject.OrderStatus, refunded decimal.Decimal, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.EscrowReleased || !o.EscrowAmount.IsPositive() || !has(from, o.Status) {
		return common.ErrStaleState
	}
	o.EscrowReleased = true
	o.EscrowReleasedAt = &at
	o.Status = valueobject.OrderStatusCompleted
	o.RefundedAmount = o.RefundedAmount.Add(refunded)
	r.orders[id] = o
	return nil
}

func (r memOrders) AddNote(_ context.Context, note *models.OrderNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	note.ID = uuid.New()
	r.notes = append(r.notes, *note)
	return nil
}

func (r memOrders) ListAutoRefundCandidates(_ context.Context, heldBefore time.Time, limit int) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.EscrowHeld() && o.Status.AwaitingDelivery() && o.EscrowHeldAt != nil && !o.EscrowHeldAt.After(heldBefore) {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- выводы и кошельки ----

type memWithdrawals struct{ *memStore }

func (r memWithdrawals) Create(_ context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.New()
	w.RequestedAt = time.Now()
	r.withdrawals[w.ID] = *w
	return nil
}

func (r memWithdrawals) GetByID(_ context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (r memWithdrawals) List(_ context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.withdrawals {
		if f.Status != nil && w.Status != *f.Status {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (r memWithdrawals) Transition(_ context.Context, id uuid.UUID, from []valueobject.WithdrawalStatus, to valueobject.WithdrawalStatus, p models.WithdrawalPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || !has(from, w.Status) {
		return common.ErrStaleState
	}
	w.Status = to
	if p.AdminNotes != nil {
		w.AdminNotes = p.AdminNotes
	}
	if p.RejectionReason != nil {
		w.RejectionReason = p.RejectionReason
	}
	if p.FailureReason != nil {
		w.FailureReason = p.FailureReason
	}
	if p.HoldReason != nil {
		w.HoldReason = p.HoldReason
	}
	if p.TransferReference != nil {
		w.TransferReference = p.TransferReference
	}
	if p.ProcessedBy != nil {
		w.ProcessedBy = p.ProcessedBy
	}
	if p.ProcessedAt != nil {
		w.ProcessedAt = p.ProcessedAt
	}
	if p.RejectedAt != nil {
		w.RejectedAt = p.RejectedAt
	}
	r.withdrawals[id] = w
	return nil
}

type memWallets struct{ *memStore }

func (r memWallets) Apply(_ context.Context, entry *models.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.balances[entry.SellerID].Add(entry.Amount)
	if next.IsNegative() {
		return repository.ErrInsufficientFunds
	}
	r.balances[entry.SellerID] = next
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.ledger = append(r.ledger, *entry)
	return nil
}

// ---- товары ----

type memProducts struct{ *memStore }

func (r memProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) SaveModeration(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[p.ID]
	if !ok || stored.Version != p.Version {
		return common.ErrStaleState
	}
	p.Version++
	r.products[p.ID] = *p
	return nil
}

func (r memProducts) GetAppeal(_ context.Context, id uuid.UUID) (*models.ProductAppeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appeals[id]
	if !ok {
		return nil, repository.ErrAppealNotFound
	}
	return &a, nil
}

func (r memProducts) ResolveAppeal(_ context.Context, id uuid.UUID, status valueobject.AppealStatus, note *string, reviewer uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appeals[id]
	if !ok || a.Status != valueobject.AppealStatusPending {
		return common.ErrStaleState
	}
	a.Status = status
	a.AdminNote = note
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &at
	r.appeals[id] = a
	return nil
}

// ---- администраторы и журнал ----

type memAdmins struct{ *memStore }

func (r memAdmins) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, repository.ErrAdminNotFound
}

func (r memAdmins) GetByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, repository.ErrAdminNotFound
	}
	return &a, nil
}

type memAudit struct{ *memStore }

func (r memAudit) Record(_ context.Context, e *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	r.audit = append(r.audit, *e)
	return nil
}

// ---- внешние зависимости ----

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) RefundOrder(ctx context.Context, req models.RefundRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) InitiateTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*models.TransferResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type sentNotification struct {
	UserID uuid.UUID
	Kind   string
	Title  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, kind, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Title: title})
	return n.err
}

func (n *recordingNotifier) recipients() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uuid.UUID, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.UserID)
	}
	return out
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) BroadcastAll(event string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// ---- сборка ----

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memStore
	gateway  *mockGateway
	notifier *recordingNotifier
	events   *recordingBroadcaster
	deps     WorkflowDeps

	escrow      *EscrowService
	disputes    *DisputeService
	withdrawals *WithdrawalService
	products    *ProductModerationService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:    store,
		gateway:  &mockGateway{},
		notifier: &recordingNotifier{},
		events:   &recordingBroadcaster{},
	}
	env.deps = WorkflowDeps{
		Tx:       store,
		Audit:    memAudit{store},
		Notifier: env.notifier,
		Events:   env.events,
		Now:      func() time.Time { return fixedNow },
	}
	env.escrow = NewEscrowService(env.deps, memOrders{store}, memWallets{store}, env.gateway, DefaultAutoRefundWindow)
	env.disputes = NewDisputeService(env.deps, memDisputes{store}, memOrders{store}, memAdmins{store}, env.escrow)
	env.withdrawals = NewWithdrawalService(env.deps, memWithdrawals{store}, memWallets{store}, env.gateway, "ngn")
	env.products = NewProductModerationService(env.deps, memProducts{store})
	return env
}

func (e *testEnv) addAdmin(role string) *models.Admin {
	a := models.Admin{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Email:    role + "-" + uuid.NewString()[:8] + "@market.test",
		FullName: "Test " + role,
		Role:     role,
		IsActive: true,
	}
	e.store.admins[a.ID] = a
	return &a
}

func (e *testEnv) addOrder(status valueobject.OrderStatus, escrow string) *models.Order {
	held := fixedNow.Add(-24 * time.Hour)
	ref := "pi_" + uuid.NewString()[:8]
	o := models.Order{
		ID:                 uuid.New(),
		BuyerID:            uuid.New(),
		SellerID:           uuid.New(),
		Status:             status,
		Currency:           "NGN",
		TotalAmount:        decimal.RequireFromString(escrow),
		SellerPayoutAmount: decimal.RequireFromString(escrow),
		EscrowAmount:       decimal.RequireFromString(escrow),
		EscrowHeldAt:       &held,
		PaymentReference:   &ref,
	}
	e.store.orders[o.ID] = o
	return &o
}

func (e *testEnv) addDispute(order *models.Order, raisedBy valueobject.DisputeParty, status valueobject.DisputeStatus) *models.Dispute {
	d := models.Dispute{
		ID:          uuid.New(),
		OrderID:     order.ID,
		RaisedBy:    raisedBy,
		RaisedByID:  order.BuyerID,
		ReasonCode:  "not_delivered",
		Description: "товар не получен",
		Status:      status,
		Priority:    valueobject.DisputePriorityMedium,
		CreatedAt:   fixedNow,
	}
	e.store.disputes[d.ID] = d
	return &d
}

func (e *testEnv) order(id uuid.UUID) models.Order {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.orders[id]
}

func (e *testEnv) dispute(id uuid.UUID) models.Dispute {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.disputes[id]
}
