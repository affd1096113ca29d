package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func timeAgo(hours int) time.Time   { return time.Now().Add(-time.Duration(hours) * time.Hour) }
func timeAhead(hours int) time.Time { return time.Now().Add(time.Duration(hours) * time.Hour) }

// mockTxManager runs the callback without a real database transaction.
type mockTxManager struct{}

type noTx struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, noTx{})
}

// ---------------- payments ----------------

type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, externalRef *string, completedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, nil
	}
	match := false
	for _, s := range from {
		if p.Status == s {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	p.Status = to
	if externalRef != nil {
		p.ExternalRef = *externalRef
	}
	if completedAt != nil {
		cp := *completedAt
		p.CompletedAt = &cp
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) ListPendingExpiredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.ExpiresAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusProcessing && p.UpdatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSucceeded {
			sum += p.Amount
		}
	}
	return sum, nil
}

// ---------------- momo transactions ----------------

type memTransactionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.MomoTransaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{store: make(map[string]*model.MomoTransaction)}
}

func (m *memTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.MomoTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTransactionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.MomoTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.ExternalID == externalID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.MomoTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.PaymentID == paymentID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, errorCode, errorMsg string, webhookData map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	now := time.Now()
	t.Status = status
	t.ErrorCode = errorCode
	t.ErrorMsg = errorMsg
	t.WebhookReceived = true
	t.WebhookData = webhookData
	t.ConfirmedAt = &now
	return true, nil
}

// ---------------- tickets ----------------

type memTicketRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{store: make(map[string]*model.Ticket)}
}

func (m *memTicketRepo) Save(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTicketRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTicketRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.TicketStatus, qrPayload string, usedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	if qrPayload != "" {
		t.QRPayload = qrPayload
	}
	if usedAt != nil {
		cp := *usedAt
		t.UsedAt = &cp
	}
	return true, nil
}

// ---------------- subscriptions & plans ----------------

type memSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.UserID == userID && s.Active(time.Now()) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) ResetMonthlyCounters(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.MonthlyEventCount > 0 {
			s.MonthlyEventCount = 0
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptionRepo) ExpireEnded(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := time.Now()
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.EndAt != nil && !s.EndAt.After(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SubscriptionPlan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.SubscriptionPlan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SubscriptionPlan
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// ---------------- commissions ----------------

type memCommissionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Commission // keyed by payment id
}

func newMemCommissionRepo() *memCommissionRepo {
	return &memCommissionRepo{store: make(map[string]*model.Commission)}
}

func (m *memCommissionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.PaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *c
	m.store[c.PaymentID] = &cp
	return nil
}

func (m *memCommissionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCommissionRepo) ListByOrganizer(ctx context.Context, tx repository.Tx, organizerID string, limit, offset int) ([]*model.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Commission
	for _, c := range m.store {
		if c.OrganizerID == organizerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------- refunds ----------------

type memRefundRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Refund
}

func newMemRefundRepo() *memRefundRepo {
	return &memRefundRepo{store: make(map[string]*model.Refund)}
}

func (m *memRefundRepo) Save(ctx context.Context, tx repository.Tx, r *model.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRefundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRefundRepo) FindActiveByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.store {
		if r.PaymentID == paymentID && r.Status.ActiveRequest() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRefundRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.RefundStatus, processorID, operatorRef, comment string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	if processorID != "" {
		r.ProcessorID = processorID
	}
	if operatorRef != "" {
		r.OperatorRef = operatorRef
	}
	if comment != "" {
		r.AdminComment = comment
	}
	if r.ProcessedAt == nil {
		cp := at
		r.ProcessedAt = &cp
	}
	if to.Terminal() {
		cp := at
		r.CompletedAt = &cp
	}
	return true, nil
}

// ---------------- audit ----------------

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func newMemAuditRepo() *memAuditRepo { return &memAuditRepo{} }

func (m *memAuditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditRepo) ListByEntity(ctx context.Context, tx repository.Tx, ref model.EntityRef, limit int) ([]*model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditEntry
	for _, e := range m.entries {
		if e.Entity == ref {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------- events ----------------

type memEventRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{store: make(map[string]*model.Event)}
}

func (m *memEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

// ---------------- adapters ----------------

// memLocker mimics the redis lock: one holder per key.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]string)} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrCallbackInFlight
	}
	l.held[key] = key
	return key, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// mockGateway drives callback scenarios from tests. DecodeCallback treats
// the signature "valid" as authentic and the body as the external id.
type mockGateway struct {
	operator     model.Operator
	requestErr   error
	onRequest    func() // runs after the charge is accepted, before returning
	refundErr    error
	queryEvent   adapter.CallbackEvent
	queryErr     error
	decodeEvents map[string]adapter.CallbackEvent
	refundCalls  int
}

func newMockGateway(op model.Operator) *mockGateway {
	return &mockGateway{operator: op, decodeEvents: make(map[string]adapter.CallbackEvent)}
}

func (g *mockGateway) Operator() model.Operator { return g.operator }

func (g *mockGateway) RequestToPay(ctx context.Context, p *model.Payment) (adapter.ChargeResult, error) {
	if g.requestErr != nil {
		return adapter.ChargeResult{}, g.requestErr
	}
	if g.onRequest != nil {
		g.onRequest()
	}
	return adapter.ChargeResult{ExternalID: "ext-" + p.ID, Instruction: "confirm on phone"}, nil
}

func (g *mockGateway) DecodeCallback(body []byte, signature string) (adapter.CallbackEvent, error) {
	if signature != "valid" {
		return adapter.CallbackEvent{}, domain.ErrInvalidSignature
	}
	ev, ok := g.decodeEvents[string(body)]
	if !ok {
		return adapter.CallbackEvent{ExternalID: string(body), Succeeded: true}, nil
	}
	return ev, nil
}

func (g *mockGateway) QueryStatus(ctx context.Context, externalID string) (adapter.CallbackEvent, error) {
	if g.queryErr != nil {
		return adapter.CallbackEvent{}, g.queryErr
	}
	ev := g.queryEvent
	if ev.ExternalID == "" {
		ev.ExternalID = externalID
	}
	return ev, nil
}

func (g *mockGateway) RequestRefund(ctx context.Context, externalID string, amount int64, reason string) (string, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return "", g.refundErr
	}
	return "rev-" + externalID, nil
}

// mockNotifier records dispatched events.
type mockNotifier struct {
	mu       sync.Mutex
	payments []string
	refunds  []string
}

func (n *mockNotifier) PaymentStatusChanged(ctx context.Context, p *model.Payment, old model.PaymentStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, string(old)+">"+string(p.Status))
}

func (n *mockNotifier) RefundStatusChanged(ctx context.Context, r *model.Refund) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, string(r.Status))
}

// ucEnv wires a full use case stack over in-memory mocks. Each test gets
// a fresh one.
type ucEnv struct {
	payments     *memPaymentRepo
	transactions *memTransactionRepo
	tickets      *memTicketRepo
	subs         *memSubscriptionRepo
	plans        *memPlanRepo
	commissions  *memCommissionRepo
	refunds      *memRefundRepo
	audit        *memAuditRepo
	events       *memEventRepo
	gateway      *mockGateway
	locker       *memLocker
	notifier     *mockNotifier

	fulfillmentUC FulfillmentUseCase
	commissionUC  CommissionUseCase
	paymentUC     PaymentUseCase
	transactionUC TransactionUseCase
	refundUC      RefundUseCase
	ticketUC      TicketUseCase
}

func newUCEnv() *ucEnv {
	e := &ucEnv{
		payments:     newMemPaymentRepo(),
		transactions: newMemTransactionRepo(),
		tickets:      newMemTicketRepo(),
		subs:         newMemSubscriptionRepo(),
		plans:        newMemPlanRepo(),
		commissions:  newMemCommissionRepo(),
		refunds:      newMemRefundRepo(),
		audit:        newMemAuditRepo(),
		events:       newMemEventRepo(),
		gateway:      newMockGateway(model.OperatorMTN),
		locker:       newMemLocker(),
		notifier:     &mockNotifier{},
	}
	log := newTestLogger()
	tm := &mockTxManager{}
	payCfg := config.PaymentConfig{
		Operators: map[string]config.OperatorConfig{
			"MTN":  {FeeBp: 150, WebhookSecret: "mtn-secret"},
			"MOOV": {FeeBp: 175, WebhookSecret: "moov-secret"},
		},
		Expiry: 15 * time.Minute,
	}
	comCfg := config.CommissionConfig{DefaultRateBp: 1000, ReducedRateBp: 500}
	gateways := map[model.Operator]adapter.MomoGateway{model.OperatorMTN: e.gateway}

	e.fulfillmentUC = NewFulfillmentUseCase(e.tickets, e.subs, e.plans, fakeQRSigner{}, log)
	e.commissionUC = NewCommissionUseCase(e.commissions, e.tickets, e.events, e.subs, e.plans, comCfg, log)
	e.paymentUC = NewPaymentUseCase(e.payments, e.transactions, e.audit, e.fulfillmentUC, e.commissionUC, tm, e.notifier, payCfg, log)
	e.transactionUC = NewTransactionUseCase(e.transactions, e.payments, e.paymentUC, gateways, e.locker, tm, e.notifier, log)
	e.refundUC = NewRefundUseCase(e.refunds, e.payments, e.tickets, e.transactions, e.audit, gateways, tm, e.notifier, log)
	e.ticketUC = NewTicketUseCase(e.tickets, e.audit, fakeQRSigner{}, tm, log)
	return e
}

// seedTicketSale sets up an event, a PENDING ticket and its payment, ready
// for the operator round trip.
func (e *ucEnv) seedTicketSale(ctx context.Context) (*model.Event, *model.Ticket, *model.Payment) {
	ev := &model.Event{
		ID:               "11111111-1111-1111-1111-111111111111",
		OrganizerID:      "22222222-2222-2222-2222-222222222222",
		Title:            "Concert de lancement",
		TicketPrice:      10_000,
		TicketingEnabled: true,
	}
	_ = e.events.Save(ctx, nil, ev)
	tk := &model.Ticket{
		ID:          "33333333-3333-3333-3333-333333333333",
		EventID:     ev.ID,
		BuyerID:     "44444444-4444-4444-4444-444444444444",
		UnitPrice:   10_000,
		Quantity:    1,
		Status:      model.TicketStatusPending,
		PurchasedAt: time.Now(),
	}
	_ = e.tickets.Save(ctx, nil, tk)
	p, err := e.paymentUC.Create(ctx, tk.BuyerID, model.PurposeTicket, tk.ID, 10_000, model.MethodMTNMoney, "+22961000001")
	if err != nil {
		panic(err)
	}
	return ev, tk, p
}

// fakeQRSigner avoids pulling real crypto into use case tests.
type fakeQRSigner struct{}

func (fakeQRSigner) Payload(t *model.Ticket) string {
	return "SPOTVIBE-" + t.ID + "-" + t.EventID
}

func (fakeQRSigner) Verify(payload string) (string, error) {
	const prefix = "SPOTVIBE-"
	if len(payload) < len(prefix)+36 || payload[:len(prefix)] != prefix {
		return "", domain.ErrInvalidQRPayload
	}
	return payload[len(prefix) : len(prefix)+36], nil
}
