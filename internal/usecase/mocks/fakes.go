package mocks

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// FakeTransactionManager is an in-memory TransactionManager.
type FakeTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	Begun     int
	Committed int
}

func NewFakeTransactionManager() *FakeTransactionManager {
	return &FakeTransactionManager{}
}

func (m *FakeTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.Begun++
	m.mu.Unlock()
	return &FakeTransaction{manager: m}, nil
}

// FakeTransaction counts commits on its manager.
type FakeTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	manager *FakeTransactionManager
}

func (t *FakeTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	if t.manager != nil {
		t.manager.mu.Lock()
		t.manager.Committed++
		t.manager.mu.Unlock()
	}
	return nil
}

func (t *FakeTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	return nil
}

// FakeIDGenerator returns id-1, id-2, ...
type FakeIDGenerator struct {
	GenerateFunc func() string

	mu      sync.Mutex
	counter int
}

func NewFakeIDGenerator() *FakeIDGenerator {
	return &FakeIDGenerator{}
}

func (g *FakeIDGenerator) Generate() string {
	if g.GenerateFunc != nil {
		return g.GenerateFunc()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// FakePartyRepository keeps parties in memory.
type FakePartyRepository struct {
	mu      sync.RWMutex
	parties map[string]*domain.Party

	CreateFunc func(ctx context.Context, tx usecase.Transaction, party *domain.Party) error
	ListFunc   func(ctx context.Context, shopID string, filter domain.PartyFilter) ([]*domain.PartySummary, error)
}

func NewFakePartyRepository(parties ...*domain.Party) *FakePartyRepository {
	m := &FakePartyRepository{parties: make(map[string]*domain.Party)}
	for _, p := range parties {
		m.parties[p.ID] = p
	}
	return m
}

func (m *FakePartyRepository) Create(ctx context.Context, tx usecase.Transaction, party *domain.Party) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, party)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *party
	m.parties[party.ID] = &cp
	return nil
}

func (m *FakePartyRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parties[id]
	if !ok || p.ShopID != shopID {
		return nil, domain.ErrPartyNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *FakePartyRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Party, error) {
	return m.GetByID(ctx, shopID, id)
}

func (m *FakePartyRepository) List(ctx context.Context, shopID string, filter domain.PartyFilter) ([]*domain.PartySummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, shopID, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PartySummary
	for _, p := range m.parties {
		if p.ShopID != shopID || p.IsDeleted() {
			continue
		}
		if filter.EntityType != "" && p.EntityType != filter.EntityType {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		party := *p
		result = append(result, &domain.PartySummary{Party: &party})
	}
	slices.SortFunc(result, func(a, b *domain.PartySummary) int { return strings.Compare(a.Party.Name, b.Party.Name) })
	return result, nil
}

func (m *FakePartyRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	p.DeletedAt = &deletedAt
	return nil
}

// FakeEntryRepository keeps entries in memory.
type FakeEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
}

func NewFakeEntryRepository(entries ...*domain.Entry) *FakeEntryRepository {
	m := &FakeEntryRepository{entries: make(map[string]*domain.Entry)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *FakeEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *FakeEntryRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.ShopID != shopID {
		return nil, domain.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *FakeEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Entry, error) {
	return m.GetByID(ctx, shopID, id)
}

func (m *FakeEntryRepository) ListByParty(ctx context.Context, shopID, partyID string) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Entry
	for _, e := range m.entries {
		if e.ShopID == shopID && e.PartyID == partyID && !e.IsDeleted() {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *FakeEntryRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.IsDeleted() {
		return domain.ErrEntryNotFound
	}
	e.DeletedAt = &deletedAt
	return nil
}

// FakeLoanRepository keeps loans in memory and enforces the version check
// on Update.
type FakeLoanRepository struct {
	mu    sync.RWMutex
	loans map[string]*domain.Loan

	CreateFunc func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
	UpdateFunc func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
}

func NewFakeLoanRepository(loans ...*domain.Loan) *FakeLoanRepository {
	m := &FakeLoanRepository{loans: make(map[string]*domain.Loan)}
	for _, l := range loans {
		m.loans[l.ID] = cloneLoan(l)
	}
	return m
}

func (m *FakeLoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, loan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.loans {
		if existing.ShopID == loan.ShopID && existing.LoanNumber == loan.LoanNumber {
			return domain.ErrDuplicateLoanNumber
		}
	}
	m.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (m *FakeLoanRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok || l.ShopID != shopID {
		return nil, domain.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (m *FakeLoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Loan, error) {
	return m.GetByID(ctx, shopID, id)
}

func (m *FakeLoanRepository) List(ctx context.Context, shopID string, filter domain.LoanFilter) ([]*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Loan
	for _, l := range m.loans {
		if l.ShopID != shopID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && l.CustomerID != filter.CustomerID {
			continue
		}
		result = append(result, cloneLoan(l))
	}
	slices.SortFunc(result, func(a, b *domain.Loan) int { return strings.Compare(a.ID, b.ID) })
	return result, nil
}

func (m *FakeLoanRepository) ListOpen(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	m.mu.RLock()
	var open []*domain.Loan
	for _, l := range m.loans {
		if l.Status.IsOpen() {
			open = append(open, cloneLoan(l))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(open, func(a, b *domain.Loan) int { return strings.Compare(a.ID, b.ID) })
	if offset >= len(open) {
		return nil, nil
	}
	return open[offset:min(offset+limit, len(open))], nil
}

func (m *FakeLoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, loan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if stored.Version != loan.Version {
		return domain.ErrConcurrentModification
	}
	loan.Version++
	m.loans[loan.ID] = cloneLoan(loan)
	return nil
}

// Stored returns the persisted copy of a loan.
func (m *FakeLoanRepository) Stored(id string) *domain.Loan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.loans[id]; ok {
		return cloneLoan(l)
	}
	return nil
}

func cloneLoan(l *domain.Loan) *domain.Loan {
	cp := *l
	cp.Collateral = slices.Clone(l.Collateral)
	cp.Payments = slices.Clone(l.Payments)
	return &cp
}

// FakePaymentRepository keeps payments in memory.
type FakePaymentRepository struct {
	mu       sync.RWMutex
	Payments []*domain.Payment

	CreateFunc func(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error
}

func NewFakePaymentRepository() *FakePaymentRepository {
	return &FakePaymentRepository{}
}

func (m *FakePaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.Payments = append(m.Payments, &cp)
	return nil
}

// FakeOutboxRepository records events in memory.
type FakeOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent
}

func NewFakeOutboxRepository() *FakeOutboxRepository {
	return &FakeOutboxRepository{}
}

func (m *FakeOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *FakeOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published && len(result) < limit {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *FakeOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *FakeOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	return result[offset:min(offset+limit, len(result))], nil
}

func (m *FakeOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = slices.DeleteFunc(m.Events, func(e *domain.OutboxEvent) bool {
		return e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before)
	})
	return nil
}

// EventTypes lists recorded event types in order.
func (m *FakeOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.EventType
	}
	return types
}

// FakeAuditRepository records audit logs in memory.
type FakeAuditRepository struct {
	mu   sync.RWMutex
	Logs []*domain.AuditLog
}

func NewFakeAuditRepository() *FakeAuditRepository {
	return &FakeAuditRepository{}
}

func (m *FakeAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, log)
	return nil
}

func (m *FakeAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.Create(ctx, log)
}

func (m *FakeAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AuditLog
	for _, l := range m.Logs {
		if filter.ShopID != "" && l.ShopID != filter.ShopID {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func (m *FakeAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AuditLog
	for _, l := range m.Logs {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			result = append(result, l)
		}
	}
	return result, nil
}

// FakeLoanLocker is an in-process LoanLocker.
type FakeLoanLocker struct {
	mu    sync.Mutex
	held  map[string]string
	count int
}

func NewFakeLoanLocker() *FakeLoanLocker {
	return &FakeLoanLocker{held: make(map[string]string)}
}

func (l *FakeLoanLocker) Acquire(ctx context.Context, loanID string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[loanID]; ok {
		return "", domain.ErrLoanLocked
	}
	l.count++
	token := fmt.Sprintf("token-%d", l.count)
	l.held[loanID] = token
	return token, nil
}

func (l *FakeLoanLocker) Release(ctx context.Context, loanID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[loanID] == token {
		delete(l.held, loanID)
	}
	return nil
}

// Hold takes the lock on behalf of another holder.
func (l *FakeLoanLocker) Hold(loanID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[loanID] = "other-holder"
}

// FakeAttachmentStore keeps blobs in memory.
type FakeAttachmentStore struct {
	mu    sync.Mutex
	Blobs map[string][]byte

	PutFunc func(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

func NewFakeAttachmentStore() *FakeAttachmentStore {
	return &FakeAttachmentStore{Blobs: make(map[string][]byte)}
}

func (s *FakeAttachmentStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if s.PutFunc != nil {
		return s.PutFunc(ctx, key, body, size, contentType)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Blobs[key] = data
	return "https://files.test/" + key, nil
}

// FakeIdempotencyStore keeps idempotency keys in memory.
type FakeIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{data: make(map[string][]byte)}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
