package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seetuai/seetu/internal/domain"
)

// memoryBatchRepo implements domain.BatchRepository with the same guarded
// transition semantics as the SQL implementation.
type memoryBatchRepo struct {
	mu    sync.Mutex
	jobs  map[string]*domain.BatchJob
	items map[string]*domain.BatchItem
	order map[string][]string
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{
		jobs:  make(map[string]*domain.BatchJob),
		items: make(map[string]*domain.BatchItem),
		order: make(map[string][]string),
	}
}

func (m *memoryBatchRepo) CreateJob(_ context.Context, job *domain.BatchJob, items []domain.BatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *job
	stored.CreatedAt = time.Now()
	m.jobs[job.ID] = &stored
	for _, item := range items {
		it := item
		it.CreatedAt = time.Now()
		m.items[item.ID] = &it
		m.order[job.ID] = append(m.order[job.ID], item.ID)
	}
	return nil
}

func (m *memoryBatchRepo) JobByID(_ context.Context, jobID string) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memoryBatchRepo) JobForUser(_ context.Context, jobID, userID string) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memoryBatchRepo) ListJobs(_ context.Context, userID string, limit, offset int) ([]domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []domain.BatchJob
	for _, job := range m.jobs {
		if job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}
	for i := 0; i < len(jobs); i++ {
		for j := i + 1; j < len(jobs); j++ {
			if jobs[j].CreatedAt.After(jobs[i].CreatedAt) {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
		}
	}
	if offset >= len(jobs) {
		return nil, nil
	}
	jobs = jobs[offset:]
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *memoryBatchRepo) ItemsByJob(_ context.Context, jobID string) ([]domain.BatchItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.BatchItem
	for _, id := range m.order[jobID] {
		items = append(items, *m.items[id])
	}
	return items, nil
}

func (m *memoryBatchRepo) ItemProgress(_ context.Context, jobID string) ([]domain.BatchItemProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var progress []domain.BatchItemProgress
	for _, id := range m.order[jobID] {
		item := *m.items[id]
		progress = append(progress, domain.BatchItemProgress{
			BatchItem:   item,
			ProductName: "Product " + item.ProductID,
		})
	}
	return progress, nil
}

func (m *memoryBatchRepo) MarkJobProcessing(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status == domain.BatchJobStatusPending {
		job.Status = domain.BatchJobStatusProcessing
	}
	return nil
}

func (m *memoryBatchRepo) MarkItemProcessing(_ context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status != domain.BatchItemStatusQueued {
		return false, nil
	}
	item.Status = domain.BatchItemStatusProcessing
	return true, nil
}

func (m *memoryBatchRepo) CompleteItem(_ context.Context, itemID, outputURL, caption string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status != domain.BatchItemStatusProcessing {
		return false, nil
	}
	now := time.Now()
	item.Status = domain.BatchItemStatusCompleted
	item.OutputURL = outputURL
	item.Caption = caption
	item.CompletedAt = &now

	job := m.jobs[item.BatchJobID]
	job.ProcessedCount++
	job.SuccessCount++
	job.UsedCredits += item.CreditsCost
	return true, nil
}

func (m *memoryBatchRepo) FailItem(_ context.Context, itemID, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status.Terminal() {
		return false, nil
	}
	now := time.Now()
	item.Status = domain.BatchItemStatusFailed
	item.ErrorMessage = message
	item.CompletedAt = &now

	job := m.jobs[item.BatchJobID]
	job.ProcessedCount++
	job.FailedCount++
	return true, nil
}

func (m *memoryBatchRepo) FinalizeJob(_ context.Context, jobID string, status domain.BatchJobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.BatchJobStatusProcessing {
		return false, nil
	}
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	return true, nil
}

func (m *memoryBatchRepo) CancelJob(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	now := time.Now()
	job.Status = domain.BatchJobStatusFailed
	job.CompletedAt = &now
	for _, id := range m.order[jobID] {
		item := m.items[id]
		if item.Status == domain.BatchItemStatusQueued {
			item.Status = domain.BatchItemStatusFailed
			item.ErrorMessage = domain.CancelledByUserMessage
			item.CompletedAt = &now
		}
	}
	return true, nil
}

func (m *memoryBatchRepo) MarkJobFailedToStart(_ context.Context, jobID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	now := time.Now()
	job.Status = domain.BatchJobStatusFailed
	job.CompletedAt = &now
	for _, id := range m.order[jobID] {
		item := m.items[id]
		if item.Status == domain.BatchItemStatusQueued {
			item.Status = domain.BatchItemStatusFailed
			item.ErrorMessage = reason
			item.CompletedAt = &now
		}
	}
	return true, nil
}

// memoryLedger implements domain.CreditLedger with idempotent debits.
type memoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	debits   map[string]int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{balances: make(map[string]int), debits: make(map[string]int)}
}

func (m *memoryLedger) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return balance, nil
}

func (m *memoryLedger) Debit(_ context.Context, userID string, units int, idempotencyRef, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recorded, ok := m.debits[idempotencyRef]; ok {
		return recorded, nil
	}
	balance := m.balances[userID]
	if balance < units {
		return 0, &domain.InsufficientCreditsError{Needed: units, Available: balance}
	}
	balance -= units
	m.balances[userID] = balance
	m.debits[idempotencyRef] = balance
	return balance, nil
}

func (m *memoryLedger) Grant(_ context.Context, userID string, units int, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += units
	return m.balances[userID], nil
}

// memoryUsers implements domain.UserRepository for a single account.
type memoryUsers struct {
	user *domain.User
}

func newMemoryUsers(userID, locale string) *memoryUsers {
	return &memoryUsers{user: &domain.User{ID: userID, Email: userID + "@example.test", Locale: locale}}
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, domain.ErrNotFound
	}
	copied := *m.user
	return &copied, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, domain.ErrNotFound
	}
	copied := *m.user
	return &copied, nil
}

// memoryProducts implements domain.ProductRepository.
type memoryProducts struct {
	owned map[string][]domain.Product
	brand *domain.Brand
}

func newMemoryProducts(userID string, count int) *memoryProducts {
	products := make([]domain.Product, 0, count)
	for i := 1; i <= count; i++ {
		products = append(products, domain.Product{
			ID:      fmt.Sprintf("prod-%d", i),
			BrandID: "brand-1",
			Name:    fmt.Sprintf("Product %d", i),
		})
	}
	return &memoryProducts{
		owned: map[string][]domain.Product{userID: products},
		brand: &domain.Brand{ID: "brand-1", UserID: userID, Name: "Maison Seetu", Voice: "warm and premium", IsDefault: true},
	}
}

func (m *memoryProducts) ListOwned(_ context.Context, userID string, productIDs []string) ([]domain.Product, error) {
	requested := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		requested[id] = struct{}{}
	}
	var out []domain.Product
	for _, p := range m.owned[userID] {
		if _, ok := requested[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryProducts) DefaultBrand(_ context.Context, userID string) (*domain.Brand, error) {
	if m.brand == nil || m.brand.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *m.brand
	return &copied, nil
}
