package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seetuai/seetu/internal/dispatch"
	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/style"
)

// Service accepts, inspects, and cancels batch jobs. Execution itself happens
// in the Runner; the two communicate only through the repository and the
// dispatcher.
type Service struct {
	batches    domain.BatchRepository
	products   domain.ProductRepository
	credits    domain.CreditLedger
	styles     *style.Resolver
	dispatcher dispatch.Dispatcher
	logger     *infra.Logger

	maxBatchSize int
	creditCost   int
}

// NewService wires the batch service.
func NewService(
	batches domain.BatchRepository,
	products domain.ProductRepository,
	credits domain.CreditLedger,
	styles *style.Resolver,
	dispatcher dispatch.Dispatcher,
	logger *infra.Logger,
	maxBatchSize, creditCost int,
) *Service {
	return &Service{
		batches:      batches,
		products:     products,
		credits:      credits,
		styles:       styles,
		dispatcher:   dispatcher,
		logger:       logger,
		maxBatchSize: maxBatchSize,
		creditCost:   creditCost,
	}
}

// CreateRequest is the validated input for a new batch job.
type CreateRequest struct {
	UserID     string
	ProductIDs []string
	Style      *domain.StyleConfiguration
	PresetID   string
}

// Create validates the request, checks ownership and credits, persists the
// job with its queued items, and hands it to the dispatcher. The credit check
// here is advisory; the authoritative debit happens per item during
// execution.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.BatchJob, error) {
	productIDs := dedupe(req.ProductIDs)
	if len(productIDs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(productIDs) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d products, maximum %d", domain.ErrBatchTooLarge, len(productIDs), s.maxBatchSize)
	}

	resolved, err := s.styles.Resolve(req.Style, req.PresetID)
	if err != nil {
		return nil, err
	}

	owned, err := s.products.ListOwned(ctx, req.UserID, productIDs)
	if err != nil {
		return nil, err
	}
	if len(owned) != len(productIDs) {
		missing := missingIDs(productIDs, owned)
		return nil, fmt.Errorf("%w: products %s", domain.ErrNotFound, strings.Join(missing, ", "))
	}

	estimated := len(productIDs) * s.creditCost
	balance, err := s.credits.Balance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if balance < estimated {
		return nil, &domain.InsufficientCreditsError{Needed: estimated, Available: balance}
	}

	job := &domain.BatchJob{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		ProductIDs:       productIDs,
		Style:            resolved,
		Status:           domain.BatchJobStatusPending,
		TotalProducts:    len(productIDs),
		EstimatedCredits: estimated,
	}
	items := make([]domain.BatchItem, 0, len(productIDs))
	for _, productID := range productIDs {
		items = append(items, domain.BatchItem{
			ID:          uuid.NewString(),
			BatchJobID:  job.ID,
			ProductID:   productID,
			Status:      domain.BatchItemStatusQueued,
			CreditsCost: s.creditCost,
		})
	}

	if err := s.batches.CreateJob(ctx, job, items); err != nil {
		return nil, err
	}

	task := dispatch.Task{BatchJobID: job.ID, UserID: job.UserID, PresetID: req.PresetID}
	if err := s.dispatcher.Enqueue(ctx, task); err != nil {
		// The job row exists and stays pending; operators can re-dispatch.
		s.logger.Error().Err(err).Str("batch_job_id", job.ID).Msg("batch: dispatch failed after create")
		return nil, fmt.Errorf("dispatch batch job: %w", err)
	}

	s.logger.Info().
		Str("batch_job_id", job.ID).
		Str("user_id", job.UserID).
		Int("products", job.TotalProducts).
		Int("estimated_credits", estimated).
		Msg("batch: job accepted")
	return job, nil
}

// Progress returns the job and its per-item progress, scoped to the owner.
type Progress struct {
	Job   *domain.BatchJob
	Items []domain.BatchItemProgress
}

// Progress loads the owner-scoped progress view for polling clients.
func (s *Service) Progress(ctx context.Context, jobID, userID string) (*Progress, error) {
	job, err := s.batches.JobForUser(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.batches.ItemProgress(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &Progress{Job: job, Items: items}, nil
}

// List returns the user's jobs newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.BatchJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.batches.ListJobs(ctx, userID, limit, offset)
}

// Cancel force-fails the job's still-queued items and marks the job failed.
// Items already in flight finish on their own; credits already spent are not
// refunded.
func (s *Service) Cancel(ctx context.Context, jobID, userID string) (*domain.BatchJob, error) {
	job, err := s.batches.JobForUser(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, domain.ErrJobNotCancellable
	}

	cancelled, err := s.batches.CancelJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, domain.ErrJobNotCancellable
	}

	s.logger.Info().Str("batch_job_id", jobID).Str("user_id", userID).Msg("batch: job cancelled")
	return s.batches.JobForUser(ctx, jobID, userID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(requested []string, owned []domain.Product) []string {
	ownedSet := make(map[string]struct{}, len(owned))
	for _, p := range owned {
		ownedSet[p.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := ownedSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
