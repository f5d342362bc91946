package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seetuai/seetu/internal/dispatch"
	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/metrics"
	"github.com/seetuai/seetu/internal/promptbuild"
	"github.com/seetuai/seetu/internal/providers/caption"
	"github.com/seetuai/seetu/internal/providers/image"
	"github.com/seetuai/seetu/internal/storage"
)

const insufficientCreditsMessage = "Insufficient credits"

// Runner executes one batch job at a time: sequential items, a debit before
// each generation, and counter-backed progress after each item. All of its
// item and job transitions are guarded in the repository, so a redelivered
// task resumes where the previous attempt stopped instead of double-charging
// or double-counting.
type Runner struct {
	batches   domain.BatchRepository
	products  domain.ProductRepository
	credits   domain.CreditLedger
	users     domain.UserRepository
	generator image.Generator
	captions  caption.Writer
	store     *storage.FileStore
	logger    *infra.Logger

	outputBaseURL string
	itemDelay     time.Duration
	genTimeout    time.Duration
}

// NewRunner wires the batch runner.
func NewRunner(
	batches domain.BatchRepository,
	products domain.ProductRepository,
	credits domain.CreditLedger,
	users domain.UserRepository,
	generator image.Generator,
	captions caption.Writer,
	store *storage.FileStore,
	logger *infra.Logger,
	outputBaseURL string,
	itemDelay, genTimeout time.Duration,
) *Runner {
	return &Runner{
		batches:       batches,
		products:      products,
		credits:       credits,
		users:         users,
		generator:     generator,
		captions:      captions,
		store:         store,
		logger:        logger,
		outputBaseURL: strings.TrimRight(outputBaseURL, "/"),
		itemDelay:     itemDelay,
		genTimeout:    genTimeout,
	}
}

// Run processes the dispatched job to completion. It implements
// dispatch.Handler.
func (r *Runner) Run(ctx context.Context, task dispatch.Task) error {
	job, err := r.batches.JobByID(ctx, task.BatchJobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn().Str("batch_job_id", task.BatchJobID).Msg("batch: dispatched job no longer exists")
			return nil
		}
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	if err := r.batches.MarkJobProcessing(ctx, job.ID); err != nil {
		return err
	}
	metrics.BatchJobsStarted.Inc()
	r.logger.Info().
		Str("batch_job_id", job.ID).
		Int("products", job.TotalProducts).
		Msg("batch: job started")

	items, err := r.batches.ItemsByJob(ctx, job.ID)
	if err != nil {
		return err
	}
	productByID, err := r.loadProducts(ctx, job)
	if err != nil {
		return err
	}
	brandVoice := r.lookupBrandVoice(ctx, job.UserID)
	locale := r.lookupLocale(ctx, job.UserID)

	style := job.Style
	creditsExhausted := false

	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-batch: the task is redelivered and resumes on
			// the items still queued.
			return err
		}

		// A cancel call may have landed since the last item.
		current, err := r.batches.JobByID(ctx, job.ID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			r.logger.Info().Str("batch_job_id", job.ID).Msg("batch: job left processing, stopping")
			return nil
		}

		if creditsExhausted {
			if applied, err := r.batches.FailItem(ctx, item.ID, insufficientCreditsMessage); err != nil {
				return err
			} else if applied {
				metrics.BatchItemsProcessed.WithLabelValues("failed").Inc()
			}
			continue
		}

		applied, err := r.batches.MarkItemProcessing(ctx, item.ID)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}

		if err := r.debitItem(ctx, job.UserID, item); err != nil {
			if domain.IsInsufficientCredits(err) {
				// One shortfall dooms every remaining item: per-item cost is
				// uniform, so nothing later in the batch could succeed.
				creditsExhausted = true
				r.failItem(ctx, item.ID, insufficientCreditsMessage)
				r.logger.Warn().
					Str("batch_job_id", job.ID).
					Str("item_id", item.ID).
					Msg("batch: credits exhausted, failing remaining items")
				continue
			}
			r.failItem(ctx, item.ID, "Credit debit failed")
			continue
		}
		metrics.CreditsDebited.Add(float64(item.CreditsCost))

		product, ok := productByID[item.ProductID]
		if !ok {
			r.failItem(ctx, item.ID, "Product no longer available")
			continue
		}

		outputURL, captionText, genErr := r.generateItem(ctx, job, style, product, item, brandVoice, locale)
		if genErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.failItem(ctx, item.ID, truncateMessage(genErr.Error()))
			continue
		}

		completed, err := r.batches.CompleteItem(ctx, item.ID, outputURL, captionText)
		if err != nil {
			return err
		}
		if completed {
			metrics.BatchItemsProcessed.WithLabelValues("completed").Inc()
		}

		if r.itemDelay > 0 && idx < len(items)-1 {
			select {
			case <-time.After(r.itemDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return r.finalize(ctx, job.ID)
}

func (r *Runner) loadProducts(ctx context.Context, job *domain.BatchJob) (map[string]domain.Product, error) {
	products, err := r.products.ListOwned(ctx, job.UserID, job.ProductIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (r *Runner) lookupBrandVoice(ctx context.Context, userID string) string {
	brand, err := r.products.DefaultBrand(ctx, userID)
	if err != nil {
		return ""
	}
	return brand.Voice
}

func (r *Runner) lookupLocale(ctx context.Context, userID string) string {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Locale
}

func (r *Runner) debitItem(ctx context.Context, userID string, item domain.BatchItem) error {
	description := fmt.Sprintf("batch item %s (job %s)", item.ID, item.BatchJobID)
	_, err := r.credits.Debit(ctx, userID, item.CreditsCost, item.ID, description)
	return err
}

func (r *Runner) generateItem(
	ctx context.Context,
	job *domain.BatchJob,
	style domain.StyleConfiguration,
	product domain.Product,
	item domain.BatchItem,
	brandVoice, locale string,
) (outputURL, captionText string, err error) {
	genCtx := ctx
	if r.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.genTimeout)
		defer cancel()
	}

	prompt := promptbuild.Build(product, style)
	var refs []image.Reference
	if product.SourceURL != "" {
		refs = append(refs, image.Reference{URL: product.SourceURL, MIME: "image/jpeg"})
	}

	asset, err := r.generator.Generate(genCtx, image.GenerateRequest{
		Prompt:     prompt,
		References: refs,
		RequestID:  item.ID,
	})
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", "", fmt.Errorf("generation timed out after %s", r.genTimeout)
		}
		return "", "", err
	}

	key := fmt.Sprintf("batches/%s/%s.png", job.ID, item.ID)
	storedKey, err := r.store.Write(ctx, key, asset.Data)
	if err != nil {
		return "", "", fmt.Errorf("store output: %w", err)
	}
	outputURL = r.outputBaseURL + "/" + storedKey

	// Captions are cosmetic; a writer failure never fails the item.
	text, capErr := r.captions.Write(ctx, caption.Request{
		ProductName: product.Name,
		BrandVoice:  brandVoice,
		Locale:      locale,
		RequestID:   item.ID,
	})
	if capErr != nil {
		r.logger.Warn().Err(capErr).Str("item_id", item.ID).Msg("batch: caption generation failed")
	} else {
		captionText = text
	}

	return outputURL, captionText, nil
}

func (r *Runner) failItem(ctx context.Context, itemID, message string) {
	applied, err := r.batches.FailItem(ctx, itemID, message)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID).Msg("batch: recording item failure failed")
		return
	}
	if applied {
		metrics.BatchItemsProcessed.WithLabelValues("failed").Inc()
	}
}

func (r *Runner) finalize(ctx context.Context, jobID string) error {
	job, err := r.batches.JobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	status, done := domain.EvaluateCompletion(job.TotalProducts, job.ProcessedCount, job.SuccessCount, job.FailedCount)
	if !done {
		// Items remain unprocessed, which means a concurrent cancel raced us
		// or the task will be redelivered. Leave the job as is.
		return nil
	}

	applied, err := r.batches.FinalizeJob(ctx, jobID, status)
	if err != nil {
		return err
	}
	if applied {
		metrics.BatchJobsFinished.WithLabelValues(string(status)).Inc()
		r.logger.Info().
			Str("batch_job_id", jobID).
			Str("status", string(status)).
			Int("success", job.SuccessCount).
			Int("failed", job.FailedCount).
			Msg("batch: job finished")
	}
	return nil
}

func truncateMessage(msg string) string {
	const limit = 500
	if len(msg) <= limit {
		return msg
	}
	return msg[:limit]
}
