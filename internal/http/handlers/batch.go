package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seetuai/seetu/internal/batch"
	"github.com/seetuai/seetu/internal/domain"
	zippkg "github.com/seetuai/seetu/pkg/zip"
)

type batchCreateRequest struct {
	ProductIDs []string                   `json:"product_ids"`
	Style      *domain.StyleConfiguration `json:"style,omitempty"`
	PresetID   string                     `json:"preset_id,omitempty"`
}

type batchJobResponse struct {
	ID               string                    `json:"id"`
	Status           string                    `json:"status"`
	TotalProducts    int                       `json:"total_products"`
	ProcessedCount   int                       `json:"processed_count"`
	SuccessCount     int                       `json:"success_count"`
	FailedCount      int                       `json:"failed_count"`
	EstimatedCredits int                       `json:"estimated_credits"`
	UsedCredits      int                       `json:"used_credits"`
	Style            domain.StyleConfiguration `json:"style"`
	CreatedAt        time.Time                 `json:"created_at"`
	CompletedAt      *time.Time                `json:"completed_at,omitempty"`
}

type batchItemResponse struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"product_id"`
	ProductName      string     `json:"product_name,omitempty"`
	ProductThumbnail string     `json:"product_thumbnail,omitempty"`
	Status           string     `json:"status"`
	OutputURL        string     `json:"output_url,omitempty"`
	Caption          string     `json:"caption,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toJobResponse(job *domain.BatchJob) batchJobResponse {
	return batchJobResponse{
		ID:               job.ID,
		Status:           string(job.Status),
		TotalProducts:    job.TotalProducts,
		ProcessedCount:   job.ProcessedCount,
		SuccessCount:     job.SuccessCount,
		FailedCount:      job.FailedCount,
		EstimatedCredits: job.EstimatedCredits,
		UsedCredits:      job.UsedCredits,
		Style:            job.Style,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}

// BatchCreate accepts a new batch job.
func (a *App) BatchCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, err := a.Batches.Create(r.Context(), batch.CreateRequest{
		UserID:     userID,
		ProductIDs: req.ProductIDs,
		Style:      req.Style,
		PresetID:   req.PresetID,
	})
	if err != nil {
		a.batchError(w, err)
		return
	}

	a.json(w, http.StatusCreated, toJobResponse(job))
}

// BatchProgress reports the job with per-item progress.
func (a *App) BatchProgress(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job id required")
		return
	}

	progress, err := a.Batches.Progress(r.Context(), jobID, userID)
	if err != nil {
		a.batchError(w, err)
		return
	}

	items := make([]batchItemResponse, 0, len(progress.Items))
	for _, item := range progress.Items {
		items = append(items, batchItemResponse{
			ID:               item.ID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			ProductThumbnail: item.ProductThumbnail,
			Status:           string(item.Status),
			OutputURL:        item.OutputURL,
			Caption:          item.Caption,
			ErrorMessage:     item.ErrorMessage,
			CompletedAt:      item.CompletedAt,
		})
	}

	a.json(w, http.StatusOK, map[string]any{
		"job":   toJobResponse(progress.Job),
		"items": items,
	})
}

// BatchList returns the caller's jobs newest first.
func (a *App) BatchList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := a.Batches.List(r.Context(), userID, limit, offset)
	if err != nil {
		a.batchError(w, err)
		return
	}

	out := make([]batchJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out})
}

// BatchCancel cancels a pending or processing job.
func (a *App) BatchCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job id required")
		return
	}

	job, err := a.Batches.Cancel(r.Context(), jobID, userID)
	if err != nil {
		a.batchError(w, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// BatchDownload streams the job's completed outputs as a zip archive.
func (a *App) BatchDownload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")

	progress, err := a.Batches.Progress(r.Context(), jobID, userID)
	if err != nil {
		a.batchError(w, err)
		return
	}

	var assets []zippkg.Asset
	for _, item := range progress.Items {
		if item.Status != domain.BatchItemStatusCompleted {
			continue
		}
		key := fmt.Sprintf("batches/%s/%s.png", jobID, item.ID)
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("item_id", item.ID).Msg("download: output missing from storage")
			continue
		}
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		assets = append(assets, zippkg.Asset{
			Filename: fmt.Sprintf("%s-%s.png", sanitizeFilename(name), item.ID[:8]),
			MIME:     "image/png",
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no completed outputs to download")
		return
	}

	archive, err := zippkg.ArchiveAssets(assets)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.zip"`, jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) batchError(w http.ResponseWriter, err error) {
	var ice *domain.InsufficientCreditsError
	switch {
	case errors.As(err, &ice):
		a.json(w, http.StatusPaymentRequired, map[string]any{
			"error":     "insufficient_credits",
			"message":   ice.Error(),
			"needed":    ice.Needed,
			"available": ice.Available,
		})
	case errors.Is(err, domain.ErrEmptyBatch), errors.Is(err, domain.ErrBatchTooLarge), errors.Is(err, domain.ErrInvalidStyle):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrPresetNotFound), errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrJobNotCancellable):
		a.error(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("batch handler error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "output"
	}
	return string(out)
}
