package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/invoice-insights/internal/platform/httpx"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Enqueuer hands a staged upload to the background worker and returns the task id.
type Enqueuer interface {
	EnqueueIngest(ctx context.Context, staged StagedUpload) (string, error)
}

// Handler exposes the upload endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
	maxBytes int64
}

// NewHandler constructs a Handler. enqueuer may be nil, which disables the async endpoint.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, maxBytes: maxBytes}
}

// MountRoutes registers the invoice endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/upload/async", h.UploadAsync)
	r.Delete("/", h.Reset)
	r.Get("/runs", h.Runs)
}

type uploadResponse struct {
	Success bool `json:"success"`
	Result
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	up, cleanup, err := h.readUpload(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer cleanup()

	result, err := h.service.Ingest(r.Context(), up)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, uploadResponse{Success: true, Result: result})
}

func (h *Handler) UploadAsync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "background ingestion is not configured")
		return
	}
	up, cleanup, err := h.readUpload(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer cleanup()

	staged, err := h.service.Stage(up)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	taskID, err := h.enqueuer.EnqueueIngest(r.Context(), staged)
	if err != nil {
		h.service.Discard(staged)
		h.logger.Error("enqueue ingestion failed", slog.String("file", staged.Filename), slog.Any("error", err))
		httpx.RespondError(w, shared.E(shared.KindStorageFailure, "ingest: enqueue", err))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"success": true, "task_id": taskID})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Reset(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.service.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("list ingestion runs failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, runs)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return Upload{}, nil, shared.E(shared.KindValidationFailed, "ingest: multipart", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return Upload{}, nil, &shared.Error{
				Kind:   shared.KindValidationFailed,
				Op:     "ingest: multipart",
				Fields: []shared.FieldError{{Field: "file", Rule: "required", Message: "is required"}},
			}
		}
		return Upload{}, nil, shared.E(shared.KindValidationFailed, "ingest: multipart", err)
	}
	reset, _ := strconv.ParseBool(r.FormValue("reset"))
	cleanup := func() {
		_ = file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return Upload{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Body:      file,
		Reset:     reset,
	}, cleanup, nil
}
