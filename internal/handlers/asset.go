package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"learningdash-backend/internal/middleware"
	"learningdash-backend/internal/models"
)

type assetService interface {
	Submit(ctx context.Context, req *models.CreateLearningAssetRequest) (*models.LearningAsset, error)
	Get(ctx context.Context, id uuid.UUID) (*models.LearningAsset, error)
	List(ctx context.Context, q models.ListLearningAssetsQuery) (*models.ListLearningAssetsResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.CancelAssetResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.IngestJob, error)
}

type AssetHandler struct {
	service assetService
}

func NewAssetHandler(service assetService) *AssetHandler {
	return &AssetHandler{service: service}
}

// Create accepts a new asset for ingestion. The asset is returned immediately
// as PENDING; processing happens asynchronously.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLearningAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// Authenticated requests own their assets regardless of the body.
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		req.UserID = &userID
	}

	asset, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateLearningAssetResponse{
		Asset:   asset,
		Message: "Asset accepted for processing",
	})
}

func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid asset ID", r))
		return
	}

	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	q := models.ListLearningAssetsQuery{
		SortBy:    r.URL.Query().Get("sortBy"),
		SortOrder: r.URL.Query().Get("sortOrder"),
	}

	if v := r.URL.Query().Get("sourceType"); v != "" {
		st := models.SourceType(v)
		q.SourceType = &st
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.ProcessingStatus(v)
		q.Status = &status
	}
	if v := r.URL.Query().Get("userId"); v != "" {
		q.UserID = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("INVALID_QUERY", "Invalid query parameters",
				map[string]string{"limit": "limit must be an integer"}, r))
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("INVALID_QUERY", "Invalid query parameters",
				map[string]string{"offset": "offset must be an integer"}, r))
			return
		}
		q.Offset = n
	}

	resp, err := h.service.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Cancel stops a queued or in-flight asset. Cancelling an already terminal
// asset returns its current state with cancelled=false.
func (h *AssetHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid asset ID", r))
		return
	}

	resp, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetJob exposes a pipeline job, including any recorded failure reason.
func (h *AssetHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
