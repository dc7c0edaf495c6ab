package handlers

import (
	"net/http"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/modelregistry"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// ModelHandler handles model registry HTTP requests.
type ModelHandler struct {
	registryService modelregistry.Service
	metrics         *observability.Collector
}

// NewModelHandler creates a new model registry handler.
func NewModelHandler(registryService modelregistry.Service, metrics *observability.Collector) *ModelHandler {
	return &ModelHandler{registryService: registryService, metrics: metrics}
}

type createModelVersionRequest struct {
	VersionNumber string                      `json:"versionNumber" validate:"required"`
	Name          string                      `json:"name"`
	Description   string                      `json:"description"`
	DomainIDs     []string                    `json:"domains"`
	TrainingStats domain.TrainingStats        `json:"trainingStats"`
	Performance   domain.Performance          `json:"performance"`
	Parameters    domain.Parameters           `json:"parameters"`
	Changelog     domain.Changelog            `json:"changelog"`
	Compatibility domain.Compatibility        `json:"compatibility"`
	TrainedBy     string                      `json:"trainedBy" validate:"required"`
	Metadata      domain.ModelVersionMetadata `json:"metadata"`
}

type updateModelStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type monitoringRequest struct {
	DriftScore              float64 `json:"driftScore" validate:"gte=0,lte=1"`
	IncidentsReported       int     `json:"incidentsReported" validate:"gte=0"`
	AverageUserSatisfaction float64 `json:"averageUserSatisfaction" validate:"gte=0,lte=5"`
}

// CreateModelVersion handles POST /api/models
func (h *ModelHandler) CreateModelVersion(w http.ResponseWriter, r *http.Request) {
	var req createModelVersionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mv, err := h.registryService.Create(r.Context(), modelregistry.CreateInput{
		VersionNumber: req.VersionNumber,
		Name:          req.Name,
		Description:   req.Description,
		DomainIDs:     req.DomainIDs,
		TrainingStats: req.TrainingStats,
		Performance:   req.Performance,
		Parameters:    req.Parameters,
		Changelog:     req.Changelog,
		Compatibility: req.Compatibility,
		TrainedBy:     req.TrainedBy,
		Metadata:      req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, mv)
}

// ListModelVersions handles GET /api/models
func (h *ModelHandler) ListModelVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.registryService.List(r.Context(), repository.ModelVersionQuery{
		Status: domain.ModelStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"total":    len(versions),
	})
}

// GetModelVersion handles GET /api/models/{versionNumber}
func (h *ModelHandler) GetModelVersion(w http.ResponseWriter, r *http.Request) {
	mv, err := h.registryService.Get(r.Context(), chi.URLParam(r, "versionNumber"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// StableModelVersion handles GET /api/models/stable
func (h *ModelHandler) StableModelVersion(w http.ResponseWriter, r *http.Request) {
	mv, err := h.registryService.Stable(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// UpdateModelStatus handles PUT /api/models/{versionNumber}/status
func (h *ModelHandler) UpdateModelStatus(w http.ResponseWriter, r *http.Request) {
	var req updateModelStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mv, err := h.registryService.UpdateStatus(r.Context(), chi.URLParam(r, "versionNumber"), domain.ModelStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// UpdateModelPerformance handles PUT /api/models/{versionNumber}/performance
func (h *ModelHandler) UpdateModelPerformance(w http.ResponseWriter, r *http.Request) {
	var req domain.Performance
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mv, err := h.registryService.UpdatePerformance(r.Context(), chi.URLParam(r, "versionNumber"), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// UpdateModelInference handles PUT /api/models/{versionNumber}/inference
func (h *ModelHandler) UpdateModelInference(w http.ResponseWriter, r *http.Request) {
	var req domain.Inference
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mv, err := h.registryService.UpdateInference(r.Context(), chi.URLParam(r, "versionNumber"), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// RecordMonitoring handles POST /api/models/{versionNumber}/monitoring
func (h *ModelHandler) RecordMonitoring(w http.ResponseWriter, r *http.Request) {
	var req monitoringRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mv, err := h.registryService.RecordMonitoring(r.Context(), chi.URLParam(r, "versionNumber"), modelregistry.MonitoringInput{
		DriftScore:              req.DriftScore,
		IncidentsReported:       req.IncidentsReported,
		AverageUserSatisfaction: req.AverageUserSatisfaction,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, mv)
}

// PromoteModelVersion handles POST /api/models/{versionNumber}/promote
func (h *ModelHandler) PromoteModelVersion(w http.ResponseWriter, r *http.Request) {
	mv, err := h.registryService.PromoteToStable(r.Context(), chi.URLParam(r, "versionNumber"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.StablePromotions.Inc()
	api.Success(w, http.StatusOK, mv)
}

// ModelVersionHistory handles GET /api/models/history
func (h *ModelHandler) ModelVersionHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := h.registryService.History(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"total":    len(versions),
	})
}

// ModelCompatibility handles GET /api/models/compatibility
func (h *ModelHandler) ModelCompatibility(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		api.Error(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}

	report, err := h.registryService.Compatibility(r.Context(), from, to)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, report)
}

// ModelRegistryStats handles GET /api/models/stats
func (h *ModelHandler) ModelRegistryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registryService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
