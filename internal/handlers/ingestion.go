package handlers

import (
	"net/http"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/service/ingestion"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// IngestionHandler handles batch intake HTTP requests.
type IngestionHandler struct {
	ingestionService ingestion.Service
	metrics          *observability.Collector
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(ingestionService ingestion.Service, metrics *observability.Collector) *IngestionHandler {
	return &IngestionHandler{ingestionService: ingestionService, metrics: metrics}
}

type startIngestionRequest struct {
	DomainID    string                 `json:"domainId" validate:"required"`
	SubdomainID string                 `json:"subdomainId"`
	Type        string                 `json:"ingestionType" validate:"required"`
	Source      domain.IngestionSource `json:"source"`
	ExecutedBy  string                 `json:"executedBy"`
	Description string                 `json:"description"`
}

type nodeCandidateRequest struct {
	SubdomainID    string                 `json:"subdomainId"`
	Category       string                 `json:"category"`
	Title          string                 `json:"title" validate:"required"`
	Content        string                 `json:"content"`
	Summary        string                 `json:"summary"`
	Keywords       []string               `json:"keywords"`
	Examples       []string               `json:"examples"`
	ContentType    string                 `json:"contentType"`
	StructuredData map[string]interface{} `json:"structuredData"`
	Source         domain.Source          `json:"source"`
	ExpiryDate     *time.Time             `json:"expiryDate"`
	Metadata       domain.NodeMetadata    `json:"metadata"`
}

type processBatchRequest struct {
	Candidates []nodeCandidateRequest `json:"candidates" validate:"required,min=1,dive"`
}

type completeIngestionRequest struct {
	Notes string `json:"notes"`
}

type failIngestionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// StartIngestion handles POST /api/ingestions
func (h *IngestionHandler) StartIngestion(w http.ResponseWriter, r *http.Request) {
	var req startIngestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ing, err := h.ingestionService.Start(r.Context(), ingestion.StartInput{
		DomainID:    req.DomainID,
		SubdomainID: req.SubdomainID,
		Type:        domain.IngestionType(req.Type),
		Source:      req.Source,
		ExecutedBy:  req.ExecutedBy,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, ing)
}

// GetIngestion handles GET /api/ingestions/{ingestionId}
func (h *IngestionHandler) GetIngestion(w http.ResponseWriter, r *http.Request) {
	ing, err := h.ingestionService.Get(r.Context(), chi.URLParam(r, "ingestionId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ing)
}

// ProcessBatch handles POST /api/ingestions/{ingestionId}/batch
func (h *IngestionHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req processBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	candidates := make([]ingestion.NodeCandidate, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = ingestion.NodeCandidate{
			SubdomainID:    c.SubdomainID,
			Category:       c.Category,
			Title:          c.Title,
			Content:        c.Content,
			Summary:        c.Summary,
			Keywords:       c.Keywords,
			Examples:       c.Examples,
			ContentType:    domain.ContentType(c.ContentType),
			StructuredData: c.StructuredData,
			Source:         c.Source,
			ExpiryDate:     c.ExpiryDate,
			Metadata:       c.Metadata,
		}
	}

	before, err := h.ingestionService.Get(r.Context(), chi.URLParam(r, "ingestionId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	ing, err := h.ingestionService.ProcessBatch(r.Context(), chi.URLParam(r, "ingestionId"), candidates)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.NodesIngested.Add(float64(ing.NodesProcessed.Successful - before.NodesProcessed.Successful))
	h.metrics.NodesSkipped.Add(float64(ing.NodesProcessed.Skipped - before.NodesProcessed.Skipped))
	api.Success(w, http.StatusOK, ing)
}

// CompleteIngestion handles POST /api/ingestions/{ingestionId}/complete
func (h *IngestionHandler) CompleteIngestion(w http.ResponseWriter, r *http.Request) {
	var req completeIngestionRequest
	if r.ContentLength > 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	ing, err := h.ingestionService.Complete(r.Context(), chi.URLParam(r, "ingestionId"), req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ing.ModelImpact.RequiresRetraining {
		h.metrics.RetrainingsRequested.Inc()
	}
	api.Success(w, http.StatusOK, ing)
}

// FailIngestion handles POST /api/ingestions/{ingestionId}/fail
func (h *IngestionHandler) FailIngestion(w http.ResponseWriter, r *http.Request) {
	var req failIngestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ing, err := h.ingestionService.Fail(r.Context(), chi.URLParam(r, "ingestionId"), req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ing)
}

// IngestionHistory handles GET /api/domains/{domainId}/ingestions
func (h *IngestionHandler) IngestionHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ingestionService.History(r.Context(), chi.URLParam(r, "domainId"), queryInt(r, "limit", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"ingestions": runs,
		"total":      len(runs),
	})
}

// IngestionStats handles GET /api/domains/{domainId}/ingestions/stats
func (h *IngestionHandler) IngestionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingestionService.Stats(r.Context(), chi.URLParam(r, "domainId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
