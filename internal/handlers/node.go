package handlers

import (
	"net/http"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/knowledge"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// NodeHandler handles knowledge node HTTP requests.
type NodeHandler struct {
	knowledgeService knowledge.Service
	metrics          *observability.Collector
}

// NewNodeHandler creates a new node handler.
func NewNodeHandler(knowledgeService knowledge.Service, metrics *observability.Collector) *NodeHandler {
	return &NodeHandler{knowledgeService: knowledgeService, metrics: metrics}
}

type createNodeRequest struct {
	SubdomainID    string                 `json:"subdomainId" validate:"required"`
	Category       string                 `json:"category"`
	Title          string                 `json:"title" validate:"required"`
	Content        string                 `json:"content" validate:"required"`
	Summary        string                 `json:"summary"`
	Keywords       []string               `json:"keywords"`
	Examples       []string               `json:"examples"`
	ContentType    string                 `json:"contentType"`
	StructuredData map[string]interface{} `json:"structuredData"`
	Source         domain.Source          `json:"source"`
	EffectiveDate  *time.Time             `json:"effectiveDate"`
	ExpiryDate     *time.Time             `json:"expiryDate"`
	Metadata       domain.NodeMetadata    `json:"metadata"`
}

type validateNodeRequest struct {
	ValidatedBy string `json:"validatedBy" validate:"required"`
	Status      string `json:"status" validate:"required"`
	Score       int    `json:"score" validate:"gte=0,lte=100"`
	Comments    string `json:"comments"`
}

type updateContentRequest struct {
	Content    string `json:"content" validate:"required"`
	ModifiedBy string `json:"modifiedBy" validate:"required"`
}

type feedbackRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment"`
}

type searchRequest struct {
	Keywords []string `json:"keywords" validate:"required,min=1"`
	Limit    int      `json:"limit" validate:"omitempty,gte=1"`
}

// CreateNode handles POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	node, err := h.knowledgeService.CreateNode(r.Context(), knowledge.CreateNodeInput{
		SubdomainID:    req.SubdomainID,
		Category:       req.Category,
		Title:          req.Title,
		Content:        req.Content,
		Summary:        req.Summary,
		Keywords:       req.Keywords,
		Examples:       req.Examples,
		ContentType:    domain.ContentType(req.ContentType),
		StructuredData: req.StructuredData,
		Source:         req.Source,
		EffectiveDate:  req.EffectiveDate,
		ExpiryDate:     req.ExpiryDate,
		Metadata:       req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.NodesIngested.Inc()
	api.Success(w, http.StatusCreated, node)
}

// ListNodes handles GET /api/subdomains/{subdomainId}/nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	query := repository.NodeQuery{
		SubdomainID: chi.URLParam(r, "subdomainId"),
		Status:      domain.ValidationStatus(r.URL.Query().Get("status")),
		Category:    r.URL.Query().Get("category"),
		ContentType: domain.ContentType(r.URL.Query().Get("contentType")),
		Limit:       queryInt(r, "limit", 0),
	}
	nodes, err := h.knowledgeService.ListNodes(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// GetNode handles GET /api/nodes/{nodeId}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.knowledgeService.GetNode(r.Context(), chi.URLParam(r, "nodeId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, node)
}

// ValidateNode handles POST /api/nodes/{nodeId}/validate
func (h *NodeHandler) ValidateNode(w http.ResponseWriter, r *http.Request) {
	var req validateNodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	node, err := h.knowledgeService.Validate(r.Context(), chi.URLParam(r, "nodeId"), knowledge.ValidateInput{
		ValidatedBy: req.ValidatedBy,
		Status:      domain.ValidationStatus(req.Status),
		Score:       req.Score,
		Comments:    req.Comments,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.ValidationsRecorded.WithLabelValues(req.Status).Inc()
	api.Success(w, http.StatusOK, node)
}

// UpdateContent handles PUT /api/nodes/{nodeId}/content
func (h *NodeHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	node, err := h.knowledgeService.UpdateContent(r.Context(), chi.URLParam(r, "nodeId"), req.Content, req.ModifiedBy)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, node)
}

// AddFeedback handles POST /api/nodes/{nodeId}/feedback
func (h *NodeHandler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	node, err := h.knowledgeService.AddFeedback(r.Context(), chi.URLParam(r, "nodeId"), req.UserID, req.Rating, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, node)
}

// Search handles POST /api/search
func (h *NodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	results, err := h.knowledgeService.Search(r.Context(), req.Keywords, req.Limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

// RelatedNodes handles GET /api/nodes/{nodeId}/related
func (h *NodeHandler) RelatedNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.knowledgeService.RelatedNodes(r.Context(), chi.URLParam(r, "nodeId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// ExpiringNodes handles GET /api/nodes/expiring
func (h *NodeHandler) ExpiringNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.knowledgeService.ExpiringNodes(r.Context(), queryInt(r, "withinDays", 30))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// RecordView handles POST /api/nodes/{nodeId}/view
func (h *NodeHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	if err := h.knowledgeService.RecordView(r.Context(), chi.URLParam(r, "nodeId")); err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"message": "View recorded"})
}

// RecordModelUsage handles POST /api/nodes/{nodeId}/model-usage
func (h *NodeHandler) RecordModelUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.knowledgeService.RecordModelUsage(r.Context(), chi.URLParam(r, "nodeId")); err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"message": "Model usage recorded"})
}
