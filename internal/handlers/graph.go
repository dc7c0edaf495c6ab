package handlers

import (
	"net/http"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/service/graph"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// GraphHandler handles relationship and traversal HTTP requests.
type GraphHandler struct {
	graphService graph.Service
	metrics      *observability.Collector
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(graphService graph.Service, metrics *observability.Collector) *GraphHandler {
	return &GraphHandler{graphService: graphService, metrics: metrics}
}

type createRelationshipRequest struct {
	SourceNodeID  string                      `json:"sourceNodeId" validate:"required"`
	TargetNodeID  string                      `json:"targetNodeId" validate:"required"`
	Type          string                      `json:"relationshipType" validate:"required"`
	Weight        *float64                    `json:"weight" validate:"omitempty,gte=0,lte=1"`
	Confidence    *int                        `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Context       string                      `json:"context"`
	Bidirectional bool                        `json:"bidirectional"`
	CreatedBy     string                      `json:"createdBy"`
	Metadata      domain.RelationshipMetadata `json:"metadata"`
}

type updateRelationshipRequest struct {
	Weight     *float64                     `json:"weight" validate:"omitempty,gte=0,lte=1"`
	Confidence *int                         `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Context    *string                      `json:"context"`
	Status     *string                      `json:"status"`
	Metadata   *domain.RelationshipMetadata `json:"metadata"`
}

// CreateRelationship handles POST /api/relationships
func (h *GraphHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req createRelationshipRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rel, err := h.graphService.CreateRelationship(r.Context(), graph.CreateRelationshipInput{
		SourceNodeID:  req.SourceNodeID,
		TargetNodeID:  req.TargetNodeID,
		Type:          domain.RelationshipType(req.Type),
		Weight:        req.Weight,
		Confidence:    req.Confidence,
		Context:       req.Context,
		Bidirectional: req.Bidirectional,
		CreatedBy:     req.CreatedBy,
		Metadata:      req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RelationshipsCreated.Inc()
	api.Success(w, http.StatusCreated, rel)
}

// GetRelationship handles GET /api/relationships/{relationshipId}
func (h *GraphHandler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := h.graphService.GetRelationship(r.Context(), chi.URLParam(r, "relationshipId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, rel)
}

// UpdateRelationship handles PUT /api/relationships/{relationshipId}
func (h *GraphHandler) UpdateRelationship(w http.ResponseWriter, r *http.Request) {
	var req updateRelationshipRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := graph.UpdateRelationshipInput{
		Weight:     req.Weight,
		Confidence: req.Confidence,
		Context:    req.Context,
		Metadata:   req.Metadata,
	}
	if req.Status != nil {
		status := domain.RelationshipStatus(*req.Status)
		input.Status = &status
	}

	rel, err := h.graphService.UpdateRelationship(r.Context(), chi.URLParam(r, "relationshipId"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, rel)
}

// DeactivateRelationship handles DELETE /api/relationships/{relationshipId}
func (h *GraphHandler) DeactivateRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := h.graphService.Deactivate(r.Context(), chi.URLParam(r, "relationshipId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, rel)
}

// NodeEdges handles GET /api/nodes/{nodeId}/edges
func (h *GraphHandler) NodeEdges(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeId")

	var (
		edges []*domain.Relationship
		err   error
	)
	switch r.URL.Query().Get("direction") {
	case "incoming":
		edges, err = h.graphService.Incoming(r.Context(), nodeID)
	default:
		edges, err = h.graphService.Outgoing(r.Context(), nodeID)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"edges": edges,
		"total": len(edges),
	})
}

// FindPath handles GET /api/graph/path
func (h *GraphHandler) FindPath(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		api.Error(w, http.StatusBadRequest, "source and target query parameters are required")
		return
	}

	result, err := h.graphService.FindPath(r.Context(), source, target, queryInt(r, "maxDepth", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.PathSearches.Inc()
	api.Success(w, http.StatusOK, result)
}

// SimilarNodes handles GET /api/nodes/{nodeId}/similar
func (h *GraphHandler) SimilarNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.graphService.SimilarNodes(r.Context(), chi.URLParam(r, "nodeId"), queryInt(r, "limit", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// DependentNodes handles GET /api/nodes/{nodeId}/dependents
func (h *GraphHandler) DependentNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.graphService.DependentNodes(r.Context(), chi.URLParam(r, "nodeId"), queryInt(r, "limit", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// GraphStats handles GET /api/graph/stats
func (h *GraphHandler) GraphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.graphService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
