package handlers

import (
	"net/http"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// HierarchyHandler handles domain and subdomain HTTP requests.
type HierarchyHandler struct {
	hierarchyService hierarchy.Service
}

// NewHierarchyHandler creates a new hierarchy handler.
func NewHierarchyHandler(hierarchyService hierarchy.Service) *HierarchyHandler {
	return &HierarchyHandler{hierarchyService: hierarchyService}
}

type createDomainRequest struct {
	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description"`
	Icon        string                `json:"icon"`
	Color       string                `json:"color"`
	Priority    int                   `json:"priority" validate:"gte=0,lte=10"`
	Metadata    domain.DomainMetadata `json:"metadata"`
}

type updateDomainRequest struct {
	Description *string                `json:"description"`
	Icon        *string                `json:"icon"`
	Color       *string                `json:"color"`
	Priority    *int                   `json:"priority" validate:"omitempty,gte=0,lte=10"`
	Metadata    *domain.DomainMetadata `json:"metadata"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type createSubdomainRequest struct {
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Slug        string                   `json:"slug"`
	Icon        string                   `json:"icon"`
	Order       int                      `json:"order" validate:"gte=0"`
	Metadata    domain.SubdomainMetadata `json:"metadata"`
}

type updateSubdomainRequest struct {
	Name        *string                   `json:"name"`
	Description *string                   `json:"description"`
	Icon        *string                   `json:"icon"`
	Order       *int                      `json:"order" validate:"omitempty,gte=0"`
	Status      *string                   `json:"status"`
	Metadata    *domain.SubdomainMetadata `json:"metadata"`
}

// CreateDomain handles POST /api/domains
func (h *HierarchyHandler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.hierarchyService.CreateDomain(r.Context(), hierarchy.CreateDomainInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, d)
}

// ListDomains handles GET /api/domains
func (h *HierarchyHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	query := repository.DomainQuery{
		Status:   domain.Status(r.URL.Query().Get("status")),
		Priority: queryInt(r, "priority", 0),
	}
	domains, err := h.hierarchyService.ListDomains(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
		"total":   len(domains),
	})
}

// GetDomain handles GET /api/domains/{domainId}
func (h *HierarchyHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.hierarchyService.GetDomain(r.Context(), chi.URLParam(r, "domainId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, d)
}

// GetDomainByName handles GET /api/domains/name/{name}
func (h *HierarchyHandler) GetDomainByName(w http.ResponseWriter, r *http.Request) {
	d, err := h.hierarchyService.GetDomainByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, d)
}

// UpdateDomain handles PUT /api/domains/{domainId}
func (h *HierarchyHandler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	var req updateDomainRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.hierarchyService.UpdateDomain(r.Context(), chi.URLParam(r, "domainId"), hierarchy.UpdateDomainInput{
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, d)
}

// SetDomainStatus handles PUT /api/domains/{domainId}/status
func (h *HierarchyHandler) SetDomainStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.hierarchyService.SetDomainStatus(r.Context(), chi.URLParam(r, "domainId"), domain.Status(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, d)
}

// CreateSubdomain handles POST /api/domains/{domainId}/subdomains
func (h *HierarchyHandler) CreateSubdomain(w http.ResponseWriter, r *http.Request) {
	var req createSubdomainRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sd, err := h.hierarchyService.CreateSubdomain(r.Context(), hierarchy.CreateSubdomainInput{
		DomainID:    chi.URLParam(r, "domainId"),
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		Icon:        req.Icon,
		Order:       req.Order,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, sd)
}

// ListSubdomains handles GET /api/domains/{domainId}/subdomains
func (h *HierarchyHandler) ListSubdomains(w http.ResponseWriter, r *http.Request) {
	subdomains, err := h.hierarchyService.ListSubdomains(r.Context(),
		chi.URLParam(r, "domainId"),
		domain.Status(r.URL.Query().Get("status")))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"subdomains": subdomains,
		"total":      len(subdomains),
	})
}

// GetSubdomain handles GET /api/subdomains/{subdomainId}
func (h *HierarchyHandler) GetSubdomain(w http.ResponseWriter, r *http.Request) {
	sd, err := h.hierarchyService.GetSubdomain(r.Context(), chi.URLParam(r, "subdomainId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, sd)
}

// UpdateSubdomain handles PUT /api/subdomains/{subdomainId}
func (h *HierarchyHandler) UpdateSubdomain(w http.ResponseWriter, r *http.Request) {
	var req updateSubdomainRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := hierarchy.UpdateSubdomainInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Order:       req.Order,
		Metadata:    req.Metadata,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		input.Status = &status
	}

	sd, err := h.hierarchyService.UpdateSubdomain(r.Context(), chi.URLParam(r, "subdomainId"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, sd)
}

// SubdomainStats handles GET /api/subdomains/{subdomainId}/stats
func (h *HierarchyHandler) SubdomainStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hierarchyService.SubdomainStats(r.Context(), chi.URLParam(r, "subdomainId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
