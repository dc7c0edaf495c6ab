package repository

import (
	"fmt"

	"kgraph-backend/internal/domain"
)

// DomainQuery represents query parameters for listing domains.
type DomainQuery struct {
	Status   domain.Status // Optional: filter by lifecycle status
	Priority int           // Optional: filter by exact priority (0 = no filter)
}

// SubdomainQuery represents query parameters for listing subdomains.
type SubdomainQuery struct {
	DomainID string        // Required: parent domain
	Status   domain.Status // Optional: filter by lifecycle status
}

// Validate checks if the SubdomainQuery has valid parameters.
func (q SubdomainQuery) Validate() error {
	if q.DomainID == "" {
		return fmt.Errorf("invalid query: DomainID cannot be empty")
	}
	return nil
}

// NodeQuery represents query parameters for listing nodes in a subdomain.
// Results are sorted by feedback score, then recency.
type NodeQuery struct {
	SubdomainID string                  // Required: owning subdomain
	Status      domain.ValidationStatus // Optional: filter by validation status
	Category    string                  // Optional: filter by category label
	ContentType domain.ContentType      // Optional: filter by content type
	Limit       int                     // Optional: maximum results (0 = no limit)
}

// Validate checks if the NodeQuery has valid parameters.
func (q NodeQuery) Validate() error {
	if q.SubdomainID == "" {
		return fmt.Errorf("invalid query: SubdomainID cannot be empty")
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid query: Limit cannot be negative")
	}
	return nil
}

// RelationshipQuery represents query parameters for finding graph edges.
// Exactly one of SourceNodeID, TargetNodeID or EitherNodeID is typically set.
type RelationshipQuery struct {
	SourceNodeID string                    // Optional: edges originating from this node
	TargetNodeID string                    // Optional: edges pointing to this node
	EitherNodeID string                    // Optional: edges touching this node at either end
	Type         domain.RelationshipType   // Optional: filter by relationship type
	Status       domain.RelationshipStatus // Optional: filter by edge status
	Limit        int                       // Optional: maximum results (0 = no limit)
}

// Validate checks if the RelationshipQuery has valid parameters.
func (q RelationshipQuery) Validate() error {
	if q.SourceNodeID == "" && q.TargetNodeID == "" && q.EitherNodeID == "" {
		return fmt.Errorf("invalid query: one of SourceNodeID, TargetNodeID or EitherNodeID is required")
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid query: Limit cannot be negative")
	}
	return nil
}

// ModelVersionQuery represents query parameters for listing model versions.
type ModelVersionQuery struct {
	Status domain.ModelStatus // Optional: filter by lifecycle status
	Limit  int                // Optional: maximum results (0 = default 50)
}
