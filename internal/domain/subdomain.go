package domain

import "time"

// SubdomainMetadata carries free-form subdomain bookkeeping.
type SubdomainMetadata struct {
	Owner             string   `json:"owner,omitempty"`
	Version           string   `json:"version,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	RelatedSubdomains []string `json:"relatedSubdomains,omitempty"`
	ExternalSources   []string `json:"externalSources,omitempty"`
}

// Subdomain is a named subdivision of a Domain. The (DomainID, Slug) pair is
// unique. TotalNodes, ValidatedNodes and QualityScore are cached aggregates.
type Subdomain struct {
	ID                string            `json:"id"`
	DomainID          string            `json:"domainId"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Slug              string            `json:"slug"`
	Icon              string            `json:"icon,omitempty"`
	Order             int               `json:"order"`
	TotalNodes        int               `json:"totalNodes"`
	ValidatedNodes    int               `json:"validatedNodes"`
	QualityScore      int               `json:"qualityScore"`
	Status            Status            `json:"status"`
	LastDataIngestion *time.Time        `json:"lastDataIngestion,omitempty"`
	Metadata          SubdomainMetadata `json:"metadata"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
