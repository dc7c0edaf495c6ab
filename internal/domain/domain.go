// Package domain contains the core data structures for the knowledge graph,
// independent of the database or API layers.
package domain

import "time"

// Status is the lifecycle status shared by domains and subdomains.
type Status string

const (
	StatusDevelopment Status = "development"
	StatusBeta        Status = "beta"
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDevelopment, StatusBeta, StatusActive, StatusInactive:
		return true
	}
	return false
}

// DomainNames is the fixed set of allowed top-level knowledge categories.
var DomainNames = map[string]bool{
	"cybersecurity": true,
	"legal":         true,
	"audit":         true,
	"osint":         true,
	"finance":       true,
	"general":       true,
}

// DomainMetadata carries free-form domain bookkeeping.
type DomainMetadata struct {
	Owner  string   `json:"owner,omitempty"`
	Version string  `json:"version,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source,omitempty"`
}

// Domain is a top-level knowledge category (e.g. cybersecurity).
// TotalNodes and QualityScore are cached aggregates, recomputed from the
// nodes transitively owned, never edited directly.
type Domain struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Icon            string         `json:"icon,omitempty"`
	Color           string         `json:"color,omitempty"`
	Priority        int            `json:"priority"`
	Status          Status         `json:"status"`
	TotalNodes      int            `json:"totalNodes"`
	QualityScore    int            `json:"qualityScore"`
	LastModelUpdate *time.Time     `json:"lastModelUpdate,omitempty"`
	Metadata        DomainMetadata `json:"metadata"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
