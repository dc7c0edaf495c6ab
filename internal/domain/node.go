package domain

import "time"

// ValidationStatus is the curation state of a node.
type ValidationStatus string

const (
	ValidationPending     ValidationStatus = "pending"
	ValidationNeedsReview ValidationStatus = "needs_review"
	ValidationApproved    ValidationStatus = "approved"
	ValidationRejected    ValidationStatus = "rejected"
)

// ValidValidationStatus reports whether s is a known validation status.
func ValidValidationStatus(s ValidationStatus) bool {
	switch s {
	case ValidationPending, ValidationNeedsReview, ValidationApproved, ValidationRejected:
		return true
	}
	return false
}

// ContentType tags the kind of knowledge a node carries.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentTemplate   ContentType = "template"
	ContentChecklist  ContentType = "checklist"
	ContentProcess    ContentType = "process"
	ContentRule       ContentType = "rule"
	ContentPattern    ContentType = "pattern"
	ContentDefinition ContentType = "definition"
	ContentFormula    ContentType = "formula"
)

// ValidContentType reports whether t is a known content type.
func ValidContentType(t ContentType) bool {
	switch t {
	case ContentText, ContentTemplate, ContentChecklist, ContentProcess,
		ContentRule, ContentPattern, ContentDefinition, ContentFormula:
		return true
	}
	return false
}

// ValidationEntry is one immutable entry in a node's validation history.
type ValidationEntry struct {
	ValidatedBy string           `json:"validatedBy"`
	ValidatedAt time.Time        `json:"validatedAt"`
	Status      ValidationStatus `json:"status"`
	Comments    string           `json:"comments,omitempty"`
	Score       int              `json:"score"`
}

// ValidationRecord holds a node's current curation state plus the append-only
// history of every validation call. Current status is last-write-wins; the
// history is never discarded.
type ValidationRecord struct {
	Status          ValidationStatus  `json:"status"`
	Score           int               `json:"score"`
	Validations     []ValidationEntry `json:"validations"`
	ApprovedBy      string            `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
}

// Source records where a piece of knowledge came from.
type Source struct {
	Title         string     `json:"title,omitempty"`
	URL           string     `json:"url,omitempty"`
	Author        string     `json:"author,omitempty"`
	DatePublished *time.Time `json:"datePublished,omitempty"`
	Credibility   int        `json:"credibility"`
}

// FeedbackEntry is a single rating left on a node. Ratings are 0-5.
type FeedbackEntry struct {
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeStats tracks node usage. FeedbackScore is round(mean(ratings) * 20),
// mapping the 0-5 rating scale onto 0-100.
type NodeStats struct {
	ViewCount     int             `json:"viewCount"`
	UsageInModels int             `json:"usageInModels"`
	FeedbackScore int             `json:"feedbackScore"`
	Feedback      []FeedbackEntry `json:"feedback"`
}

// ContentSnapshot archives a superseded content body. The snapshot is taken
// before every content overwrite, so history length equals Version - 1.
type ContentSnapshot struct {
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	ModifiedBy string    `json:"modifiedBy"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NodeMetadata carries free-form node bookkeeping.
type NodeMetadata struct {
	CreatedBy       string   `json:"createdBy,omitempty"`
	Owner           string   `json:"owner,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Language        string   `json:"language,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	Confidentiality string   `json:"confidentiality,omitempty"`
}

// Node is an atomic knowledge unit owned by exactly one Subdomain.
type Node struct {
	ID               string                 `json:"id"`
	SubdomainID      string                 `json:"subdomainId"`
	Category         string                 `json:"category"`
	Title            string                 `json:"title"`
	Content          string                 `json:"content"`
	Summary          string                 `json:"summary"`
	Keywords         []string               `json:"keywords,omitempty"`
	Examples         []string               `json:"examples,omitempty"`
	RelatedNodeIDs   []string               `json:"relatedNodeIds,omitempty"`
	ContentType      ContentType            `json:"contentType"`
	StructuredData   map[string]interface{} `json:"structuredData,omitempty"`
	Source           Source                 `json:"source"`
	Validation       ValidationRecord       `json:"validation"`
	EffectiveDate    time.Time              `json:"effectiveDate"`
	ExpiryDate       *time.Time             `json:"expiryDate,omitempty"`
	Stats            NodeStats              `json:"stats"`
	Version          int                    `json:"version"`
	PreviousVersions []ContentSnapshot      `json:"previousVersions"`
	Metadata         NodeMetadata           `json:"metadata"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}
