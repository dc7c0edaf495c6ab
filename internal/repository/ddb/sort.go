package ddb

import (
	"sort"

	"kgraph-backend/internal/domain"
)

// Result ordering is applied in memory after the index query. Partitions
// are small enough (domains, subdomains per domain) that this is cheaper
// than maintaining sort-key encodings for every ordering.

func sortDomains(domains []*domain.Domain) {
	sort.Slice(domains, func(i, j int) bool {
		if domains[i].Priority != domains[j].Priority {
			return domains[i].Priority > domains[j].Priority
		}
		return domains[i].CreatedAt.After(domains[j].CreatedAt)
	})
}

func sortSubdomains(subdomains []*domain.Subdomain) {
	sort.Slice(subdomains, func(i, j int) bool {
		if subdomains[i].Order != subdomains[j].Order {
			return subdomains[i].Order < subdomains[j].Order
		}
		return subdomains[i].CreatedAt.After(subdomains[j].CreatedAt)
	})
}

func sortNodes(nodes []*domain.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Stats.FeedbackScore != nodes[j].Stats.FeedbackScore {
			return nodes[i].Stats.FeedbackScore > nodes[j].Stats.FeedbackScore
		}
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})
}

func sortRelationships(rels []*domain.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Weight != rels[j].Weight {
			return rels[i].Weight > rels[j].Weight
		}
		return rels[i].Confidence > rels[j].Confidence
	})
}
