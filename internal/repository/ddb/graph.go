package ddb

import (
	"context"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func relationshipPK(id string) string { return "RELATIONSHIP#" + id }

// relationshipKeys builds the index keys for a relationship item. The
// EntityIndex partitions edges by source node, the ReverseIndex by target
// node, so both traversal directions are single queries.
func relationshipKeys(rel *domain.Relationship) map[string]string {
	return map[string]string{
		"PK":     relationshipPK(rel.ID),
		"SK":     skMetadata,
		"GSI1PK": nodePK(rel.SourceNodeID),
		"GSI1SK": relationshipPK(rel.ID),
		"GSI2PK": nodePK(rel.TargetNodeID),
		"GSI2SK": relationshipPK(rel.ID),
	}
}

func (r *ddbRepository) CreateRelationship(ctx context.Context, rel *domain.Relationship) error {
	item, err := marshalItem(rel, relationshipKeys(rel))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal relationship item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.config.TableName),
		Item:      item,
	})
	if err != nil {
		return appErrors.Wrap(err, "put item failed for relationship")
	}
	return nil
}

func (r *ddbRepository) FindRelationshipByID(ctx context.Context, id string) (*domain.Relationship, error) {
	item, err := r.getMetadataItem(ctx, relationshipPK(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var rel domain.Relationship
	if err := attributevalue.UnmarshalMap(item, &rel); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal relationship item")
	}
	return &rel, nil
}

func (r *ddbRepository) FindRelationships(ctx context.Context, query repository.RelationshipQuery) ([]*domain.Relationship, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var items []map[string]types.AttributeValue
	var err error
	switch {
	case query.EitherNodeID != "":
		outgoing, err := r.queryEntityIndex(ctx, nodePK(query.EitherNodeID))
		if err != nil {
			return nil, err
		}
		incoming, err := r.queryReverseIndex(ctx, nodePK(query.EitherNodeID))
		if err != nil {
			return nil, err
		}
		items = append(outgoing, incoming...)
	case query.SourceNodeID != "":
		items, err = r.queryEntityIndex(ctx, nodePK(query.SourceNodeID))
		if err != nil {
			return nil, err
		}
	case query.TargetNodeID != "":
		items, err = r.queryReverseIndex(ctx, nodePK(query.TargetNodeID))
		if err != nil {
			return nil, err
		}
	default:
		items, err = r.scanWithPKPrefix(ctx, "RELATIONSHIP#")
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []*domain.Relationship
	for _, item := range items {
		var rel domain.Relationship
		if err := attributevalue.UnmarshalMap(item, &rel); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal relationship item")
		}
		if seen[rel.ID] {
			continue
		}
		seen[rel.ID] = true
		if query.SourceNodeID != "" && rel.SourceNodeID != query.SourceNodeID {
			continue
		}
		if query.TargetNodeID != "" && rel.TargetNodeID != query.TargetNodeID {
			continue
		}
		if query.Type != "" && rel.Type != query.Type {
			continue
		}
		if query.Status != "" && rel.Status != query.Status {
			continue
		}
		out = append(out, &rel)
	}
	sortRelationships(out)
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (r *ddbRepository) UpdateRelationship(ctx context.Context, rel *domain.Relationship) error {
	item, err := marshalItem(rel, relationshipKeys(rel))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal relationship item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("relationship not found: " + rel.ID)
		}
		return appErrors.Wrap(err, "failed to update relationship")
	}
	return nil
}

// AllRelationships loads every edge in the graph. Used by path search and
// graph statistics, which need the full adjacency anyway.
func (r *ddbRepository) AllRelationships(ctx context.Context) ([]*domain.Relationship, error) {
	items, err := r.scanWithPKPrefix(ctx, "RELATIONSHIP#")
	if err != nil {
		return nil, err
	}
	var out []*domain.Relationship
	for _, item := range items {
		var rel domain.Relationship
		if err := attributevalue.UnmarshalMap(item, &rel); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal relationship item")
		}
		out = append(out, &rel)
	}
	return out, nil
}
