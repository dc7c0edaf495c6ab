package ddb

import (
	"context"
	"sort"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func modelVersionPK(versionNumber string) string { return "MODEL#" + versionNumber }

const gsiAllModels = "ENTITY#MODEL"

func modelVersionKeys(mv *domain.ModelVersion) map[string]string {
	return map[string]string{
		"PK":     modelVersionPK(mv.VersionNumber),
		"SK":     skMetadata,
		"GSI1PK": gsiAllModels,
		"GSI1SK": modelVersionPK(mv.VersionNumber),
	}
}

// CreateModelVersion registers a version. Version numbers are the primary
// key, so a duplicate fails the put condition and surfaces as a conflict.
func (r *ddbRepository) CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	item, err := marshalItem(mv, modelVersionKeys(mv))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal model version item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewConflict("model version already exists: " + mv.VersionNumber)
		}
		return appErrors.Wrap(err, "put item failed for model version")
	}
	return nil
}

func (r *ddbRepository) FindModelVersion(ctx context.Context, versionNumber string) (*domain.ModelVersion, error) {
	item, err := r.getMetadataItem(ctx, modelVersionPK(versionNumber))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var mv domain.ModelVersion
	if err := attributevalue.UnmarshalMap(item, &mv); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal model version item")
	}
	return &mv, nil
}

func (r *ddbRepository) FindModelVersions(ctx context.Context, query repository.ModelVersionQuery) ([]*domain.ModelVersion, error) {
	items, err := r.queryEntityIndex(ctx, gsiAllModels)
	if err != nil {
		return nil, err
	}
	var out []*domain.ModelVersion
	for _, item := range items {
		var mv domain.ModelVersion
		if err := attributevalue.UnmarshalMap(item, &mv); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal model version item")
		}
		if query.Status != "" && mv.Status != query.Status {
			continue
		}
		out = append(out, &mv)
	}
	sortModelVersions(out)
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ddbRepository) FindStableVersion(ctx context.Context) (*domain.ModelVersion, error) {
	versions, err := r.FindModelVersions(ctx, repository.ModelVersionQuery{Status: domain.ModelStable, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[0], nil
}

func (r *ddbRepository) UpdateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	item, err := marshalItem(mv, modelVersionKeys(mv))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal model version item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("model version not found: " + mv.VersionNumber)
		}
		return appErrors.Wrap(err, "failed to update model version")
	}
	return nil
}

// PromoteStable makes one version the single stable release. The promotion
// and the demotion of the previous stable version commit in one transaction,
// so there is never a moment with two stable versions.
func (r *ddbRepository) PromoteStable(ctx context.Context, versionNumber string, releaseDate time.Time) error {
	target, err := r.FindModelVersion(ctx, versionNumber)
	if err != nil {
		return err
	}
	if target == nil {
		return appErrors.NewNotFound("model version not found: " + versionNumber)
	}
	current, err := r.FindStableVersion(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	transactItems := []types.TransactWriteItem{
		{Update: &types.Update{
			TableName: aws.String(r.config.TableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: modelVersionPK(versionNumber)},
				"SK": &types.AttributeValueMemberS{Value: skMetadata},
			},
			UpdateExpression:         aws.String("SET #st = :stable, releaseDate = :rd, updatedAt = :u"),
			ConditionExpression:      aws.String("attribute_exists(PK)"),
			ExpressionAttributeNames: map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":stable": &types.AttributeValueMemberS{Value: string(domain.ModelStable)},
				":rd":     &types.AttributeValueMemberS{Value: releaseDate.UTC().Format(time.RFC3339Nano)},
				":u":      &types.AttributeValueMemberS{Value: now},
			},
		}},
	}
	if current != nil && current.VersionNumber != versionNumber {
		transactItems = append(transactItems, types.TransactWriteItem{
			Update: &types.Update{
				TableName: aws.String(r.config.TableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: modelVersionPK(current.VersionNumber)},
					"SK": &types.AttributeValueMemberS{Value: skMetadata},
				},
				UpdateExpression:         aws.String("SET #st = :deprecated, updatedAt = :u"),
				ConditionExpression:      aws.String("#st = :stable"),
				ExpressionAttributeNames: map[string]string{"#st": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":deprecated": &types.AttributeValueMemberS{Value: string(domain.ModelDeprecated)},
					":stable":     &types.AttributeValueMemberS{Value: string(domain.ModelStable)},
					":u":          &types.AttributeValueMemberS{Value: now},
				},
			},
		})
	}
	_, err = r.dbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewConflict("stable promotion raced with a concurrent status change")
		}
		return appErrors.Wrap(err, "transaction to promote stable version failed")
	}
	return nil
}

// sortModelVersions orders newest release first; unreleased versions sort
// after released ones, newest created first.
func sortModelVersions(versions []*domain.ModelVersion) {
	sort.Slice(versions, func(i, j int) bool {
		ri, rj := versions[i].ReleaseDate, versions[j].ReleaseDate
		switch {
		case ri == nil && rj == nil:
			return versions[i].CreatedAt.After(versions[j].CreatedAt)
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return ri.After(*rj)
		}
	})
}
