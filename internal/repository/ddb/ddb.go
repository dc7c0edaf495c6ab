// Package ddb implements the repository interfaces using AWS DynamoDB.
// This is the only layer that should have knowledge of DynamoDB specifics.
//
// All entities live in a single table. Each item carries entity-specific
// GSI keys: EntityIndex (GSI1PK/GSI1SK) serves listing and lookup queries,
// ReverseIndex (GSI2PK/GSI2SK) serves incoming-edge queries on relationships.
package ddb

import (
	"context"
	"errors"

	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors" // ALIAS for our custom errors

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skMetadata = "METADATA"
	skMarker   = "MARKER"
)

// ddbRepository is the concrete implementation for DynamoDB.
type ddbRepository struct {
	dbClient *dynamodb.Client
	config   repository.Config
}

// NewRepository creates a new instance of the DynamoDB repository.
func NewRepository(dbClient *dynamodb.Client, tableName, entityIndex, reverseIndex string) repository.Repository {
	config := repository.NewConfig(tableName, entityIndex, reverseIndex)
	return &ddbRepository{
		dbClient: dbClient,
		config:   config,
	}
}

// NewRepositoryWithConfig creates a new instance of the DynamoDB repository with custom config.
func NewRepositoryWithConfig(dbClient *dynamodb.Client, config repository.Config) repository.Repository {
	return &ddbRepository{
		dbClient: dbClient,
		config:   config.WithDefaults(),
	}
}

// marshalItem marshals an entity and overlays table and index key attributes.
func marshalItem(entity interface{}, keys map[string]string) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, err
	}
	for name, value := range keys {
		item[name] = &types.AttributeValueMemberS{Value: value}
	}
	return item, nil
}

// getMetadataItem fetches the METADATA item for a primary key. Returns nil
// when the item does not exist.
func (r *ddbRepository) getMetadataItem(ctx context.Context, pk string) (map[string]types.AttributeValue, error) {
	result, err := r.dbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get item from dynamodb")
	}
	return result.Item, nil
}

// queryEntityIndex queries the EntityIndex GSI for all items under one
// partition, following pagination.
func (r *ddbRepository) queryEntityIndex(ctx context.Context, gsi1pk string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.config.TableName),
		IndexName:              aws.String(r.config.EntityIndexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: gsi1pk},
		},
	}
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(r.dbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to query entity index")
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// queryReverseIndex queries the ReverseIndex GSI for all items under one
// partition, following pagination.
func (r *ddbRepository) queryReverseIndex(ctx context.Context, gsi2pk string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.config.TableName),
		IndexName:              aws.String(r.config.ReverseIndexName),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: gsi2pk},
		},
	}
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(r.dbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to query reverse index")
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// scanWithPKPrefix scans the table for METADATA items whose PK starts with
// the given prefix. Used for whole-entity reads that no index serves.
func (r *ddbRepository) scanWithPKPrefix(ctx context.Context, prefix string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.config.TableName),
		FilterExpression: aws.String("begins_with(PK, :prefix) AND SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
			":sk":     &types.AttributeValueMemberS{Value: skMetadata},
		},
	}
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(r.dbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to scan table page")
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// isConditionalCheckFailed reports whether an error came from a failed
// ConditionExpression, either on a single write or inside a transaction.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
