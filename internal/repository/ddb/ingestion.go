package ddb

import (
	"context"
	"strconv"
	"time"

	"kgraph-backend/internal/domain"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func ingestionPK(id string) string { return "INGESTION#" + id }

func domainIngestionsGSI(domainID string) string { return domainPK(domainID) + "#INGESTIONS" }

// ingestionKeys builds the index keys for an ingestion item. The GSI sort key
// leads with the creation timestamp so history queries read newest-first.
func ingestionKeys(ing *domain.Ingestion) map[string]string {
	return map[string]string{
		"PK":     ingestionPK(ing.ID),
		"SK":     skMetadata,
		"GSI1PK": domainIngestionsGSI(ing.DomainID),
		"GSI1SK": ing.CreatedAt.UTC().Format(time.RFC3339) + "#" + ing.ID,
	}
}

func (r *ddbRepository) CreateIngestion(ctx context.Context, ing *domain.Ingestion) error {
	item, err := marshalItem(ing, ingestionKeys(ing))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal ingestion item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.config.TableName),
		Item:      item,
	})
	if err != nil {
		return appErrors.Wrap(err, "put item failed for ingestion record")
	}
	return nil
}

func (r *ddbRepository) FindIngestionByID(ctx context.Context, id string) (*domain.Ingestion, error) {
	item, err := r.getMetadataItem(ctx, ingestionPK(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var ing domain.Ingestion
	if err := attributevalue.UnmarshalMap(item, &ing); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal ingestion item")
	}
	return &ing, nil
}

// ApplyBatch folds one batch's outcome into the run record atomically:
// counters accumulate, node IDs and the log entry append, status moves.
func (r *ddbRepository) ApplyBatch(ctx context.Context, id string, delta domain.ProcessedCounts, nodeIDs []string, entry domain.LogEntry, status domain.IngestionStatus) error {
	if nodeIDs == nil {
		nodeIDs = []string{}
	}
	idsValue, err := attributevalue.Marshal(nodeIDs)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal batch node ids")
	}
	entryItem, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal batch log entry")
	}

	update := "SET #np.#t = #np.#t + :dt, #np.#s = #np.#s + :ds, #np.#f = #np.#f + :df, #np.#k = #np.#k + :dk, " +
		"#dd.#dup = #dd.#dup + :dk, " +
		"nodeIds = list_append(if_not_exists(nodeIds, :emptyL), :ids), " +
		"logs = list_append(if_not_exists(logs, :emptyL), :log), " +
		"#st = :status, updatedAt = :u"
	names := map[string]string{
		"#np":  "nodesProcessed",
		"#t":   "total",
		"#s":   "successful",
		"#f":   "failed",
		"#k":   "skipped",
		"#dd":  "deduplication",
		"#dup": "duplicatesFound",
		"#st":  "status",
	}
	values := map[string]types.AttributeValue{
		":dt":     numberValue(delta.Total),
		":ds":     numberValue(delta.Successful),
		":df":     numberValue(delta.Failed),
		":dk":     numberValue(delta.Skipped),
		":emptyL": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		":ids":    idsValue,
		":log":    &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: entryItem}}},
		":status": &types.AttributeValueMemberS{Value: string(status)},
		":u":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	_, err = r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: ingestionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("ingestion record not found: " + id)
		}
		return appErrors.Wrap(err, "failed to apply ingestion batch")
	}
	return nil
}

func (r *ddbRepository) UpdateIngestion(ctx context.Context, ing *domain.Ingestion) error {
	item, err := marshalItem(ing, ingestionKeys(ing))
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal ingestion item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("ingestion record not found: " + ing.ID)
		}
		return appErrors.Wrap(err, "failed to update ingestion record")
	}
	return nil
}

func (r *ddbRepository) FindIngestionsByDomain(ctx context.Context, domainID string, limit int) ([]*domain.Ingestion, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.config.TableName),
		IndexName:              aws.String(r.config.EntityIndexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: domainIngestionsGSI(domainID)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	result, err := r.dbClient.Query(ctx, input)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to query ingestion history")
	}
	var out []*domain.Ingestion
	for _, item := range result.Items {
		var ing domain.Ingestion
		if err := attributevalue.UnmarshalMap(item, &ing); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal ingestion item")
		}
		out = append(out, &ing)
	}
	return out, nil
}

func numberValue(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}
