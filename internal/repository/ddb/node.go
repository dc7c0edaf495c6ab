package ddb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func nodePK(id string) string { return "NODE#" + id }

func subdomainNodesGSI(subdomainID string) string { return subdomainPK(subdomainID) + "#NODES" }

// ddbKeyword is a keyword index item. One per (node, keyword) pair, so the
// EntityIndex can answer keyword lookups without a scan.
type ddbKeyword struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	NodeID string `dynamodbav:"nodeId"`
}

// CreateNode transactionally saves a node's metadata and one index item per
// keyword.
func (r *ddbRepository) CreateNode(ctx context.Context, n *domain.Node) error {
	item, err := marshalItem(n, map[string]string{
		"PK":     nodePK(n.ID),
		"SK":     skMetadata,
		"GSI1PK": subdomainNodesGSI(n.SubdomainID),
		"GSI1SK": nodePK(n.ID),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal node item")
	}
	transactItems := []types.TransactWriteItem{
		{Put: &types.Put{TableName: aws.String(r.config.TableName), Item: item}},
	}
	for _, keyword := range n.Keywords {
		keywordItem, err := attributevalue.MarshalMap(ddbKeyword{
			PK:     nodePK(n.ID),
			SK:     "KEYWORD#" + keyword,
			GSI1PK: "KEYWORD#" + keyword,
			GSI1SK: nodePK(n.ID),
			NodeID: n.ID,
		})
		if err != nil {
			return appErrors.Wrap(err, "failed to marshal keyword item")
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.config.TableName), Item: keywordItem},
		})
	}
	_, err = r.dbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		return appErrors.Wrap(err, "transaction to create node and keywords failed")
	}
	return nil
}

func (r *ddbRepository) FindNodeByID(ctx context.Context, id string) (*domain.Node, error) {
	item, err := r.getMetadataItem(ctx, nodePK(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var n domain.Node
	if err := attributevalue.UnmarshalMap(item, &n); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal node item")
	}
	return &n, nil
}

// FindNodeByTitle queries the subdomain's node partition filtered by title.
// Titles are the dedup key for ingestion, so at most one match is expected.
func (r *ddbRepository) FindNodeByTitle(ctx context.Context, subdomainID, title string) (*domain.Node, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(subdomainNodesGSI(subdomainID)))).
		WithFilter(expression.Name("title").Equal(expression.Value(title))).
		Build()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to build title query expression")
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.config.TableName),
		IndexName:                 aws.String(r.config.EntityIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	paginator := dynamodb.NewQueryPaginator(r.dbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to query node by title")
		}
		if len(page.Items) > 0 {
			var n domain.Node
			if err := attributevalue.UnmarshalMap(page.Items[0], &n); err != nil {
				return nil, appErrors.Wrap(err, "failed to unmarshal node item")
			}
			return &n, nil
		}
	}
	return nil, nil
}

func (r *ddbRepository) FindNodes(ctx context.Context, query repository.NodeQuery) ([]*domain.Node, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	items, err := r.queryEntityIndex(ctx, subdomainNodesGSI(query.SubdomainID))
	if err != nil {
		return nil, err
	}
	var out []*domain.Node
	for _, item := range items {
		var n domain.Node
		if err := attributevalue.UnmarshalMap(item, &n); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal node item")
		}
		if query.Status != "" && n.Validation.Status != query.Status {
			continue
		}
		if query.Category != "" && n.Category != query.Category {
			continue
		}
		if query.ContentType != "" && n.ContentType != query.ContentType {
			continue
		}
		out = append(out, &n)
	}
	sortNodes(out)
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (r *ddbRepository) FindNodesByIDs(ctx context.Context, ids []string) ([]*domain.Node, error) {
	var out []*domain.Node
	for _, id := range ids {
		n, err := r.FindNodeByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// FindNodesByKeywords uses the keyword index items to find approved nodes
// matching any of the given keywords.
func (r *ddbRepository) FindNodesByKeywords(ctx context.Context, keywords []string) ([]*domain.Node, error) {
	seen := make(map[string]bool)
	var out []*domain.Node
	for _, keyword := range keywords {
		items, err := r.queryEntityIndex(ctx, "KEYWORD#"+keyword)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var kw ddbKeyword
			if err := attributevalue.UnmarshalMap(item, &kw); err != nil {
				continue
			}
			if seen[kw.NodeID] {
				continue
			}
			seen[kw.NodeID] = true
			n, err := r.FindNodeByID(ctx, kw.NodeID)
			if err != nil {
				return nil, err
			}
			if n != nil && n.Validation.Status == domain.ValidationApproved {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// FindExpiringNodes scans for nodes whose expiry date falls in the window.
// This runs on a daily review cadence, so a scan is acceptable.
func (r *ddbRepository) FindExpiringNodes(ctx context.Context, from, until time.Time) ([]*domain.Node, error) {
	items, err := r.scanWithPKPrefix(ctx, "NODE#")
	if err != nil {
		return nil, err
	}
	var out []*domain.Node
	for _, item := range items {
		var n domain.Node
		if err := attributevalue.UnmarshalMap(item, &n); err != nil {
			continue
		}
		if n.ExpiryDate == nil || n.ExpiryDate.Before(from) || n.ExpiryDate.After(until) {
			continue
		}
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	return out, nil
}

func (r *ddbRepository) CountNodesByStatus(ctx context.Context, subdomainID string) (map[domain.ValidationStatus]int, error) {
	items, err := r.queryEntityIndex(ctx, subdomainNodesGSI(subdomainID))
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.ValidationStatus]int)
	for _, item := range items {
		var n domain.Node
		if err := attributevalue.UnmarshalMap(item, &n); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal node item")
		}
		counts[n.Validation.Status]++
	}
	return counts, nil
}

// AppendValidation appends one entry to the validation history and rewrites
// the node's current status in a single update.
func (r *ddbRepository) AppendValidation(ctx context.Context, nodeID string, entry domain.ValidationEntry) error {
	entryItem, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal validation entry")
	}
	update := "SET validation.validations = list_append(if_not_exists(validation.validations, :empty), :entry), " +
		"validation.#st = :status, validation.score = :score, updatedAt = :u"
	values := map[string]types.AttributeValue{
		":empty":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		":entry":  &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: entryItem}}},
		":status": &types.AttributeValueMemberS{Value: string(entry.Status)},
		":score":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", entry.Score)},
		":u":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	switch entry.Status {
	case domain.ValidationApproved:
		update += ", validation.approvedBy = :by, validation.approvedAt = :at"
		values[":by"] = &types.AttributeValueMemberS{Value: entry.ValidatedBy}
		values[":at"] = &types.AttributeValueMemberS{Value: entry.ValidatedAt.UTC().Format(time.RFC3339Nano)}
	case domain.ValidationRejected:
		update += ", validation.rejectionReason = :r"
		values[":r"] = &types.AttributeValueMemberS{Value: entry.Comments}
	}

	_, err = r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodePK(nodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  map[string]string{"#st": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("node not found: " + nodeID)
		}
		return appErrors.Wrap(err, "failed to append validation entry")
	}
	return nil
}

// UpdateNodeContent archives the old content and installs the new body,
// guarded by the version the caller read. A concurrent writer bumps the
// version first and fails this update's condition.
func (r *ddbRepository) UpdateNodeContent(ctx context.Context, nodeID string, snapshot domain.ContentSnapshot, newContent string, expectedVersion int) error {
	snapshotItem, err := attributevalue.MarshalMap(snapshot)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal content snapshot")
	}
	_, err = r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodePK(nodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression: aws.String("SET content = :c, #v = :next, " +
			"previousVersions = list_append(if_not_exists(previousVersions, :empty), :snap), updatedAt = :u"),
		ConditionExpression:      aws.String("attribute_exists(PK) AND #v = :expected"),
		ExpressionAttributeNames: map[string]string{"#v": "version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":        &types.AttributeValueMemberS{Value: newContent},
			":next":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion+1)},
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
			":empty":    &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":snap":     &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: snapshotItem}}},
			":u":        &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewConflict("node version changed concurrently")
		}
		return appErrors.Wrap(err, "failed to update node content")
	}
	return nil
}

func (r *ddbRepository) AppendFeedback(ctx context.Context, nodeID string, entry domain.FeedbackEntry, newScore int) error {
	entryItem, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal feedback entry")
	}
	_, err = r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodePK(nodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression: aws.String("SET stats.feedback = list_append(if_not_exists(stats.feedback, :empty), :entry), " +
			"stats.feedbackScore = :score, updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":entry": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: entryItem}}},
			":score": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newScore)},
			":u":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("node not found: " + nodeID)
		}
		return appErrors.Wrap(err, "failed to append feedback entry")
	}
	return nil
}

func (r *ddbRepository) IncrementViewCount(ctx context.Context, nodeID string) error {
	return r.incrementStat(ctx, nodeID, "viewCount")
}

func (r *ddbRepository) IncrementModelUsage(ctx context.Context, nodeID string) error {
	return r.incrementStat(ctx, nodeID, "usageInModels")
}

func (r *ddbRepository) incrementStat(ctx context.Context, nodeID, statName string) error {
	_, err := r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodePK(nodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:         aws.String("ADD stats.#s :one"),
		ConditionExpression:      aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{"#s": statName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("node not found: " + nodeID)
		}
		return appErrors.Wrap(err, "failed to increment node stat "+statName)
	}
	return nil
}
