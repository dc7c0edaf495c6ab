package ddb

import (
	"context"
	"fmt"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func domainPK(id string) string           { return "DOMAIN#" + id }
func domainNamePK(name string) string     { return "DOMAINNAME#" + name }
func subdomainPK(id string) string        { return "SUBDOMAIN#" + id }
func subdomainSlugPK(domainID, slug string) string {
	return "DOMAIN#" + domainID + "#SLUG#" + slug
}

const (
	gsiAllDomains = "ENTITY#DOMAIN"
)

// CreateDomain transactionally saves a domain and a marker item that
// reserves its name. A second create with the same name fails the marker's
// condition and surfaces as a conflict.
func (r *ddbRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	item, err := marshalItem(d, map[string]string{
		"PK":     domainPK(d.ID),
		"SK":     skMetadata,
		"GSI1PK": gsiAllDomains,
		"GSI1SK": domainPK(d.ID),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal domain item")
	}
	marker := map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: domainNamePK(d.Name)},
		"SK":       &types.AttributeValueMemberS{Value: skMarker},
		"domainId": &types.AttributeValueMemberS{Value: d.ID},
	}
	_, err = r.dbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.config.TableName), Item: item}},
			{Put: &types.Put{
				TableName:           aws.String(r.config.TableName),
				Item:                marker,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewConflict("domain name already exists: " + d.Name)
		}
		return appErrors.Wrap(err, "transaction to create domain failed")
	}
	return nil
}

func (r *ddbRepository) FindDomainByID(ctx context.Context, id string) (*domain.Domain, error) {
	item, err := r.getMetadataItem(ctx, domainPK(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var d domain.Domain
	if err := attributevalue.UnmarshalMap(item, &d); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal domain item")
	}
	return &d, nil
}

// FindDomainByName resolves the name marker, then loads the domain.
func (r *ddbRepository) FindDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	result, err := r.dbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: domainNamePK(name)},
			"SK": &types.AttributeValueMemberS{Value: skMarker},
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get domain name marker")
	}
	if result.Item == nil {
		return nil, nil
	}
	idAttr, ok := result.Item["domainId"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, appErrors.NewInternal("domain name marker missing domainId", nil)
	}
	return r.FindDomainByID(ctx, idAttr.Value)
}

func (r *ddbRepository) FindDomains(ctx context.Context, query repository.DomainQuery) ([]*domain.Domain, error) {
	items, err := r.queryEntityIndex(ctx, gsiAllDomains)
	if err != nil {
		return nil, err
	}
	var out []*domain.Domain
	for _, item := range items {
		var d domain.Domain
		if err := attributevalue.UnmarshalMap(item, &d); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal domain item")
		}
		if query.Status != "" && d.Status != query.Status {
			continue
		}
		if query.Priority != 0 && d.Priority != query.Priority {
			continue
		}
		out = append(out, &d)
	}
	sortDomains(out)
	return out, nil
}

func (r *ddbRepository) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	item, err := marshalItem(d, map[string]string{
		"PK":     domainPK(d.ID),
		"SK":     skMetadata,
		"GSI1PK": gsiAllDomains,
		"GSI1SK": domainPK(d.ID),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal domain item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("domain not found: " + d.ID)
		}
		return appErrors.Wrap(err, "failed to update domain")
	}
	return nil
}

func (r *ddbRepository) UpdateDomainCounters(ctx context.Context, id string, totalNodes, qualityScore int) error {
	_, err := r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: domainPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:    aws.String("SET totalNodes = :t, qualityScore = :q, updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", totalNodes)},
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", qualityScore)},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("domain not found: " + id)
		}
		return appErrors.Wrap(err, "failed to update domain counters")
	}
	return nil
}

// CreateSubdomain transactionally saves a subdomain and a marker item that
// reserves its slug within the parent domain.
func (r *ddbRepository) CreateSubdomain(ctx context.Context, s *domain.Subdomain) error {
	item, err := marshalItem(s, map[string]string{
		"PK":     subdomainPK(s.ID),
		"SK":     skMetadata,
		"GSI1PK": domainPK(s.DomainID) + "#SUBDOMAINS",
		"GSI1SK": subdomainPK(s.ID),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal subdomain item")
	}
	marker := map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: subdomainSlugPK(s.DomainID, s.Slug)},
		"SK":          &types.AttributeValueMemberS{Value: skMarker},
		"subdomainId": &types.AttributeValueMemberS{Value: s.ID},
	}
	_, err = r.dbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.config.TableName), Item: item}},
			{Put: &types.Put{
				TableName:           aws.String(r.config.TableName),
				Item:                marker,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewConflict("subdomain slug already exists: " + s.Slug)
		}
		return appErrors.Wrap(err, "transaction to create subdomain failed")
	}
	return nil
}

func (r *ddbRepository) FindSubdomainByID(ctx context.Context, id string) (*domain.Subdomain, error) {
	item, err := r.getMetadataItem(ctx, subdomainPK(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil // Not found
	}
	var s domain.Subdomain
	if err := attributevalue.UnmarshalMap(item, &s); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal subdomain item")
	}
	return &s, nil
}

func (r *ddbRepository) FindSubdomains(ctx context.Context, query repository.SubdomainQuery) ([]*domain.Subdomain, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	items, err := r.queryEntityIndex(ctx, domainPK(query.DomainID)+"#SUBDOMAINS")
	if err != nil {
		return nil, err
	}
	var out []*domain.Subdomain
	for _, item := range items {
		var s domain.Subdomain
		if err := attributevalue.UnmarshalMap(item, &s); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal subdomain item")
		}
		if query.Status != "" && s.Status != query.Status {
			continue
		}
		out = append(out, &s)
	}
	sortSubdomains(out)
	return out, nil
}

func (r *ddbRepository) UpdateSubdomain(ctx context.Context, s *domain.Subdomain) error {
	item, err := marshalItem(s, map[string]string{
		"PK":     subdomainPK(s.ID),
		"SK":     skMetadata,
		"GSI1PK": domainPK(s.DomainID) + "#SUBDOMAINS",
		"GSI1SK": subdomainPK(s.ID),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal subdomain item")
	}
	_, err = r.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("subdomain not found: " + s.ID)
		}
		return appErrors.Wrap(err, "failed to update subdomain")
	}
	return nil
}

func (r *ddbRepository) UpdateSubdomainCounters(ctx context.Context, id string, totalNodes, validatedNodes, qualityScore int) error {
	_, err := r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subdomainPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:    aws.String("SET totalNodes = :t, validatedNodes = :v, qualityScore = :q, updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", totalNodes)},
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", validatedNodes)},
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", qualityScore)},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("subdomain not found: " + id)
		}
		return appErrors.Wrap(err, "failed to update subdomain counters")
	}
	return nil
}

func (r *ddbRepository) RecordSubdomainIngestion(ctx context.Context, id string, at time.Time) error {
	_, err := r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subdomainPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:    aws.String("SET lastDataIngestion = :a, updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return appErrors.NewNotFound("subdomain not found: " + id)
		}
		return appErrors.Wrap(err, "failed to record subdomain ingestion")
	}
	return nil
}
