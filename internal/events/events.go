// Package events publishes domain events to AWS EventBridge. Consumers such
// as the model training scheduler subscribe to the bus out of band.
package events

import (
	"context"
	"encoding/json"
	"time"

	appErrors "kgraph-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

const (
	eventSource            = "kgraph.ingestion"
	retrainingRequiredType = "RetrainingRequired"
)

// RetrainingRequired signals that an ingestion run added enough validated
// knowledge to justify retraining the domain's model.
type RetrainingRequired struct {
	DomainID        string    `json:"domainId"`
	IngestionID     string    `json:"ingestionId"`
	NodesAdded      int       `json:"nodesAdded"`
	EstimatedImpact string    `json:"estimatedImpact"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher emits domain events. The ingestion service treats publish
// failures as non-fatal; the run record itself is the source of truth.
type Publisher interface {
	PublishRetrainingRequired(ctx context.Context, event RetrainingRequired) error
}

// EventBridgePublisher publishes events onto a named EventBridge bus.
type EventBridgePublisher struct {
	client  *eventbridge.Client
	busName string
}

// NewEventBridgePublisher creates a publisher for the given bus.
func NewEventBridgePublisher(client *eventbridge.Client, busName string) *EventBridgePublisher {
	return &EventBridgePublisher{client: client, busName: busName}
}

func (p *EventBridgePublisher) PublishRetrainingRequired(ctx context.Context, event RetrainingRequired) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal retraining event")
	}
	_, err = p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(retrainingRequiredType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to publish retraining event")
	}
	return nil
}

// NopPublisher discards events. Used in tests and local development.
type NopPublisher struct{}

func (NopPublisher) PublishRetrainingRequired(ctx context.Context, event RetrainingRequired) error {
	return nil
}
