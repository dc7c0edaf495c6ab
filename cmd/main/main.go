package main

import (
	"context"
	"log"

	"kgraph-backend/internal/events"
	"kgraph-backend/internal/handlers"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/repository/ddb"
	"kgraph-backend/internal/service/graph"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/internal/service/ingestion"
	"kgraph-backend/internal/service/knowledge"
	"kgraph-backend/internal/service/modelregistry"
	"kgraph-backend/pkg/config"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var chiLambda *chiadapter.ChiLambdaV2

func init() {
	cfg := config.New()

	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("unable to load SDK config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}

	dbClient := dynamodb.NewFromConfig(awsCfg)
	repo := ddb.NewRepository(dbClient, cfg.TableName, cfg.EntityIndexName, cfg.ReverseIndexName)
	publisher := events.NewEventBridgePublisher(eventbridge.NewFromConfig(awsCfg), cfg.EventBusName)

	hierarchySvc := hierarchy.NewService(repo)
	knowledgeSvc := knowledge.NewService(repo, hierarchySvc)

	router := handlers.NewRouter(handlers.Services{
		Hierarchy: hierarchySvc,
		Knowledge: knowledgeSvc,
		Graph:     graph.NewService(repo),
		Ingestion: ingestion.NewService(repo, knowledgeSvc, hierarchySvc, publisher, logger),
		Registry:  modelregistry.NewService(repo, hierarchySvc),
	}, observability.NewCollector("kgraph"))

	chiLambda = chiadapter.NewV2(router)

	log.Println("Service initialized successfully")
}

func Handler(ctx context.Context, req awsevents.APIGatewayV2HTTPRequest) (awsevents.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
