package handlers

import (
	"net/http"
	"time"

	appMiddleware "kgraph-backend/internal/middleware"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/service/graph"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/internal/service/ingestion"
	"kgraph-backend/internal/service/knowledge"
	"kgraph-backend/internal/service/modelregistry"
	"kgraph-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Services bundles the service layer for router construction.
type Services struct {
	Hierarchy hierarchy.Service
	Knowledge knowledge.Service
	Graph     graph.Service
	Ingestion ingestion.Service
	Registry  modelregistry.Service
}

// NewRouter builds the chi router with the full middleware stack and all
// API routes mounted under /api.
func NewRouter(services Services, metrics *observability.Collector) *chi.Mux {
	hierarchyHandler := NewHierarchyHandler(services.Hierarchy)
	nodeHandler := NewNodeHandler(services.Knowledge, metrics)
	graphHandler := NewGraphHandler(services.Graph, metrics)
	ingestionHandler := NewIngestionHandler(services.Ingestion, metrics)
	modelHandler := NewModelHandler(services.Registry, metrics)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appMiddleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", appMiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(appMiddleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Timeout(29 * time.Second))
	r.Use(appMiddleware.CircuitBreaker(appMiddleware.DefaultCircuitBreakerConfig("kgraph-api")))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/domains", func(r chi.Router) {
			r.Post("/", hierarchyHandler.CreateDomain)
			r.Get("/", hierarchyHandler.ListDomains)
			r.Get("/name/{name}", hierarchyHandler.GetDomainByName)
			r.Route("/{domainId}", func(r chi.Router) {
				r.Get("/", hierarchyHandler.GetDomain)
				r.Put("/", hierarchyHandler.UpdateDomain)
				r.Put("/status", hierarchyHandler.SetDomainStatus)
				r.Post("/subdomains", hierarchyHandler.CreateSubdomain)
				r.Get("/subdomains", hierarchyHandler.ListSubdomains)
				r.Get("/ingestions", ingestionHandler.IngestionHistory)
				r.Get("/ingestions/stats", ingestionHandler.IngestionStats)
			})
		})

		r.Route("/subdomains/{subdomainId}", func(r chi.Router) {
			r.Get("/", hierarchyHandler.GetSubdomain)
			r.Put("/", hierarchyHandler.UpdateSubdomain)
			r.Get("/stats", hierarchyHandler.SubdomainStats)
			r.Get("/nodes", nodeHandler.ListNodes)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", nodeHandler.CreateNode)
			r.Get("/expiring", nodeHandler.ExpiringNodes)
			r.Route("/{nodeId}", func(r chi.Router) {
				r.Get("/", nodeHandler.GetNode)
				r.Post("/validate", nodeHandler.ValidateNode)
				r.Put("/content", nodeHandler.UpdateContent)
				r.Post("/feedback", nodeHandler.AddFeedback)
				r.Get("/related", nodeHandler.RelatedNodes)
				r.Post("/view", nodeHandler.RecordView)
				r.Post("/model-usage", nodeHandler.RecordModelUsage)
				r.Get("/edges", graphHandler.NodeEdges)
				r.Get("/similar", graphHandler.SimilarNodes)
				r.Get("/dependents", graphHandler.DependentNodes)
			})
		})

		r.Post("/search", nodeHandler.Search)

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", graphHandler.CreateRelationship)
			r.Get("/{relationshipId}", graphHandler.GetRelationship)
			r.Put("/{relationshipId}", graphHandler.UpdateRelationship)
			r.Delete("/{relationshipId}", graphHandler.DeactivateRelationship)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/path", graphHandler.FindPath)
			r.Get("/stats", graphHandler.GraphStats)
		})

		r.Route("/ingestions", func(r chi.Router) {
			r.Post("/", ingestionHandler.StartIngestion)
			r.Route("/{ingestionId}", func(r chi.Router) {
				r.Get("/", ingestionHandler.GetIngestion)
				r.Post("/batch", ingestionHandler.ProcessBatch)
				r.Post("/complete", ingestionHandler.CompleteIngestion)
				r.Post("/fail", ingestionHandler.FailIngestion)
			})
		})

		r.Route("/models", func(r chi.Router) {
			r.Post("/", modelHandler.CreateModelVersion)
			r.Get("/", modelHandler.ListModelVersions)
			r.Get("/stable", modelHandler.StableModelVersion)
			r.Get("/stats", modelHandler.ModelRegistryStats)
			r.Get("/history", modelHandler.ModelVersionHistory)
			r.Get("/compatibility", modelHandler.ModelCompatibility)
			r.Route("/{versionNumber}", func(r chi.Router) {
				r.Get("/", modelHandler.GetModelVersion)
				r.Put("/status", modelHandler.UpdateModelStatus)
				r.Put("/performance", modelHandler.UpdateModelPerformance)
				r.Put("/inference", modelHandler.UpdateModelInference)
				r.Post("/monitoring", modelHandler.RecordMonitoring)
				r.Post("/promote", modelHandler.PromoteModelVersion)
			})
		})
	})

	return r
}
