package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/grammar-annotation-backend/internal/http/handlers"
	httpMW "github.com/yungbote/grammar-annotation-backend/internal/http/middleware"
	"github.com/yungbote/grammar-annotation-backend/internal/observability"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

const serviceName = "grammar-annotation"

type RouterConfig struct {
	HealthHandler     *httpH.HealthHandler
	AnnotationHandler *httpH.AnnotationHandler

	Metrics *observability.Metrics
	Log     *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if h := cfg.AnnotationHandler; h != nil {
			// Catalog
			api.GET("/knowledge-points", h.ListKnowledgePoints)
			api.POST("/knowledge-points", h.UpsertKnowledgePoints)
			api.POST("/knowledge-points/reload", h.ReloadCatalog)

			// Questions
			api.POST("/questions", h.UpsertQuestion)
			api.GET("/questions/:id/annotations", h.ListAnnotations)
			api.POST("/questions/:id/annotations/apply", h.Apply)
			api.GET("/questions/:id/feedback", h.ListFeedback)

			// Suggestions
			api.POST("/annotations/suggest", h.Suggest)
			api.POST("/annotations/suggest/batch", h.SuggestBatch)
			api.POST("/annotations/feedback", h.Feedback)
		}
	}

	return r
}
