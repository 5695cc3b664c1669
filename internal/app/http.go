package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/grammar-annotation-backend/internal/http"
	httpH "github.com/yungbote/grammar-annotation-backend/internal/http/handlers"
	"github.com/yungbote/grammar-annotation-backend/internal/observability"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Annotation *httpH.AnnotationHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(services.Annotations),
		Annotation: httpH.NewAnnotationHandler(log, services.Annotations),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		HealthHandler:     handlers.Health,
		AnnotationHandler: handlers.Annotation,
		Metrics:           metrics,
		Log:               log,
	})
}
