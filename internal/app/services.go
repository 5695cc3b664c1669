package app

import (
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/services"
)

type Services struct {
	Annotations services.AnnotationService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")
	return Services{
		Annotations: services.NewAnnotationService(
			log,
			cfg.Engine,
			reposet.Graph,
			reposet.Feedback,
			clients.Verified,
			clients.Metrics,
			cfg.Services,
		),
	}
}
