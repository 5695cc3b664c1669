package app

import (
	"context"
	"fmt"

	"github.com/yungbote/grammar-annotation-backend/internal/clients/redis"
	"github.com/yungbote/grammar-annotation-backend/internal/data/db"
	"github.com/yungbote/grammar-annotation-backend/internal/observability"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/neo4jdb"
)

const dbDriverNone = "none"

// Clients holds the optional backing services. Any of them may be nil when
// its env is not configured.
type Clients struct {
	Neo4j    *neo4jdb.Client
	DB       *db.PostgresService
	Verified redis.VerifiedStore
	Metrics  *observability.Metrics
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	graphClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	if graphClient == nil {
		log.Warn("NEO4J_URI not set; using seed catalog and read-only annotations")
	}

	var pg *db.PostgresService
	if cfg.DBDriver != dbDriverNone {
		pg, err = db.NewPostgresService(log)
		if err != nil {
			_ = graphClient.Close(context.Background())
			return Clients{}, fmt.Errorf("init feedback store: %w", err)
		}
		if err := db.AutoMigrateAll(pg.DB()); err != nil {
			_ = pg.Close()
			_ = graphClient.Close(context.Background())
			return Clients{}, fmt.Errorf("feedback store automigrate: %w", err)
		}
	} else {
		log.Warn("DB_DRIVER=none; feedback disabled and history boost neutral")
	}

	verified, err := redis.NewVerifiedStore(log)
	if err != nil {
		if pg != nil {
			_ = pg.Close()
		}
		_ = graphClient.Close(context.Background())
		return Clients{}, fmt.Errorf("init redis verified store: %w", err)
	}

	return Clients{
		Neo4j:    graphClient,
		DB:       pg,
		Verified: verified,
		Metrics:  observability.Init(log),
	}, nil
}

func (c Clients) Close(ctx context.Context) {
	if c.Verified != nil {
		_ = c.Verified.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
	_ = c.Neo4j.Close(ctx)
}
