package app

import (
	"github.com/yungbote/grammar-annotation-backend/internal/data/graph"
	"github.com/yungbote/grammar-annotation-backend/internal/data/repos"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

type Repos struct {
	Feedback repos.FeedbackRepo
	Graph    *graph.Store
}

func wireRepos(clients Clients, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	out := Repos{
		Graph: graph.NewStore(clients.Neo4j, log),
	}
	if clients.DB != nil {
		out.Feedback = repos.NewFeedbackRepo(clients.DB.DB(), log)
	}
	return out
}
