package graph

import (
	"context"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/neo4jdb"
)

// Store binds the package functions to one client. A nil client turns every
// write into a no-op and every read into an empty result.
type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, baseLog *logger.Logger) *Store {
	return &Store{client: client, log: baseLog.With("store", "AnnotationGraph")}
}

func (s *Store) Enabled() bool { return s != nil && s.client != nil && s.client.Driver != nil }

func (s *Store) UpsertKnowledgePoints(ctx context.Context, points []annotation.KnowledgePoint) error {
	return UpsertKnowledgePoints(ctx, s.client, s.log, points)
}

func (s *Store) ListKnowledgePoints(ctx context.Context) ([]annotation.KnowledgePoint, error) {
	return ListKnowledgePoints(ctx, s.client)
}

func (s *Store) UpsertQuestion(ctx context.Context, q annotation.Question) error {
	return UpsertQuestion(ctx, s.client, s.log, q)
}

func (s *Store) ApplyAnnotations(ctx context.Context, questionID string, edges []AnnotationEdge) error {
	return ApplyAnnotations(ctx, s.client, s.log, questionID, edges)
}

func (s *Store) ListQuestionAnnotations(ctx context.Context, questionID string) ([]AnnotationEdge, error) {
	return ListQuestionAnnotations(ctx, s.client, questionID)
}
