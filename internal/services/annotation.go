package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/grammar-annotation-backend/internal/clients/redis"
	"github.com/yungbote/grammar-annotation-backend/internal/data/graph"
	"github.com/yungbote/grammar-annotation-backend/internal/data/repos"
	types "github.com/yungbote/grammar-annotation-backend/internal/domain/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation/seed"
	"github.com/yungbote/grammar-annotation-backend/internal/observability"
	"github.com/yungbote/grammar-annotation-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/grammar-annotation-backend/internal/pkg/errors"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/apierr"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/ctxutil"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

const (
	CatalogSourceGraph = "neo4j"
	CatalogSourceSeed  = "seed"
)

var (
	ErrCatalogUnavailable  = errors.New("knowledge-point catalog unavailable")
	ErrGraphUnavailable    = errors.New("graph store not configured")
	ErrFeedbackUnavailable = errors.New("feedback store not configured")
)

// GraphStore is the slice of the Neo4j store the service needs.
type GraphStore interface {
	Enabled() bool
	UpsertKnowledgePoints(ctx context.Context, points []annotation.KnowledgePoint) error
	ListKnowledgePoints(ctx context.Context) ([]annotation.KnowledgePoint, error)
	UpsertQuestion(ctx context.Context, q annotation.Question) error
	ApplyAnnotations(ctx context.Context, questionID string, edges []graph.AnnotationEdge) error
	ListQuestionAnnotations(ctx context.Context, questionID string) ([]graph.AnnotationEdge, error)
}

type AnnotationService interface {
	Reload(ctx context.Context) (CatalogInfo, error)
	CatalogInfo() CatalogInfo
	KnowledgePoints(ctx context.Context) ([]annotation.KnowledgePoint, error)
	UpsertKnowledgePoints(ctx context.Context, points []annotation.KnowledgePoint) (CatalogInfo, error)
	UpsertQuestion(ctx context.Context, q annotation.Question) error
	Suggest(ctx context.Context, q annotation.Question) ([]annotation.Suggestion, error)
	SuggestBatch(ctx context.Context, qs []annotation.Question) ([][]annotation.Suggestion, error)
	Apply(ctx context.Context, q annotation.Question) (*ApplyResult, error)
	Annotations(ctx context.Context, questionID string) ([]graph.AnnotationEdge, error)
	Feedback(ctx context.Context, in FeedbackInput) (*types.AnnotationFeedback, error)
	FeedbackHistory(ctx context.Context, questionID string) ([]*types.AnnotationFeedback, error)
}

type AnnotationServiceOptions struct {
	BatchConcurrency   int
	AccuracyMinSamples int64
	StoreTimeout       time.Duration
}

type CatalogInfo struct {
	Source   string    `json:"source"`
	Size     int       `json:"size"`
	LoadedAt time.Time `json:"loaded_at"`
}

type ApplyResult struct {
	QuestionID  string                  `json:"question_id"`
	Suggestions []annotation.Suggestion `json:"suggestions"`
	Applied     []graph.AnnotationEdge  `json:"applied"`
}

type FeedbackInput struct {
	QuestionID       string
	QuestionType     annotation.QuestionType
	KnowledgePointID string
	Accepted         bool
	Confidence       float64
	Decision         annotation.Decision
	MatchedKeywords  []string
	ReviewerID       string
}

type snapshot struct {
	engine *annotation.Engine
	info   CatalogInfo
}

type annotationService struct {
	log      *logger.Logger
	cfg      annotation.Config
	opts     AnnotationServiceOptions
	graph    GraphStore
	feedback repos.FeedbackRepo
	verified redis.VerifiedStore
	metrics  *observability.Metrics

	live     atomic.Pointer[snapshot]
	reloadMu sync.Mutex
}

// NewAnnotationService wires the engine to its collaborators. graphStore,
// feedback and verified may each be nil. Reads then degrade to the seed
// catalog and neutral history, writes answer 503.
func NewAnnotationService(
	log *logger.Logger,
	cfg annotation.Config,
	graphStore GraphStore,
	feedback repos.FeedbackRepo,
	verified redis.VerifiedStore,
	metrics *observability.Metrics,
	opts AnnotationServiceOptions,
) AnnotationService {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = runtime.GOMAXPROCS(0)
	}
	if opts.AccuracyMinSamples <= 0 {
		opts.AccuracyMinSamples = 5
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &annotationService{
		log:      log.With("service", "AnnotationService"),
		cfg:      cfg.Normalized(),
		opts:     opts,
		graph:    graphStore,
		feedback: feedback,
		verified: verified,
		metrics:  metrics,
	}
}

func (s *annotationService) graphEnabled() bool {
	return s.graph != nil && s.graph.Enabled()
}

// Reload rebuilds the engine from the graph catalog, falling back to the seed
// catalog when the graph is absent or empty. The live engine is swapped only
// on success.
func (s *annotationService) Reload(ctx context.Context) (CatalogInfo, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	points, source, err := s.loadPoints(ctx)
	if err != nil {
		s.metrics.ObserveCatalogReload(source, 0, err)
		return CatalogInfo{}, apierr.New(http.StatusInternalServerError, "catalog_unavailable", fmt.Errorf("%w: %v", ErrCatalogUnavailable, err))
	}
	catalog, err := annotation.NewCatalog(points)
	if err != nil {
		s.metrics.ObserveCatalogReload(source, 0, err)
		return CatalogInfo{}, apierr.New(http.StatusInternalServerError, "catalog_unavailable", err)
	}
	snap, err := s.build(ctx, catalog, source)
	if err != nil {
		s.metrics.ObserveCatalogReload(source, 0, err)
		return CatalogInfo{}, apierr.New(http.StatusInternalServerError, "catalog_unavailable", err)
	}
	s.live.Store(snap)
	s.metrics.ObserveCatalogReload(source, snap.info.Size, nil)
	s.log.Info("catalog loaded", "source", source, "size", snap.info.Size)
	return snap.info, nil
}

func (s *annotationService) loadPoints(ctx context.Context) ([]annotation.KnowledgePoint, string, error) {
	if s.graphEnabled() {
		cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		points, err := s.graph.ListKnowledgePoints(cctx)
		cancel()
		switch {
		case err != nil:
			s.metrics.IncCollaboratorError("neo4j", "list_knowledge_points")
			s.log.Warn("graph catalog read failed, using seed catalog", "error", err)
		case len(points) > 0:
			return points, CatalogSourceGraph, nil
		default:
			s.log.Info("graph catalog empty, using seed catalog")
		}
	}
	points, err := seed.KnowledgePoints()
	return points, CatalogSourceSeed, err
}

// build pairs a catalog with the current accuracy history. History failures
// leave the booster neutral.
func (s *annotationService) build(ctx context.Context, catalog *annotation.Catalog, source string) (*snapshot, error) {
	var opts []annotation.Option
	if table := s.accuracyTable(ctx); len(table) > 0 {
		opts = append(opts, annotation.WithAccuracyProvider(table))
	}
	engine, err := annotation.NewEngine(catalog, s.cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &snapshot{
		engine: engine,
		info:   CatalogInfo{Source: source, Size: catalog.Len(), LoadedAt: time.Now().UTC()},
	}, nil
}

func (s *annotationService) accuracyTable(ctx context.Context) annotation.AccuracyTable {
	if s.feedback == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	rows, err := s.feedback.AccuracyStats(dbctx.Of(cctx))
	if err != nil {
		s.metrics.IncCollaboratorError("postgres", "accuracy_stats")
		s.log.Warn("accuracy history unavailable (neutral)", "error", err)
		return nil
	}
	return BuildAccuracyTable(rows, s.opts.AccuracyMinSamples)
}

func (s *annotationService) engine() (*annotation.Engine, error) {
	snap := s.live.Load()
	if snap == nil || snap.engine == nil {
		return nil, apierr.New(http.StatusInternalServerError, "catalog_unavailable", ErrCatalogUnavailable)
	}
	return snap.engine, nil
}

func (s *annotationService) CatalogInfo() CatalogInfo {
	if snap := s.live.Load(); snap != nil {
		return snap.info
	}
	return CatalogInfo{}
}

func (s *annotationService) KnowledgePoints(ctx context.Context) ([]annotation.KnowledgePoint, error) {
	e, err := s.engine()
	if err != nil {
		return nil, err
	}
	return e.Catalog().Points(), nil
}

func (s *annotationService) UpsertKnowledgePoints(ctx context.Context, points []annotation.KnowledgePoint) (CatalogInfo, error) {
	if !s.graphEnabled() {
		return CatalogInfo{}, apierr.New(http.StatusServiceUnavailable, "graph_unavailable", ErrGraphUnavailable)
	}
	if _, err := annotation.NewCatalog(points); err != nil {
		return CatalogInfo{}, apierr.New(http.StatusBadRequest, "invalid_knowledge_point", err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	err := s.graph.UpsertKnowledgePoints(cctx, points)
	cancel()
	if err != nil {
		s.metrics.IncCollaboratorError("neo4j", "upsert_knowledge_points")
		return CatalogInfo{}, apierr.New(http.StatusBadGateway, "annotation_store_failed", fmt.Errorf("upsert knowledge points: %w", err))
	}
	return s.Reload(ctx)
}

func (s *annotationService) UpsertQuestion(ctx context.Context, q annotation.Question) error {
	if !s.graphEnabled() {
		return apierr.New(http.StatusServiceUnavailable, "graph_unavailable", ErrGraphUnavailable)
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.graph.UpsertQuestion(cctx, q); err != nil {
		s.metrics.IncCollaboratorError("neo4j", "upsert_question")
		return apierr.New(http.StatusBadGateway, "annotation_store_failed", fmt.Errorf("upsert question: %w", err))
	}
	return nil
}

// verifiedFor never fails: a validator error means no external confirmation.
func (s *annotationService) verifiedFor(ctx context.Context, questionID string) annotation.VerifiedSet {
	if s.verified == nil || strings.TrimSpace(questionID) == "" {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	ids, err := s.verified.Verified(cctx, questionID)
	if err != nil {
		s.metrics.IncCollaboratorError("redis", "verified")
		s.log.Warn("verified set lookup failed (ignored)", append(ctxutil.LogFields(ctx), "question_id", questionID, "error", err)...)
		return nil
	}
	return annotation.NewVerifiedSet(ids...)
}

func (s *annotationService) Suggest(ctx context.Context, q annotation.Question) ([]annotation.Suggestion, error) {
	e, err := s.engine()
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "annotation.suggest",
		attribute.String("question.type", string(q.Type)),
		attribute.Int("question.existing_annotations", q.ExistingAnnotationCount),
	)
	defer span.End()

	start := time.Now()
	out := e.Suggest(q, annotation.WithVerified(s.verifiedFor(ctx, q.ID)))
	s.metrics.ObserveSuggest(decisionsOf(out), time.Since(start))
	span.SetAttributes(attribute.Int("suggestions", len(out)))
	return out, nil
}

// SuggestBatch scores questions with at most BatchConcurrency workers.
// Results line up with qs.
func (s *annotationService) SuggestBatch(ctx context.Context, qs []annotation.Question) ([][]annotation.Suggestion, error) {
	if _, err := s.engine(); err != nil {
		return nil, err
	}
	s.metrics.ObserveBatch(len(qs))
	out := make([][]annotation.Suggestion, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i := range qs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Suggest(gctx, qs[i])
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply scores the question and persists its AUTO_APPLY suggestions as
// ANNOTATED_WITH edges. When the caller leaves the existing count at zero it
// is taken from the graph, counting only edges to knowledge points this
// question does not score, so applying twice writes the same edges.
func (s *annotationService) Apply(ctx context.Context, q annotation.Question) (*ApplyResult, error) {
	if !s.graphEnabled() {
		return nil, apierr.New(http.StatusServiceUnavailable, "graph_unavailable", ErrGraphUnavailable)
	}
	if strings.TrimSpace(q.ID) == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("%w: question id required", pkgerrors.ErrInvalidArgument))
	}
	ctx, span := observability.StartSpan(ctx, "annotation.apply", attribute.String("question.id", q.ID))
	defer span.End()

	if q.ExistingAnnotationCount == 0 {
		if existing, err := s.Annotations(ctx, q.ID); err == nil {
			q.ExistingAnnotationCount = s.otherAnnotationCount(q, existing)
		} else {
			s.log.Warn("existing annotation count unavailable", "question_id", q.ID, "error", err)
		}
	}

	suggestions, err := s.Suggest(ctx, q)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	edges := make([]graph.AnnotationEdge, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Decision != annotation.DecisionAutoApply {
			continue
		}
		edges = append(edges, graph.AnnotationEdge{
			QuestionID:         q.ID,
			KnowledgePointID:   sg.KnowledgePointID,
			KnowledgePointName: sg.KnowledgePointName,
			Confidence:         sg.Confidence,
			Decision:           string(sg.Decision),
			Source:             graph.EdgeSourceAuto,
			Reasoning:          sg.Reasoning,
			UpdatedAt:          now,
		})
	}

	if err := s.UpsertQuestion(ctx, q); err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	err = s.graph.ApplyAnnotations(cctx, q.ID, edges)
	cancel()
	if err != nil {
		s.metrics.IncCollaboratorError("neo4j", "apply_annotations")
		return nil, apierr.New(http.StatusBadGateway, "annotation_store_failed", fmt.Errorf("apply annotations: %w", err))
	}
	for _, e := range edges {
		s.publish(ctx, redis.Event{Type: redis.EventApplied, QuestionID: q.ID, KnowledgePointID: e.KnowledgePointID, Decision: e.Decision})
	}
	s.log.Info("annotations applied", append(ctxutil.LogFields(ctx), "question_id", q.ID, "applied", len(edges), "suggested", len(suggestions))...)
	return &ApplyResult{QuestionID: q.ID, Suggestions: suggestions, Applied: edges}, nil
}

// otherAnnotationCount counts stored edges whose knowledge point is not among
// the question's current candidates.
func (s *annotationService) otherAnnotationCount(q annotation.Question, existing []graph.AnnotationEdge) int {
	if len(existing) == 0 {
		return 0
	}
	e, err := s.engine()
	if err != nil {
		return len(existing)
	}
	scored := make(map[string]struct{})
	for _, c := range e.Candidates(q) {
		scored[c.KnowledgePointID] = struct{}{}
	}
	for _, sg := range e.Suggest(q) {
		scored[sg.KnowledgePointID] = struct{}{}
	}
	n := 0
	for _, edge := range existing {
		if _, ok := scored[edge.KnowledgePointID]; !ok {
			n++
		}
	}
	return n
}

func (s *annotationService) Annotations(ctx context.Context, questionID string) ([]graph.AnnotationEdge, error) {
	if !s.graphEnabled() {
		return []graph.AnnotationEdge{}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	edges, err := s.graph.ListQuestionAnnotations(cctx, questionID)
	if err != nil {
		s.metrics.IncCollaboratorError("neo4j", "list_annotations")
		return nil, apierr.New(http.StatusBadGateway, "annotation_store_failed", fmt.Errorf("list annotations: %w", err))
	}
	if edges == nil {
		edges = []graph.AnnotationEdge{}
	}
	return edges, nil
}

// Feedback records a reviewer verdict. Accepted knowledge points become
// reviewer edges in the graph and are marked verified for later fusion;
// rejected ones lose their verified mark. Accuracy history is refreshed
// afterwards.
func (s *annotationService) Feedback(ctx context.Context, in FeedbackInput) (*types.AnnotationFeedback, error) {
	if s.feedback == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "feedback_unavailable", ErrFeedbackUnavailable)
	}
	keywords, err := json.Marshal(nonNilStrings(in.MatchedKeywords))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", err)
	}
	row := &types.AnnotationFeedback{
		QuestionID:       strings.TrimSpace(in.QuestionID),
		KnowledgePointID: strings.TrimSpace(in.KnowledgePointID),
		QuestionType:     string(in.QuestionType),
		Accepted:         in.Accepted,
		Confidence:       in.Confidence,
		Decision:         string(in.Decision),
		MatchedKeywords:  datatypes.JSON(keywords),
		ReviewerID:       strings.TrimSpace(in.ReviewerID),
		CreatedAt:        time.Now().UTC(),
	}
	if row.QuestionID == "" || row.KnowledgePointID == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("%w: question_id and knowledge_point_id required", pkgerrors.ErrInvalidArgument))
	}
	if snap := s.live.Load(); snap != nil {
		if _, ok := snap.engine.Catalog().Get(row.KnowledgePointID); !ok {
			return nil, apierr.New(http.StatusNotFound, "unknown_knowledge_point", fmt.Errorf("%w: knowledge point %q", pkgerrors.ErrNotFound, row.KnowledgePointID))
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	_, err = s.feedback.Create(dbctx.Of(cctx), []*types.AnnotationFeedback{row})
	cancel()
	if err != nil {
		s.metrics.IncCollaboratorError("postgres", "create_feedback")
		return nil, apierr.New(http.StatusInternalServerError, "feedback_store_failed", fmt.Errorf("store feedback: %w", err))
	}
	s.metrics.IncFeedback(in.Accepted)

	if in.Accepted {
		if s.graphEnabled() {
			edge := graph.AnnotationEdge{
				QuestionID:       row.QuestionID,
				KnowledgePointID: row.KnowledgePointID,
				Confidence:       row.Confidence,
				Decision:         row.Decision,
				Source:           graph.EdgeSourceReviewer,
				UpdatedAt:        row.CreatedAt,
			}
			gctx, gcancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
			err := s.graph.ApplyAnnotations(gctx, row.QuestionID, []graph.AnnotationEdge{edge})
			gcancel()
			if err != nil {
				s.metrics.IncCollaboratorError("neo4j", "apply_annotations")
				return nil, apierr.New(http.StatusBadGateway, "annotation_store_failed", fmt.Errorf("apply reviewer annotation: %w", err))
			}
		}
		s.markVerified(ctx, row.QuestionID, row.KnowledgePointID, true)
		s.publish(ctx, redis.Event{Type: redis.EventAccepted, QuestionID: row.QuestionID, KnowledgePointID: row.KnowledgePointID, Decision: row.Decision})
	} else {
		s.markVerified(ctx, row.QuestionID, row.KnowledgePointID, false)
		s.publish(ctx, redis.Event{Type: redis.EventRejected, QuestionID: row.QuestionID, KnowledgePointID: row.KnowledgePointID, Decision: row.Decision})
	}

	s.refreshAccuracy(ctx)
	return row, nil
}

func (s *annotationService) markVerified(ctx context.Context, questionID, kpID string, on bool) {
	if s.verified == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	var err error
	if on {
		err = s.verified.MarkVerified(cctx, questionID, kpID)
	} else {
		err = s.verified.Unmark(cctx, questionID, kpID)
	}
	if err != nil {
		s.metrics.IncCollaboratorError("redis", "mark_verified")
		s.log.Warn("verified mark update failed (ignored)", "question_id", questionID, "kp", kpID, "error", err)
	}
}

func (s *annotationService) publish(ctx context.Context, ev redis.Event) {
	if s.verified == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.verified.Publish(cctx, ev); err != nil {
		s.metrics.IncCollaboratorError("redis", "publish")
		s.log.Debug("annotation event publish failed", "type", ev.Type, "error", err)
	}
}

// refreshAccuracy rebuilds the engine around the live catalog so new feedback
// reaches the history boost without a full catalog reload.
func (s *annotationService) refreshAccuracy(ctx context.Context) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	cur := s.live.Load()
	if cur == nil {
		return
	}
	snap, err := s.build(ctx, cur.engine.Catalog(), cur.info.Source)
	if err != nil {
		s.log.Warn("accuracy refresh failed", "error", err)
		return
	}
	snap.info.LoadedAt = cur.info.LoadedAt
	s.live.Store(snap)
}

func decisionsOf(out []annotation.Suggestion) []string {
	ds := make([]string, len(out))
	for i, sg := range out {
		ds[i] = string(sg.Decision)
	}
	return ds
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FeedbackHistory lists reviewer decisions for a question, oldest first.
func (s *annotationService) FeedbackHistory(ctx context.Context, questionID string) ([]*types.AnnotationFeedback, error) {
	if s.feedback == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "feedback_unavailable", ErrFeedbackUnavailable)
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("%w: question id required", pkgerrors.ErrInvalidArgument))
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	rows, err := s.feedback.ListByQuestion(dbctx.Of(cctx), questionID)
	if err != nil {
		s.metrics.IncCollaboratorError("postgres", "list_feedback")
		return nil, apierr.New(http.StatusInternalServerError, "feedback_store_failed", fmt.Errorf("list feedback: %w", err))
	}
	if rows == nil {
		rows = []*types.AnnotationFeedback{}
	}
	return rows, nil
}
