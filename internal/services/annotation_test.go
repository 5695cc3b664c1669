package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/grammar-annotation-backend/internal/clients/redis"
	"github.com/yungbote/grammar-annotation-backend/internal/data/graph"
	"github.com/yungbote/grammar-annotation-backend/internal/data/repos"
	types "github.com/yungbote/grammar-annotation-backend/internal/domain/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/grammar-annotation-backend/internal/pkg/errors"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/apierr"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

type fakeGraph struct {
	mu        sync.Mutex
	enabled   bool
	points    []annotation.KnowledgePoint
	questions map[string]annotation.Question
	edges     map[string][]graph.AnnotationEdge
	listErr   error
	applyErr  error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		enabled:   true,
		questions: map[string]annotation.Question{},
		edges:     map[string][]graph.AnnotationEdge{},
	}
}

func (g *fakeGraph) Enabled() bool { return g.enabled }

func (g *fakeGraph) UpsertKnowledgePoints(_ context.Context, points []annotation.KnowledgePoint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points = append(g.points, points...)
	return nil
}

func (g *fakeGraph) ListKnowledgePoints(context.Context) ([]annotation.KnowledgePoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]annotation.KnowledgePoint(nil), g.points...), nil
}

func (g *fakeGraph) UpsertQuestion(_ context.Context, q annotation.Question) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.questions[q.ID] = q
	return nil
}

func (g *fakeGraph) ApplyAnnotations(_ context.Context, qid string, edges []graph.AnnotationEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.applyErr != nil {
		return g.applyErr
	}
	// MERGE on (question, knowledge point); reviewer provenance sticks.
	for _, e := range edges {
		merged := false
		for i, cur := range g.edges[qid] {
			if cur.KnowledgePointID != e.KnowledgePointID {
				continue
			}
			if cur.Source == graph.EdgeSourceReviewer {
				e.Source = cur.Source
			}
			g.edges[qid][i] = e
			merged = true
			break
		}
		if !merged {
			g.edges[qid] = append(g.edges[qid], e)
		}
	}
	return nil
}

func (g *fakeGraph) ListQuestionAnnotations(_ context.Context, qid string) ([]graph.AnnotationEdge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]graph.AnnotationEdge(nil), g.edges[qid]...), nil
}

type fakeFeedback struct {
	mu   sync.Mutex
	rows []*types.AnnotationFeedback
	err  error
}

func (f *fakeFeedback) Create(_ dbctx.Context, rows []*types.AnnotationFeedback) ([]*types.AnnotationFeedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeFeedback) ListByQuestion(_ dbctx.Context, qid string) ([]*types.AnnotationFeedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.AnnotationFeedback
	for _, row := range f.rows {
		if row.QuestionID == qid {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeFeedback) AccuracyStats(dbctx.Context) ([]repos.AccuracyRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tally := map[[2]string]*repos.AccuracyRow{}
	var out []repos.AccuracyRow
	var order [][2]string
	for _, r := range f.rows {
		k := [2]string{r.KnowledgePointID, r.QuestionType}
		if tally[k] == nil {
			tally[k] = &repos.AccuracyRow{KnowledgePointID: k[0], QuestionType: k[1]}
			order = append(order, k)
		}
		tally[k].Total++
		if r.Accepted {
			tally[k].AcceptedCount++
		}
	}
	for _, k := range order {
		out = append(out, *tally[k])
	}
	return out, nil
}

type fakeVerified struct {
	mu       sync.Mutex
	sets     map[string][]string
	events   []redis.Event
	err      error
	unmarked []string
}

func (v *fakeVerified) Verified(_ context.Context, qid string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.sets[qid], nil
}

func (v *fakeVerified) MarkVerified(_ context.Context, qid string, ids ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sets == nil {
		v.sets = map[string][]string{}
	}
	v.sets[qid] = append(v.sets[qid], ids...)
	return nil
}

func (v *fakeVerified) Unmark(_ context.Context, qid string, ids ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unmarked = append(v.unmarked, ids...)
	return nil
}

func (v *fakeVerified) Publish(_ context.Context, ev redis.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, ev)
	return nil
}

func (v *fakeVerified) Close() error { return nil }

const passiveText = "The letter was written by Tom yesterday."

func newService(t *testing.T, g GraphStore, fb repos.FeedbackRepo, v redis.VerifiedStore) AnnotationService {
	t.Helper()
	return NewAnnotationService(logger.Nop(), annotation.DefaultConfig(), g, fb, v, nil, AnnotationServiceOptions{BatchConcurrency: 2})
}

func requireAPIErr(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae), "want *apierr.Error, got %v", err)
	assert.Equal(t, status, ae.Status)
	assert.Equal(t, code, ae.Code)
}

func TestReload_SeedFallback(t *testing.T) {
	ctx := context.Background()

	svc := newService(t, nil, nil, nil)
	info, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceSeed, info.Source)
	assert.GreaterOrEqual(t, info.Size, 20)

	empty := newFakeGraph()
	info, err = newService(t, empty, nil, nil).Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceSeed, info.Source)

	broken := newFakeGraph()
	broken.listErr = errors.New("neo4j down")
	info, err = newService(t, broken, nil, nil).Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceSeed, info.Source)
}

func TestReload_GraphCatalog(t *testing.T) {
	g := newFakeGraph()
	g.points = []annotation.KnowledgePoint{{
		ID:   "kp_there_be",
		Name: "There Be Structure",
		Keywords: []annotation.KeywordGroup{
			{Category: annotation.CategoryStrongIndicator, Phrases: []string{"there is", "there are"}},
		},
	}}
	svc := newService(t, g, nil, nil)
	info, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceGraph, info.Source)
	assert.Equal(t, 1, info.Size)

	points, err := svc.KnowledgePoints(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "kp_there_be", points[0].ID)
}

func TestSuggest_BeforeReload(t *testing.T) {
	svc := newService(t, nil, nil, nil)
	_, err := svc.Suggest(context.Background(), annotation.Question{Content: passiveText, Type: annotation.QuestionFillBlank})
	requireAPIErr(t, err, http.StatusInternalServerError, "catalog_unavailable")
}

func TestSuggest_UsesVerifiedSet(t *testing.T) {
	ctx := context.Background()
	v := &fakeVerified{sets: map[string][]string{"q1": {"kp_past_simple"}}}
	svc := newService(t, nil, nil, v)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	out, err := svc.Suggest(ctx, annotation.Question{ID: "q1", Content: passiveText, Type: annotation.QuestionMultipleChoice})
	require.NoError(t, err)
	var found bool
	for _, sg := range out {
		if sg.KnowledgePointID == "kp_past_simple" {
			found = true
			assert.Contains(t, sg.SourceTags, annotation.SourceExternal)
		} else {
			assert.NotContains(t, sg.SourceTags, annotation.SourceExternal)
		}
	}
	assert.True(t, found, "past simple should be suggested for %q", passiveText)
}

func TestSuggest_ValidatorFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	plain := newService(t, nil, nil, nil)
	_, err := plain.Reload(ctx)
	require.NoError(t, err)

	failing := newService(t, nil, nil, &fakeVerified{err: errors.New("redis down")})
	_, err = failing.Reload(ctx)
	require.NoError(t, err)

	q := annotation.Question{ID: "q1", Content: passiveText, Type: annotation.QuestionMultipleChoice}
	want, err := plain.Suggest(ctx, q)
	require.NoError(t, err)
	got, err := failing.Suggest(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSuggestBatch_Aligned(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, nil, nil)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	qs := []annotation.Question{
		{Content: passiveText, Type: annotation.QuestionMultipleChoice},
		{Content: "Hello.", Type: annotation.QuestionWriting},
		{Content: "She goes to school every day.", Type: annotation.QuestionMultipleChoice},
	}
	out, err := svc.SuggestBatch(ctx, qs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "kp_passive_voice", out[0][0].KnowledgePointID)
	assert.Empty(t, out[1])
	assert.Equal(t, "kp_present_simple", out[2][0].KnowledgePointID)
}

func TestApply_PersistsAutoApply(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	v := &fakeVerified{}
	svc := newService(t, g, nil, v)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	res, err := svc.Apply(ctx, annotation.Question{ID: "q9", Content: passiveText, Type: annotation.QuestionMultipleChoice})
	require.NoError(t, err)

	autos := 0
	for _, sg := range res.Suggestions {
		if sg.Decision == annotation.DecisionAutoApply {
			autos++
		}
	}
	require.NotZero(t, autos)
	require.Len(t, res.Applied, autos)
	assert.Equal(t, "kp_passive_voice", res.Applied[0].KnowledgePointID)
	assert.Equal(t, graph.EdgeSourceAuto, res.Applied[0].Source)
	assert.Contains(t, g.questions, "q9")
	assert.Len(t, g.edges["q9"], autos)
	assert.Len(t, v.events, autos)
}

const mixedText = "Tom is taller than his brother, and the letter was written by him yesterday."

func TestApply_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	svc := newService(t, g, nil, nil)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	q := annotation.Question{ID: "q7", Content: mixedText, Type: annotation.QuestionMultipleChoice}
	first, err := svc.Apply(ctx, q)
	require.NoError(t, err)
	require.NotEmpty(t, first.Applied)
	stored := confidences(g.edges["q7"])

	for i := 0; i < 2; i++ {
		again, err := svc.Apply(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, confidences(first.Applied), confidences(again.Applied))
	}
	assert.Equal(t, stored, confidences(g.edges["q7"]))
}

func TestApply_CountsOnlyUnrelatedEdges(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	for _, kp := range []string{"kp_a", "kp_b", "kp_c", "kp_d", "kp_passive_voice"} {
		g.edges["q3"] = append(g.edges["q3"], graph.AnnotationEdge{QuestionID: "q3", KnowledgePointID: kp, Source: graph.EdgeSourceAuto})
	}
	svc := newService(t, g, nil, nil)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	res, err := svc.Apply(ctx, annotation.Question{ID: "q3", Content: passiveText, Type: annotation.QuestionMultipleChoice})
	require.NoError(t, err)
	require.NotEmpty(t, res.Suggestions)
	assert.Contains(t, res.Suggestions[0].Reasoning, "4 existing annotations (-0.20)")
}

func TestApply_KeepsReviewerSource(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	g.edges["q2"] = []graph.AnnotationEdge{{
		QuestionID:       "q2",
		KnowledgePointID: "kp_passive_voice",
		Confidence:       0.8,
		Decision:         string(annotation.DecisionRecommend),
		Source:           graph.EdgeSourceReviewer,
	}}
	svc := newService(t, g, nil, nil)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	res, err := svc.Apply(ctx, annotation.Question{ID: "q2", Content: passiveText, Type: annotation.QuestionMultipleChoice})
	require.NoError(t, err)
	require.NotEmpty(t, res.Applied)

	sources := map[string]string{}
	for _, e := range g.edges["q2"] {
		sources[e.KnowledgePointID] = e.Source
	}
	assert.Equal(t, graph.EdgeSourceReviewer, sources["kp_passive_voice"])
	assert.Len(t, g.edges["q2"], len(res.Applied))
}

func confidences(edges []graph.AnnotationEdge) map[string]float64 {
	out := make(map[string]float64, len(edges))
	for _, e := range edges {
		out[e.KnowledgePointID] = e.Confidence
	}
	return out
}

func TestApply_Errors(t *testing.T) {
	ctx := context.Background()

	noGraph := newService(t, nil, nil, nil)
	_, err := noGraph.Reload(ctx)
	require.NoError(t, err)
	_, err = noGraph.Apply(ctx, annotation.Question{ID: "q1", Content: passiveText})
	requireAPIErr(t, err, http.StatusServiceUnavailable, "graph_unavailable")

	g := newFakeGraph()
	g.applyErr = errors.New("write failed")
	svc := newService(t, g, nil, nil)
	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, annotation.Question{ID: "q1", Content: passiveText, Type: annotation.QuestionMultipleChoice})
	requireAPIErr(t, err, http.StatusBadGateway, "annotation_store_failed")
}

func TestUpsertKnowledgePoints(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	svc := newService(t, g, nil, nil)

	_, err := svc.UpsertKnowledgePoints(ctx, []annotation.KnowledgePoint{{ID: "kp_x"}})
	requireAPIErr(t, err, http.StatusBadRequest, "invalid_knowledge_point")

	info, err := svc.UpsertKnowledgePoints(ctx, []annotation.KnowledgePoint{{
		ID:       "kp_articles",
		Name:     "Articles",
		Keywords: []annotation.KeywordGroup{{Category: annotation.CategoryGrammarFeature, Phrases: []string{"an apple"}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceGraph, info.Source)
	assert.Equal(t, 1, info.Size)

	_, err = newService(t, nil, nil, nil).UpsertKnowledgePoints(ctx, g.points)
	requireAPIErr(t, err, http.StatusServiceUnavailable, "graph_unavailable")
}

func TestFeedback_AcceptAndReject(t *testing.T) {
	ctx := context.Background()
	g := newFakeGraph()
	fb := &fakeFeedback{}
	v := &fakeVerified{}
	svc := newService(t, g, fb, v)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	row, err := svc.Feedback(ctx, FeedbackInput{
		QuestionID:       "q5",
		QuestionType:     annotation.QuestionFillBlank,
		KnowledgePointID: "kp_passive_voice",
		Accepted:         true,
		Confidence:       0.82,
		Decision:         annotation.DecisionRecommend,
		ReviewerID:       "r-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "kp_passive_voice", row.KnowledgePointID)
	assert.JSONEq(t, `[]`, string(row.MatchedKeywords))
	require.Len(t, fb.rows, 1)
	require.Len(t, g.edges["q5"], 1)
	assert.Equal(t, graph.EdgeSourceReviewer, g.edges["q5"][0].Source)
	assert.Equal(t, []string{"kp_passive_voice"}, v.sets["q5"])

	_, err = svc.Feedback(ctx, FeedbackInput{QuestionID: "q5", KnowledgePointID: "kp_past_simple", Accepted: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"kp_past_simple"}, v.unmarked)
	require.Len(t, v.events, 2)
	assert.Equal(t, redis.EventAccepted, v.events[0].Type)
	assert.Equal(t, redis.EventRejected, v.events[1].Type)
}

func TestFeedback_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := newService(t, nil, nil, nil).Feedback(ctx, FeedbackInput{QuestionID: "q", KnowledgePointID: "kp"})
	requireAPIErr(t, err, http.StatusServiceUnavailable, "feedback_unavailable")

	_, err = newService(t, nil, &fakeFeedback{err: errors.New("db down")}, nil).Feedback(ctx, FeedbackInput{QuestionID: "q", KnowledgePointID: "kp"})
	requireAPIErr(t, err, http.StatusInternalServerError, "feedback_store_failed")

	loaded := newService(t, nil, &fakeFeedback{}, nil)
	_, err = loaded.Reload(ctx)
	require.NoError(t, err)
	_, err = loaded.Feedback(ctx, FeedbackInput{QuestionID: "q", KnowledgePointID: "kp_missing", Accepted: true})
	requireAPIErr(t, err, http.StatusNotFound, "unknown_knowledge_point")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	_, err = loaded.Feedback(ctx, FeedbackInput{QuestionID: " ", KnowledgePointID: "kp_passive_voice"})
	requireAPIErr(t, err, http.StatusBadRequest, "invalid_request")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
}

func TestFeedback_FeedsHistoryBoost(t *testing.T) {
	ctx := context.Background()
	fb := &fakeFeedback{}
	svc := NewAnnotationService(logger.Nop(), annotation.DefaultConfig(), nil, fb, nil, nil, AnnotationServiceOptions{AccuracyMinSamples: 1})
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	q := annotation.Question{Content: passiveText, Type: annotation.QuestionFillBlank}
	_, err = svc.Feedback(ctx, FeedbackInput{QuestionID: "q1", QuestionType: q.Type, KnowledgePointID: "kp_past_simple", Accepted: true})
	require.NoError(t, err)

	out, err := svc.Suggest(ctx, q)
	require.NoError(t, err)
	for _, sg := range out {
		if sg.KnowledgePointID == "kp_past_simple" {
			assert.Contains(t, sg.Reasoning, "history 100%")
			return
		}
	}
	t.Fatalf("kp_past_simple not suggested")
}

func TestFeedbackHistory(t *testing.T) {
	ctx := context.Background()
	fb := &fakeFeedback{}
	svc := newService(t, nil, fb, nil)

	rows, err := svc.FeedbackHistory(ctx, "q8")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	for _, kp := range []string{"kp_passive_voice", "kp_past_simple"} {
		_, err := svc.Feedback(ctx, FeedbackInput{QuestionID: "q8", KnowledgePointID: kp, Accepted: kp == "kp_past_simple"})
		require.NoError(t, err)
	}
	_, err = svc.Feedback(ctx, FeedbackInput{QuestionID: "other", KnowledgePointID: "kp_passive_voice"})
	require.NoError(t, err)

	rows, err = svc.FeedbackHistory(ctx, " q8 ")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "kp_passive_voice", rows[0].KnowledgePointID)
	assert.True(t, rows[1].Accepted)

	_, err = svc.FeedbackHistory(ctx, "  ")
	requireAPIErr(t, err, http.StatusBadRequest, "invalid_request")
	_, err = newService(t, nil, nil, nil).FeedbackHistory(ctx, "q8")
	requireAPIErr(t, err, http.StatusServiceUnavailable, "feedback_unavailable")
	_, err = newService(t, nil, &fakeFeedback{err: errors.New("db down")}, nil).FeedbackHistory(ctx, "q8")
	requireAPIErr(t, err, http.StatusInternalServerError, "feedback_store_failed")
}
