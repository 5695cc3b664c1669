package annotation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation/seed"
)

func seedEngine(t *testing.T, cfg annotation.Config, opts ...annotation.Option) *annotation.Engine {
	t.Helper()
	catalog, err := seed.Catalog()
	require.NoError(t, err)
	e, err := annotation.NewEngine(catalog, cfg, opts...)
	require.NoError(t, err)
	return e
}

func TestSuggest_HabitualPresent(t *testing.T) {
	e := seedEngine(t, annotation.DefaultConfig())
	out := e.Suggest(annotation.Question{
		Content: "She goes to school every day.",
		Type:    annotation.QuestionMultipleChoice,
	})

	require.NotEmpty(t, out)
	top := out[0]
	assert.Equal(t, "kp_present_simple", top.KnowledgePointID)
	assert.Contains(t, strings.ToLower(top.KnowledgePointName), "present")
	assert.GreaterOrEqual(t, top.Confidence, 0.6)
	assert.Equal(t, []string{"every day"}, top.MatchedKeywords)
	assert.Contains(t, top.Reasoning, "structure:")
	assert.Contains(t, top.SourceTags, annotation.SourceStructural)
}

func TestSuggest_PassiveVoice(t *testing.T) {
	e := seedEngine(t, annotation.DefaultConfig())
	out := e.Suggest(annotation.Question{
		Content: "The letter was written by Tom yesterday.",
		Type:    annotation.QuestionMultipleChoice,
	})

	require.NotEmpty(t, out)
	assert.Equal(t, "kp_passive_voice", out[0].KnowledgePointID)
	assert.GreaterOrEqual(t, out[0].Confidence, 0.8)
	assert.Equal(t, annotation.DecisionAutoApply, out[0].Decision)
	assert.Equal(t, []string{"was written", "by"}, out[0].MatchedKeywords)
}

func TestSuggest_NoSignal(t *testing.T) {
	e := seedEngine(t, annotation.DefaultConfig())
	for _, text := range []string{"Hello.", "", "   ", "12345"} {
		out := e.Suggest(annotation.Question{Content: text, Type: annotation.QuestionWriting})
		assert.NotNil(t, out)
		assert.Empty(t, out, "text %q", text)
	}
}

func marginalCatalog(t *testing.T) *annotation.Catalog {
	t.Helper()
	c, err := annotation.NewCatalog([]annotation.KnowledgePoint{{
		ID:   "kp_marginal",
		Name: "Marginal Point",
		Keywords: []annotation.KeywordGroup{
			{Category: annotation.CategoryGrammarFeature, Phrases: []string{"marginal phrase x", "zqx"}},
		},
	}})
	require.NoError(t, err)
	return c
}

func TestSuggest_OverAnnotationDemotes(t *testing.T) {
	e, err := annotation.NewEngine(marginalCatalog(t), annotation.DefaultConfig())
	require.NoError(t, err)

	q := annotation.Question{Content: "This sentence has a marginal phrase x inside.", Type: annotation.QuestionListening}
	fresh := e.Suggest(q)
	require.Len(t, fresh, 1)
	assert.InDelta(t, 0.75, fresh[0].Confidence, 1e-9)
	assert.Equal(t, annotation.DecisionAutoApply, fresh[0].Decision)

	q.ExistingAnnotationCount = 4
	crowded := e.Suggest(q)
	require.Len(t, crowded, 1)
	assert.InDelta(t, 0.55, crowded[0].Confidence, 1e-9)
	assert.Equal(t, annotation.DecisionRecommend, crowded[0].Decision)
}

func TestSuggest_FusionKeepsOverAnnotationPenalty(t *testing.T) {
	cfg := annotation.DefaultConfig()
	cfg.FusionEnabled = true
	e, err := annotation.NewEngine(marginalCatalog(t), cfg)
	require.NoError(t, err)

	q := annotation.Question{Content: "This sentence has a marginal phrase x inside.", Type: annotation.QuestionListening}
	fresh := e.Suggest(q)
	require.Len(t, fresh, 1)
	assert.Contains(t, fresh[0].SourceTags, annotation.SourceSecondOpinion)

	q.ExistingAnnotationCount = 4
	crowded := e.Suggest(q)
	require.Len(t, crowded, 1)
	assert.InDelta(t, 0.2, fresh[0].Confidence-crowded[0].Confidence, 1e-9)
}

func TestSuggest_AutoApplyCap(t *testing.T) {
	cfg := annotation.DefaultConfig()
	cfg.MaxAutoAnnotations = 1
	e := seedEngine(t, cfg)
	out := e.Suggest(annotation.Question{
		Content: "The letter was written by Tom yesterday.",
		Type:    annotation.QuestionMultipleChoice,
	})

	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, "kp_passive_voice", out[0].KnowledgePointID)
	assert.Equal(t, annotation.DecisionAutoApply, out[0].Decision)
	assert.Equal(t, "kp_past_simple", out[1].KnowledgePointID)
	assert.GreaterOrEqual(t, out[1].Confidence, cfg.AutoApplyThreshold)
	assert.Equal(t, annotation.DecisionRecommend, out[1].Decision)
}

var sampleQuestions = []annotation.Question{
	{Content: "She goes to school every day.", Type: annotation.QuestionMultipleChoice},
	{Content: "The letter was written by Tom yesterday.", Type: annotation.QuestionMultipleChoice},
	{Content: "1. Tom is ___ (tall) than his brother. A. tall B. taller C. tallest", Type: annotation.QuestionFillBlank, Difficulty: annotation.DifficultyEasy},
	{Content: "Never have I seen such a beautiful sunset.", Type: annotation.QuestionReadingComprehension, Difficulty: annotation.DifficultyHard},
	{Content: "If I were you, I would accept the offer.", Type: annotation.QuestionTranslation},
	{Content: "The man who lives next door is a doctor.", Type: annotation.QuestionWriting, ExistingAnnotationCount: 5},
	{Content: "There is a book on the desk.", Type: annotation.QuestionListening},
	{Content: "Hello.", Type: annotation.QuestionWriting},
}

func TestSuggest_Deterministic(t *testing.T) {
	e := seedEngine(t, annotation.DefaultConfig())
	for _, q := range sampleQuestions {
		first := e.Suggest(q)
		for i := 0; i < 5; i++ {
			if diff := cmp.Diff(first, e.Suggest(q)); diff != "" {
				t.Fatalf("output changed for %q (-first +again):\n%s", q.Content, diff)
			}
		}
	}
}

func TestSuggest_BoundsAndExclusion(t *testing.T) {
	cfg := annotation.DefaultConfig()
	cfg.FusionEnabled = true
	for _, e := range []*annotation.Engine{seedEngine(t, annotation.DefaultConfig()), seedEngine(t, cfg)} {
		for _, q := range sampleQuestions {
			for _, s := range e.Suggest(q) {
				assert.GreaterOrEqual(t, s.Confidence, 0.0)
				assert.LessOrEqual(t, s.Confidence, 1.0)
				assert.NotEqual(t, annotation.DecisionReject, s.Decision)
			}
			cands := e.Candidates(q)
			assert.LessOrEqual(t, len(cands), e.Config().TopK)
			for _, c := range cands {
				assert.True(t, len(c.MatchedKeywords) > 0 || c.StructuralRule != "",
					"%s has neither keyword nor structural evidence", c.KnowledgePointID)
			}
		}
	}
}

func TestSuggest_FusionKeepsLowerBound(t *testing.T) {
	cfg := annotation.DefaultConfig()
	cfg.FusionEnabled = true
	fused := seedEngine(t, cfg)
	plain := seedEngine(t, annotation.DefaultConfig())

	for _, q := range sampleQuestions {
		primary := map[string]float64{}
		for _, c := range plain.Candidates(q) {
			primary[c.KnowledgePointID] = c.Score
		}
		for _, s := range fused.Suggest(q) {
			p, ok := primary[s.KnowledgePointID]
			if !ok {
				continue
			}
			second := annotation.SecondOpinion{}.Candidates(annotation.Prepare(q.Content), q, fused.Catalog())
			for _, c := range second {
				if c.KnowledgePointID == s.KnowledgePointID {
					assert.GreaterOrEqual(t, s.Confidence, minFloat(p, c.Score)-1e-12)
				}
			}
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func TestSuggest_VerifiedBoost(t *testing.T) {
	e := seedEngine(t, annotation.DefaultConfig())
	q := annotation.Question{Content: "There is a book on the desk.", Type: annotation.QuestionWriting}
	base := e.Suggest(q)
	require.NotEmpty(t, base)

	boosted := e.Suggest(q, annotation.WithVerified(annotation.NewVerifiedSet(base[0].KnowledgePointID)))
	require.NotEmpty(t, boosted)
	assert.Equal(t, base[0].KnowledgePointID, boosted[0].KnowledgePointID)
	assert.GreaterOrEqual(t, boosted[0].Confidence, base[0].Confidence)
	assert.Contains(t, boosted[0].SourceTags, annotation.SourceExternal)
}

func TestSuggest_HistoryProvider(t *testing.T) {
	history := annotation.AccuracyTable{"kp_there_be": {"": 1.0}}
	with := seedEngine(t, annotation.DefaultConfig(), annotation.WithAccuracyProvider(history))
	without := seedEngine(t, annotation.DefaultConfig())

	q := annotation.Question{Content: "There were many people in the park.", Type: annotation.QuestionWriting}
	a := with.Candidates(q)
	b := without.Candidates(q)
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.Equal(t, "kp_there_be", b[0].KnowledgePointID)
	assert.InDelta(t, 0.15, a[0].Breakdown.HistoryBoost, 1e-9)
	assert.GreaterOrEqual(t, a[0].Score, b[0].Score)
}

func TestNewEngine_EmptyCatalog(t *testing.T) {
	_, err := annotation.NewEngine(nil, annotation.DefaultConfig())
	assert.True(t, errors.Is(err, annotation.ErrEmptyCatalog))

	_, err = annotation.NewCatalog(nil)
	assert.True(t, errors.Is(err, annotation.ErrEmptyCatalog))

	_, err = annotation.NewCatalog([]annotation.KnowledgePoint{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}})
	assert.True(t, errors.Is(err, annotation.ErrInvalidKnowledgePoint))
}

func TestSuggestBatch_AlignedAndLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := seedEngine(t, annotation.DefaultConfig())
	qs := make([]annotation.Question, 0, len(sampleQuestions)*4)
	for i := 0; i < 4; i++ {
		qs = append(qs, sampleQuestions...)
	}
	out, err := e.SuggestBatch(context.Background(), qs, 3)
	require.NoError(t, err)
	require.Len(t, out, len(qs))
	for i, q := range qs {
		if diff := cmp.Diff(e.Suggest(q), out[i]); diff != "" {
			t.Fatalf("batch[%d] differs from single call (-single +batch):\n%s", i, diff)
		}
	}
}

func TestSuggestBatch_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := seedEngine(t, annotation.DefaultConfig())
	_, err := e.SuggestBatch(ctx, sampleQuestions, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}
