package annotation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Engine is an immutable scoring pipeline bound to one catalog snapshot and
// one normalized Config. It is safe for concurrent use.
type Engine struct {
	catalog *Catalog
	cfg     Config
	scorers []Scorer
	sources []Source
}

type Option func(*Engine)

// WithAccuracyProvider enables the historical-accuracy context boost.
func WithAccuracyProvider(p AccuracyProvider) Option {
	return func(e *Engine) {
		for i, s := range e.scorers {
			if _, ok := s.(ContextScorer); ok {
				e.scorers[i] = ContextScorer{History: p}
			}
		}
	}
}

// WithSources replaces the alternate fusion sources. Sources only take part
// when Config.FusionEnabled is set.
func WithSources(sources ...Source) Option {
	return func(e *Engine) {
		e.sources = append([]Source(nil), sources...)
	}
}

func NewEngine(catalog *Catalog, cfg Config, opts ...Option) (*Engine, error) {
	if catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	e := &Engine{
		catalog: catalog,
		cfg:     cfg.Normalized(),
		scorers: []Scorer{KeywordScorer{}, StructuralScorer{}, ContextScorer{}},
		sources: []Source{SecondOpinion{}},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.FusionWeights = make(map[string]float64, len(e.cfg.FusionWeights))
	for k, v := range e.cfg.FusionWeights {
		cfg.FusionWeights[k] = v
	}
	return cfg
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

type suggestOptions struct {
	verified VerifiedSet
}

type SuggestOption func(*suggestOptions)

// WithVerified marks knowledge points an external validator has confirmed.
func WithVerified(v VerifiedSet) SuggestOption {
	return func(o *suggestOptions) { o.verified = v }
}

// Candidates returns the primary aggregator's top-K before fusion and
// decisions.
func (e *Engine) Candidates(q Question) []Candidate {
	return topK(e.primary(Prepare(q.Content), q), e.cfg.TopK)
}

// Suggest runs the full pipeline for one question. Empty or unmatched text
// yields an empty list.
func (e *Engine) Suggest(q Question, opts ...SuggestOption) []Suggestion {
	var o suggestOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := Prepare(q.Content)
	cands := e.primary(p, q)
	if len(cands) == 0 && !e.cfg.FusionEnabled {
		return []Suggestion{}
	}
	if e.cfg.FusionEnabled || len(o.verified) > 0 {
		cands = Fuse(e.collect(p, q, cands), e.cfg.FusionWeights, o.verified, e.cfg.ValidationBoost)
	}
	return Decide(topK(cands, e.cfg.TopK), e.cfg)
}

func (e *Engine) primary(p *Prepared, q Question) []Candidate {
	return aggregate(p, q, e.catalog.Entries(), e.scorers)
}

func (e *Engine) collect(p *Prepared, q Question, primary []Candidate) []SourceResult {
	results := []SourceResult{{Source: SourcePrimary, Candidates: primary}}
	if !e.cfg.FusionEnabled {
		return results
	}
	for _, s := range e.sources {
		cands := e.withContext(p, q, primary, s.Candidates(p, q, e.catalog))
		results = append(results, SourceResult{Source: s.Name(), Candidates: cands})
	}
	return results
}

// withContext adds the question's context adjustments to an alternate
// source's scores so fusion does not water down the penalty or history
// boost. Knowledge points the primary pipeline scored reuse its context
// parts; others are run through the context scorer.
func (e *Engine) withContext(p *Prepared, q Question, primary, cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return cands
	}
	scorer, hasScorer := e.contextScorer()
	parts := make(map[string]ScoreBreakdown, len(primary))
	for _, c := range primary {
		parts[c.KnowledgePointID] = c.Breakdown
	}
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		c = cloneCandidate(c)
		b, ok := parts[c.KnowledgePointID]
		if !ok && hasScorer {
			if entry := e.catalog.byID[c.KnowledgePointID]; entry != nil {
				sig := scorer.Score(p, q, entry)
				b = sig.Parts
				c.notes = append(c.notes, sig.Notes...)
			}
		}
		if d := b.context(); d != 0 {
			c.Score = clamp01(c.Score + d)
			c.Breakdown.TypeBoost = b.TypeBoost
			c.Breakdown.DifficultyBoost = b.DifficultyBoost
			c.Breakdown.HistoryBoost = b.HistoryBoost
			c.Breakdown.Penalty = b.Penalty
		}
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

func (e *Engine) contextScorer() (ContextScorer, bool) {
	for _, s := range e.scorers {
		if cs, ok := s.(ContextScorer); ok {
			return cs, true
		}
	}
	return ContextScorer{}, false
}

// SuggestBatch scores questions concurrently with at most concurrency
// workers. Results are aligned with qs by index.
func (e *Engine) SuggestBatch(ctx context.Context, qs []Question, concurrency int) ([][]Suggestion, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	out := make([][]Suggestion, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range qs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.Suggest(qs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
