package annotation

import "math"

const (
	SourcePrimary       = "primary"
	SourceSecondOpinion = "second_opinion"
	SourceKeyword       = "keyword"
	SourceStructural    = "structural"
	SourceContext       = "context"
	SourceExternal      = "external_validator"
)

const (
	DefaultConfidenceThreshold = 0.3
	DefaultAutoApplyThreshold  = 0.7
	DefaultMaxAutoAnnotations  = 3
	DefaultTopK                = 5
	DefaultValidationBoost     = 0.2

	minConfidenceThreshold = 0.1
	maxAutoAnnotationsCap  = 10
	maxTopK                = 50
	maxValidationBoost     = 0.5
)

// Config is an immutable value; the engine stores the normalized copy it was
// built with. Out-of-range values are clamped rather than rejected.
type Config struct {
	ConfidenceThreshold float64            `json:"confidence_threshold" yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	AutoApplyThreshold  float64            `json:"auto_apply_threshold" yaml:"auto_apply_threshold" mapstructure:"auto_apply_threshold"`
	MaxAutoAnnotations  int                `json:"max_auto_annotations" yaml:"max_auto_annotations" mapstructure:"max_auto_annotations"`
	TopK                int                `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	FusionEnabled       bool               `json:"fusion_enabled" yaml:"fusion_enabled" mapstructure:"fusion_enabled"`
	FusionWeights       map[string]float64 `json:"fusion_weights,omitempty" yaml:"fusion_weights,omitempty" mapstructure:"fusion_weights"`
	ValidationBoost     float64            `json:"validation_boost" yaml:"validation_boost" mapstructure:"validation_boost"`
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		AutoApplyThreshold:  DefaultAutoApplyThreshold,
		MaxAutoAnnotations:  DefaultMaxAutoAnnotations,
		TopK:                DefaultTopK,
		FusionWeights:       DefaultFusionWeights(),
		ValidationBoost:     DefaultValidationBoost,
	}
}

func DefaultFusionWeights() map[string]float64 {
	return map[string]float64{
		SourcePrimary:       0.7,
		SourceSecondOpinion: 0.3,
	}
}

// Normalized fills zero fields with the defaults and clamps the rest, so a
// partially filled Config literal is usable.
func (c Config) Normalized() Config {
	out := c
	if out.ConfidenceThreshold == 0 || math.IsNaN(out.ConfidenceThreshold) {
		out.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if out.AutoApplyThreshold == 0 || math.IsNaN(out.AutoApplyThreshold) {
		out.AutoApplyThreshold = DefaultAutoApplyThreshold
	}
	if out.MaxAutoAnnotations == 0 {
		out.MaxAutoAnnotations = DefaultMaxAutoAnnotations
	}
	if out.TopK == 0 {
		out.TopK = DefaultTopK
	}
	if math.IsNaN(out.ValidationBoost) {
		out.ValidationBoost = DefaultValidationBoost
	}
	return out.Clamped()
}

// Clamped pulls every field into its valid range without substituting
// defaults. Config loaded from files, env or flags goes through Clamped so an
// explicit 0 becomes the lower bound. The result never has a zero threshold,
// cap or top_k, so Normalized leaves it unchanged.
func (c Config) Clamped() Config {
	out := c
	if math.IsNaN(out.ConfidenceThreshold) {
		out.ConfidenceThreshold = minConfidenceThreshold
	}
	out.ConfidenceThreshold = clamp(out.ConfidenceThreshold, minConfidenceThreshold, 1)

	out.AutoApplyThreshold = clamp01(out.AutoApplyThreshold)
	if out.AutoApplyThreshold < out.ConfidenceThreshold {
		out.AutoApplyThreshold = out.ConfidenceThreshold
	}

	out.MaxAutoAnnotations = clampInt(out.MaxAutoAnnotations, 1, maxAutoAnnotationsCap)
	out.TopK = clampInt(out.TopK, 1, maxTopK)

	if math.IsNaN(out.ValidationBoost) {
		out.ValidationBoost = 0
	}
	out.ValidationBoost = clamp(out.ValidationBoost, 0, maxValidationBoost)

	out.FusionWeights = normalizeWeights(c.FusionWeights)
	return out
}

// normalizeWeights drops negative or NaN weights and rescales the rest to sum
// to 1. An unusable map falls back to DefaultFusionWeights.
func normalizeWeights(in map[string]float64) map[string]float64 {
	total := 0.0
	clean := make(map[string]float64, len(in))
	for name, w := range in {
		if name == "" || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		clean[name] = w
		total += w
	}
	if total == 0 {
		clean = DefaultFusionWeights()
		total = 1
	}
	for name, w := range clean {
		clean[name] = w / total
	}
	return clean
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
