package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/envutil"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/services"
)

const engineConfigFileEnv = "ANNOTATION_CONFIG_FILE"

type Config struct {
	Port        string
	Environment string
	Version     string
	DBDriver    string

	Engine   annotation.Config
	Services services.AnnotationServiceOptions
}

// LoadConfig reads the engine options from ANNOTATION_CONFIG_FILE (YAML) and
// then applies ANNOTATION_* overrides. Out-of-range values are clamped by the
// engine, so a bad file only costs a warning.
func LoadConfig(log *logger.Logger) Config {
	engine := annotation.DefaultConfig()
	if path := envutil.String(engineConfigFileEnv, ""); path != "" {
		fileCfg, err := LoadEngineConfigFile(path)
		if err != nil {
			log.Warn("engine config file ignored", "path", path, "error", err)
		} else {
			engine = fileCfg
		}
	}
	engine = applyEngineEnv(engine)

	return Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
		DBDriver:    strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		Engine:      engine.Clamped(),
		Services: services.AnnotationServiceOptions{
			BatchConcurrency:   envutil.Int("ANNOTATION_BATCH_CONCURRENCY", 0),
			AccuracyMinSamples: int64(envutil.Int("ANNOTATION_ACCURACY_MIN_SAMPLES", 5)),
			StoreTimeout:       envutil.Seconds("ANNOTATION_STORE_TIMEOUT_SECONDS", 5*time.Second),
		},
	}
}

// LoadEngineConfigFile decodes a YAML engine config on top of the defaults.
func LoadEngineConfigFile(path string) (annotation.Config, error) {
	cfg := annotation.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func applyEngineEnv(cfg annotation.Config) annotation.Config {
	cfg.ConfidenceThreshold = envutil.Float("ANNOTATION_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	cfg.AutoApplyThreshold = envutil.Float("ANNOTATION_AUTO_APPLY_THRESHOLD", cfg.AutoApplyThreshold)
	cfg.MaxAutoAnnotations = envutil.Int("ANNOTATION_MAX_AUTO_ANNOTATIONS", cfg.MaxAutoAnnotations)
	cfg.TopK = envutil.Int("ANNOTATION_TOP_K", cfg.TopK)
	cfg.FusionEnabled = envutil.Bool("ANNOTATION_FUSION_ENABLED", cfg.FusionEnabled)
	cfg.ValidationBoost = envutil.Float("ANNOTATION_VALIDATION_BOOST", cfg.ValidationBoost)
	if raw := envutil.String("ANNOTATION_FUSION_WEIGHTS", ""); raw != "" {
		if w := parseWeights(raw); len(w) > 0 {
			cfg.FusionWeights = w
		}
	}
	return cfg
}

// parseWeights reads "primary=0.7,second_opinion=0.3". Malformed pairs are
// skipped.
func parseWeights(raw string) map[string]float64 {
	out := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		var w float64
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%g", &w); err != nil {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			out[name] = w
		}
	}
	return out
}
