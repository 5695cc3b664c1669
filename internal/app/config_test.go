package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

func TestParseWeights(t *testing.T) {
	got := parseWeights("primary=0.6, second_opinion = 0.4,bogus,=1,x=abc")
	want := map[string]float64{"primary": 0.6, "second_opinion": 0.4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parseWeights mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	if err := os.WriteFile(path, []byte("confidence_threshold: 0.4\ntop_k: 80\nfusion_enabled: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(engineConfigFileEnv, path)
	t.Setenv("ANNOTATION_AUTO_APPLY_THRESHOLD", "0.2")
	t.Setenv("ANNOTATION_BATCH_CONCURRENCY", "4")
	t.Setenv("DB_DRIVER", "None")

	cfg := LoadConfig(logger.Nop())
	if cfg.Engine.ConfidenceThreshold != 0.4 {
		t.Fatalf("confidence_threshold: want=0.4 got=%v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.TopK != 50 {
		t.Fatalf("top_k clamp: want=50 got=%d", cfg.Engine.TopK)
	}
	if !cfg.Engine.FusionEnabled {
		t.Fatalf("fusion_enabled: want=true")
	}
	if cfg.Engine.AutoApplyThreshold != 0.4 {
		t.Fatalf("auto_apply raised to confidence: want=0.4 got=%v", cfg.Engine.AutoApplyThreshold)
	}
	if cfg.Services.BatchConcurrency != 4 {
		t.Fatalf("batch concurrency: want=4 got=%d", cfg.Services.BatchConcurrency)
	}
	if cfg.DBDriver != dbDriverNone {
		t.Fatalf("db driver: want=%q got=%q", dbDriverNone, cfg.DBDriver)
	}
}

func TestLoadConfigBadFileKeepsDefaults(t *testing.T) {
	t.Setenv(engineConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	cfg := LoadConfig(logger.Nop())
	if cfg.Engine.TopK != 5 || cfg.Engine.ConfidenceThreshold != 0.3 {
		t.Fatalf("unexpected defaults: %+v", cfg.Engine)
	}
}

func TestLoadConfigExplicitZeroClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("confidence_threshold: 0\nmax_auto_annotations: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(engineConfigFileEnv, path)
	t.Setenv("ANNOTATION_TOP_K", "0")

	cfg := LoadConfig(logger.Nop())
	if cfg.Engine.ConfidenceThreshold != 0.1 {
		t.Fatalf("confidence_threshold: want=0.1 got=%v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.MaxAutoAnnotations != 1 {
		t.Fatalf("max_auto_annotations: want=1 got=%d", cfg.Engine.MaxAutoAnnotations)
	}
	if cfg.Engine.TopK != 1 {
		t.Fatalf("top_k: want=1 got=%d", cfg.Engine.TopK)
	}
	if cfg.Engine.AutoApplyThreshold != 0.7 {
		t.Fatalf("auto_apply_threshold: want=0.7 got=%v", cfg.Engine.AutoApplyThreshold)
	}
}
