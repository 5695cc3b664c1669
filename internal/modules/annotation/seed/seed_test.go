package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
)

func TestEmbeddedCatalogCompiles(t *testing.T) {
	t.Setenv(CatalogEnv, "")
	c, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if c.Len() < 20 {
		t.Fatalf("expected the full seed catalog, got %d entries", c.Len())
	}
}

func TestEmbeddedPatternsAreKnown(t *testing.T) {
	t.Setenv(CatalogEnv, "")
	points, err := KnowledgePoints()
	if err != nil {
		t.Fatalf("KnowledgePoints: %v", err)
	}
	known := map[string]bool{}
	for _, k := range annotation.PatternKeys() {
		known[k] = true
	}
	for _, kp := range points {
		if kp.Pattern != "" && !known[kp.Pattern] {
			t.Fatalf("%s: unknown pattern %q", kp.ID, kp.Pattern)
		}
		if len(kp.Keywords) == 0 {
			t.Fatalf("%s: empty keyword set", kp.ID)
		}
	}
}

func TestCatalogFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := []byte("knowledge_points:\n  - id: kp_one\n    name: One\n    keyword_set:\n      - category: strong_indicator\n        phrases: [one]\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(CatalogEnv, path)

	c, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len: want=1 got=%d", c.Len())
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte("knowledge_points: []\n")); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
}
