package seed

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
)

// CatalogEnv points at a YAML file that replaces the embedded catalog.
const CatalogEnv = "ANNOTATION_SEED_CATALOG"

//go:embed catalog.yaml
var catalogFS embed.FS

type yamlCatalog struct {
	KnowledgePoints []annotation.KnowledgePoint `yaml:"knowledge_points"`
}

// KnowledgePoints returns the seed catalog, read from CatalogEnv when set.
func KnowledgePoints() ([]annotation.KnowledgePoint, error) {
	data, err := readCatalog()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) ([]annotation.KnowledgePoint, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	if len(doc.KnowledgePoints) == 0 {
		return nil, errors.New("seed catalog: no knowledge points defined")
	}
	return doc.KnowledgePoints, nil
}

// Catalog compiles the seed knowledge points.
func Catalog() (*annotation.Catalog, error) {
	points, err := KnowledgePoints()
	if err != nil {
		return nil, err
	}
	return annotation.NewCatalog(points)
}

func readCatalog() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(CatalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("catalog.yaml")
}
