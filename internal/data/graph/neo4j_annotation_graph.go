package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/neo4jdb"
)

// AnnotationEdge is one (:Question)-[:ANNOTATED_WITH]->(:KnowledgePoint) link.
type AnnotationEdge struct {
	QuestionID         string    `json:"question_id"`
	KnowledgePointID   string    `json:"knowledge_point_id"`
	KnowledgePointName string    `json:"knowledge_point_name,omitempty"`
	Confidence         float64   `json:"confidence"`
	Decision           string    `json:"decision"`
	Source             string    `json:"source"`
	Reasoning          string    `json:"reasoning,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

const (
	EdgeSourceAuto     = "auto"
	EdgeSourceReviewer = "reviewer"
)

var annotationSchema = []string{
	`CREATE CONSTRAINT knowledge_point_id_unique IF NOT EXISTS FOR (k:KnowledgePoint) REQUIRE k.id IS UNIQUE`,
	`CREATE CONSTRAINT question_id_unique IF NOT EXISTS FOR (q:Question) REQUIRE q.id IS UNIQUE`,
}

func ensureAnnotationSchema(ctx context.Context, session neo4j.SessionWithContext, log *logger.Logger) {
	for _, q := range annotationSchema {
		if res, err := session.Run(ctx, q, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func UpsertKnowledgePoints(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, points []annotation.KnowledgePoint) error {
	if client == nil || client.Driver == nil || len(points) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	nodes := make([]map[string]any, 0, len(points))
	for _, kp := range points {
		id := strings.TrimSpace(kp.ID)
		if id == "" {
			continue
		}
		keywords, err := json.Marshal(kp.Keywords)
		if err != nil {
			return fmt.Errorf("encode keyword set for %s: %w", id, err)
		}
		grades := kp.GradeLevels
		if grades == nil {
			grades = []string{}
		}
		nodes = append(nodes, map[string]any{
			"id":               id,
			"name":             strings.TrimSpace(kp.Name),
			"description":      strings.TrimSpace(kp.Description),
			"pattern":          strings.TrimSpace(kp.Pattern),
			"keyword_set_json": string(keywords),
			"difficulty":       string(kp.Difficulty),
			"grade_levels":     grades,
			"synced_at":        now,
		})
	}
	if len(nodes) == 0 {
		return nil
	}

	session := client.WriteSession(ctx)
	defer session.Close(ctx)
	ensureAnnotationSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (k:KnowledgePoint {id: n.id})
SET k += n
`, map[string]any{"nodes": nodes})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// ListKnowledgePoints reads the whole catalog ordered by id.
func ListKnowledgePoints(ctx context.Context, client *neo4jdb.Client) ([]annotation.KnowledgePoint, error) {
	if client == nil || client.Driver == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (k:KnowledgePoint)
RETURN k.id AS id, k.name AS name, k.description AS description, k.pattern AS pattern,
       k.keyword_set_json AS keyword_set_json, k.difficulty AS difficulty, k.grade_levels AS grade_levels
ORDER BY k.id
`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		points := make([]annotation.KnowledgePoint, 0, len(records))
		for _, rec := range records {
			kp, err := knowledgePointFromRecord(rec)
			if err != nil {
				return nil, err
			}
			points = append(points, kp)
		}
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]annotation.KnowledgePoint), nil
}

func knowledgePointFromRecord(rec *neo4j.Record) (annotation.KnowledgePoint, error) {
	m := rec.AsMap()
	kp := annotation.KnowledgePoint{
		ID:          stringProp(m, "id"),
		Name:        stringProp(m, "name"),
		Description: stringProp(m, "description"),
		Pattern:     stringProp(m, "pattern"),
		Difficulty:  annotation.Difficulty(stringProp(m, "difficulty")),
	}
	if raw := stringProp(m, "keyword_set_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &kp.Keywords); err != nil {
			return kp, fmt.Errorf("decode keyword set for %s: %w", kp.ID, err)
		}
	}
	if grades, ok := m["grade_levels"].([]any); ok {
		for _, g := range grades {
			if s, ok := g.(string); ok {
				kp.GradeLevels = append(kp.GradeLevels, s)
			}
		}
	}
	return kp, nil
}

func UpsertQuestion(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, q annotation.Question) error {
	if client == nil || client.Driver == nil || strings.TrimSpace(q.ID) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := client.WriteSession(ctx)
	defer session.Close(ctx)
	ensureAnnotationSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (q:Question {id: $id})
SET q.content = $content,
    q.type = $type,
    q.difficulty = $difficulty,
    q.synced_at = $now
`, map[string]any{
			"id":         strings.TrimSpace(q.ID),
			"content":    q.Content,
			"type":       string(q.Type),
			"difficulty": string(q.Difficulty),
			"now":        time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// ApplyAnnotations merges ANNOTATED_WITH edges. Existing edges are updated in
// place so re-applying is idempotent. An edge a reviewer accepted keeps its
// reviewer source when an automatic write lands on it later.
func ApplyAnnotations(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, questionID string, edges []AnnotationEdge) error {
	questionID = strings.TrimSpace(questionID)
	if client == nil || client.Driver == nil || questionID == "" || len(edges) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	rels := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if strings.TrimSpace(e.KnowledgePointID) == "" {
			continue
		}
		rels = append(rels, map[string]any{
			"kp_id":      strings.TrimSpace(e.KnowledgePointID),
			"confidence": e.Confidence,
			"decision":   e.Decision,
			"source":     e.Source,
			"reasoning":  e.Reasoning,
			"updated_at": now,
		})
	}
	if len(rels) == 0 {
		return nil
	}

	session := client.WriteSession(ctx)
	defer session.Close(ctx)
	ensureAnnotationSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (q:Question {id: $qid})
WITH q
UNWIND $rels AS r
MERGE (k:KnowledgePoint {id: r.kp_id})
MERGE (q)-[a:ANNOTATED_WITH]->(k)
SET a.confidence = r.confidence,
    a.decision = r.decision,
    a.source = CASE WHEN a.source = $reviewer THEN a.source ELSE r.source END,
    a.reasoning = r.reasoning,
    a.updated_at = r.updated_at
`, map[string]any{"qid": questionID, "rels": rels, "reviewer": EdgeSourceReviewer})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func ListQuestionAnnotations(ctx context.Context, client *neo4jdb.Client, questionID string) ([]AnnotationEdge, error) {
	questionID = strings.TrimSpace(questionID)
	if client == nil || client.Driver == nil || questionID == "" {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (q:Question {id: $qid})-[a:ANNOTATED_WITH]->(k:KnowledgePoint)
RETURN k.id AS kp_id, k.name AS kp_name, a.confidence AS confidence, a.decision AS decision,
       a.source AS source, a.reasoning AS reasoning, a.updated_at AS updated_at
ORDER BY a.confidence DESC, k.id
`, map[string]any{"qid": questionID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]AnnotationEdge, 0, len(records))
		for _, rec := range records {
			m := rec.AsMap()
			e := AnnotationEdge{
				QuestionID:         questionID,
				KnowledgePointID:   stringProp(m, "kp_id"),
				KnowledgePointName: stringProp(m, "kp_name"),
				Decision:           stringProp(m, "decision"),
				Source:             stringProp(m, "source"),
				Reasoning:          stringProp(m, "reasoning"),
			}
			if f, ok := m["confidence"].(float64); ok {
				e.Confidence = f
			}
			if ts, err := time.Parse(time.RFC3339Nano, stringProp(m, "updated_at")); err == nil {
				e.UpdatedAt = ts
			}
			edges = append(edges, e)
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]AnnotationEdge), nil
}

func stringProp(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
