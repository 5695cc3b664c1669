package annotation

import (
	"gorm.io/gorm"

	types "github.com/yungbote/grammar-annotation-backend/internal/domain/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/pkg/dbctx"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

// AccuracyRow is the acceptance tally for one knowledge point and question type.
type AccuracyRow struct {
	KnowledgePointID string
	QuestionType     string
	Total            int64
	AcceptedCount    int64
}

type FeedbackRepo interface {
	Create(dbc dbctx.Context, rows []*types.AnnotationFeedback) ([]*types.AnnotationFeedback, error)
	ListByQuestion(dbc dbctx.Context, questionID string) ([]*types.AnnotationFeedback, error)
	AccuracyStats(dbc dbctx.Context) ([]AccuracyRow, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	repoLog := baseLog.With("repo", "FeedbackRepo")
	return &feedbackRepo{db: db, log: repoLog}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, rows []*types.AnnotationFeedback) ([]*types.AnnotationFeedback, error) {
	if len(rows) == 0 {
		return []*types.AnnotationFeedback{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedbackRepo) ListByQuestion(dbc dbctx.Context, questionID string) ([]*types.AnnotationFeedback, error) {
	var results []*types.AnnotationFeedback
	if questionID == "" {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("question_id = ?", questionID).
		Order("created_at ASC, knowledge_point_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *feedbackRepo) AccuracyStats(dbc dbctx.Context) ([]AccuracyRow, error) {
	var rows []AccuracyRow
	if err := dbc.DB(r.db).
		Model(&types.AnnotationFeedback{}).
		Select("knowledge_point_id, question_type, COUNT(*) AS total, SUM(CASE WHEN accepted THEN 1 ELSE 0 END) AS accepted_count").
		Group("knowledge_point_id, question_type").
		Order("knowledge_point_id, question_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
