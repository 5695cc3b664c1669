package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/grammar-annotation-backend/internal/data/repos/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

type FeedbackRepo = annotation.FeedbackRepo
type AccuracyRow = annotation.AccuracyRow

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return annotation.NewFeedbackRepo(db, baseLog)
}
