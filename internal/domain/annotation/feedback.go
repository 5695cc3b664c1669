package annotation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnnotationFeedback is one reviewer verdict on a suggested knowledge point.
// Accuracy history for the context booster is aggregated from these rows.
type AnnotationFeedback struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID       string    `gorm:"column:question_id;not null;index" json:"question_id"`
	KnowledgePointID string    `gorm:"column:knowledge_point_id;not null;index:idx_feedback_kp_type" json:"knowledge_point_id"`
	QuestionType     string    `gorm:"column:question_type;not null;default:'';index:idx_feedback_kp_type" json:"question_type"`
	Accepted         bool      `gorm:"column:accepted;not null" json:"accepted"`

	// Snapshot of the suggestion the reviewer saw.
	Confidence      float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Decision        string         `gorm:"column:decision;not null;default:''" json:"decision"`
	MatchedKeywords datatypes.JSON `gorm:"column:matched_keywords" json:"matched_keywords,omitempty"`

	ReviewerID string    `gorm:"column:reviewer_id;not null;default:''" json:"reviewer_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (AnnotationFeedback) TableName() string { return "annotation_feedback" }

func (f *AnnotationFeedback) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
