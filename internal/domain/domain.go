package domain

import (
	"github.com/yungbote/grammar-annotation-backend/internal/domain/annotation"
)

type AnnotationFeedback = annotation.AnnotationFeedback

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&AnnotationFeedback{},
	}
}
