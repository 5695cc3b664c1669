package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/grammar-annotation-backend/internal/http/response"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
	"github.com/yungbote/grammar-annotation-backend/internal/services"
)

type AnnotationHandler struct {
	log         *logger.Logger
	annotations services.AnnotationService
}

func NewAnnotationHandler(log *logger.Logger, annotations services.AnnotationService) *AnnotationHandler {
	RegisterValidators()
	return &AnnotationHandler{log: log.With("handler", "AnnotationHandler"), annotations: annotations}
}

type questionRequest struct {
	ID                      string `json:"id" binding:"omitempty,max=128"`
	Content                 string `json:"content" binding:"max=20000"`
	QuestionType            string `json:"question_type" binding:"required,question_type"`
	Difficulty              string `json:"difficulty" binding:"omitempty,difficulty"`
	ExistingAnnotationCount int    `json:"existing_annotation_count" binding:"min=0"`
}

func (r questionRequest) toQuestion() annotation.Question {
	qt, _ := annotation.ParseQuestionType(r.QuestionType)
	d, _ := annotation.ParseDifficulty(r.Difficulty)
	return annotation.Question{
		ID:                      strings.TrimSpace(r.ID),
		Content:                 r.Content,
		Type:                    qt,
		Difficulty:              d,
		ExistingAnnotationCount: r.ExistingAnnotationCount,
	}
}

type batchRequest struct {
	Questions []questionRequest `json:"questions" binding:"required,min=1,max=500,dive"`
}

type feedbackRequest struct {
	QuestionID       string   `json:"question_id" binding:"required,max=128"`
	KnowledgePointID string   `json:"knowledge_point_id" binding:"required,max=128"`
	Accepted         *bool    `json:"accepted" binding:"required"`
	QuestionType     string   `json:"question_type" binding:"omitempty,question_type"`
	Confidence       float64  `json:"confidence" binding:"min=0,max=1"`
	Decision         string   `json:"decision" binding:"omitempty,oneof=AUTO_APPLY RECOMMEND"`
	MatchedKeywords  []string `json:"matched_keywords"`
	ReviewerID       string   `json:"reviewer_id" binding:"max=128"`
}

type knowledgePointsRequest struct {
	KnowledgePoints []annotation.KnowledgePoint `json:"knowledge_points" binding:"required,min=1"`
}

// GET /api/knowledge-points
func (h *AnnotationHandler) ListKnowledgePoints(c *gin.Context) {
	points, err := h.annotations.KnowledgePoints(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "catalog_unavailable")
		return
	}
	response.RespondOK(c, gin.H{"knowledge_points": points, "catalog": h.annotations.CatalogInfo()})
}

// POST /api/knowledge-points
func (h *AnnotationHandler) UpsertKnowledgePoints(c *gin.Context) {
	var req knowledgePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	info, err := h.annotations.UpsertKnowledgePoints(c.Request.Context(), req.KnowledgePoints)
	if err != nil {
		response.RespondAPIError(c, err, "annotation_store_failed")
		return
	}
	response.RespondOK(c, gin.H{"catalog": info})
}

// POST /api/knowledge-points/reload
func (h *AnnotationHandler) ReloadCatalog(c *gin.Context) {
	info, err := h.annotations.Reload(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "catalog_unavailable")
		return
	}
	response.RespondOK(c, gin.H{"catalog": info})
}

// POST /api/questions
func (h *AnnotationHandler) UpsertQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	q := req.toQuestion()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := h.annotations.UpsertQuestion(c.Request.Context(), q); err != nil {
		response.RespondAPIError(c, err, "annotation_store_failed")
		return
	}
	response.RespondOK(c, gin.H{"question_id": q.ID})
}

// GET /api/questions/:id/annotations
func (h *AnnotationHandler) ListAnnotations(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	edges, err := h.annotations.Annotations(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "annotation_store_failed")
		return
	}
	response.RespondOK(c, gin.H{"question_id": id, "annotations": edges})
}

// GET /api/questions/:id/feedback
func (h *AnnotationHandler) ListFeedback(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	rows, err := h.annotations.FeedbackHistory(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "feedback_store_failed")
		return
	}
	response.RespondOK(c, gin.H{"question_id": id, "feedback": rows})
}

// POST /api/annotations/suggest
func (h *AnnotationHandler) Suggest(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	out, err := h.annotations.Suggest(c.Request.Context(), req.toQuestion())
	if err != nil {
		response.RespondAPIError(c, err, "suggest_failed")
		return
	}
	response.RespondOK(c, gin.H{"suggestions": out})
}

// POST /api/annotations/suggest/batch
func (h *AnnotationHandler) SuggestBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	qs := make([]annotation.Question, len(req.Questions))
	for i, q := range req.Questions {
		qs[i] = q.toQuestion()
	}
	out, err := h.annotations.SuggestBatch(c.Request.Context(), qs)
	if err != nil {
		response.RespondAPIError(c, err, "suggest_failed")
		return
	}
	response.RespondOK(c, gin.H{"results": out})
}

// POST /api/questions/:id/annotations/apply
func (h *AnnotationHandler) Apply(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	q := req.toQuestion()
	q.ID = strings.TrimSpace(c.Param("id"))
	res, err := h.annotations.Apply(c.Request.Context(), q)
	if err != nil {
		response.RespondAPIError(c, err, "annotation_store_failed")
		return
	}
	response.RespondOK(c, res)
}

// POST /api/annotations/feedback
func (h *AnnotationHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", bindError(err))
		return
	}
	qt, _ := annotation.ParseQuestionType(req.QuestionType)
	row, err := h.annotations.Feedback(c.Request.Context(), services.FeedbackInput{
		QuestionID:       req.QuestionID,
		QuestionType:     qt,
		KnowledgePointID: req.KnowledgePointID,
		Accepted:         *req.Accepted,
		Confidence:       req.Confidence,
		Decision:         annotation.Decision(req.Decision),
		MatchedKeywords:  req.MatchedKeywords,
		ReviewerID:       req.ReviewerID,
	})
	if err != nil {
		response.RespondAPIError(c, err, "feedback_store_failed")
		return
	}
	response.RespondOK(c, gin.H{"feedback": row})
}
