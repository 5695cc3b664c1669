package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/grammar-annotation-backend/internal/services"
)

type HealthHandler struct {
	annotations services.AnnotationService
}

func NewHealthHandler(annotations services.AnnotationService) *HealthHandler {
	return &HealthHandler{annotations: annotations}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz reports 503 until a catalog is loaded.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.annotations == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	info := h.annotations.CatalogInfo()
	if info.Size == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "catalog": info})
}
