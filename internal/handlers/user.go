package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type UserHandler struct {
	log       *logger.Logger
	pointsSvc services.PointsService
	reportSvc services.ReportService
}

func NewUserHandler(log *logger.Logger, pointsSvc services.PointsService, reportSvc services.ReportService) *UserHandler {
	return &UserHandler{
		log:       log.With("handler", "UserHandler"),
		pointsSvc: pointsSvc,
		reportSvc: reportSvc,
	}
}

// GET /api/me/points
func (h *UserHandler) GetPoints(c *gin.Context) {
	summary, err := h.pointsSvc.Summary(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, summary)
}

// GET /api/me/reports
func (h *UserHandler) GetReports(c *gin.Context) {
	reports, err := h.reportSvc.ListMine(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"reports": reports})
}

// GET /api/me/recommendations?k=
func (h *UserHandler) GetRecommendations(c *gin.Context) {
	k, _ := strconv.Atoi(c.Query("k"))
	recommendations, err := h.reportSvc.RecommendMine(c.Request.Context(), k)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"recommendations": recommendations})
}
