package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type CareerHandler struct {
	log       *logger.Logger
	careerSvc services.CareerService
}

func NewCareerHandler(log *logger.Logger, careerSvc services.CareerService) *CareerHandler {
	return &CareerHandler{
		log:       log.With("handler", "CareerHandler"),
		careerSvc: careerSvc,
	}
}

// GET /api/careers?galaxy=...
func (h *CareerHandler) ListCareers(c *gin.Context) {
	careers, err := h.careerSvc.ListCareers(c.Request.Context(), c.Query("galaxy"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"careers": careers})
}
