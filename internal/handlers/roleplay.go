package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type RoleplayHandler struct {
	log         *logger.Logger
	roleplaySvc services.RoleplayService
	reportSvc   services.ReportService
}

func NewRoleplayHandler(log *logger.Logger, roleplaySvc services.RoleplayService, reportSvc services.ReportService) *RoleplayHandler {
	return &RoleplayHandler{
		log:         log.With("handler", "RoleplayHandler"),
		roleplaySvc: roleplaySvc,
		reportSvc:   reportSvc,
	}
}

// GET /api/roleplay/scripts
func (h *RoleplayHandler) ListScripts(c *gin.Context) {
	scripts, err := h.roleplaySvc.ListScripts(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"scripts": scripts})
}

// GET /api/roleplay/scripts/:slug
func (h *RoleplayHandler) GetScript(c *gin.Context) {
	script, err := h.roleplaySvc.GetScript(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"script": script})
}

type startRoleplayRequest struct {
	Script string `json:"script" binding:"required"`
}

// POST /api/roleplay/start
func (h *RoleplayHandler) Start(c *gin.Context) {
	var req startRoleplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := h.roleplaySvc.StartSession(c.Request.Context(), req.Script)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, view)
}

// GET /api/roleplay/:token/state
func (h *RoleplayHandler) GetState(c *gin.Context) {
	view, err := h.roleplaySvc.GetState(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, view)
}

type chooseRequest struct {
	ChoiceID string `json:"choice_id" binding:"required"`
}

// POST /api/roleplay/:token/choose
func (h *RoleplayHandler) Choose(c *gin.Context) {
	var req chooseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := h.roleplaySvc.Choose(c.Request.Context(), c.Param("token"), req.ChoiceID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/roleplay/:token/report
func (h *RoleplayHandler) GetReport(c *gin.Context) {
	report, err := h.reportSvc.GetBySessionToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}
