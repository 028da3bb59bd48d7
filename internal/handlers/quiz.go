package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type QuizHandler struct {
	log       *logger.Logger
	quizSvc   services.QuizService
	reportSvc services.ReportService
}

func NewQuizHandler(log *logger.Logger, quizSvc services.QuizService, reportSvc services.ReportService) *QuizHandler {
	return &QuizHandler{
		log:       log.With("handler", "QuizHandler"),
		quizSvc:   quizSvc,
		reportSvc: reportSvc,
	}
}

// GET /api/quizzes
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizSvc.ListQuizzes(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"quizzes": quizzes})
}

type startQuizRequest struct {
	Quiz string `json:"quiz" binding:"required"`
}

// POST /api/quiz/start
func (h *QuizHandler) Start(c *gin.Context) {
	var req startQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := h.quizSvc.StartSession(c.Request.Context(), req.Quiz)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/quiz/:token/questions
func (h *QuizHandler) GetQuestions(c *gin.Context) {
	result, err := h.quizSvc.GetQuestions(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/quiz/:token/answers
func (h *QuizHandler) SaveAnswer(c *gin.Context) {
	var input services.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	answer, err := h.quizSvc.SaveAnswer(c.Request.Context(), c.Param("token"), input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"answer": answer})
}

// POST /api/quiz/:token/submit
func (h *QuizHandler) Submit(c *gin.Context) {
	report, err := h.quizSvc.Submit(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

// GET /api/quiz/:token/report
func (h *QuizHandler) GetReport(c *gin.Context) {
	report, err := h.reportSvc.GetBySessionToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}
