package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAppError maps the engine error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500.
func RespondAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrExpired):
		RespondError(c, http.StatusGone, "session_expired", err)
	case errors.Is(err, apperr.ErrSessionClosed):
		RespondError(c, http.StatusConflict, "session_closed", err)
	case errors.Is(err, apperr.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, apperr.ErrInvalidAnswerShape):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_answer_shape", err)
	case errors.Is(err, apperr.ErrInvalidChoice):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_choice", err)
	case errors.Is(err, apperr.ErrInvalidTransition):
		RespondError(c, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, apperr.ErrInvalidState):
		RespondError(c, http.StatusBadRequest, "invalid_state", err)
	case errors.Is(err, apperr.ErrCorruptState):
		RespondError(c, http.StatusInternalServerError, "corrupt_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
