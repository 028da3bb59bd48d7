package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type AuthHandler struct {
	log     *logger.Logger
	authSvc services.AuthService
}

func NewAuthHandler(log *logger.Logger, authSvc services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:     log.With("handler", "AuthHandler"),
		authSvc: authSvc,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
}

// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	user, err := h.authSvc.RegisterUser(c.Request.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	accessToken, refreshToken, err := h.authSvc.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	RespondOK(c, gin.H{"access_token": accessToken, "refresh_token": refreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	accessToken, refreshToken, err := h.authSvc.RefreshUser(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "invalid_refresh", err)
		return
	}
	RespondOK(c, gin.H{"access_token": accessToken, "refresh_token": refreshToken})
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authSvc.LogoutUser(c.Request.Context()); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "logged_out"})
}
