package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campuspulse-backend/internal/http/response"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

type AuthHandler struct {
	authService    services.AuthService
	studentService services.StudentService
}

func NewAuthHandler(authService services.AuthService, studentService services.StudentService) *AuthHandler {
	return &AuthHandler{authService: authService, studentService: studentService}
}

// Login is the institutional gate: id and secret in, token and role out.
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, role, err := ah.authService.Login(c.Request.Context(), req.ID, req.Secret)
	if err != nil {
		response.RespondAPIError(c, err, "login_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"token":      token,
		"role":       role,
		"expires_in": int(ah.authService.GetAccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) NewRecoveryKey(c *gin.Context) {
	key, err := ah.studentService.NewRecoveryKey(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "key_generation_failed")
		return
	}
	response.RespondOK(c, gin.H{"recovery_key": key})
}

func (ah *AuthHandler) StudentLogin(c *gin.Context) {
	var req struct {
		RecoveryKey string `json:"recovery_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, err := ah.studentService.Login(c.Request.Context(), req.RecoveryKey)
	if err != nil {
		response.RespondAPIError(c, err, "login_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"token":      token,
		"role":       "student",
		"expires_in": int(ah.authService.GetAccessTTL().Seconds()),
	})
}
