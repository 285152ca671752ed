package http

import (
	"net/http"

	"instagram-feed/usecase"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	AuthUsecase usecase.IAuthUsecase
}

func NewHealthHandler(authUsecase usecase.IAuthUsecase) IHealthHandler {
	return &HealthHandler{AuthUsecase: authUsecase}
}

// Healthz reports liveness plus the credential state, never the token.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := h.AuthUsecase.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "ok", "instagram": status.State})
}
