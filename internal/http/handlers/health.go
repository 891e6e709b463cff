package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
)

type HealthHandler struct {
	store kv.Store
}

// NewHealthHandler probes store on each check; a nil store skips the probe.
func NewHealthHandler(store kv.Store) *HealthHandler { return &HealthHandler{store: store} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if _, _, err := h.store.Get(ctx, "healthcheck"); err != nil {
			c.String(http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
