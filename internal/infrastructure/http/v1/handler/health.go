package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz reports unhealthy once the map loop has stopped, since every other
// route would fail from then on.
func (h *Handler) Healthz(c *gin.Context) {
	select {
	case <-h.runner.Done():
		h.RespondWithError(c, http.StatusServiceUnavailable, ErrMapUnavailable)
	default:
		c.JSON(http.StatusOK, "OK")
	}
}
