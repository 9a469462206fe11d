package Controllers

import (
	"net/http"
	"time"

	"LiveSupport/Storage"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	store Storage.Store
}

func NewHealthController(store Storage.Store) *HealthController {
	return &HealthController{store: store}
}

func (ctrl *HealthController) Health(c *gin.Context) {
	if err := ctrl.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	active, err := ctrl.store.CountActiveSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": active,
		"timestamp":       time.Now().UTC(),
	})
}
