package Controllers

import (
	"net/http"

	"LiveSupport/Middleware"
	"LiveSupport/Models"
	"LiveSupport/Services"
	"LiveSupport/Storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AgentController struct {
	store       Storage.Store
	logger      *logrus.Logger
	maxSessions int
}

func NewAgentController(store Storage.Store, logger *logrus.Logger, maxSessions int) *AgentController {
	return &AgentController{store: store, logger: logger, maxSessions: maxSessions}
}

type registerAgentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterAgent creates the agent record. Agents start offline; they flip
// online over the channel protocol when they open their dashboard.
func (ctrl *AgentController) RegisterAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email and password are required"})
		return
	}
	if !Services.ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register agent"})
		return
	}

	agent, err := ctrl.store.InsertAgent(c.Request.Context(), Models.Agent{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hash),
		Online:      false,
		MaxSessions: ctrl.maxSessions,
	})
	if err != nil {
		ctrl.logger.WithError(err).Error("failed to register agent")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to register agent"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agent": agent})
}

// Dashboard returns the authenticated agent's active sessions and capacity.
func (ctrl *AgentController) Dashboard(c *gin.Context) {
	claims := c.MustGet("agent").(*Middleware.AgentClaims)

	agentID, err := primitive.ObjectIDFromHex(claims.AgentID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	agent, err := ctrl.store.GetAgent(c.Request.Context(), agentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}

	sessions, err := ctrl.store.ListAgentSessions(c.Request.Context(), agentID)
	if err != nil {
		ctrl.logger.WithError(err).Error("failed to list agent sessions")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agent":    agent,
		"sessions": sessions,
	})
}
