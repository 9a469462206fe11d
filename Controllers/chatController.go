package Controllers

import (
	"errors"
	"net/http"

	"LiveSupport/Models"
	"LiveSupport/Services"
	"LiveSupport/Sockets"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatController struct {
	sessions *Services.SessionService
	hub      *Sockets.Hub
	logger   *logrus.Logger
}

func NewChatController(sessions *Services.SessionService, hub *Sockets.Hub, logger *logrus.Logger) *ChatController {
	return &ChatController{sessions: sessions, hub: hub, logger: logger}
}

type startChatRequest struct {
	CustomerName  string `json:"customerName" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required"`
}

// StartChat admits a customer into a live session, or offers the ticket
// fallback when no agent has capacity.
func (ctrl *ChatController) StartChat(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer name and email are required"})
		return
	}

	result, err := ctrl.sessions.Start(c.Request.Context(), req.CustomerName, req.CustomerEmail)
	if err != nil {
		switch {
		case errors.Is(err, Services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Customer name and email are required"})
		case errors.Is(err, Services.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		case errors.Is(err, Services.ErrNoAgentAvailable):
			c.JSON(http.StatusOK, gin.H{
				"ok":               false,
				"reason":           "no-agent",
				"fallbackToTicket": true,
			})
		default:
			ctrl.logger.WithError(err).Error("chat admission failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to start chat, please retry"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"sessionId":    result.Session.ID.Hex(),
		"agentName":    result.Agent.Name,
		"customerId":   result.Customer.ID.Hex(),
		"customerName": result.Customer.Name,
	})
}

// EndChat is idempotent: the first call ends the session and releases the
// agent, later calls report the session as gone without touching capacity.
func (ctrl *ChatController) EndChat(c *gin.Context) {
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := ctrl.sessions.End(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, Services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"ok":     false,
				"reason": "not-found-or-already-ended",
			})
			return
		}
		ctrl.logger.WithError(err).Error("failed to end chat")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to end chat"})
		return
	}

	ctrl.hub.Broadcast(sessionID.Hex(), Models.ChatEndedEvent{
		Type:      Models.EventChatEnded,
		SessionID: sessionID.Hex(),
	}, "")

	c.JSON(http.StatusOK, gin.H{"ok": true, "session": session})
}

// GetMessages returns the persisted history in timestamp order.
func (ctrl *ChatController) GetMessages(c *gin.Context) {
	sessionID, err := primitive.ObjectIDFromHex(c.Query("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	messages, err := ctrl.sessions.History(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, Services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
			return
		}
		ctrl.logger.WithError(err).Error("failed to fetch messages")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetSession returns the session joined with participant identities.
func (ctrl *ChatController) GetSession(c *gin.Context) {
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	detail, err := ctrl.sessions.Detail(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, Services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
			return
		}
		ctrl.logger.WithError(err).Error("failed to fetch session")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": detail})
}
