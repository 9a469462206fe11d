package Controllers

import (
	"errors"
	"net/http"

	"LiveSupport/Services"
	"LiveSupport/Storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TicketController struct {
	tickets *Services.TicketService
	logger  *logrus.Logger
}

func NewTicketController(tickets *Services.TicketService, logger *logrus.Logger) *TicketController {
	return &TicketController{tickets: tickets, logger: logger}
}

type createTicketRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (ctrl *TicketController) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	ticket, err := ctrl.tickets.Create(c.Request.Context(), req.Name, req.Email, req.Category, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, Services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		case errors.Is(err, Services.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		case errors.Is(err, Services.ErrInvalidCategory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service type"})
		default:
			ctrl.logger.WithError(err).Error("failed to create ticket")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to create ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "ticket": ticket})
}

func (ctrl *TicketController) GetTickets(c *gin.Context) {
	tickets, err := ctrl.tickets.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		if errors.Is(err, Services.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
			return
		}
		ctrl.logger.WithError(err).Error("failed to list tickets")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch tickets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (ctrl *TicketController) UpdateTicketStatus(c *gin.Context) {
	ticketID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}

	var statusUpdate struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&statusUpdate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := ctrl.tickets.UpdateStatus(c.Request.Context(), ticketID, statusUpdate.Status); err != nil {
		switch {
		case errors.Is(err, Services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		case errors.Is(err, Storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		default:
			ctrl.logger.WithError(err).Error("failed to update ticket status")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to update ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket status updated"})
}
