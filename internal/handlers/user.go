package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/models"
	"betting-wallet/internal/services"
)

type UserHandler struct {
	redisService *services.RedisService
	hub          *Hub
}

func NewUserHandler(redisService *services.RedisService, hub *Hub) *UserHandler {
	return &UserHandler{
		redisService: redisService,
		hub:          hub,
	}
}

// GetUser serves the canonical record. Kept in the legacy shape with the
// identifier under "_id"; clients normalize.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.redisService.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, models.Aliased(user))
}

type balanceRequest struct {
	UserID string `json:"userId" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

func (h *UserHandler) Deposit(c *gin.Context) {
	var req balanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deposit amount must be positive"})
		return
	}

	user, err := h.redisService.Deposit(req.UserID, req.Amount)
	if err != nil {
		log.WithError(err).WithField("user_id", req.UserID).Error("Deposit failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deposit failed"})
		return
	}

	h.hub.NotifyUserChanged(user.ID)
	c.JSON(http.StatusOK, gin.H{"user": models.Aliased(user)})
}

func (h *UserHandler) Withdraw(c *gin.Context) {
	var req balanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Withdrawal amount must be positive"})
		return
	}

	user, err := h.redisService.Withdraw(req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		}
		log.WithError(err).WithField("user_id", req.UserID).Error("Withdrawal failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Withdrawal failed"})
		return
	}

	h.hub.NotifyUserChanged(user.ID)
	c.JSON(http.StatusOK, gin.H{"user": models.Aliased(user)})
}

type settleRequest struct {
	UserID string     `json:"userId" binding:"required"`
	Amount int64      `json:"amount" binding:"required"`
	Bet    models.Bet `json:"bet" binding:"required"`
}

// UpdateBalance settles a bet: the signed delta and the history record are
// applied together, and the full updated record is returned.
func (h *UserHandler) UpdateBalance(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.Bet.Event == "" || req.Bet.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet record"})
		return
	}
	switch req.Bet.Status {
	case models.BetStatusWon, models.BetStatusLost, models.BetStatusPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet status"})
		return
	}
	if req.Bet.Time.IsZero() {
		req.Bet.Time = time.Now().UTC()
	}

	user, err := h.redisService.SettleBet(req.UserID, req.Amount, req.Bet)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		}
		log.WithError(err).WithField("user_id", req.UserID).Error("Settlement failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Settlement failed"})
		return
	}

	h.hub.NotifyUserChanged(user.ID)
	c.JSON(http.StatusOK, gin.H{"user": models.Aliased(user)})
}
