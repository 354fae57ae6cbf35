package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"betting-wallet/internal/models"
	"betting-wallet/internal/services"
)

type Web3Handler struct {
	chainService *services.ChainService
}

func NewWeb3Handler(chainService *services.ChainService) *Web3Handler {
	return &Web3Handler{chainService: chainService}
}

func (h *Web3Handler) GetBalance(c *gin.Context) {
	address := c.Param("address")

	balance, err := h.chainService.Balance(address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *Web3Handler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, err := h.chainService.CreateTransaction(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Web3Handler) TransactionStatus(c *gin.Context) {
	txHash := c.Param("hash")

	resp, err := h.chainService.TransactionStatus(txHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
