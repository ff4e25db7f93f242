package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/middleware"
	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

type UserHandler struct {
	matches    *services.MatchService
	jwtService *services.JWTService
	logger     *zap.Logger
}

func NewUserHandler(matches *services.MatchService, jwtService *services.JWTService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		matches:    matches,
		jwtService: jwtService,
		logger:     logger.Named("http"),
	}
}

// IssueToken hands out a token for any identity. Only mounted outside production,
// where an upstream signer is expected to do this instead.
func (h *UserHandler) IssueToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(req.Identity)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	id := middleware.Identity(c)

	wallet, err := h.matches.Wallet(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get wallet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity":   id,
		"session_id": middleware.SessionID(c),
		"wallet":     wallet.Response(),
	})
}

func (h *UserHandler) GetWallet(c *gin.Context) {
	wallet, err := h.matches.Wallet(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, h.logger, "Failed to get wallet", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": wallet.Response()})
}

// Deposit tops up the caller's wallet. Mounted with IssueToken only.
func (h *UserHandler) Deposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wallet, err := h.matches.Deposit(c.Request.Context(), middleware.Identity(c), req.Amount)
	if err != nil {
		respondError(c, h.logger, "Failed to deposit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": wallet.Response()})
}

func (h *UserHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	history, err := h.matches.History(c.Request.Context(), middleware.Identity(c), limit)
	if err != nil {
		respondError(c, h.logger, "Failed to get history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}
