package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/middleware"
	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

type MatchHandler struct {
	matches *services.MatchService
	logger  *zap.Logger
}

func NewMatchHandler(matches *services.MatchService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, logger: logger.Named("http")}
}

func matchKeyParam(c *gin.Context) (models.MatchKey, error) {
	creator, err := models.ParseIdentity(c.Param("creator"))
	if err != nil {
		return models.MatchKey{}, err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return models.MatchKey{}, fmt.Errorf("invalid match id: %w", err)
	}
	return models.MatchKey{Creator: creator, ID: id}, nil
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	actor := middleware.Identity(c)

	var req models.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.CreateMatch(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, "Failed to create match", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"match_key": m.Key().String(),
		"match":     m.View(),
	})
}

func (h *MatchHandler) JoinMatch(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req models.JoinMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.JoinMatch(c.Request.Context(), middleware.Identity(c), key, req.Commitment)
	if err != nil {
		respondError(c, h.logger, "Failed to join match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) Checkout(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.Checkout(c.Request.Context(), middleware.Identity(c), key)
	if err != nil {
		respondError(c, h.logger, "Failed to check out match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) Checkin(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.Checkin(c.Request.Context(), middleware.Identity(c), key)
	if err != nil {
		respondError(c, h.logger, "Failed to check in match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) FireShot(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req models.FireShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.FireShot(c.Request.Context(), middleware.Identity(c), key, *req.Cell)
	if err != nil {
		respondError(c, h.logger, "Failed to fire shot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cell":    *req.Cell,
		"coord":   models.FormatCell(*req.Cell),
		"match":   m.View(),
	})
}

func (h *MatchHandler) RespondToShot(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req models.RespondShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, out, err := h.matches.RespondToShot(c.Request.Context(), middleware.Identity(c), key, *req.Hit)
	if err != nil {
		respondError(c, h.logger, "Failed to respond to shot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cell":      out.Cell,
		"hit":       out.Hit,
		"game_over": out.GameOver,
		"match":     m.View(),
	})
}

func (h *MatchHandler) Reveal(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req models.RevealBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.Reveal(c.Request.Context(), middleware.Identity(c), key, models.Bitboard(req.Board), req.Salt)
	if err != nil {
		respondError(c, h.logger, "Failed to reveal board", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) Finalize(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req models.FinalizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	verdict, err := h.matches.Finalize(c.Request.Context(), middleware.Identity(c), key, req.PayoutRecipient)
	if err != nil {
		respondError(c, h.logger, "Failed to finalize match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verdict": verdict})
}

func (h *MatchHandler) Settle(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.Settle(c.Request.Context(), middleware.Identity(c), key)
	if err != nil {
		respondError(c, h.logger, "Failed to settle match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) Abort(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.Abort(c.Request.Context(), middleware.Identity(c), key)
	if err != nil {
		respondError(c, h.logger, "Failed to abort session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.matches.GetMatch(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, "Failed to get match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match": m.View()})
}

// GetRaw returns the encoded record for clients that decode it themselves.
func (h *MatchHandler) GetRaw(c *gin.Context) {
	key, err := matchKeyParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	raw, err := h.matches.GetRaw(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, "Failed to get match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"size":    len(raw),
		"record":  base64.StdEncoding.EncodeToString(raw),
	})
}
