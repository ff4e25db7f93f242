package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

type errorKind struct {
	err    error
	code   string
	status int
}

var errorKinds = []errorKind{
	{models.ErrInvalidState, "InvalidState", http.StatusConflict},
	{models.ErrNotYourTurn, "NotYourTurn", http.StatusConflict},
	{models.ErrCellAlreadyShot, "CellAlreadyShot", http.StatusConflict},
	{models.ErrInvalidCell, "InvalidCell", http.StatusBadRequest},
	{models.ErrGameNotActive, "GameNotActive", http.StatusConflict},
	{models.ErrBoardHashMismatch, "BoardHashMismatch", http.StatusUnprocessableEntity},
	{models.ErrInvalidBoard, "InvalidBoard", http.StatusBadRequest},
	{models.ErrGameNotReady, "GameNotReady", http.StatusConflict},
	{models.ErrUnauthorized, "Unauthorized", http.StatusForbidden},
	{models.ErrMatchNotFound, "MatchNotFound", http.StatusNotFound},
	{models.ErrRecordCheckedOut, "RecordCheckedOut", http.StatusConflict},
	{models.ErrInsufficientBalance, "InsufficientBalance", http.StatusPaymentRequired},
	{services.ErrPotMismatch, "PotMismatch", http.StatusConflict},
	{services.ErrZeroDeposit, "InvalidAmount", http.StatusBadRequest},
}

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and reported as 500 without details.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{
				"error":   msg,
				"code":    k.code,
				"details": err.Error(),
			})
			return
		}
	}

	logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
