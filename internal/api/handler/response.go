package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fantaasta/auction/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// errorCodes gives each auction error its stable client-facing code.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrMissingField, "ERR_MISSING_FIELD"},
	{domain.ErrUnknownTeam, "ERR_UNKNOWN_TEAM"},
	{domain.ErrPlayerUnavailable, "ERR_PLAYER_UNAVAILABLE"},
	{domain.ErrAuctionActive, "ERR_AUCTION_ACTIVE"},
	{domain.ErrAuctionNotActive, "ERR_AUCTION_NOT_ACTIVE"},
	{domain.ErrAwaitingConfirmation, "ERR_AWAITING_CONFIRMATION"},
	{domain.ErrNotAwaitingConfirmation, "ERR_NOT_AWAITING_CONFIRMATION"},
	{domain.ErrInsufficientBudget, "ERR_INSUFFICIENT_BUDGET"},
	{domain.ErrNotAdmin, "ERR_FORBIDDEN"},
	{domain.ErrHistoryNotFound, "ERR_HISTORY_NOT_FOUND"},
}

// respondDomainError maps an auction error onto its HTTP status and code.
// Anything unrecognised becomes a 500 without leaking the message.
func respondDomainError(c *gin.Context, err error) {
	var status int
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsConflict(err):
		status = http.StatusConflict
	case domain.IsBudget(err):
		status = http.StatusPaymentRequired
	case domain.IsAuthError(err):
		status = http.StatusForbidden
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
		return
	}

	code := "ERR_INTERNAL"
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			code = ec.code
			break
		}
	}
	respondError(c, status, code, err.Error())
}
