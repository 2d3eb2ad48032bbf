package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fantaasta/auction/internal/domain"
	"github.com/fantaasta/auction/internal/service"
)

// AuctionHandler serves the live auction, history and roster endpoints.
type AuctionHandler struct {
	svc *service.AuctionService
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(svc *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{svc: svc}
}

// ── Lot lifecycle ─────────────────────────────────────────────────────────────

// Start godoc
// POST /api/auction/start
// Body: {"player":"Rossi (ATT)","team":"TeamA"}
func (h *AuctionHandler) Start(c *gin.Context) {
	var body struct {
		Player string `json:"player" binding:"required"`
		Team   string `json:"team"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	status, err := h.svc.Start(body.Player, body.Team)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, status)
}

// Bid godoc
// POST /api/auction/bid
// Body: {"team":"TeamA","inc":5}; a missing, non-positive or non-integer
// inc counts as 1.
func (h *AuctionHandler) Bid(c *gin.Context) {
	var body struct {
		Team string          `json:"team" binding:"required"`
		Inc  json.RawMessage `json:"inc"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	status, err := h.svc.Bid(body.Team, parseIncrement(body.Inc))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, status)
}

// Confirm godoc
// POST /api/auction/confirm
// Body: {"team":"<admin>"}
func (h *AuctionHandler) Confirm(c *gin.Context) {
	team, ok := bindTeam(c)
	if !ok {
		return
	}
	entry, err := h.svc.Confirm(team)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, entry)
}

// Cancel godoc
// POST /api/auction/cancel
// Body: {"team":"<admin>"}
func (h *AuctionHandler) Cancel(c *gin.Context) {
	team, ok := bindTeam(c)
	if !ok {
		return
	}
	if err := h.svc.Cancel(team); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, h.svc.Status())
}

// Status godoc
// GET /api/auction/status
func (h *AuctionHandler) Status(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.svc.Status())
}

// ── History ───────────────────────────────────────────────────────────────────

// History godoc
// GET /api/history: newest first.
func (h *AuctionHandler) History(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.svc.History())
}

// DeleteHistory godoc
// POST /api/history/delete
// Body: {"team":"<admin>","id":3}
func (h *AuctionHandler) DeleteHistory(c *gin.Context) {
	var body struct {
		Team string `json:"team" binding:"required"`
		ID   int64  `json:"id"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	entry, err := h.svc.DeleteHistory(body.ID, body.Team)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, entry)
}

// ── Roster views ──────────────────────────────────────────────────────────────

// Players godoc
// GET /api/players: available players, goalkeepers first.
func (h *AuctionHandler) Players(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.svc.Players())
}

// Teams godoc
// GET /api/teams: starting and remaining budgets.
func (h *AuctionHandler) Teams(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.svc.Teams())
}

// parseIncrement reads inc as a whole number, also accepting its string
// form. Anything else, including values below 1, yields DefaultIncrement.
func parseIncrement(raw json.RawMessage) int64 {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n >= 1 {
		return n
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64); err == nil && n >= 1 {
			return n
		}
	}
	return domain.DefaultIncrement
}

// bindTeam parses a {"team": ...} body, writing the 400 itself on failure.
func bindTeam(c *gin.Context) (string, bool) {
	var body struct {
		Team string `json:"team" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return "", false
	}
	return body.Team, true
}
