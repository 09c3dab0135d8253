package handler

import (
	"blackjack-engine/internal/adapter/http/dto"
	"blackjack-engine/internal/adapter/http/middleware"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/pkg/apperror"
	"blackjack-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoundHandler exposes the round engine to players.
type RoundHandler struct {
	roundSvc ports.RoundService
}

// NewRoundHandler creates a new RoundHandler.
func NewRoundHandler(roundSvc ports.RoundService) *RoundHandler {
	return &RoundHandler{roundSvc: roundSvc}
}

// CreateRound handles POST /api/v1/rounds.
func (h *RoundHandler) CreateRound(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.roundSvc.CreateRound(c.Request.Context(), ports.CreateRoundRequest{
		UserID:     userID,
		BetAmount:  req.BetAmount,
		ClientSeed: req.ClientSeed,
		Table:      req.Table.ToDomain(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ApplyAction handles POST /api/v1/rounds/:id/actions.
func (h *RoundHandler) ApplyAction(c *gin.Context) {
	userID, roundID, ok := roundParams(c)
	if !ok {
		return
	}

	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	view, err := h.roundSvc.ApplyAction(c.Request.Context(), ports.ActionRequest{
		RoundID: roundID,
		UserID:  userID,
		Action:  req.ToDomain(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, view)
}

// Settle handles POST /api/v1/rounds/:id/settle.
func (h *RoundHandler) Settle(c *gin.Context) {
	userID, roundID, ok := roundParams(c)
	if !ok {
		return
	}

	view, err := h.roundSvc.ForceSettle(c.Request.Context(), roundID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, view)
}

// GetRound handles GET /api/v1/rounds/:id.
func (h *RoundHandler) GetRound(c *gin.Context) {
	userID, roundID, ok := roundParams(c)
	if !ok {
		return
	}

	view, err := h.roundSvc.GetRound(c.Request.Context(), roundID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, view)
}

// Reveal handles GET /api/v1/rounds/:id/reveal.
func (h *RoundHandler) Reveal(c *gin.Context) {
	userID, roundID, ok := roundParams(c)
	if !ok {
		return
	}

	reveal, err := h.roundSvc.Reveal(c.Request.Context(), roundID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, reveal)
}

// AuditTrail handles GET /api/v1/rounds/:id/audit.
func (h *RoundHandler) AuditTrail(c *gin.Context) {
	userID, roundID, ok := roundParams(c)
	if !ok {
		return
	}

	entries, err := h.roundSvc.AuditTrail(c.Request.Context(), roundID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAuditTrailResponse(roundID, entries))
}

// roundParams reads the caller and the :id path parameter. It writes the
// error response itself when either is missing or malformed.
func roundParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, uuid.Nil, false
	}
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrRoundNotFound())
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roundID, true
}
