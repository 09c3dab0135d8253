package handler

import (
	"blackjack-engine/internal/adapter/http/dto"
	"blackjack-engine/internal/adapter/http/middleware"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/pkg/apperror"
	"blackjack-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	ledger ports.Ledger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		Balance:   balance.Balance,
		Locked:    balance.Locked,
		Available: balance.Available,
	})
}
