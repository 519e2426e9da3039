// Package http provides HTTP handlers for user balances.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ordersaga/internal/balance/http/dto"
	"github.com/allisson/ordersaga/internal/balance/usecase"
	"github.com/allisson/ordersaga/internal/httputil"
)

// BalanceHandler handles HTTP requests for balances.
type BalanceHandler struct {
	balanceUseCase usecase.BalanceUseCase
	logger         *slog.Logger
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUseCase usecase.BalanceUseCase, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{balanceUseCase: balanceUseCase, logger: logger}
}

// GetHandler returns a user's balance.
// GET /v1/balances/:user_id
func (h *BalanceHandler) GetHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "user_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	balance, err := h.balanceUseCase.Get(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBalanceToResponse(balance))
}

// ChargeHandler tops up a user's balance.
// POST /v1/balances/:user_id/charge
func (h *BalanceHandler) ChargeHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "user_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ChargeBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	balance, err := h.balanceUseCase.Charge(c.Request.Context(), userID, req.Amount)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBalanceToResponse(balance))
}
