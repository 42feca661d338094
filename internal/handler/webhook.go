package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmslot/seamless-wallet/internal/provider"
	"github.com/mmslot/seamless-wallet/internal/settlement"
)

// SeamlessHandler handles seamless-wallet provider callbacks.
// All endpoints receive the raw request body: signatures are computed over
// the exact bytes sent, so no JSON middleware may touch the body first.
type SeamlessHandler struct {
	adapter *provider.SeamlessAdapter
	svc     *settlement.Service
	logger  *slog.Logger
}

// NewSeamlessHandler creates a new SeamlessHandler.
func NewSeamlessHandler(adapter *provider.SeamlessAdapter, svc *settlement.Service, logger *slog.Logger) *SeamlessHandler {
	return &SeamlessHandler{adapter: adapter, svc: svc, logger: logger}
}

// HandleSettle handles POST /webhooks/seamless/settle.
func (h *SeamlessHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.svc.PlaceBet)
}

// HandleRefund handles POST /webhooks/seamless/refund.
func (h *SeamlessHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.svc.Refund)
}

func (h *SeamlessHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	settle func(ctx context.Context, req settlement.Request) (*settlement.Result, error),
) {
	wire, body, err := h.adapter.ParseRequest(r)
	if err != nil {
		h.logger.Warn("malformed webhook body", "error", err)
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "malformed request body",
		})
		return
	}

	if !h.adapter.VerifySignature(body, r.Header.Get(provider.SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", "message_id", wire.MessageID)
		RespondJSON(w, http.StatusUnauthorized, map[string]string{
			"code":    "INVALID_SIGNATURE",
			"message": "signature verification failed",
		})
		return
	}

	req, err := h.adapter.ToSettlementRequest(wire, body)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := settle(r.Context(), req)
	if err != nil {
		h.logger.Error("settlement failed",
			"message_id", req.MessageID,
			"user_id", req.UserID,
			"error", err,
		)
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message_id":     req.MessageID,
		"balance_before": provider.FormatCents(result.BalanceBefore),
		"balance_after":  provider.FormatCents(result.BalanceAfter),
	})
}

// HandleBalance handles GET /webhooks/seamless/balance/{memberID}: the
// provider's balance probe. The signature covers the member id path segment.
func (h *SeamlessHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	memberParam := chi.URLParam(r, "memberID")
	userID, err := strconv.ParseInt(memberParam, 10, 64)
	if err != nil || userID <= 0 {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid member id",
		})
		return
	}

	if !h.adapter.VerifySignature([]byte(memberParam), r.Header.Get(provider.SignatureHeader)) {
		RespondJSON(w, http.StatusUnauthorized, map[string]string{
			"code":    "INVALID_SIGNATURE",
			"message": "signature verification failed",
		})
		return
	}

	balance, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"member":  memberParam,
		"balance": provider.FormatCents(balance),
	})
}
