package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"trustedrelay/relayd/internal/models"
	"trustedrelay/relayd/internal/service"
	"trustedrelay/relayd/internal/signer"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	engine *service.ReconcileService
	signer *signer.Signer
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(engine *service.ReconcileService, sgn *signer.Signer, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		signer: sgn,
		logger: logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	respondJSON(w, http.StatusOK, response)
}

// ==================== Deposit Recording ====================

// HandleDeposit handles POST /deposit
// Records a deposit event keyed by its canonical message hash (sig.m)
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode deposit event", zap.Error(err))
		respondError(w, "invalid request body: "+err.Error())
		return
	}

	dep := &models.Deposit{
		Hash:      req.Sig.M,
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
		Sender:    req.Sender,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Timestamp: req.Timestamp,
	}

	id, err := h.engine.RecordDeposit(r.Context(), dep)
	if err != nil {
		h.logger.Error("Failed to record deposit",
			zap.String("hash", req.Sig.M),
			zap.Error(err))
		respondError(w, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, DepositResponse{Status: http.StatusOK, ID: id})
}

// ==================== Claim Signing ====================

// HandleSign handles GET /sign
// Signs a claim message supplied as query parameters:
// { fromChain, toChain, oldToken, sender, amount, fee, timestamp }
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msg := signer.ClaimMessage{
		FromChain: q.Get("fromChain"),
		ToChain:   q.Get("toChain"),
		OldToken:  q.Get("oldToken"),
		Sender:    q.Get("sender"),
		Amount:    q.Get("amount"),
		Fee:       q.Get("fee"),
		Timestamp: q.Get("timestamp"),
	}

	sig, err := h.signer.Sign(msg)
	if err != nil {
		h.logger.Error("Failed to sign claim message", zap.Error(err))
		respondError(w, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SignResponse{Status: http.StatusOK, Result: sig})
}

// ==================== Relay Recording ====================

// HandleRelay handles POST /relay
// Records a relay event and links it to the deposit it fulfills
func (h *Handler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode relay event", zap.Error(err))
		respondError(w, "invalid request body: "+err.Error())
		return
	}

	result, err := h.engine.RecordRelay(r.Context(), &models.Relay{Hash: req.Hash})
	if err != nil {
		h.logger.Error("Failed to record relay",
			zap.String("hash", req.Hash),
			zap.Error(err))
		respondError(w, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RelayResponse{
		Status:  http.StatusOK,
		Success: true,
		Outcome: result.Outcome,
	})
}

// ==================== Deposit Queries ====================

// HandleDeposits handles GET /deposits
// Query parameters: user, toChainId, pending, n (default 100)
func (h *Handler) HandleDeposits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DepositFilter{
		User:    q.Get("user"),
		ToChain: q.Get("toChainId"),
		Pending: q.Get("pending") == "true",
	}
	if nStr := q.Get("n"); nStr != "" {
		if n, err := strconv.Atoi(nStr); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	deposits, err := h.engine.ListDeposits(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list deposits", zap.Error(err))
		respondError(w, err.Error())
		return
	}
	if deposits == nil {
		deposits = []models.Deposit{}
	}

	respondJSON(w, http.StatusOK, DepositsResponse{Status: http.StatusOK, Result: deposits})
}

// HandleOrphanedRelays handles GET /relays/orphaned
// Operator view of relays whose deposit reference is still empty
func (h *Handler) HandleOrphanedRelays(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		if n, err := strconv.Atoi(nStr); err == nil && n > 0 {
			limit = n
		}
	}

	relays, err := h.engine.ListOrphanedRelays(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list orphaned relays", zap.Error(err))
		respondError(w, err.Error())
		return
	}
	if relays == nil {
		relays = []models.Relay{}
	}

	respondJSON(w, http.StatusOK, OrphanedRelaysResponse{Status: http.StatusOK, Result: relays})
}

// ==================== Helper Functions ====================

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already written; nothing more to send.
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends the generic failure envelope. The status field is
// embedded in the body and mirrored on the transport line.
func respondError(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusInternalServerError, ErrorResponse{
		Status: http.StatusInternalServerError,
		Error:  message,
	})
}
