package api

import (
	"trustedrelay/relayd/internal/models"
	"trustedrelay/relayd/internal/signer"
)

// The upstream chain watchers and the bridge UI predate this service and
// inspect the body-embedded status field, not just the transport status
// line, so every envelope carries it.

// DepositSig carries the signature block of a deposit event; only the
// canonical message hash m is needed here (it keys the deposit row).
type DepositSig struct {
	M string `json:"m"`
}

// DepositRequest is a bridge deposit event as delivered by a chain watcher
type DepositRequest struct {
	FromChain string     `json:"fromChain"`
	ToChain   string     `json:"toChain"`
	Sender    string     `json:"sender"`
	Amount    string     `json:"amount"`
	Fee       string     `json:"fee"`
	Timestamp string     `json:"timestamp"`
	Sig       DepositSig `json:"sig"`
}

// DepositResponse acknowledges a recorded deposit with its assigned id
type DepositResponse struct {
	Status int   `json:"status"`
	ID     int64 `json:"id"`
}

// RelayRequest is a relay (claim) event; Hash is the correlation key that
// matches the deposit it fulfills
type RelayRequest struct {
	Hash string `json:"hash"`
}

// RelayResponse acknowledges a recorded relay. Outcome distinguishes a
// linked relay from an orphaned one (deposit not yet indexed).
type RelayResponse struct {
	Status  int                 `json:"status"`
	Success bool                `json:"success"`
	Outcome models.RelayOutcome `json:"outcome"`
}

// SignResponse carries a claim authorization signature
type SignResponse struct {
	Status int               `json:"status"`
	Result *signer.Signature `json:"result"`
}

// DepositsResponse carries a deposit listing
type DepositsResponse struct {
	Status int              `json:"status"`
	Result []models.Deposit `json:"result"`
}

// OrphanedRelaysResponse carries the operator view of unlinked relays
type OrphanedRelaysResponse struct {
	Status int            `json:"status"`
	Result []models.Relay `json:"result"`
}

// ErrorResponse is the generic failure envelope
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
