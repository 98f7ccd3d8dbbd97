package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trustedrelay/relayd/internal/database"
	"trustedrelay/relayd/internal/models"
)

// DefaultListLimit caps deposit listings when the caller does not ask for a
// specific row count.
const DefaultListLimit = 100

// Ledger is the store surface the reconciliation engine drives. It is the
// single source of truth: the engine never caches rows, and the store's
// uniqueness constraints are the only concurrency guard. *database.DB
// implements it.
type Ledger interface {
	InsertDeposit(ctx context.Context, dep *models.Deposit) error
	GetDepositByHash(ctx context.Context, hash string) (*models.Deposit, error)
	ListDeposits(ctx context.Context, filter models.DepositFilter) ([]models.Deposit, error)

	InsertRelay(ctx context.Context, relay *models.Relay) error
	GetRelayByHash(ctx context.Context, hash string) (*models.Relay, error)
	ListOrphanedRelays(ctx context.Context, limit int) ([]models.Relay, error)

	InsertLink(ctx context.Context, link *models.DepositRelayLink) error
	GetLinkByRelayID(ctx context.Context, relayID int64) (*models.DepositRelayLink, error)
	GetLinkByDepositID(ctx context.Context, depositID int64) (*models.DepositRelayLink, error)
	LinkRelay(ctx context.Context, relayID, depositID int64) error
}

// RelayResult reports what relay recording established
type RelayResult struct {
	RelayID   int64
	DepositID *int64
	Outcome   models.RelayOutcome
}

// ReconcileService implements the deposit/relay reconciliation protocol
type ReconcileService struct {
	store  Ledger
	logger *zap.Logger
}

// NewReconcileService creates a new reconciliation engine
func NewReconcileService(store Ledger, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		store:  store,
		logger: logger,
	}
}

// RecordDeposit writes a deposit row keyed by its message hash and returns
// the assigned id. Chain event listeners redeliver, so a hash that already
// exists resolves to the existing row's id rather than failing: repeated
// submission of one deposit can never yield two ids.
func (s *ReconcileService) RecordDeposit(ctx context.Context, dep *models.Deposit) (int64, error) {
	if dep.Hash == "" {
		return 0, fmt.Errorf("deposit hash is required")
	}

	err := s.store.InsertDeposit(ctx, dep)
	if err == nil {
		s.logger.Info("Deposit recorded",
			zap.Int64("deposit_id", dep.ID),
			zap.String("hash", dep.Hash))
		return dep.ID, nil
	}
	if !errors.Is(err, database.ErrDuplicateKey) {
		return 0, fmt.Errorf("failed to insert deposit: %w", err)
	}

	existing, qerr := s.store.GetDepositByHash(ctx, dep.Hash)
	if qerr != nil {
		return 0, fmt.Errorf("failed to resolve existing deposit: %w", qerr)
	}
	if existing == nil {
		// Deposits are append-only, so a conflicting hash must be readable.
		return 0, fmt.Errorf("failed to insert deposit: %w", err)
	}

	s.logger.Info("Deposit already recorded",
		zap.Int64("deposit_id", existing.ID),
		zap.String("hash", dep.Hash))
	dep.ID = existing.ID
	return existing.ID, nil
}

// RecordRelay records a relay event and links it to the deposit it fulfills.
// Steps run strictly in sequence, each a store round-trip:
//
//  1. resolve the deposit by the relay's correlation hash (a miss is not an
//     error; the relay may have arrived before its deposit was indexed),
//  2. insert the relay row carrying the resolved deposit id,
//  3. insert the link row pairing the two.
//
// Any failure aborts the remaining steps with no rollback; redelivery is
// safe because the relay insert and link insert are both deduplicated by the
// store, so a retried call converges instead of duplicating rows.
func (s *ReconcileService) RecordRelay(ctx context.Context, relay *models.Relay) (*RelayResult, error) {
	if relay.Hash == "" {
		return nil, fmt.Errorf("relay hash is required")
	}

	dep, err := s.store.GetDepositByHash(ctx, relay.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up deposit: %w", err)
	}
	if dep != nil {
		relay.DepositID = &dep.ID
	}

	err = s.store.InsertRelay(ctx, relay)
	if errors.Is(err, database.ErrDuplicateKey) {
		existing, qerr := s.store.GetRelayByHash(ctx, relay.Hash)
		if qerr != nil {
			return nil, fmt.Errorf("failed to resolve existing relay: %w", qerr)
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to insert relay: %w", err)
		}
		relay.ID = existing.ID
		if existing.DepositID != nil {
			relay.DepositID = existing.DepositID
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to insert relay: %w", err)
	}

	link, err := s.store.GetLinkByRelayID(ctx, relay.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up link: %w", err)
	}
	switch {
	case link == nil && relay.DepositID == nil:
		link = &models.DepositRelayLink{RelayID: relay.ID}
		if err := s.store.InsertLink(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to link relay %d: %w", relay.ID, err)
		}
	case relay.DepositID != nil && (link == nil || link.DepositID == nil):
		// Insert the pairing, or complete one an earlier recording left
		// with an empty deposit reference. A duplicate deposit_id here
		// means the deposit is already claimed by a different relay: the
		// double-spend the link table exists to reject.
		if err := s.store.LinkRelay(ctx, relay.ID, *relay.DepositID); err != nil {
			return nil, fmt.Errorf("failed to link relay %d: %w", relay.ID, err)
		}
		link = &models.DepositRelayLink{RelayID: relay.ID, DepositID: relay.DepositID}
	}

	result := &RelayResult{
		RelayID:   relay.ID,
		DepositID: link.DepositID,
		Outcome:   models.RelayOutcomeLinked,
	}
	if link.DepositID == nil {
		result.Outcome = models.RelayOutcomeOrphaned
		s.logger.Warn("Relay recorded without matching deposit",
			zap.Int64("relay_id", relay.ID),
			zap.String("hash", relay.Hash))
	} else {
		s.logger.Info("Relay recorded",
			zap.Int64("relay_id", relay.ID),
			zap.Int64("deposit_id", *link.DepositID),
			zap.String("hash", relay.Hash))
	}
	return result, nil
}

// ListDeposits retrieves deposits matching the filter, insertion order,
// capped at filter.Limit (default 100)
func (s *ReconcileService) ListDeposits(ctx context.Context, filter models.DepositFilter) ([]models.Deposit, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}

	deposits, err := s.store.ListDeposits(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}

// ListOrphanedRelays retrieves relays whose deposit reference is still empty
func (s *ReconcileService) ListOrphanedRelays(ctx context.Context, limit int) ([]models.Relay, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	relays, err := s.store.ListOrphanedRelays(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned relays: %w", err)
	}
	return relays, nil
}

// ResolveOrphans scans orphaned relays and back-fills the deposit link for
// any whose deposit has since been recorded. Returns the number of relays
// repaired. A deposit already claimed by another relay is left alone and
// logged; that conflict needs an operator.
func (s *ReconcileService) ResolveOrphans(ctx context.Context, limit int) (int, error) {
	orphans, err := s.ListOrphanedRelays(ctx, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, relay := range orphans {
		dep, err := s.store.GetDepositByHash(ctx, relay.Hash)
		if err != nil {
			return resolved, fmt.Errorf("failed to look up deposit for relay %d: %w", relay.ID, err)
		}
		if dep == nil {
			continue
		}

		claimed, err := s.store.GetLinkByDepositID(ctx, dep.ID)
		if err != nil {
			return resolved, fmt.Errorf("failed to look up link for deposit %d: %w", dep.ID, err)
		}
		if claimed != nil {
			if claimed.RelayID != relay.ID {
				s.logger.Warn("Deposit already claimed by another relay",
					zap.Int64("deposit_id", dep.ID),
					zap.Int64("relay_id", relay.ID),
					zap.Int64("claimed_by", claimed.RelayID))
			}
			continue
		}

		if err := s.store.LinkRelay(ctx, relay.ID, dep.ID); err != nil {
			if errors.Is(err, database.ErrDuplicateKey) {
				// Lost a race with a concurrent claim; skip.
				continue
			}
			return resolved, fmt.Errorf("failed to link relay %d: %w", relay.ID, err)
		}

		s.logger.Info("Orphaned relay resolved",
			zap.Int64("relay_id", relay.ID),
			zap.Int64("deposit_id", dep.ID))
		resolved++
	}

	return resolved, nil
}
