package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"trustedrelay/relayd/internal/models"
)

// ==================== Deposit Queries ====================

// InsertDeposit writes a new deposit row and fills in its assigned id.
// A conflicting hash leaves the table untouched and returns ErrDuplicateKey;
// the existing row is reachable through GetDepositByHash.
func (db *DB) InsertDeposit(ctx context.Context, dep *models.Deposit) error {
	query := `
		INSERT INTO deposits (hash, from_chain, to_chain, sender, amount, fee, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hash) DO NOTHING
		RETURNING id
	`
	err := db.QueryRowContext(
		ctx, query,
		dep.Hash,
		dep.FromChain,
		dep.ToChain,
		dep.Sender,
		dep.Amount,
		dep.Fee,
		dep.Timestamp,
	).Scan(&dep.ID)
	if err == sql.ErrNoRows {
		return ErrDuplicateKey
	}
	return err
}

// GetDepositByHash retrieves a deposit by its message hash
func (db *DB) GetDepositByHash(ctx context.Context, hash string) (*models.Deposit, error) {
	var dep models.Deposit
	query := `
		SELECT id, hash, from_chain, to_chain, sender, amount, fee, ts
		FROM deposits
		WHERE hash = $1
	`
	err := db.GetContext(ctx, &dep, query, hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &dep, err
}

// ListDeposits retrieves deposits matching the filter in insertion order,
// capped at filter.Limit rows. Pending restricts to deposits with no link.
func (db *DB) ListDeposits(ctx context.Context, filter models.DepositFilter) ([]models.Deposit, error) {
	query := `
		SELECT d.id, d.hash, d.from_chain, d.to_chain, d.sender, d.amount, d.fee, d.ts
		FROM deposits d
	`
	where := ""
	args := []interface{}{}

	appendCond := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	if filter.Pending {
		query += ` LEFT JOIN deposit_relay_links l ON l.deposit_id = d.id`
		appendCond("l.id IS NULL")
	}
	if filter.User != "" {
		args = append(args, filter.User)
		appendCond(fmt.Sprintf("d.sender = $%d", len(args)))
	}
	if filter.ToChain != "" {
		args = append(args, filter.ToChain)
		appendCond(fmt.Sprintf("d.to_chain = $%d", len(args)))
	}

	args = append(args, filter.Limit)
	query += where + fmt.Sprintf(" ORDER BY d.id ASC LIMIT $%d", len(args))

	var deposits []models.Deposit
	err := db.SelectContext(ctx, &deposits, query, args...)
	return deposits, err
}

// ==================== Relay Queries ====================

// InsertRelay writes a new relay row and fills in its assigned id.
// A conflicting hash returns ErrDuplicateKey.
func (db *DB) InsertRelay(ctx context.Context, relay *models.Relay) error {
	query := `
		INSERT INTO relays (hash, deposit_id)
		VALUES ($1, $2)
		ON CONFLICT (hash) DO NOTHING
		RETURNING id
	`
	err := db.QueryRowContext(ctx, query, relay.Hash, relay.DepositID).Scan(&relay.ID)
	if err == sql.ErrNoRows {
		return ErrDuplicateKey
	}
	return err
}

// GetRelayByHash retrieves a relay by its message hash
func (db *DB) GetRelayByHash(ctx context.Context, hash string) (*models.Relay, error) {
	var relay models.Relay
	query := `SELECT id, hash, deposit_id FROM relays WHERE hash = $1`
	err := db.GetContext(ctx, &relay, query, hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &relay, err
}

// ListOrphanedRelays retrieves relays whose deposit is still unresolved:
// either no link row exists (a previous recording aborted partway) or the
// link carries an empty deposit reference.
func (db *DB) ListOrphanedRelays(ctx context.Context, limit int) ([]models.Relay, error) {
	var relays []models.Relay
	query := `
		SELECT r.id, r.hash, r.deposit_id
		FROM relays r
		LEFT JOIN deposit_relay_links l ON l.relay_id = r.id
		WHERE l.id IS NULL OR l.deposit_id IS NULL
		ORDER BY r.id ASC
		LIMIT $1
	`
	err := db.SelectContext(ctx, &relays, query, limit)
	return relays, err
}

// ==================== Link Queries ====================

// InsertLink writes the authoritative deposit/relay pairing. The unique
// indexes on relay_id and deposit_id surface a second claim attempt for
// either side as ErrDuplicateKey.
func (db *DB) InsertLink(ctx context.Context, link *models.DepositRelayLink) error {
	query := `
		INSERT INTO deposit_relay_links (relay_id, deposit_id)
		VALUES ($1, $2)
		RETURNING id
	`
	err := db.QueryRowContext(ctx, query, link.RelayID, link.DepositID).Scan(&link.ID)
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// GetLinkByRelayID retrieves the link referencing the given relay
func (db *DB) GetLinkByRelayID(ctx context.Context, relayID int64) (*models.DepositRelayLink, error) {
	var link models.DepositRelayLink
	query := `SELECT id, relay_id, deposit_id FROM deposit_relay_links WHERE relay_id = $1`
	err := db.GetContext(ctx, &link, query, relayID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &link, err
}

// GetLinkByDepositID retrieves the link referencing the given deposit
func (db *DB) GetLinkByDepositID(ctx context.Context, depositID int64) (*models.DepositRelayLink, error) {
	var link models.DepositRelayLink
	query := `SELECT id, relay_id, deposit_id FROM deposit_relay_links WHERE deposit_id = $1`
	err := db.GetContext(ctx, &link, query, depositID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &link, err
}

// LinkRelay back-fills the deposit reference for an orphaned relay: it sets
// relays.deposit_id and completes (or creates) the link row, in one
// transaction. Only a link with an empty deposit reference is completed; the
// unique index on deposit_id rejects a deposit already claimed elsewhere.
func (db *DB) LinkRelay(ctx context.Context, relayID, depositID int64) error {
	err := db.InTransaction(func(tx *sqlx.Tx) error {
		update := `UPDATE relays SET deposit_id = $1 WHERE id = $2 AND deposit_id IS NULL`
		if _, err := tx.ExecContext(ctx, update, depositID, relayID); err != nil {
			return fmt.Errorf("failed to update relay deposit: %w", err)
		}

		upsert := `
			INSERT INTO deposit_relay_links (relay_id, deposit_id)
			VALUES ($1, $2)
			ON CONFLICT (relay_id) DO UPDATE SET deposit_id = EXCLUDED.deposit_id
			WHERE deposit_relay_links.deposit_id IS NULL
		`
		if _, err := tx.ExecContext(ctx, upsert, relayID, depositID); err != nil {
			return fmt.Errorf("failed to upsert link: %w", err)
		}

		return nil
	})
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
