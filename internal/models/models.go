package models

// RelayOutcome distinguishes a relay that was paired with its deposit from
// one recorded before (or without) the deposit it claims to fulfill.
type RelayOutcome string

const (
	RelayOutcomeLinked   RelayOutcome = "linked"
	RelayOutcomeOrphaned RelayOutcome = "orphaned"
)

// Deposit represents tokens locked on a source chain awaiting relay.
// Rows are append-only: a deposit is never updated or deleted once written.
// Hash is the canonical message hash of the deposit event and is the natural
// key; ID is the store-assigned surrogate key.
type Deposit struct {
	ID        int64  `db:"id" json:"id"`
	Hash      string `db:"hash" json:"hash"`
	FromChain string `db:"from_chain" json:"fromChain"`
	ToChain   string `db:"to_chain" json:"toChain"`
	Sender    string `db:"sender" json:"sender"`
	Amount    string `db:"amount" json:"amount"`
	Fee       string `db:"fee" json:"fee"`
	Timestamp string `db:"ts" json:"timestamp"`
}

// Relay represents the claim transaction that pays out a deposit on the
// destination chain. DepositID is nullable: a relay can be observed before
// its deposit has been indexed and is still recorded for audit.
type Relay struct {
	ID        int64  `db:"id" json:"id"`
	Hash      string `db:"hash" json:"hash"`
	DepositID *int64 `db:"deposit_id" json:"depositId"`
}

// DepositRelayLink is the authoritative pairing of one deposit to one relay.
// RelayID and DepositID each carry a unique index, which is the
// anti-double-spend guarantee: a deposit can be claimed by at most one relay,
// and a relay can settle at most one deposit.
type DepositRelayLink struct {
	ID        int64  `db:"id" json:"id"`
	RelayID   int64  `db:"relay_id" json:"relayId"`
	DepositID *int64 `db:"deposit_id" json:"depositId"`
}

// DepositFilter narrows a deposit listing. Zero values mean "no restriction";
// Pending restricts to deposits with no link row. Limit of 0 falls back to
// the engine default.
type DepositFilter struct {
	User    string
	ToChain string
	Pending bool
	Limit   int
}
