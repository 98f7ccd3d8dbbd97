package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"trustedrelay/relayd/internal/models"
	"trustedrelay/relayd/internal/service"
)

// lockedLedger is the minimal Ledger an orphan-resolution pass touches,
// guarded for concurrent access from the worker goroutine.
type lockedLedger struct {
	mu      sync.Mutex
	deposit *models.Deposit
	relay   *models.Relay
	link    *models.DepositRelayLink
}

func (l *lockedLedger) InsertDeposit(context.Context, *models.Deposit) error { return nil }
func (l *lockedLedger) ListDeposits(context.Context, models.DepositFilter) ([]models.Deposit, error) {
	return nil, nil
}
func (l *lockedLedger) InsertRelay(context.Context, *models.Relay) error { return nil }
func (l *lockedLedger) GetRelayByHash(context.Context, string) (*models.Relay, error) {
	return nil, nil
}
func (l *lockedLedger) InsertLink(context.Context, *models.DepositRelayLink) error { return nil }
func (l *lockedLedger) GetLinkByRelayID(context.Context, int64) (*models.DepositRelayLink, error) {
	return nil, nil
}

func (l *lockedLedger) GetDepositByHash(_ context.Context, hash string) (*models.Deposit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deposit != nil && l.deposit.Hash == hash {
		dep := *l.deposit
		return &dep, nil
	}
	return nil, nil
}

func (l *lockedLedger) ListOrphanedRelays(context.Context, int) ([]models.Relay, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.relay != nil && l.link == nil {
		return []models.Relay{*l.relay}, nil
	}
	return nil, nil
}

func (l *lockedLedger) GetLinkByDepositID(context.Context, int64) (*models.DepositRelayLink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.link != nil {
		link := *l.link
		return &link, nil
	}
	return nil, nil
}

func (l *lockedLedger) LinkRelay(_ context.Context, relayID, depositID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.link = &models.DepositRelayLink{ID: 1, RelayID: relayID, DepositID: &depositID}
	return nil
}

func (l *lockedLedger) currentLink() *models.DepositRelayLink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.link
}

func TestReconcilerResolvesOrphan(t *testing.T) {
	store := &lockedLedger{
		deposit: &models.Deposit{ID: 1, Hash: "0xabc"},
		relay:   &models.Relay{ID: 2, Hash: "0xabc"},
	}
	engine := service.NewReconcileService(store, zap.NewNop())

	reconciler := NewReconciler(engine, 10*time.Millisecond, 100, zap.NewNop())
	reconciler.Start()
	defer reconciler.Shutdown(time.Second)

	deadline := time.After(2 * time.Second)
	for store.currentLink() == nil {
		select {
		case <-deadline:
			t.Fatal("reconciler did not resolve the orphan in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	link := store.currentLink()
	if link.RelayID != 2 || link.DepositID == nil || *link.DepositID != 1 {
		t.Errorf("unexpected link: %+v", link)
	}
}

func TestReconcilerShutdown(t *testing.T) {
	engine := service.NewReconcileService(&lockedLedger{}, zap.NewNop())
	reconciler := NewReconciler(engine, 10*time.Millisecond, 100, zap.NewNop())
	reconciler.Start()

	if err := reconciler.Shutdown(time.Second); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
