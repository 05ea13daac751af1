package services

import (
	"context"
	"sync"

	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/store"
)

// LedgerManager holds the live ledger for every authenticated session.
// A ledger is built the first time a user's session touches the API
// after login and dropped on logout.
type LedgerManager struct {
	mu      sync.Mutex
	ledgers map[string]*Ledger

	store       store.UserStore
	broadcaster Broadcaster
	opts        []LedgerOption
}

func NewLedgerManager(userStore store.UserStore, broadcaster Broadcaster, opts ...LedgerOption) *LedgerManager {
	return &LedgerManager{
		ledgers:     make(map[string]*Ledger),
		store:       userStore,
		broadcaster: broadcaster,
		opts:        opts,
	}
}

// Get returns the user's live ledger, initializing one from the given
// user record if the session has none yet.
func (m *LedgerManager) Get(ctx context.Context, user *models.User) *Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ledger, ok := m.ledgers[user.ID]; ok {
		return ledger
	}

	ledger := NewLedger(m.store, m.broadcaster, m.opts...)
	ledger.Initialize(ctx, user)
	m.ledgers[user.ID] = ledger
	return ledger
}

// Lookup returns the live ledger without creating one.
func (m *LedgerManager) Lookup(userID string) (*Ledger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger, ok := m.ledgers[userID]
	return ledger, ok
}

// Drop tears the session down on logout.
func (m *LedgerManager) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ledgers, userID)
}
