package store

import (
	"context"
	"strings"
	"sync"

	"github.com/qubotech/Referral/internal/models"
)

// MemoryStore keeps everything in process. It is the default backend
// for development and the one the tests run against.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*models.User // keyed by ID
	byEmail map[string]string       // lowercased email -> ID
	byCode  map[string]string       // referral code -> ID
	ledgers map[string]*models.LedgerSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		byCode:  make(map[string]string),
		ledgers: make(map[string]*models.LedgerSnapshot),
	}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return ErrDuplicateEmail
	}
	if _, exists := s.byCode[user.ReferralCode]; exists {
		return ErrDuplicateCode
	}

	s.users[user.ID] = copyUser(user)
	s.byEmail[email] = user.ID
	s.byCode[user.ReferralCode] = user.ID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *MemoryStore) SaveLedger(_ context.Context, userID string, snap *models.LedgerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *snap
	copied.Tasks = append([]models.ReferralTask(nil), snap.Tasks...)
	copied.TeamMembers = append([]models.TeamMember(nil), snap.TeamMembers...)
	copied.Transactions = append([]models.Transaction(nil), snap.Transactions...)
	s.ledgers[userID] = &copied
	return nil
}

func (s *MemoryStore) LoadLedger(_ context.Context, userID string) (*models.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.ledgers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *snap
	copied.Tasks = append([]models.ReferralTask(nil), snap.Tasks...)
	copied.TeamMembers = append([]models.TeamMember(nil), snap.TeamMembers...)
	copied.Transactions = append([]models.Transaction(nil), snap.Transactions...)
	return &copied, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyUser(u *models.User) *models.User {
	copied := *u
	return &copied
}
