package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateCode  = errors.New("referral code already in use")
	// ErrReadOnly is returned by backends that cannot write, such as
	// the public Google Sheet scrape.
	ErrReadOnly = errors.New("store is read-only")
)

// UserStore is the persistence capability the auth gateway and ledger
// depend on. Email lookups are case-insensitive; referral codes are
// globally unique.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Close() error
}

// LedgerStore is implemented by backends that can persist the
// session ledger snapshot. Callers type-assert; absence means ledger
// state stays session-scoped.
type LedgerStore interface {
	SaveLedger(ctx context.Context, userID string, snap *models.LedgerSnapshot) error
	LoadLedger(ctx context.Context, userID string) (*models.LedgerSnapshot, error)
}

// Open builds the store selected by STORE_BACKEND. The backend is
// never hardcoded anywhere else; everything upstream sees UserStore.
func Open(cfg *config.Config) (UserStore, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg)
	case "mongo":
		return NewMongoStore(cfg)
	case "postgres":
		return NewGormStore(cfg)
	case "sheet":
		return NewSheetStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
