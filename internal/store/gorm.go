package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
)

// GormStore persists users in Postgres. Wallet and profile fields are
// flattened into columns; the ledger snapshot is stored as JSON.
type GormStore struct {
	db *gorm.DB
}

type userRecord struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	Email      string
	EmailLower string `gorm:"uniqueIndex"`
	Password   string

	ReferralCode string `gorm:"uniqueIndex"`
	ReferredBy   *string

	WalletTotal        float64
	WalletDeposited    float64
	WalletWithdrawable float64
	HasDeposited       bool
	TaskLevel          int

	Bio    string
	City   string
	Avatar string

	CreatedAt time.Time
}

type ledgerRecord struct {
	UserID    string `gorm:"primaryKey"`
	Snapshot  string
	UpdatedAt time.Time
}

func NewGormStore(cfg *config.Config) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	if err := db.AutoMigrate(&userRecord{}, &ledgerRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %v", err)
	}

	return &GormStore{db: db}, nil
}

func toRecord(u *models.User) *userRecord {
	return &userRecord{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		EmailLower:         strings.ToLower(u.Email),
		Password:           u.Password,
		ReferralCode:       u.ReferralCode,
		ReferredBy:         u.ReferredBy,
		WalletTotal:        u.Wallet.Total,
		WalletDeposited:    u.Wallet.Deposited,
		WalletWithdrawable: u.Wallet.Withdrawable,
		HasDeposited:       u.HasDeposited,
		TaskLevel:          u.TaskLevel,
		Bio:                u.Profile.Bio,
		City:               u.Profile.City,
		Avatar:             u.Profile.Avatar,
		CreatedAt:          u.CreatedAt,
	}
}

func (r *userRecord) toUser() *models.User {
	return &models.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		ReferralCode: r.ReferralCode,
		ReferredBy:   r.ReferredBy,
		Wallet: models.Wallet{
			Total:        r.WalletTotal,
			Deposited:    r.WalletDeposited,
			Withdrawable: r.WalletWithdrawable,
		},
		HasDeposited: r.HasDeposited,
		TaskLevel:    r.TaskLevel,
		Profile: models.Profile{
			Bio:    r.Bio,
			City:   r.City,
			Avatar: r.Avatar,
		},
		CreatedAt: r.CreatedAt,
	}
}

func (s *GormStore) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var record userRecord
	err := s.db.WithContext(ctx).Where(query, args...).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %v", err)
	}
	return record.toUser(), nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email_lower = ?", strings.ToLower(email))
}

func (s *GormStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.findOne(ctx, "referral_code = ?", code)
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *GormStore) Create(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(toRecord(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if _, ferr := s.FindByEmail(ctx, user.Email); ferr == nil {
			return ErrDuplicateEmail
		}
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, user *models.User) error {
	// Select("*") so zero values (false, 0) overwrite too.
	res := s.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", user.ID).
		Select("*").
		Updates(toRecord(user))
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SaveLedger(ctx context.Context, userID string, snap *models.LedgerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger snapshot: %v", err)
	}

	record := ledgerRecord{UserID: userID, Snapshot: string(data), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Save(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %v", err)
	}
	return nil
}

func (s *GormStore) LoadLedger(ctx context.Context, userID string) (*models.LedgerSnapshot, error) {
	var record ledgerRecord
	err := s.db.WithContext(ctx).First(&record, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger snapshot: %v", err)
	}

	var snap models.LedgerSnapshot
	if err := json.Unmarshal([]byte(record.Snapshot), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger snapshot: %v", err)
	}
	return &snap, nil
}

func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
