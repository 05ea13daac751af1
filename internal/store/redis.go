package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
)

// RedisStore keeps user records as JSON values with email and
// referral-code index keys pointing at the record key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.client.Get(ctx, fmt.Sprintf(KeyEmailIndex, strings.ToLower(email))).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve email index: %v", err)
	}
	return s.FindByID(ctx, id)
}

func (s *RedisStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	id, err := s.client.Get(ctx, fmt.Sprintf(KeyCodeIndex, code)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve code index: %v", err)
	}
	return s.FindByID(ctx, id)
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyUserRecord, id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user record: %v", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}

func (s *RedisStore) Create(ctx context.Context, user *models.User) error {
	emailKey := fmt.Sprintf(KeyEmailIndex, strings.ToLower(user.Email))
	codeKey := fmt.Sprintf(KeyCodeIndex, user.ReferralCode)

	// SETNX on the index keys is the uniqueness guard.
	ok, err := s.client.SetNX(ctx, emailKey, user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve email: %v", err)
	}
	if !ok {
		return ErrDuplicateEmail
	}

	ok, err = s.client.SetNX(ctx, codeKey, user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve referral code: %v", err)
	}
	if !ok {
		s.client.Del(ctx, emailKey)
		return ErrDuplicateCode
	}

	if err := s.writeRecord(ctx, user); err != nil {
		s.client.Del(ctx, emailKey, codeKey)
		return err
	}

	s.client.Incr(ctx, KeyUserCounter)
	return nil
}

func (s *RedisStore) Update(ctx context.Context, user *models.User) error {
	exists, err := s.client.Exists(ctx, fmt.Sprintf(KeyUserRecord, user.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check user record: %v", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.writeRecord(ctx, user)
}

func (s *RedisStore) writeRecord(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyUserRecord, user.ID), data, 0).Err()
}

func (s *RedisStore) SaveLedger(ctx context.Context, userID string, snap *models.LedgerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger snapshot: %v", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyUserLedger, userID), data, 0).Err()
}

func (s *RedisStore) LoadLedger(ctx context.Context, userID string) (*models.LedgerSnapshot, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyUserLedger, userID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger snapshot: %v", err)
	}

	var snap models.LedgerSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger snapshot: %v", err)
	}
	return &snap, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
