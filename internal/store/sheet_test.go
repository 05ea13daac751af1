package store_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/store"
)

const sheetCSV = `id,name,email,password,referralCode,referredBy,hasDeposited,total,deposited,withdrawable,taskLevel,bio,city,avatar,createdAt
u1,Ravi Kumar,ravi@example.com,$2a$10$hash,REFAAA111,,true,250,500,250,1,Hello,Pune,avatar-1,2025-04-01T10:00:00Z
u2,Meena Iyer,meena@example.com,$2a$10$hash,REFBBB222,REFAAA111,false,0,0,0,0,,,,
`

func setupSheetStore(t *testing.T) *store.SheetStore {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sheetCSV))
	}))
	t.Cleanup(server.Close)

	s, err := store.NewSheetStore(&config.Config{SheetURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to build sheet store: %v", err)
	}
	return s
}

func TestSheetStoreLookups(t *testing.T) {
	s := setupSheetStore(t)
	ctx := context.Background()

	user, err := s.FindByEmail(ctx, "RAVI@example.com")
	if err != nil {
		t.Fatalf("Email lookup should ignore case: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ravi Kumar" {
		t.Errorf("Unexpected user: %+v", user)
	}
	if !user.HasDeposited || user.Wallet.Deposited != 500 || user.Wallet.Withdrawable != 250 {
		t.Errorf("Wallet fields should parse, got %+v", user.Wallet)
	}
	if user.TaskLevel != 1 {
		t.Errorf("Task level should parse, got %d", user.TaskLevel)
	}

	referred, err := s.FindByReferralCode(ctx, "REFBBB222")
	if err != nil {
		t.Fatalf("Failed to find by referral code: %v", err)
	}
	if referred.ReferredBy == nil || *referred.ReferredBy != "REFAAA111" {
		t.Errorf("ReferredBy should parse, got %v", referred.ReferredBy)
	}

	if _, err := s.FindByID(ctx, "u3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Unknown ID should return ErrNotFound, got %v", err)
	}
}

func TestSheetStoreIsReadOnly(t *testing.T) {
	s := setupSheetStore(t)
	ctx := context.Background()

	err := s.Create(ctx, &models.User{ID: "u9", Email: "new@example.com", ReferralCode: "REFZZZ999"})
	if !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("Create should be read-only, got %v", err)
	}

	err = s.Update(ctx, &models.User{ID: "u1"})
	if !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("Update should be read-only, got %v", err)
	}
}
