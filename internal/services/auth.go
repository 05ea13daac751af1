package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/store"
)

var (
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMissingFields       = errors.New("name, email and password are required")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
)

// AuthService is the gateway the ledger sits behind: it owns password
// hashing, token issuance and user creation. The ledger core only ever
// sees the user object this hands back.
type AuthService struct {
	store store.UserStore
	jwt   *JWTService
}

func NewAuthService(userStore store.UserStore, jwtService *JWTService) *AuthService {
	return &AuthService{store: userStore, jwt: jwtService}
}

type RegisterInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, *models.User, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return "", nil, ErrMissingFields
	}
	if len(input.Password) < 6 {
		return "", nil, ErrPasswordTooShort
	}

	_, err := s.store.FindByEmail(ctx, input.Email)
	if err == nil {
		return "", nil, ErrUserExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	// An empty referral code means the user registers with no
	// referrer. A non-empty one must resolve to a real user.
	var referredBy *string
	if input.ReferralCode != "" {
		referrer, err := s.store.FindByReferralCode(ctx, input.ReferralCode)
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidReferralCode
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to validate referral code: %w", err)
		}
		code := referrer.ReferralCode
		referredBy = &code
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:         models.GenerateUserID(),
		Name:       input.Name,
		Email:      input.Email,
		Password:   string(hashed),
		ReferredBy: referredBy,
		CreatedAt:  timeNow(),
	}

	// Referral codes are random; retry on the rare collision.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := models.GenerateReferralCode()
		if err != nil {
			return "", nil, err
		}
		user.ReferralCode = code

		err = s.store.Create(ctx, user)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if errors.Is(err, store.ErrDuplicateEmail) {
			return "", nil, ErrUserExists
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to create user: %w", err)
		}

		token, err := s.jwt.IssueToken(user.ID)
		if err != nil {
			return "", nil, err
		}
		return token, user, nil
	}
	return "", nil, fmt.Errorf("failed to allocate a unique referral code")
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.IssueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// LoadSession resolves a previously issued token back to its user.
func (s *AuthService) LoadSession(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.FindByID(ctx, claims.User.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
