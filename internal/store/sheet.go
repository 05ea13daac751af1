package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
)

// SheetStore reads users from a public Google Sheet via its CSV export
// endpoint. No credentials, no API: the sheet just has to be shared
// publicly. Writes are impossible through this path, so Create and
// Update return ErrReadOnly and ledger state stays session-scoped.
type SheetStore struct {
	exportURL string
	client    *http.Client
}

func NewSheetStore(cfg *config.Config) (*SheetStore, error) {
	if cfg.SheetURL == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_URL is not configured")
	}
	return &SheetStore{
		exportURL: csvExportURL(cfg.SheetURL),
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// csvExportURL rewrites a sheet's edit URL into its CSV export URL.
func csvExportURL(sheetURL string) string {
	url := strings.Replace(sheetURL, "/edit#gid=", "/export?format=csv&gid=", 1)
	return strings.Replace(url, "/edit?usp=sharing", "/export?format=csv", 1)
}

func (s *SheetStore) fetchAll(ctx context.Context) ([]*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheet request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet fetch returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet CSV: %v", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := rows[0]
	users := make([]*models.User, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				fields[strings.TrimSpace(header)] = strings.TrimSpace(row[i])
			}
		}
		users = append(users, userFromRow(fields))
	}
	return users, nil
}

func userFromRow(fields map[string]string) *models.User {
	user := &models.User{
		ID:           fields["id"],
		Name:         fields["name"],
		Email:        fields["email"],
		Password:     fields["password"],
		ReferralCode: fields["referralCode"],
	}

	if ref := fields["referredBy"]; ref != "" {
		user.ReferredBy = &ref
	}
	user.HasDeposited = fields["hasDeposited"] == "true" || fields["hasDeposited"] == "TRUE"
	user.Wallet.Total, _ = strconv.ParseFloat(fields["total"], 64)
	user.Wallet.Deposited, _ = strconv.ParseFloat(fields["deposited"], 64)
	user.Wallet.Withdrawable, _ = strconv.ParseFloat(fields["withdrawable"], 64)
	user.TaskLevel, _ = strconv.Atoi(fields["taskLevel"])
	user.Profile.Bio = fields["bio"]
	user.Profile.City = fields["city"]
	user.Profile.Avatar = fields["avatar"]
	if created := fields["createdAt"]; created != "" {
		user.CreatedAt, _ = time.Parse(time.RFC3339, created)
	}
	return user
}

func (s *SheetStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *SheetStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	users, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ReferralCode == code {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *SheetStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	users, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *SheetStore) Create(_ context.Context, _ *models.User) error {
	return ErrReadOnly
}

func (s *SheetStore) Update(_ context.Context, _ *models.User) error {
	return ErrReadOnly
}

func (s *SheetStore) Close() error {
	return nil
}
