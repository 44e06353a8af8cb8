package accounts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/instantly"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

var (
	ErrNotFound          = errors.New("email account not found")
	ErrInvalidTransition = errors.New("invalid account status transition")
)

const providerInstantly = "instantly"

// ImportResult reports the outcome of one provider import batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}

// AccountStats is the usage view for one sending mailbox.
type AccountStats struct {
	DailyLimit      int        `json:"daily_limit"`
	EmailsSentToday int        `json:"emails_sent_today"`
	EmailsSentTotal int        `json:"emails_sent_total"`
	LastEmailSentAt *time.Time `json:"last_email_sent_at,omitempty"`
	Status          string     `json:"status"`
	UsagePercentage float64    `json:"usage_percentage"`
	CampaignsCount  int        `json:"campaigns_count"`
}

type Service struct {
	repo *Repository
	pool *database.TenantPool
}

func NewService(repo *Repository, pool *database.TenantPool) *Service {
	return &Service{repo: repo, pool: pool}
}

// ImportFromProvider upserts a batch of provider accounts, deduplicated by
// (provider, provider_account_id). Per-item failures are reported, never
// aborting the batch.
func (s *Service) ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.EmailAccount) (*ImportResult, error) {
	result := &ImportResult{Total: len(items)}

	err := s.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		for _, item := range items {
			account := &models.EmailAccount{
				OrganizationID:       orgID,
				ProviderConnectionID: connectionID,
				EmailAddress:         item.Email,
				DisplayName:          item.DisplayName,
				Provider:             providerInstantly,
				ProviderAccountID:    item.ID,
				Status:               item.Status,
				DailyLimit:           item.DailyLimit,
				WarmupEnabled:        item.WarmupEnabled,
				EmailsSentToday:      item.EmailsSentToday,
				EmailsSentTotal:      item.EmailsSentTotal,
				LastEmailSentAt:      item.LastEmailSentAt,
			}

			existingID, err := s.repo.FindByProviderAccountID(ctx, q, providerInstantly, item.ID)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", item.Email, err))
				continue
			}

			if existingID != "" {
				if err := s.repo.UpdateImported(ctx, q, existingID, account); err != nil {
					result.Skipped++
					result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", item.Email, err))
					continue
				}
				result.Updated++
				log.Info().Str("email", item.Email).Msg("updated email account")
				continue
			}

			account.ID = uuid.New().String()
			if err := s.repo.Insert(ctx, q, account); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", item.Email, err))
				continue
			}
			result.Imported++
			log.Info().Str("email", item.Email).Msg("imported email account")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// allowedTransitions captures the administrative state machine:
// active <-> paused, plus reactivating a suspended account. The
// active -> suspended edge is driven by webhook errors through HandleError,
// not through this path.
var allowedTransitions = map[string]map[string]bool{
	"active":    {"paused": true},
	"paused":    {"active": true},
	"suspended": {"active": true},
}

func (s *Service) UpdateStatus(ctx context.Context, orgID, accountID, status string) error {
	current, err := s.repo.GetStatus(ctx, orgID, accountID)
	if err != nil {
		return err
	}
	if current == "" {
		return ErrNotFound
	}
	if !allowedTransitions[current][status] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	return s.repo.UpdateStatus(ctx, orgID, accountID, status)
}

func (s *Service) IncrementSentCounters(ctx context.Context, accountID string) error {
	return s.repo.IncrementSentCounters(ctx, accountID)
}

func (s *Service) ResetDailyCounters(ctx context.Context) (int64, error) {
	count, err := s.repo.ResetDailyCounters(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("accounts", count).Msg("reset daily send counters")
	return count, nil
}

func (s *Service) HandleError(ctx context.Context, emailAddress, errorText string) error {
	handled, err := s.repo.HandleError(ctx, emailAddress, errorText)
	if err != nil {
		return err
	}
	if !handled {
		log.Warn().Str("email", emailAddress).Msg("account error for unknown email address")
	}
	return nil
}

func (s *Service) GetByEmail(ctx context.Context, emailAddress string) (*models.EmailAccount, error) {
	return s.repo.GetByEmail(ctx, emailAddress)
}

func (s *Service) ListForOrg(ctx context.Context, orgID string, limit, offset int) ([]*models.EmailAccount, error) {
	return s.repo.ListForOrg(ctx, orgID, limit, offset)
}

func (s *Service) ListAllAdmin(ctx context.Context, limit, offset int) ([]*models.EmailAccount, error) {
	return s.repo.ListAllAdmin(ctx, limit, offset)
}

func (s *Service) Stats(ctx context.Context, orgID, accountID string) (*AccountStats, error) {
	row, err := s.repo.usage(ctx, orgID, accountID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}

	stats := &AccountStats{
		DailyLimit:      row.DailyLimit,
		EmailsSentToday: row.EmailsSentToday,
		EmailsSentTotal: row.EmailsSentTotal,
		Status:          row.Status,
		CampaignsCount:  row.CampaignsCount,
	}
	if row.LastEmailSentAt.Valid {
		t := row.LastEmailSentAt.Time
		stats.LastEmailSentAt = &t
	}
	if row.DailyLimit > 0 {
		pct := float64(row.EmailsSentToday) / float64(row.DailyLimit) * 100
		stats.UsagePercentage = math.Round(pct*100) / 100
	}
	return stats, nil
}
