package campaigns

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/instantly"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

var ErrNotFound = errors.New("campaign not found")

// ImportResult reports the outcome of one provider import batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}

type Service struct {
	repo *Repository
	pool *database.TenantPool
}

func NewService(repo *Repository, pool *database.TenantPool) *Service {
	return &Service{repo: repo, pool: pool}
}

// ImportFromProvider upserts a batch of provider campaigns for one
// organization. A second import of the same external id updates the row
// instead of inserting. Per-item failures are counted and reported, never
// aborting the batch.
func (s *Service) ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.Campaign) (*ImportResult, error) {
	result := &ImportResult{Total: len(items)}

	err := s.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		for _, item := range items {
			existing, err := s.repo.FindByOrgAndExternalID(ctx, q, orgID, item.ID)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("campaign %s: %v", item.ID, err))
				continue
			}

			if existing != nil {
				if err := s.repo.UpdateImported(ctx, q, existing.ID, item.Name, item.Status, item.WorkspaceID); err != nil {
					result.Skipped++
					result.Errors = append(result.Errors, fmt.Sprintf("campaign %s: %v", item.ID, err))
					continue
				}
				result.Updated++
				log.Info().Str("campaign", item.Name).Str("external_id", item.ID).Msg("updated campaign")
				continue
			}

			campaign := &models.Campaign{
				ID:                   uuid.New().String(),
				OrganizationID:       orgID,
				ProviderConnectionID: connectionID,
				ExternalID:           item.ID,
				Name:                 item.Name,
				Status:               item.Status,
				WorkspaceID:          item.WorkspaceID,
			}
			if err := s.repo.Insert(ctx, q, campaign); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("campaign %s: %v", item.ID, err))
				continue
			}
			result.Imported++
			log.Info().Str("campaign", item.Name).Str("external_id", item.ID).Msg("imported campaign")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*models.Campaign, error) {
	return s.repo.GetByExternalID(ctx, externalID)
}

func (s *Service) UpdateStatus(ctx context.Context, campaignID, status string) error {
	return s.repo.UpdateStatus(ctx, campaignID, status)
}

// UpdateStatusForOrg updates a campaign the organization owns; an id
// belonging to another org reports ErrNotFound.
func (s *Service) UpdateStatusForOrg(ctx context.Context, orgID, campaignID, status string) error {
	updated, err := s.repo.UpdateStatusForOrg(ctx, orgID, campaignID, status)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}
	return nil
}

func (s *Service) AssignEmailAccount(ctx context.Context, orgID, campaignID, accountID string) error {
	return s.repo.AssignEmailAccount(ctx, orgID, campaignID, accountID)
}

func (s *Service) ListForOrg(ctx context.Context, orgID string, limit, offset int) ([]*models.Campaign, error) {
	return s.repo.ListForOrg(ctx, orgID, limit, offset)
}

func (s *Service) ListAllAdmin(ctx context.Context, limit, offset int) ([]*models.Campaign, error) {
	return s.repo.ListAllAdmin(ctx, limit, offset)
}

func (s *Service) Stats(ctx context.Context, orgID, campaignID string) (*Stats, error) {
	return s.repo.Stats(ctx, orgID, campaignID)
}
