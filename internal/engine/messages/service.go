package messages

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/models"
)

// OrgStats aggregates processed events for one organization. Rates are
// percentages derived from sent; both are 0 when nothing was sent.
type OrgStats struct {
	Sent      int     `json:"sent"`
	Opened    int     `json:"opened"`
	Replied   int     `json:"replied"`
	Bounced   int     `json:"bounced"`
	Clicked   int     `json:"clicked"`
	OpenRate  float64 `json:"open_rate"`
	ReplyRate float64 `json:"reply_rate"`
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Insert(ctx context.Context, m *models.Message) (string, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return s.repo.Insert(ctx, m)
}

func (s *Service) GetOrCreate(ctx context.Context, orgID, email string) (string, error) {
	id, err := s.repo.GetOrCreateContact(ctx, orgID, email)
	if err != nil {
		return "", err
	}
	log.Debug().Str("email", email).Str("contact_id", id).Msg("resolved contact")
	return id, nil
}

func (s *Service) ListForCampaign(ctx context.Context, orgID, campaignID string, limit, offset int) ([]*models.Message, error) {
	return s.repo.ListForCampaign(ctx, orgID, campaignID, limit, offset)
}

func (s *Service) ListForContact(ctx context.Context, orgID, contactID string, limit int) ([]*models.Message, error) {
	return s.repo.ListForContact(ctx, orgID, contactID, limit)
}

func (s *Service) Search(ctx context.Context, orgID, term string, limit int) ([]*models.Message, error) {
	return s.repo.Search(ctx, orgID, term, limit)
}

func (s *Service) OrgStats(ctx context.Context, orgID string) (*OrgStats, error) {
	row, err := s.repo.orgStats(ctx, orgID)
	if err != nil {
		return nil, err
	}

	stats := &OrgStats{
		Sent:    row.Sent,
		Opened:  row.Opened,
		Replied: row.Replied,
		Bounced: row.Bounced,
		Clicked: row.Clicked,
	}
	if row.Sent > 0 {
		stats.OpenRate = round2(float64(row.Opened) / float64(row.Sent) * 100)
		stats.ReplyRate = round2(float64(row.Replied) / float64(row.Sent) * 100)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
