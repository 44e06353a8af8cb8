package webhooklogs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/models"
)

var (
	ErrNotFound     = errors.New("webhook log not found")
	ErrNotRetryable = errors.New("only failed webhook logs can be retried")
)

type Service struct {
	repo          *Repository
	retentionDays int
}

func NewService(repo *Repository, retentionDays int) *Service {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Service{repo: repo, retentionDays: retentionDays}
}

func (s *Service) Append(ctx context.Context, entry *models.WebhookLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.EventSource == "" {
		entry.EventSource = "instantly"
	}
	if entry.Status == "" {
		entry.Status = "success"
	}
	return s.repo.Append(ctx, entry)
}

type ListResult struct {
	Logs    []*models.WebhookLog `json:"logs"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Logs:    logs,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+filter.Limit < total,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, logID string) (*models.WebhookLog, error) {
	entry, err := s.repo.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *Service) Retry(ctx context.Context, logID string) error {
	retried, err := s.repo.Retry(ctx, logID)
	if err != nil {
		return err
	}
	if !retried {
		return ErrNotRetryable
	}
	return nil
}

// Purge removes audit rows older than the configured retention window.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	count, err := s.repo.Purge(ctx, time.Duration(s.retentionDays)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("logs", count).Int("retention_days", s.retentionDays).Msg("purged old webhook logs")
	}
	return count, nil
}

// Stats is the dashboard block: overall counters plus recent failures.
type Stats struct {
	Overall      *Overall             `json:"overall"`
	RecentFailed []*models.WebhookLog `json:"recent_failed"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	overall, err := s.repo.OverallStats(ctx)
	if err != nil {
		return nil, err
	}
	recentFailed, err := s.repo.RecentFailed(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &Stats{Overall: overall, RecentFailed: recentFailed}, nil
}

func (s *Service) RecentActivity(ctx context.Context, limit int) ([]*models.WebhookLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.RecentActivity(ctx, limit)
}
