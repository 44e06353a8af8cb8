package onboarding

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/models"
)

var (
	ErrNotFound     = errors.New("onboarding link not found")
	ErrInvalidState = errors.New("onboarding link is not in a state that permits this operation")
)

const (
	defaultTemplateName   = "Basic Onboarding"
	defaultWelcomeMessage = "Welcome aboard!"
	defaultExpirationDays = 7
	defaultTotalSteps     = 5
)

type Service struct {
	repo    *Repository
	baseURL string
}

func NewService(repo *Repository, baseURL string) *Service {
	return &Service{repo: repo, baseURL: baseURL}
}

// CreateRequest carries the optional knobs; zero values take defaults.
type CreateRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	CreatedBy      string `json:"created_by" validate:"required"`
	TemplateName   string `json:"template_name"`
	WelcomeMessage string `json:"welcome_message"`
	ExpirationDays int    `json:"expiration_days" validate:"min=0,max=365"`
	TotalSteps     int    `json:"total_steps" validate:"min=0,max=50"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.OnboardingLink, error) {
	if req.TemplateName == "" {
		req.TemplateName = defaultTemplateName
	}
	if req.WelcomeMessage == "" {
		req.WelcomeMessage = defaultWelcomeMessage
	}
	if req.ExpirationDays == 0 {
		req.ExpirationDays = defaultExpirationDays
	}
	if req.TotalSteps == 0 {
		req.TotalSteps = defaultTotalSteps
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate link token: %w", err)
	}

	link := &models.OnboardingLink{
		ID:             uuid.New().String(),
		OrganizationID: req.OrganizationID,
		CreatedBy:      req.CreatedBy,
		LinkToken:      token,
		LinkURL:        fmt.Sprintf("%s/o/%s", s.baseURL, token),
		TemplateName:   req.TemplateName,
		WelcomeMessage: req.WelcomeMessage,
		Status:         "active",
		TotalSteps:     req.TotalSteps,
		ExpiresAt:      time.Now().UTC().AddDate(0, 0, req.ExpirationDays),
	}
	if err := s.repo.Insert(ctx, link); err != nil {
		return nil, err
	}

	log.Info().
		Str("link_id", link.ID).
		Str("organization_id", link.OrganizationID).
		Msg("created onboarding link")
	return link, nil
}

type ListResult struct {
	Links   []*models.OnboardingLink `json:"links"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	HasMore bool                     `json:"has_more"`
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	links, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Links:   links,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+filter.Limit < total,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, linkID string) (*models.OnboardingLink, error) {
	link, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

// GetByToken is the public access path. Expiry is checked lazily here: an
// active link past its expires_at flips to expired before being returned.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.OnboardingLink, error) {
	link, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}

	if link.Status == "active" && link.ExpiresAt.Before(time.Now().UTC()) {
		if err := s.repo.MarkExpired(ctx, link.ID); err != nil {
			return nil, err
		}
		link.Status = "expired"
	}
	return link, nil
}

func (s *Service) TrackAccess(ctx context.Context, token string) error {
	return s.repo.TrackAccess(ctx, token)
}

func (s *Service) UpdateProgress(ctx context.Context, token string, currentStep, progressPercentage int) error {
	updated, err := s.repo.UpdateProgress(ctx, token, currentStep, progressPercentage)
	if err != nil {
		return err
	}
	if !updated {
		return ErrInvalidState
	}
	return nil
}

func (s *Service) Complete(ctx context.Context, token string) error {
	completed, err := s.repo.Complete(ctx, token)
	if err != nil {
		return err
	}
	if !completed {
		return ErrInvalidState
	}
	return nil
}

func (s *Service) Revoke(ctx context.Context, linkID, revokedBy, reason string) error {
	if reason == "" {
		reason = "Revoked by admin"
	}
	revoked, err := s.repo.Revoke(ctx, linkID, revokedBy, reason)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidState
	}
	return nil
}

func (s *Service) Extend(ctx context.Context, linkID string, additionalDays int) error {
	if additionalDays <= 0 {
		additionalDays = defaultExpirationDays
	}
	extended, err := s.repo.Extend(ctx, linkID, additionalDays)
	if err != nil {
		return err
	}
	if !extended {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ExpireOld(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireOld(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("links", count).Msg("expired old onboarding links")
	}
	return count, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
