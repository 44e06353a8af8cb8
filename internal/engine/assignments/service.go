package assignments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

var ErrNoAssignableUsers = errors.New("no active users available for assignment")

// FailedItem reports one item of a bulk request that could not be applied.
type FailedItem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult always reports both counts plus the specific failures.
type BulkResult struct {
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Failed       []FailedItem `json:"failed,omitempty"`
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CampaignAssignmentRequest assigns one user to a set of campaigns.
type CampaignAssignmentRequest struct {
	UserID            string   `json:"user_id" validate:"required"`
	CampaignIDs       []string `json:"campaign_ids" validate:"required,min=1"`
	AssignedBy        string   `json:"assigned_by" validate:"required"`
	OrganizationID    string   `json:"organization_id" validate:"required"`
	Role              string   `json:"role" validate:"omitempty,oneof=owner admin member viewer"`
	CanEdit           bool     `json:"can_edit"`
	CanViewStats      bool     `json:"can_view_stats"`
	CanManageContacts bool     `json:"can_manage_contacts"`
}

func (s *Service) AssignUserToCampaigns(ctx context.Context, req CampaignAssignmentRequest) (*BulkResult, error) {
	if req.Role == "" {
		req.Role = "member"
	}

	result := &BulkResult{}
	err := s.repo.WithOrg(ctx, req.OrganizationID, func(q database.Querier) error {
		for _, campaignID := range req.CampaignIDs {
			assignment := &models.CampaignAssignment{
				ID:                uuid.New().String(),
				UserID:            req.UserID,
				CampaignID:        campaignID,
				OrganizationID:    req.OrganizationID,
				AssignedBy:        req.AssignedBy,
				Role:              req.Role,
				CanEdit:           req.CanEdit,
				CanViewStats:      req.CanViewStats,
				CanManageContacts: req.CanManageContacts,
			}
			if err := s.repo.UpsertCampaignAssignment(ctx, q, assignment); err != nil {
				result.FailedCount++
				result.Failed = append(result.Failed, FailedItem{ID: campaignID, Error: err.Error()})
				continue
			}
			result.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ContactAssignmentRequest assigns a set of contacts to one user.
type ContactAssignmentRequest struct {
	UserID         string   `json:"user_id" validate:"required"`
	ContactIDs     []string `json:"contact_ids" validate:"required,min=1"`
	AssignedBy     string   `json:"assigned_by" validate:"required"`
	OrganizationID string   `json:"organization_id" validate:"required"`
	AssignmentType string   `json:"assignment_type" validate:"omitempty,oneof=manual round_robin lead_score territory"`
}

func (s *Service) AssignContactsToUser(ctx context.Context, req ContactAssignmentRequest) (*BulkResult, error) {
	if req.AssignmentType == "" {
		req.AssignmentType = "manual"
	}

	result := &BulkResult{}
	err := s.repo.WithOrg(ctx, req.OrganizationID, func(q database.Querier) error {
		for _, contactID := range req.ContactIDs {
			assignment := &models.ContactAssignment{
				ID:             uuid.New().String(),
				UserID:         req.UserID,
				ContactID:      contactID,
				OrganizationID: req.OrganizationID,
				AssignedBy:     req.AssignedBy,
				AssignmentType: req.AssignmentType,
				IsPrimaryOwner: true,
			}
			if err := s.repo.UpsertContactAssignment(ctx, q, assignment); err != nil {
				result.FailedCount++
				result.Failed = append(result.Failed, FailedItem{ID: contactID, Error: err.Error()})
				continue
			}
			result.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UserAssignments is the per-user view of campaigns and contacts.
type UserAssignments struct {
	Campaigns      []*models.CampaignAssignment `json:"campaigns"`
	Contacts       []*models.ContactAssignment  `json:"contacts"`
	CampaignsCount int                          `json:"campaigns_count"`
	ContactsCount  int                          `json:"contacts_count"`
}

func (s *Service) GetUserAssignments(ctx context.Context, orgID, userID string) (*UserAssignments, error) {
	campaigns, err := s.repo.CampaignAssignmentsForUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repo.ContactAssignmentsForUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	return &UserAssignments{
		Campaigns:      campaigns,
		Contacts:       contacts,
		CampaignsCount: len(campaigns),
		ContactsCount:  len(contacts),
	}, nil
}

func (s *Service) OrgUsersWithCounts(ctx context.Context, orgID string) ([]*UserWithCounts, error) {
	return s.repo.OrgUsersWithCounts(ctx, orgID)
}

// AutoAssignRoundRobin gives the contact to the active user with the fewest
// active contacts.
func (s *Service) AutoAssignRoundRobin(ctx context.Context, orgID, contactID, assignedBy string) (string, error) {
	var userID string
	err := s.repo.WithOrg(ctx, orgID, func(q database.Querier) error {
		var err error
		userID, err = s.repo.NextUserRoundRobin(ctx, q, orgID)
		if err != nil {
			return err
		}
		if userID == "" {
			return ErrNoAssignableUsers
		}

		assignment := &models.ContactAssignment{
			ID:             uuid.New().String(),
			UserID:         userID,
			ContactID:      contactID,
			OrganizationID: orgID,
			AssignedBy:     assignedBy,
			AssignmentType: "round_robin",
			IsPrimaryOwner: true,
		}
		return s.repo.UpsertContactAssignment(ctx, q, assignment)
	})
	if err != nil {
		return "", err
	}

	log.Info().
		Str("contact_id", contactID).
		Str("user_id", userID).
		Msg("contact auto-assigned round-robin")
	return userID, nil
}

func (s *Service) RemoveCampaignAssignment(ctx context.Context, orgID, userID, campaignID string) (bool, error) {
	return s.repo.RemoveCampaignAssignment(ctx, orgID, userID, campaignID)
}

func (s *Service) RemoveContactAssignment(ctx context.Context, orgID, userID, contactID string) (bool, error) {
	return s.repo.RemoveContactAssignment(ctx, orgID, userID, contactID)
}
