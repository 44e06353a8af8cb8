package assignments

import (
	"context"
	"database/sql"

	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

type Repository struct {
	pool *database.TenantPool
}

func NewRepository(pool *database.TenantPool) *Repository {
	return &Repository{pool: pool}
}

// UpsertCampaignAssignment reassigns instead of erroring: a second assignment
// of the same (user, campaign) updates role and permissions.
func (r *Repository) UpsertCampaignAssignment(ctx context.Context, q database.Querier, a *models.CampaignAssignment) error {
	query := `
		INSERT INTO user_campaign_assignment (
			id, user_id, campaign_id, organization_id, assigned_by,
			role, can_edit, can_view_stats, can_manage_contacts, status,
			assigned_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', NOW(), NOW())
		ON CONFLICT (user_id, campaign_id)
		DO UPDATE SET
			role = EXCLUDED.role,
			can_edit = EXCLUDED.can_edit,
			can_view_stats = EXCLUDED.can_view_stats,
			can_manage_contacts = EXCLUDED.can_manage_contacts,
			status = 'active',
			updated_at = NOW()
	`
	_, err := q.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.CampaignID,
		a.OrganizationID,
		a.AssignedBy,
		a.Role,
		a.CanEdit,
		a.CanViewStats,
		a.CanManageContacts,
	)
	return err
}

func (r *Repository) UpsertContactAssignment(ctx context.Context, q database.Querier, a *models.ContactAssignment) error {
	query := `
		INSERT INTO user_contact_assignment (
			id, user_id, contact_id, organization_id, assigned_by,
			assignment_type, is_primary_owner, status, assigned_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', NOW(), NOW())
		ON CONFLICT (user_id, contact_id)
		DO UPDATE SET
			assignment_type = EXCLUDED.assignment_type,
			status = 'active',
			updated_at = NOW()
	`
	_, err := q.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.ContactID,
		a.OrganizationID,
		a.AssignedBy,
		a.AssignmentType,
		a.IsPrimaryOwner,
	)
	return err
}

func (r *Repository) CampaignAssignmentsForUser(ctx context.Context, orgID, userID string) ([]*models.CampaignAssignment, error) {
	query := `
		SELECT uca.id, uca.campaign_id, c.name AS campaign_name,
		       c.status AS campaign_status, uca.role, uca.can_edit,
		       uca.can_view_stats, uca.can_manage_contacts, uca.assigned_at
		FROM user_campaign_assignment uca
		JOIN campaign c ON uca.campaign_id = c.id
		WHERE uca.user_id = $1 AND uca.status = 'active'
		ORDER BY uca.assigned_at DESC
	`
	var out []*models.CampaignAssignment
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a models.CampaignAssignment
			if err := rows.Scan(
				&a.ID, &a.CampaignID, &a.CampaignName, &a.CampaignStatus,
				&a.Role, &a.CanEdit, &a.CanViewStats, &a.CanManageContacts,
				&a.AssignedAt,
			); err != nil {
				return err
			}
			a.UserID = userID
			a.OrganizationID = orgID
			a.Status = "active"
			out = append(out, &a)
		}
		return rows.Err()
	})
	return out, err
}

func (r *Repository) ContactAssignmentsForUser(ctx context.Context, orgID, userID string) ([]*models.ContactAssignment, error) {
	query := `
		SELECT uca.id, uca.contact_id, ct.email AS contact_email,
		       uca.assignment_type, uca.is_primary_owner, uca.assigned_at
		FROM user_contact_assignment uca
		JOIN contact ct ON uca.contact_id = ct.id
		WHERE uca.user_id = $1 AND uca.status = 'active'
		ORDER BY uca.assigned_at DESC
	`
	var out []*models.ContactAssignment
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a models.ContactAssignment
			if err := rows.Scan(
				&a.ID, &a.ContactID, &a.ContactEmail,
				&a.AssignmentType, &a.IsPrimaryOwner, &a.AssignedAt,
			); err != nil {
				return err
			}
			a.UserID = userID
			a.OrganizationID = orgID
			a.Status = "active"
			out = append(out, &a)
		}
		return rows.Err()
	})
	return out, err
}

// UserWithCounts is one row of the org roster with assignment totals.
type UserWithCounts struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	CampaignsCount int    `json:"campaigns_count"`
	ContactsCount  int    `json:"contacts_count"`
}

func (r *Repository) OrgUsersWithCounts(ctx context.Context, orgID string) ([]*UserWithCounts, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.status,
		       (SELECT COUNT(*) FROM user_campaign_assignment
		        WHERE user_id = u.id AND status = 'active') AS campaigns_count,
		       (SELECT COUNT(*) FROM user_contact_assignment
		        WHERE user_id = u.id AND status = 'active') AS contacts_count
		FROM "user" u
		WHERE u.organization_id = $1
		ORDER BY u.created_at DESC
	`
	var out []*UserWithCounts
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, orgID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u UserWithCounts
			var firstName, lastName sql.NullString
			if err := rows.Scan(
				&u.ID, &u.Email, &firstName, &lastName, &u.Role, &u.Status,
				&u.CampaignsCount, &u.ContactsCount,
			); err != nil {
				return err
			}
			u.FirstName = firstName.String
			u.LastName = lastName.String
			out = append(out, &u)
		}
		return rows.Err()
	})
	return out, err
}

// NextUserRoundRobin picks the active user carrying the fewest active contact
// assignments; ties break on account age.
func (r *Repository) NextUserRoundRobin(ctx context.Context, q database.Querier, orgID string) (string, error) {
	query := `
		SELECT u.id
		FROM "user" u
		LEFT JOIN user_contact_assignment uca
			ON uca.user_id = u.id AND uca.status = 'active'
		WHERE u.organization_id = $1 AND u.status = 'active'
		GROUP BY u.id, u.created_at
		ORDER BY COUNT(uca.id) ASC, u.created_at ASC
		LIMIT 1
	`
	var userID string
	err := q.QueryRowContext(ctx, query, orgID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return userID, err
}

func (r *Repository) RemoveCampaignAssignment(ctx context.Context, orgID, userID, campaignID string) (bool, error) {
	query := `
		UPDATE user_campaign_assignment
		SET status = 'inactive', updated_at = NOW()
		WHERE user_id = $1 AND campaign_id = $2 AND status = 'active'
	`
	return r.softRemove(ctx, orgID, query, userID, campaignID)
}

func (r *Repository) RemoveContactAssignment(ctx context.Context, orgID, userID, contactID string) (bool, error) {
	query := `
		UPDATE user_contact_assignment
		SET status = 'inactive', updated_at = NOW()
		WHERE user_id = $1 AND contact_id = $2 AND status = 'active'
	`
	return r.softRemove(ctx, orgID, query, userID, contactID)
}

func (r *Repository) softRemove(ctx context.Context, orgID, query string, args ...interface{}) (bool, error) {
	var removed bool
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	return removed, err
}

// WithOrg exposes the scoped-connection helper to the service's bulk loops.
func (r *Repository) WithOrg(ctx context.Context, orgID string, fn func(database.Querier) error) error {
	return r.pool.WithOrg(ctx, orgID, fn)
}
