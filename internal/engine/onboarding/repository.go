package onboarding

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

type Repository struct {
	pool *database.TenantPool
}

func NewRepository(pool *database.TenantPool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, link *models.OnboardingLink) error {
	query := `
		INSERT INTO onboarding_link (
			id, organization_id, created_by, link_token, link_url,
			template_name, welcome_message, expires_at, total_steps,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', NOW(), NOW())
	`
	return r.pool.WithOrg(ctx, link.OrganizationID, func(q database.Querier) error {
		_, err := q.ExecContext(ctx, query,
			link.ID,
			link.OrganizationID,
			link.CreatedBy,
			link.LinkToken,
			link.LinkURL,
			link.TemplateName,
			link.WelcomeMessage,
			link.ExpiresAt,
			link.TotalSteps,
		)
		return err
	})
}

// ListFilter narrows the admin/org listing.
type ListFilter struct {
	OrganizationID string
	Status         string
	CreatedBy      string
	Limit          int
	Offset         int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*models.OnboardingLink, int, error) {
	var clauses []string
	var args []interface{}

	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("ol.organization_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("ol.status = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("ol.created_by = $%d", len(args)))
	}

	whereSQL := ""
	if len(clauses) > 0 {
		whereSQL = "WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM onboarding_link ol %s`, whereSQL)
	countArgs := append([]interface{}(nil), args...)

	args = append(args, filter.Limit)
	limitParam := len(args)
	args = append(args, filter.Offset)
	offsetParam := len(args)

	listQuery := fmt.Sprintf(`
		SELECT ol.id, ol.organization_id, ol.created_by, ol.link_token,
		       ol.link_url, ol.template_name, ol.welcome_message, ol.status,
		       ol.current_step, ol.total_steps, ol.progress_percentage,
		       ol.access_count, ol.expires_at, ol.completed_at,
		       ol.created_at, ol.updated_at,
		       o.name AS organization_name, u.email AS created_by_email
		FROM onboarding_link ol
		JOIN organization o ON ol.organization_id = o.id
		LEFT JOIN "user" u ON ol.created_by = u.id
		%s
		ORDER BY ol.created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, limitParam, offsetParam)

	var links []*models.OnboardingLink
	var total int
	err := r.pool.WithAdmin(ctx, func(q database.Querier) error {
		if err := q.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return err
		}

		rows, err := q.QueryContext(ctx, listQuery, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			link, err := scanLink(rows)
			if err != nil {
				return err
			}
			links = append(links, link)
		}
		return rows.Err()
	})
	return links, total, err
}

func (r *Repository) GetByID(ctx context.Context, linkID string) (*models.OnboardingLink, error) {
	query := `
		SELECT ol.id, ol.organization_id, ol.created_by, ol.link_token,
		       ol.link_url, ol.template_name, ol.welcome_message, ol.status,
		       ol.current_step, ol.total_steps, ol.progress_percentage,
		       ol.access_count, ol.expires_at, ol.completed_at,
		       ol.created_at, ol.updated_at,
		       o.name AS organization_name, u.email AS created_by_email
		FROM onboarding_link ol
		JOIN organization o ON ol.organization_id = o.id
		LEFT JOIN "user" u ON ol.created_by = u.id
		WHERE ol.id = $1
	`
	return r.getOne(ctx, query, linkID)
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*models.OnboardingLink, error) {
	query := `
		SELECT ol.id, ol.organization_id, ol.created_by, ol.link_token,
		       ol.link_url, ol.template_name, ol.welcome_message, ol.status,
		       ol.current_step, ol.total_steps, ol.progress_percentage,
		       ol.access_count, ol.expires_at, ol.completed_at,
		       ol.created_at, ol.updated_at,
		       o.name AS organization_name, NULL AS created_by_email
		FROM onboarding_link ol
		JOIN organization o ON ol.organization_id = o.id
		WHERE ol.link_token = $1
	`
	return r.getOne(ctx, query, token)
}

func (r *Repository) getOne(ctx context.Context, query string, arg interface{}) (*models.OnboardingLink, error) {
	var link *models.OnboardingLink
	err := r.pool.WithAdmin(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			return rows.Err()
		}
		link, err = scanLink(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *Repository) MarkExpired(ctx context.Context, linkID string) error {
	query := `
		UPDATE onboarding_link
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`
	_, err := r.pool.DB().ExecContext(ctx, query, linkID)
	return err
}

func (r *Repository) TrackAccess(ctx context.Context, token string) error {
	query := `
		UPDATE onboarding_link
		SET access_count = access_count + 1, updated_at = NOW()
		WHERE link_token = $1
	`
	_, err := r.pool.DB().ExecContext(ctx, query, token)
	return err
}

// UpdateProgress touches only active links; the WHERE clause is the state
// gate.
func (r *Repository) UpdateProgress(ctx context.Context, token string, currentStep, progressPercentage int) (bool, error) {
	query := `
		UPDATE onboarding_link
		SET current_step = $2, progress_percentage = $3, updated_at = NOW()
		WHERE link_token = $1 AND status = 'active'
	`
	res, err := r.pool.DB().ExecContext(ctx, query, token, currentStep, progressPercentage)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Complete(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE onboarding_link
		SET status = 'used', completed_at = NOW(), progress_percentage = 100, updated_at = NOW()
		WHERE link_token = $1 AND status = 'active'
	`
	res, err := r.pool.DB().ExecContext(ctx, query, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Revoke(ctx context.Context, linkID, revokedBy, reason string) (bool, error) {
	query := `
		UPDATE onboarding_link
		SET status = 'revoked', revoked_at = NOW(), revoked_by = $2,
		    revoked_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'expired')
	`
	res, err := r.pool.DB().ExecContext(ctx, query, linkID, revokedBy, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Extend(ctx context.Context, linkID string, additionalDays int) (bool, error) {
	query := `
		UPDATE onboarding_link
		SET expires_at = expires_at + ($2 || ' days')::INTERVAL,
		    status = CASE WHEN status = 'expired' THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.pool.DB().ExecContext(ctx, query, linkID, additionalDays)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireOld sweeps links past their expiry; runs from the maintenance worker.
func (r *Repository) ExpireOld(ctx context.Context) (int64, error) {
	query := `
		UPDATE onboarding_link
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at < NOW()
	`
	res, err := r.pool.DB().ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLink(rows *sql.Rows) (*models.OnboardingLink, error) {
	var link models.OnboardingLink
	var welcomeMessage, orgName, createdByEmail sql.NullString
	var completedAt sql.NullTime

	err := rows.Scan(
		&link.ID, &link.OrganizationID, &link.CreatedBy, &link.LinkToken,
		&link.LinkURL, &link.TemplateName, &welcomeMessage, &link.Status,
		&link.CurrentStep, &link.TotalSteps, &link.ProgressPercentage,
		&link.AccessCount, &link.ExpiresAt, &completedAt,
		&link.CreatedAt, &link.UpdatedAt,
		&orgName, &createdByEmail,
	)
	if err != nil {
		return nil, err
	}
	link.WelcomeMessage = welcomeMessage.String
	link.OrganizationName = orgName.String
	link.CreatedByEmail = createdByEmail.String
	if completedAt.Valid {
		t := completedAt.Time
		link.CompletedAt = &t
	}
	return &link, nil
}
