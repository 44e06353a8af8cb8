package campaigns

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

// FindByOrgAndExternalID runs on the caller-supplied querier so the import
// loop can keep a single tenant-scoped connection for the whole batch.
func (r *Repository) FindByOrgAndExternalID(ctx context.Context, q database.Querier, orgID, externalID string) (*models.Campaign, error) {
	query := `
		SELECT id, organization_id, external_id, name, status
		FROM campaign
		WHERE external_id = $1 AND organization_id = $2
	`
	var c models.Campaign
	err := q.QueryRowContext(ctx, query, externalID, orgID).Scan(
		&c.ID, &c.OrganizationID, &c.ExternalID, &c.Name, &c.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, c *models.Campaign) error {
	query := `
		INSERT INTO campaign (
			id, organization_id, provider_connection_id, external_id,
			name, status, workspace_id, imported_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())
	`
	_, err := q.ExecContext(ctx, query,
		c.ID,
		c.OrganizationID,
		c.ProviderConnectionID,
		c.ExternalID,
		c.Name,
		c.Status,
		c.WorkspaceID,
	)
	return err
}

func (r *Repository) UpdateImported(ctx context.Context, q database.Querier, id, name, status, workspaceID string) error {
	query := `
		UPDATE campaign
		SET name = $1, status = $2, workspace_id = $3, imported_at = NOW(), updated_at = NOW()
		WHERE id = $4
	`
	_, err := q.ExecContext(ctx, query, name, status, workspaceID, id)
	return err
}

// GetByExternalID resolves a campaign cross-tenant; this is the webhook
// lookup, where the caller has no organization context yet.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.Campaign, error) {
	query := `
		SELECT c.id, c.organization_id, c.provider_connection_id,
		       c.external_id, c.name, c.status, c.email_account_id, c.workspace_id
		FROM campaign c
		WHERE c.external_id = $1
	`
	var c models.Campaign
	var connectionID, accountID, workspaceID sql.NullString
	err := r.pool.DB().QueryRowContext(ctx, query, externalID).Scan(
		&c.ID, &c.OrganizationID, &connectionID,
		&c.ExternalID, &c.Name, &c.Status, &accountID, &workspaceID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.ProviderConnectionID = connectionID.String
	c.WorkspaceID = workspaceID.String
	if accountID.Valid {
		c.EmailAccountID = &accountID.String
	}
	return &c, nil
}

// UpdateStatus runs on the service-role pool for the webhook path, which has
// already resolved the campaign cross-tenant. Tenant-facing callers go
// through UpdateStatusForOrg instead.
func (r *Repository) UpdateStatus(ctx context.Context, campaignID, status string) error {
	query := `UPDATE campaign SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.DB().ExecContext(ctx, query, status, campaignID)
	return err
}

// UpdateStatusForOrg is the tenant-scoped variant: the organization predicate
// keeps one org from touching another org's campaign by guessing its id.
func (r *Repository) UpdateStatusForOrg(ctx context.Context, orgID, campaignID, status string) (bool, error) {
	query := `
		UPDATE campaign SET status = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`
	var updated bool
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		res, err := q.ExecContext(ctx, query, status, campaignID, orgID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		updated = n > 0
		return err
	})
	return updated, err
}

func (r *Repository) AssignEmailAccount(ctx context.Context, orgID, campaignID, accountID string) error {
	query := `UPDATE campaign SET email_account_id = $1, updated_at = NOW() WHERE id = $2`
	return r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		_, err := q.ExecContext(ctx, query, accountID, campaignID)
		return err
	})
}

func (r *Repository) ListForOrg(ctx context.Context, orgID string, limit, offset int) ([]*models.Campaign, error) {
	query := `
		SELECT c.id, c.external_id, c.name, c.status, c.email_account_id,
		       ea.email_address AS sending_email, c.workspace_id,
		       c.imported_at, c.created_at, c.updated_at
		FROM campaign c
		LEFT JOIN email_account ea ON c.email_account_id = ea.id
		WHERE c.organization_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`
	var campaigns []*models.Campaign
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, orgID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c models.Campaign
			var accountID, sendingEmail, workspaceID sql.NullString
			var importedAt sql.NullTime
			if err := rows.Scan(
				&c.ID, &c.ExternalID, &c.Name, &c.Status, &accountID,
				&sendingEmail, &workspaceID, &importedAt, &c.CreatedAt, &c.UpdatedAt,
			); err != nil {
				return err
			}
			c.OrganizationID = orgID
			c.SendingEmail = sendingEmail.String
			c.WorkspaceID = workspaceID.String
			if accountID.Valid {
				c.EmailAccountID = &accountID.String
			}
			if importedAt.Valid {
				t := importedAt.Time
				c.ImportedAt = &t
			}
			campaigns = append(campaigns, &c)
		}
		return rows.Err()
	})
	return campaigns, err
}

func (r *Repository) ListAllAdmin(ctx context.Context, limit, offset int) ([]*models.Campaign, error) {
	query := `
		SELECT c.id, c.external_id, c.name, c.status, c.organization_id,
		       o.name AS organization_name, c.email_account_id,
		       ea.email_address AS sending_email, c.workspace_id,
		       c.imported_at, c.created_at, c.updated_at
		FROM campaign c
		LEFT JOIN organization o ON c.organization_id = o.id
		LEFT JOIN email_account ea ON c.email_account_id = ea.id
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2
	`
	var campaigns []*models.Campaign
	err := r.pool.WithAdmin(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c models.Campaign
			var orgName, accountID, sendingEmail, workspaceID sql.NullString
			var importedAt sql.NullTime
			if err := rows.Scan(
				&c.ID, &c.ExternalID, &c.Name, &c.Status, &c.OrganizationID,
				&orgName, &accountID, &sendingEmail, &workspaceID,
				&importedAt, &c.CreatedAt, &c.UpdatedAt,
			); err != nil {
				return err
			}
			c.OrganizationName = orgName.String
			c.SendingEmail = sendingEmail.String
			c.WorkspaceID = workspaceID.String
			if accountID.Valid {
				c.EmailAccountID = &accountID.String
			}
			if importedAt.Valid {
				t := importedAt.Time
				c.ImportedAt = &t
			}
			campaigns = append(campaigns, &c)
		}
		return rows.Err()
	})
	return campaigns, err
}

// Stats counts processed events by type for one campaign.
func (r *Repository) Stats(ctx context.Context, orgID, campaignID string) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'email_sent') AS sent,
			COUNT(*) FILTER (WHERE event_type = 'email_opened') AS opened,
			COUNT(*) FILTER (WHERE event_type = 'reply_received') AS replied
		FROM message
		WHERE campaign_id = $1
	`
	var stats Stats
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		return q.QueryRowContext(ctx, query, campaignID).Scan(&stats.Sent, &stats.Opened, &stats.Replied)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

type Stats struct {
	Sent    int `json:"sent"`
	Opened  int `json:"opened"`
	Replied int `json:"replied"`
}
