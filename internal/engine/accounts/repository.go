package accounts

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

func (r *Repository) FindByProviderAccountID(ctx context.Context, q database.Querier, provider, providerAccountID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM email_account WHERE provider_account_id = $1 AND provider = $2`,
		providerAccountID, provider,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, a *models.EmailAccount) error {
	query := `
		INSERT INTO email_account (
			id, organization_id, provider_connection_id, email_address,
			display_name, provider, provider_account_id, daily_limit,
			warmup_enabled, status, emails_sent_today, emails_sent_total,
			last_email_sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`
	_, err := q.ExecContext(ctx, query,
		a.ID,
		a.OrganizationID,
		a.ProviderConnectionID,
		a.EmailAddress,
		a.DisplayName,
		a.Provider,
		a.ProviderAccountID,
		a.DailyLimit,
		a.WarmupEnabled,
		a.Status,
		a.EmailsSentToday,
		a.EmailsSentTotal,
		a.LastEmailSentAt,
	)
	return err
}

func (r *Repository) UpdateImported(ctx context.Context, q database.Querier, id string, a *models.EmailAccount) error {
	query := `
		UPDATE email_account
		SET email_address = $1, display_name = $2, status = $3,
		    daily_limit = $4, warmup_enabled = $5, emails_sent_today = $6,
		    emails_sent_total = $7, last_email_sent_at = $8, updated_at = NOW()
		WHERE id = $9
	`
	_, err := q.ExecContext(ctx, query,
		a.EmailAddress,
		a.DisplayName,
		a.Status,
		a.DailyLimit,
		a.WarmupEnabled,
		a.EmailsSentToday,
		a.EmailsSentTotal,
		a.LastEmailSentAt,
		id,
	)
	return err
}

func (r *Repository) GetByEmail(ctx context.Context, emailAddress string) (*models.EmailAccount, error) {
	query := `
		SELECT id, organization_id, provider_connection_id, email_address,
		       provider, provider_account_id, status
		FROM email_account
		WHERE email_address = $1
	`
	var a models.EmailAccount
	var connectionID sql.NullString
	err := r.pool.DB().QueryRowContext(ctx, query, emailAddress).Scan(
		&a.ID, &a.OrganizationID, &connectionID, &a.EmailAddress,
		&a.Provider, &a.ProviderAccountID, &a.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ProviderConnectionID = connectionID.String
	return &a, nil
}

func (r *Repository) GetStatus(ctx context.Context, orgID, accountID string) (string, error) {
	var status string
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		return q.QueryRowContext(ctx,
			`SELECT status FROM email_account WHERE id = $1`, accountID,
		).Scan(&status)
	})
	if err == sql.ErrNoRows {
		return "", nil
	}
	return status, err
}

func (r *Repository) UpdateStatus(ctx context.Context, orgID, accountID, status string) error {
	query := `UPDATE email_account SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		_, err := q.ExecContext(ctx, query, status, accountID)
		return err
	})
}

// IncrementSentCounters is a single statement so concurrent webhook calls
// never lose an increment.
func (r *Repository) IncrementSentCounters(ctx context.Context, accountID string) error {
	query := `
		UPDATE email_account
		SET emails_sent_today = emails_sent_today + 1,
		    emails_sent_total = emails_sent_total + 1,
		    last_email_sent_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.DB().ExecContext(ctx, query, accountID)
	return err
}

// ResetDailyCounters zeroes today's counters across all tenants; runs from
// the maintenance worker, not the webhook path.
func (r *Repository) ResetDailyCounters(ctx context.Context) (int64, error) {
	query := `
		UPDATE email_account
		SET emails_sent_today = 0, updated_at = NOW()
		WHERE emails_sent_today > 0
	`
	res, err := r.pool.DB().ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HandleError suspends the account referenced by a webhook error event and
// records the error text. Resolution is by email address because that is all
// the provider sends.
func (r *Repository) HandleError(ctx context.Context, emailAddress, errorText string) (bool, error) {
	query := `
		UPDATE email_account
		SET status = 'suspended', last_error = $1, updated_at = NOW()
		WHERE email_address = $2
	`
	res, err := r.pool.DB().ExecContext(ctx, query, errorText, emailAddress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ListForOrg(ctx context.Context, orgID string, limit, offset int) ([]*models.EmailAccount, error) {
	query := `
		SELECT id, email_address, display_name, provider, status,
		       daily_limit, warmup_enabled, emails_sent_today,
		       emails_sent_total, last_email_sent_at, created_at
		FROM email_account
		WHERE organization_id = $1
		ORDER BY email_address ASC
		LIMIT $2 OFFSET $3
	`
	var accounts []*models.EmailAccount
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, orgID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a models.EmailAccount
			var displayName sql.NullString
			var lastSent sql.NullTime
			if err := rows.Scan(
				&a.ID, &a.EmailAddress, &displayName, &a.Provider, &a.Status,
				&a.DailyLimit, &a.WarmupEnabled, &a.EmailsSentToday,
				&a.EmailsSentTotal, &lastSent, &a.CreatedAt,
			); err != nil {
				return err
			}
			a.OrganizationID = orgID
			a.DisplayName = displayName.String
			if lastSent.Valid {
				t := lastSent.Time
				a.LastEmailSentAt = &t
			}
			accounts = append(accounts, &a)
		}
		return rows.Err()
	})
	return accounts, err
}

func (r *Repository) ListAllAdmin(ctx context.Context, limit, offset int) ([]*models.EmailAccount, error) {
	query := `
		SELECT ea.id, ea.organization_id, o.name AS organization_name,
		       ea.email_address, ea.display_name, ea.provider,
		       ea.provider_account_id, ea.status, ea.daily_limit,
		       ea.warmup_enabled, ea.emails_sent_today, ea.emails_sent_total,
		       ea.last_email_sent_at, ea.created_at
		FROM email_account ea
		LEFT JOIN organization o ON ea.organization_id = o.id
		ORDER BY ea.created_at DESC
		LIMIT $1 OFFSET $2
	`
	var accounts []*models.EmailAccount
	err := r.pool.WithAdmin(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a models.EmailAccount
			var orgName, displayName sql.NullString
			var lastSent sql.NullTime
			if err := rows.Scan(
				&a.ID, &a.OrganizationID, &orgName,
				&a.EmailAddress, &displayName, &a.Provider,
				&a.ProviderAccountID, &a.Status, &a.DailyLimit,
				&a.WarmupEnabled, &a.EmailsSentToday, &a.EmailsSentTotal,
				&lastSent, &a.CreatedAt,
			); err != nil {
				return err
			}
			a.OrganizationName = orgName.String
			a.DisplayName = displayName.String
			if lastSent.Valid {
				t := lastSent.Time
				a.LastEmailSentAt = &t
			}
			accounts = append(accounts, &a)
		}
		return rows.Err()
	})
	return accounts, err
}

type usageRow struct {
	DailyLimit      int
	EmailsSentToday int
	EmailsSentTotal int
	LastEmailSentAt sql.NullTime
	Status          string
	CampaignsCount  int
}

func (r *Repository) usage(ctx context.Context, orgID, accountID string) (*usageRow, error) {
	var row usageRow
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		err := q.QueryRowContext(ctx, `
			SELECT daily_limit, emails_sent_today, emails_sent_total,
			       last_email_sent_at, status
			FROM email_account
			WHERE id = $1
		`, accountID).Scan(
			&row.DailyLimit, &row.EmailsSentToday, &row.EmailsSentTotal,
			&row.LastEmailSentAt, &row.Status,
		)
		if err != nil {
			return err
		}
		return q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM campaign WHERE email_account_id = $1`, accountID,
		).Scan(&row.CampaignsCount)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
