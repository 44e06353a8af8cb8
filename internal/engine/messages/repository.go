package messages

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

func newContactID() string {
	return uuid.New().String()
}

type Repository struct {
	pool *database.TenantPool
}

func NewRepository(pool *database.TenantPool) *Repository {
	return &Repository{pool: pool}
}

// Insert runs on the service-role pool: the webhook path already resolved the
// organization through the campaign and carries it explicitly.
func (r *Repository) Insert(ctx context.Context, m *models.Message) (string, error) {
	query := `
		INSERT INTO message (
			id, organization_id, campaign_id, contact_id, email_account_id,
			from_email, to_email, direction, status, event_type,
			subject, body, external_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		m.ID,
		m.OrganizationID,
		m.CampaignID,
		m.ContactID,
		m.EmailAccountID,
		m.FromEmail,
		m.ToEmail,
		m.Direction,
		m.Status,
		m.EventType,
		m.Subject,
		m.Body,
		m.ExternalData,
	)
	return m.ID, err
}

// GetOrCreateContact resolves a contact by (org, email), creating it lazily
// with status 'lead' on first sight.
func (r *Repository) GetOrCreateContact(ctx context.Context, orgID, email string) (string, error) {
	db := r.pool.DB()

	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM contact WHERE organization_id = $1 AND email = $2`,
		orgID, email,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	err = db.QueryRowContext(ctx, `
		INSERT INTO contact (id, organization_id, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'lead', NOW(), NOW())
		RETURNING id
	`, newContactID(), orgID, email).Scan(&id)
	return id, err
}

func (r *Repository) ListForCampaign(ctx context.Context, orgID, campaignID string, limit, offset int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.from_email, m.to_email, m.direction, m.status,
		       m.event_type, m.subject, m.body, m.created_at,
		       c.email AS contact_email
		FROM message m
		LEFT JOIN contact c ON m.contact_id = c.id
		WHERE m.campaign_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3
	`
	var messages []*models.Message
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, campaignID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMessageRow(rows, true, false)
			if err != nil {
				return err
			}
			m.CampaignID = campaignID
			messages = append(messages, m)
		}
		return rows.Err()
	})
	return messages, err
}

// ListForContact returns the conversation thread, oldest first.
func (r *Repository) ListForContact(ctx context.Context, orgID, contactID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.from_email, m.to_email, m.direction, m.status,
		       m.event_type, m.subject, m.body, m.created_at,
		       m.campaign_id, ca.name AS campaign_name
		FROM message m
		LEFT JOIN campaign ca ON m.campaign_id = ca.id
		WHERE m.contact_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2
	`
	var messages []*models.Message
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, contactID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMessageRow(rows, false, true)
			if err != nil {
				return err
			}
			id := contactID
			m.ContactID = &id
			messages = append(messages, m)
		}
		return rows.Err()
	})
	return messages, err
}

func (r *Repository) Search(ctx context.Context, orgID, term string, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.from_email, m.to_email, m.subject, m.event_type,
		       m.created_at, c.email AS contact_email, ca.name AS campaign_name
		FROM message m
		LEFT JOIN contact c ON m.contact_id = c.id
		LEFT JOIN campaign ca ON m.campaign_id = ca.id
		WHERE m.organization_id = $1
		  AND (m.from_email ILIKE $2 OR m.to_email ILIKE $2 OR m.subject ILIKE $2 OR m.body ILIKE $2)
		ORDER BY m.created_at DESC
		LIMIT $3
	`
	var messages []*models.Message
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, orgID, "%"+term+"%", limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m models.Message
			var subject, contactEmail, campaignName sql.NullString
			if err := rows.Scan(
				&m.ID, &m.FromEmail, &m.ToEmail, &subject, &m.EventType,
				&m.CreatedAt, &contactEmail, &campaignName,
			); err != nil {
				return err
			}
			m.OrganizationID = orgID
			m.Subject = subject.String
			m.ContactEmail = contactEmail.String
			m.CampaignName = campaignName.String
			messages = append(messages, &m)
		}
		return rows.Err()
	})
	return messages, err
}

type statsRow struct {
	Sent    int
	Opened  int
	Replied int
	Bounced int
	Clicked int
}

func (r *Repository) orgStats(ctx context.Context, orgID string) (*statsRow, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'email_sent') AS sent,
			COUNT(*) FILTER (WHERE event_type = 'email_opened') AS opened,
			COUNT(*) FILTER (WHERE event_type = 'reply_received') AS replied,
			COUNT(*) FILTER (WHERE event_type = 'email_bounced') AS bounced,
			COUNT(*) FILTER (WHERE event_type = 'link_clicked') AS clicked
		FROM message
		WHERE organization_id = $1
	`
	var row statsRow
	err := r.pool.WithOrg(ctx, orgID, func(q database.Querier) error {
		return q.QueryRowContext(ctx, query, orgID).Scan(
			&row.Sent, &row.Opened, &row.Replied, &row.Bounced, &row.Clicked,
		)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func scanMessageRow(rows *sql.Rows, withContactEmail, withCampaign bool) (*models.Message, error) {
	var m models.Message
	var subject, body sql.NullString

	dest := []interface{}{
		&m.ID, &m.FromEmail, &m.ToEmail, &m.Direction, &m.Status,
		&m.EventType, &subject, &body, &m.CreatedAt,
	}
	var contactEmail, campaignName sql.NullString
	if withContactEmail {
		dest = append(dest, &contactEmail)
	}
	if withCampaign {
		dest = append(dest, &m.CampaignID, &campaignName)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	m.Subject = subject.String
	m.Body = body.String
	m.ContactEmail = contactEmail.String
	m.CampaignName = campaignName.String
	return &m, nil
}
