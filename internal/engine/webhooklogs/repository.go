package webhooklogs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
)

type Repository struct {
	pool *database.TenantPool
}

func NewRepository(pool *database.TenantPool) *Repository {
	return &Repository{pool: pool}
}

// Append writes the audit row on the service role: the webhook path writes
// before any tenant is known, and maintenance runs cross-tenant.
func (r *Repository) Append(ctx context.Context, entry *models.WebhookLog) error {
	query := `
		INSERT INTO webhook_log (
			id, event_type, event_source, campaign_id, contact_id,
			organization_id, status, payload, error_message, processed_at,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		entry.ID,
		entry.EventType,
		entry.EventSource,
		entry.CampaignID,
		entry.ContactID,
		entry.OrganizationID,
		entry.Status,
		entry.Payload,
		nullIfEmpty(entry.ErrorMessage),
		entry.ProcessedAt,
	)
	return err
}

// ListFilter narrows the audit listing. OrganizationID is mandatory unless
// the caller holds a platform role.
type ListFilter struct {
	OrganizationID string
	AdminScope     bool
	EventType      string
	CampaignID     string
	Status         string
	DateFrom       *time.Time
	DateTo         *time.Time
	Search         string
	Limit          int
	Offset         int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*models.WebhookLog, int, error) {
	var clauses []string
	var args []interface{}

	if !filter.AdminScope && filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("wl.organization_id = $%d", len(args)))
	}
	if filter.EventType != "" {
		args = append(args, filter.EventType)
		clauses = append(clauses, fmt.Sprintf("wl.event_type = $%d", len(args)))
	}
	if filter.CampaignID != "" {
		args = append(args, filter.CampaignID)
		clauses = append(clauses, fmt.Sprintf("wl.campaign_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("wl.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		clauses = append(clauses, fmt.Sprintf("wl.created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		clauses = append(clauses, fmt.Sprintf("wl.created_at <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, fmt.Sprintf("wl.payload::text ILIKE $%d", len(args)))
	}

	whereSQL := ""
	if len(clauses) > 0 {
		whereSQL = "WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM webhook_log wl %s`, whereSQL)
	countArgs := append([]interface{}(nil), args...)

	args = append(args, filter.Limit)
	limitParam := len(args)
	args = append(args, filter.Offset)
	offsetParam := len(args)

	listQuery := fmt.Sprintf(`
		SELECT wl.id, wl.event_type, wl.event_source, wl.campaign_id,
		       c.name AS campaign_name, wl.contact_id, ct.email AS contact_email,
		       wl.organization_id, wl.status, wl.payload, wl.error_message,
		       wl.retry_count, wl.last_retry_at, wl.created_at, wl.processed_at
		FROM webhook_log wl
		LEFT JOIN campaign c ON wl.campaign_id = c.id
		LEFT JOIN contact ct ON wl.contact_id = ct.id
		%s
		ORDER BY wl.created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, limitParam, offsetParam)

	db := r.pool.DB()
	var total int
	if err := db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.WebhookLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	return logs, total, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, logID string) (*models.WebhookLog, error) {
	query := `
		SELECT wl.id, wl.event_type, wl.event_source, wl.campaign_id,
		       c.name AS campaign_name, wl.contact_id, ct.email AS contact_email,
		       wl.organization_id, wl.status, wl.payload, wl.error_message,
		       wl.retry_count, wl.last_retry_at, wl.created_at, wl.processed_at
		FROM webhook_log wl
		LEFT JOIN campaign c ON wl.campaign_id = c.id
		LEFT JOIN contact ct ON wl.contact_id = ct.id
		WHERE wl.id = $1
	`
	rows, err := r.pool.DB().QueryContext(ctx, query, logID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanLog(rows)
}

// Retry is only valid from failed; the WHERE clause is the state gate.
func (r *Repository) Retry(ctx context.Context, logID string) (bool, error) {
	query := `
		UPDATE webhook_log
		SET status = 'retrying', retry_count = retry_count + 1, last_retry_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`
	res, err := r.pool.DB().ExecContext(ctx, query, logID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM webhook_log WHERE created_at < NOW() - $1::INTERVAL`
	res, err := r.pool.DB().ExecContext(ctx, query, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Overall is the dashboard summary block.
type Overall struct {
	TotalLogs     int     `json:"total_logs"`
	SuccessCount  int     `json:"success_count"`
	FailedCount   int     `json:"failed_count"`
	LastHour      int     `json:"last_hour"`
	Last24h       int     `json:"last_24h"`
	AvgRetryCount float64 `json:"avg_retry_count"`
}

func (r *Repository) OverallStats(ctx context.Context) (*Overall, error) {
	query := `
		SELECT
			COUNT(*) AS total_logs,
			COUNT(*) FILTER (WHERE status = 'success') AS success_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '1 hour') AS last_hour,
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours') AS last_24h,
			COALESCE(ROUND(AVG(retry_count), 2), 0) AS avg_retry_count
		FROM webhook_log
	`
	var o Overall
	err := r.pool.DB().QueryRowContext(ctx, query).Scan(
		&o.TotalLogs, &o.SuccessCount, &o.FailedCount,
		&o.LastHour, &o.Last24h, &o.AvgRetryCount,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) RecentFailed(ctx context.Context, limit int) ([]*models.WebhookLog, error) {
	query := `
		SELECT id, event_type, error_message, created_at
		FROM webhook_log
		WHERE status = 'failed' AND created_at >= NOW() - INTERVAL '24 hours'
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.WebhookLog
	for rows.Next() {
		var entry models.WebhookLog
		var errorMessage sql.NullString
		if err := rows.Scan(&entry.ID, &entry.EventType, &errorMessage, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Status = "failed"
		entry.ErrorMessage = errorMessage.String
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

func (r *Repository) RecentActivity(ctx context.Context, limit int) ([]*models.WebhookLog, error) {
	query := `
		SELECT wl.id, wl.event_type, wl.event_source, wl.status,
		       c.name AS campaign_name, ct.email AS contact_email, wl.created_at
		FROM webhook_log wl
		LEFT JOIN campaign c ON wl.campaign_id = c.id
		LEFT JOIN contact ct ON wl.contact_id = ct.id
		ORDER BY wl.created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.WebhookLog
	for rows.Next() {
		var entry models.WebhookLog
		var campaignName, contactEmail sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.EventType, &entry.EventSource, &entry.Status,
			&campaignName, &contactEmail, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.CampaignName = campaignName.String
		entry.ContactEmail = contactEmail.String
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

func scanLog(rows *sql.Rows) (*models.WebhookLog, error) {
	var entry models.WebhookLog
	var campaignID, contactID, organizationID sql.NullString
	var campaignName, contactEmail, errorMessage sql.NullString
	var lastRetryAt, processedAt sql.NullTime

	err := rows.Scan(
		&entry.ID, &entry.EventType, &entry.EventSource, &campaignID,
		&campaignName, &contactID, &contactEmail,
		&organizationID, &entry.Status, &entry.Payload, &errorMessage,
		&entry.RetryCount, &lastRetryAt, &entry.CreatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		entry.CampaignID = &campaignID.String
	}
	if contactID.Valid {
		entry.ContactID = &contactID.String
	}
	if organizationID.Valid {
		entry.OrganizationID = &organizationID.String
	}
	entry.CampaignName = campaignName.String
	entry.ContactEmail = contactEmail.String
	entry.ErrorMessage = errorMessage.String
	if lastRetryAt.Valid {
		t := lastRetryAt.Time
		entry.LastRetryAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		entry.ProcessedAt = &t
	}
	return &entry, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
