package instantly

import "time"

// Campaign as returned by GET /campaigns.
type Campaign struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"` // active, paused, completed
	WorkspaceID string     `json:"workspace_id,omitempty"`
	DailyLimit  int        `json:"daily_limit,omitempty"`
	TotalLeads  int        `json:"total_leads,omitempty"`
	EmailsSent  int        `json:"emails_sent,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// EmailAccount as returned by GET /accounts.
type EmailAccount struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name,omitempty"`
	Status          string     `json:"status"` // active, paused, warming, suspended
	Provider        string     `json:"provider,omitempty"`
	DailyLimit      int        `json:"daily_limit,omitempty"`
	WarmupEnabled   bool       `json:"warmup_enabled,omitempty"`
	EmailsSentToday int        `json:"emails_sent_today,omitempty"`
	EmailsSentTotal int        `json:"emails_sent_total,omitempty"`
	LastEmailSentAt *time.Time `json:"last_email_sent_at,omitempty"`
}

// Workspace as returned by GET /workspaces/current.
type Workspace struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Plan                string `json:"plan,omitempty"`
	MonthlyEmailLimit   int    `json:"monthly_email_limit,omitempty"`
	EmailAccountsCount  int    `json:"email_accounts_count,omitempty"`
	EmailsSentThisMonth int    `json:"emails_sent_this_month,omitempty"`
}

// Lead as returned by GET /leads.
type Lead struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Company      string `json:"company,omitempty"`
	Status       string `json:"status"`
	CampaignID   string `json:"campaign_id,omitempty"`
	EmailAccount string `json:"email_account,omitempty"`
}
