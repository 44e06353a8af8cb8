package models

import "time"

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Campaign mirrors a provider-side campaign. (organization_id, external_id)
// is unique so repeated imports update instead of duplicating.
type Campaign struct {
	ID                   string     `json:"id"`
	OrganizationID       string     `json:"organization_id"`
	ProviderConnectionID string     `json:"provider_connection_id,omitempty"`
	ExternalID           string     `json:"external_id"`
	Name                 string     `json:"name"`
	Status               string     `json:"status"` // active, paused, completed
	EmailAccountID       *string    `json:"email_account_id,omitempty"`
	WorkspaceID          string     `json:"workspace_id,omitempty"`
	ImportedAt           *time.Time `json:"imported_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	OrganizationName string `json:"organization_name,omitempty"`
	SendingEmail     string `json:"sending_email,omitempty"`
}

// EmailAccount is a sending mailbox. (provider, provider_account_id) is
// unique for dedup on import. Status machine: active -> suspended on
// account errors, active <-> paused administratively.
type EmailAccount struct {
	ID                   string     `json:"id"`
	OrganizationID       string     `json:"organization_id"`
	ProviderConnectionID string     `json:"provider_connection_id,omitempty"`
	EmailAddress         string     `json:"email_address"`
	DisplayName          string     `json:"display_name,omitempty"`
	Provider             string     `json:"provider"`
	ProviderAccountID    string     `json:"provider_account_id"`
	Status               string     `json:"status"` // active, paused, warming, suspended
	DailyLimit           int        `json:"daily_limit"`
	WarmupEnabled        bool       `json:"warmup_enabled"`
	EmailsSentToday      int        `json:"emails_sent_today"`
	EmailsSentTotal      int        `json:"emails_sent_total"`
	LastError            string     `json:"last_error,omitempty"`
	LastEmailSentAt      *time.Time `json:"last_email_sent_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	OrganizationName string `json:"organization_name,omitempty"`
}

// Contact is created lazily the first time a webhook references an unseen
// lead email. The webhook path never deletes contacts.
type Contact struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is the append-only domain ledger: one row per processed webhook
// event for a (campaign, contact) pair, original payload attached.
type Message struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	CampaignID     string    `json:"campaign_id"`
	ContactID      *string   `json:"contact_id,omitempty"`
	EmailAccountID *string   `json:"email_account_id,omitempty"`
	FromEmail      string    `json:"from_email"`
	ToEmail        string    `json:"to_email,omitempty"`
	Direction      string    `json:"direction"` // inbound, outbound
	Status         string    `json:"status"`
	EventType      string    `json:"event_type"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body,omitempty"`
	ExternalData   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`

	ContactEmail string `json:"contact_email,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
}

// WebhookLog is the audit ledger: one row per received webhook, written even
// when the event never maps to a known campaign.
type WebhookLog struct {
	ID             string     `json:"id"`
	EventType      string     `json:"event_type"`
	EventSource    string     `json:"event_source"`
	CampaignID     *string    `json:"campaign_id,omitempty"`
	ContactID      *string    `json:"contact_id,omitempty"`
	OrganizationID *string    `json:"organization_id,omitempty"`
	Status         string     `json:"status"` // success, failed, retrying, pending
	Payload        []byte     `json:"payload,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	RetryCount     int        `json:"retry_count"`
	LastRetryAt    *time.Time `json:"last_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`

	CampaignName string `json:"campaign_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// OnboardingLink is a token-addressed, time-bounded capability. Expiry is
// checked lazily on access; a maintenance sweep marks old links expired.
type OnboardingLink struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	CreatedBy          string     `json:"created_by"`
	LinkToken          string     `json:"link_token"`
	LinkURL            string     `json:"link_url"`
	TemplateName       string     `json:"template_name"`
	WelcomeMessage     string     `json:"welcome_message"`
	Status             string     `json:"status"` // active, used, expired, revoked
	CurrentStep        int        `json:"current_step"`
	TotalSteps         int        `json:"total_steps"`
	ProgressPercentage int        `json:"progress_percentage"`
	AccessCount        int        `json:"access_count"`
	ExpiresAt          time.Time  `json:"expires_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
	RevokedBy          *string    `json:"revoked_by,omitempty"`
	RevokedReason      string     `json:"revoked_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	OrganizationName string `json:"organization_name,omitempty"`
	CreatedByEmail   string `json:"created_by_email,omitempty"`
}

type CampaignAssignment struct {
	ID                string    `json:"assignment_id"`
	UserID            string    `json:"user_id"`
	CampaignID        string    `json:"campaign_id"`
	OrganizationID    string    `json:"organization_id"`
	AssignedBy        string    `json:"assigned_by"`
	Role              string    `json:"role"`
	CanEdit           bool      `json:"can_edit"`
	CanViewStats      bool      `json:"can_view_stats"`
	CanManageContacts bool      `json:"can_manage_contacts"`
	Status            string    `json:"status"`
	AssignedAt        time.Time `json:"assigned_at"`

	CampaignName   string `json:"campaign_name,omitempty"`
	CampaignStatus string `json:"campaign_status,omitempty"`
}

type ContactAssignment struct {
	ID             string    `json:"assignment_id"`
	UserID         string    `json:"user_id"`
	ContactID      string    `json:"contact_id"`
	OrganizationID string    `json:"organization_id"`
	AssignedBy     string    `json:"assigned_by"`
	AssignmentType string    `json:"assignment_type"` // manual, round_robin
	IsPrimaryOwner bool      `json:"is_primary_owner"`
	Status         string    `json:"status"`
	AssignedAt     time.Time `json:"assigned_at"`

	ContactEmail string `json:"contact_email,omitempty"`
}
