package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/metrics"
	"mailbridge/internal/platform/models"
)

var ErrCampaignNotFound = errors.New("campaign not found")

// Store interfaces keep the router testable without a database. The engine
// services implement them on the service-role pool with explicit org ids,
// since webhooks arrive unauthenticated and resolve their tenant through the
// campaign they reference.

type CampaignStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID, status string) error
}

type ContactStore interface {
	GetOrCreate(ctx context.Context, orgID, email string) (string, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) (string, error)
}

type AccountStore interface {
	IncrementSentCounters(ctx context.Context, accountID string) error
	HandleError(ctx context.Context, emailAddress, errorText string) error
}

type LogStore interface {
	Append(ctx context.Context, entry *models.WebhookLog) error
}

// Result is the handler outcome flattened into the HTTP response body.
type Result struct {
	Handled          bool   `json:"handled"`
	Reason           string `json:"reason,omitempty"`
	MessageID        string `json:"message_id,omitempty"`
	CampaignID       string `json:"campaign_id,omitempty"`
	EventType        string `json:"event_type,omitempty"`
	ProcessedAt      string `json:"processed_at,omitempty"`
	LeadStatus       string `json:"lead_status,omitempty"`
	MeetingURL       string `json:"meeting_url,omitempty"`
	MeetingTime      string `json:"meeting_time,omitempty"`
	AccountSuspended bool   `json:"account_suspended,omitempty"`
	ErrorText        string `json:"error,omitempty"`
	CampaignStatus   string `json:"status,omitempty"`
}

// Router dispatches one parsed payload to exactly one handler group and
// appends a WebhookLog row for every call, mapped or not.
type Router struct {
	campaigns CampaignStore
	contacts  ContactStore
	messages  MessageStore
	accounts  AccountStore
	logs      LogStore
}

func NewRouter(campaigns CampaignStore, contacts ContactStore, messages MessageStore, accounts AccountStore, logs LogStore) *Router {
	return &Router{
		campaigns: campaigns,
		contacts:  contacts,
		messages:  messages,
		accounts:  accounts,
		logs:      logs,
	}
}

var emailEvents = map[EventType]bool{
	EventEmailSent:        true,
	EventEmailOpened:      true,
	EventReplyReceived:    true,
	EventAutoReply:        true,
	EventLinkClicked:      true,
	EventEmailBounced:     true,
	EventLeadUnsubscribed: true,
}

var leadStatusEvents = map[EventType]bool{
	EventLeadInterested:    true,
	EventLeadNotInterested: true,
	EventLeadNeutral:       true,
	EventLeadOutOfOffice:   true,
	EventLeadWrongPerson:   true,
}

var meetingEvents = map[EventType]bool{
	EventMeetingBooked:    true,
	EventMeetingCompleted: true,
}

// Process routes the event. A nil error with Handled=false means the event
// kind is unknown and was accepted as a no-op.
func (r *Router) Process(ctx context.Context, payload *Payload) (*Result, error) {
	metrics.WebhooksReceivedTotal.WithLabelValues(string(payload.EventType)).Inc()
	start := time.Now()
	defer func() {
		metrics.WebhookProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	result, err := r.route(ctx, payload)
	if err != nil {
		metrics.WebhooksFailedTotal.Inc()
		r.appendLog(ctx, payload, nil, "failed", err.Error())
		return nil, err
	}

	if !result.Handled {
		metrics.WebhooksUnhandledTotal.Inc()
		log.Warn().Str("event_type", string(payload.EventType)).Msg("unknown webhook event type")
	} else {
		metrics.WebhooksProcessedTotal.Inc()
	}
	r.appendLog(ctx, payload, result, "success", "")
	return result, nil
}

func (r *Router) route(ctx context.Context, payload *Payload) (*Result, error) {
	switch {
	case emailEvents[payload.EventType]:
		return r.handleEmailEvent(ctx, payload)
	case leadStatusEvents[payload.EventType]:
		return r.handleLeadStatusEvent(ctx, payload)
	case meetingEvents[payload.EventType]:
		return r.handleMeetingEvent(ctx, payload)
	case payload.EventType == EventAccountError:
		return r.handleAccountError(ctx, payload)
	case payload.EventType == EventCampaignCompleted:
		return r.handleCampaignCompleted(ctx, payload)
	default:
		return &Result{Handled: false, Reason: "unknown_event_type"}, nil
	}
}

// recordMessage is the shared path for categories 1-4: resolve campaign (hard
// precondition), lazily resolve contact, write one Message row, and on
// email_sent bump the assigned account's counters. The Message insert and the
// counter update are two separate statements; a failure between them leaves
// the counter stale, which is this system's accepted consistency bar.
func (r *Router) recordMessage(ctx context.Context, payload *Payload) (*Result, error) {
	campaign, err := r.campaigns.GetByExternalID(ctx, payload.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign %s: %w", payload.CampaignID, err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, payload.CampaignID)
	}

	var contactID *string
	if payload.LeadEmail != "" {
		id, err := r.contacts.GetOrCreate(ctx, campaign.OrganizationID, payload.LeadEmail)
		if err != nil {
			return nil, fmt.Errorf("resolve contact %s: %w", payload.LeadEmail, err)
		}
		contactID = &id
	}

	direction := "outbound"
	if payload.EventType == EventReplyReceived {
		direction = "inbound"
	}

	fromEmail := payload.EmailAccount
	if fromEmail == "" {
		fromEmail = payload.LeadEmail
	}

	msg := &models.Message{
		OrganizationID: campaign.OrganizationID,
		CampaignID:     campaign.ID,
		ContactID:      contactID,
		EmailAccountID: campaign.EmailAccountID,
		FromEmail:      fromEmail,
		ToEmail:        payload.LeadEmail,
		Direction:      direction,
		Status:         string(payload.EventType),
		EventType:      string(payload.EventType),
		Subject:        payload.Subject,
		Body:           payload.Body(),
		ExternalData:   payload.Raw,
	}
	messageID, err := r.messages.Insert(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if payload.EventType == EventEmailSent && campaign.EmailAccountID != nil {
		if err := r.accounts.IncrementSentCounters(ctx, *campaign.EmailAccountID); err != nil {
			return nil, fmt.Errorf("increment sent counters: %w", err)
		}
	}

	return &Result{
		Handled:     true,
		MessageID:   messageID,
		CampaignID:  campaign.ID,
		EventType:   string(payload.EventType),
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (r *Router) handleEmailEvent(ctx context.Context, payload *Payload) (*Result, error) {
	result, err := r.recordMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("event_type", string(payload.EventType)).
		Str("email_account", payload.EmailAccount).
		Str("lead_email", payload.LeadEmail).
		Msg("email event processed")
	return result, nil
}

func (r *Router) handleLeadStatusEvent(ctx context.Context, payload *Payload) (*Result, error) {
	result, err := r.recordMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	// Contact status is not updated here; the lead status lives on the
	// Message row until contact-level scoring lands.
	result.LeadStatus = string(payload.EventType)
	log.Info().
		Str("lead_email", payload.LeadEmail).
		Str("lead_status", result.LeadStatus).
		Msg("lead status event processed")
	return result, nil
}

func (r *Router) handleMeetingEvent(ctx context.Context, payload *Payload) (*Result, error) {
	result, err := r.recordMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	result.MeetingURL = payload.MeetingURL
	result.MeetingTime = payload.MeetingTime
	log.Info().
		Str("lead_email", payload.LeadEmail).
		Str("meeting_time", payload.MeetingTime).
		Msg("meeting event processed")
	return result, nil
}

func (r *Router) handleAccountError(ctx context.Context, payload *Payload) (*Result, error) {
	result, err := r.recordMessage(ctx, payload)
	if err != nil {
		return nil, err
	}

	errorText := payload.ErrorMessage
	if errorText == "" {
		errorText = "Unknown account error"
	}
	if payload.EmailAccount != "" {
		if err := r.accounts.HandleError(ctx, payload.EmailAccount, errorText); err != nil {
			return nil, fmt.Errorf("suspend account %s: %w", payload.EmailAccount, err)
		}
		log.Warn().
			Str("email_account", payload.EmailAccount).
			Str("error", errorText).
			Msg("email account suspended")
	}

	result.AccountSuspended = true
	result.ErrorText = errorText
	return result, nil
}

func (r *Router) handleCampaignCompleted(ctx context.Context, payload *Payload) (*Result, error) {
	campaign, err := r.campaigns.GetByExternalID(ctx, payload.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign %s: %w", payload.CampaignID, err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, payload.CampaignID)
	}

	if err := r.campaigns.UpdateStatus(ctx, campaign.ID, "completed"); err != nil {
		return nil, fmt.Errorf("complete campaign %s: %w", campaign.ID, err)
	}

	log.Info().
		Str("campaign_id", campaign.ID).
		Str("campaign_name", payload.CampaignName).
		Msg("campaign completed")

	return &Result{
		Handled:        true,
		CampaignID:     campaign.ID,
		CampaignStatus: "completed",
	}, nil
}

// appendLog writes the audit row. Audit failures are logged, never surfaced:
// the domain outcome already happened.
func (r *Router) appendLog(ctx context.Context, payload *Payload, result *Result, status, errorMessage string) {
	if r.logs == nil {
		return
	}

	entry := &models.WebhookLog{
		EventType:    string(payload.EventType),
		EventSource:  "instantly",
		Status:       status,
		Payload:      payload.Raw,
		ErrorMessage: errorMessage,
	}
	if result != nil && result.CampaignID != "" {
		id := result.CampaignID
		entry.CampaignID = &id
	}
	if status == "success" {
		now := time.Now().UTC()
		entry.ProcessedAt = &now
	}

	if err := r.logs.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("event_type", string(payload.EventType)).Msg("failed to append webhook log")
	}
}
