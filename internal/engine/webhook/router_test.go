package webhook

import (
	"context"
	"errors"
	"testing"

	"mailbridge/internal/platform/models"
)

type fakeCampaignStore struct {
	campaigns     map[string]*models.Campaign
	statusUpdates map[string]string
}

func (f *fakeCampaignStore) GetByExternalID(ctx context.Context, externalID string) (*models.Campaign, error) {
	return f.campaigns[externalID], nil
}

func (f *fakeCampaignStore) UpdateStatus(ctx context.Context, campaignID, status string) error {
	if f.statusUpdates == nil {
		f.statusUpdates = make(map[string]string)
	}
	f.statusUpdates[campaignID] = status
	return nil
}

type fakeContactStore struct {
	existing map[string]string // email -> id
	created  []string
}

func (f *fakeContactStore) GetOrCreate(ctx context.Context, orgID, email string) (string, error) {
	if id, ok := f.existing[email]; ok {
		return id, nil
	}
	f.created = append(f.created, email)
	return "contact_" + email, nil
}

type fakeMessageStore struct {
	inserted []*models.Message
	err      error
}

func (f *fakeMessageStore) Insert(ctx context.Context, msg *models.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, msg)
	return "msg_1", nil
}

type fakeAccountStore struct {
	increments []string
	suspended  map[string]string
}

func (f *fakeAccountStore) IncrementSentCounters(ctx context.Context, accountID string) error {
	f.increments = append(f.increments, accountID)
	return nil
}

func (f *fakeAccountStore) HandleError(ctx context.Context, emailAddress, errorText string) error {
	if f.suspended == nil {
		f.suspended = make(map[string]string)
	}
	f.suspended[emailAddress] = errorText
	return nil
}

type fakeLogStore struct {
	entries []*models.WebhookLog
}

func (f *fakeLogStore) Append(ctx context.Context, entry *models.WebhookLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func testRouter() (*Router, *fakeCampaignStore, *fakeContactStore, *fakeMessageStore, *fakeAccountStore, *fakeLogStore) {
	accountID := "acct_1"
	campaigns := &fakeCampaignStore{campaigns: map[string]*models.Campaign{
		"camp_123": {
			ID:             "local_1",
			OrganizationID: "org_1",
			ExternalID:     "camp_123",
			Status:         "active",
			EmailAccountID: &accountID,
		},
	}}
	contacts := &fakeContactStore{existing: map[string]string{}}
	messages := &fakeMessageStore{}
	accounts := &fakeAccountStore{}
	logs := &fakeLogStore{}
	return NewRouter(campaigns, contacts, messages, accounts, logs), campaigns, contacts, messages, accounts, logs
}

func basePayload(eventType EventType) *Payload {
	return &Payload{
		Timestamp:    "2025-10-10T12:00:00Z",
		EventType:    eventType,
		WorkspaceID:  "ws_1",
		CampaignID:   "camp_123",
		CampaignName: "Spring Launch",
		Raw:          []byte(`{}`),
	}
}

func TestEmailSentCreatesContactMessageAndIncrementsCounters(t *testing.T) {
	router, _, contacts, messages, accounts, logs := testRouter()

	payload := basePayload(EventEmailSent)
	payload.LeadEmail = "lead@x.com"
	payload.EmailAccount = "a@b.com"

	result, err := router.Process(context.Background(), payload)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if !result.Handled || result.MessageID != "msg_1" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(contacts.created) != 1 || contacts.created[0] != "lead@x.com" {
		t.Errorf("expected contact created for lead@x.com, got %v", contacts.created)
	}
	if len(messages.inserted) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages.inserted))
	}
	msg := messages.inserted[0]
	if msg.Direction != "outbound" {
		t.Errorf("expected outbound direction, got %q", msg.Direction)
	}
	if msg.FromEmail != "a@b.com" || msg.ToEmail != "lead@x.com" {
		t.Errorf("unexpected message addressing: from=%q to=%q", msg.FromEmail, msg.ToEmail)
	}
	if len(accounts.increments) != 1 || accounts.increments[0] != "acct_1" {
		t.Errorf("expected counter increment for acct_1, got %v", accounts.increments)
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != "success" {
		t.Errorf("expected a success audit entry, got %+v", logs.entries)
	}
}

func TestReplyReceivedIsInboundWithoutCounterIncrement(t *testing.T) {
	router, _, _, messages, accounts, _ := testRouter()

	payload := basePayload(EventReplyReceived)
	payload.LeadEmail = "lead@x.com"
	payload.EmailAccount = "a@b.com"

	if _, err := router.Process(context.Background(), payload); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if messages.inserted[0].Direction != "inbound" {
		t.Errorf("expected inbound direction, got %q", messages.inserted[0].Direction)
	}
	if len(accounts.increments) != 0 {
		t.Errorf("reply must not increment send counters, got %v", accounts.increments)
	}
}

func TestAccountErrorSuspendsAccount(t *testing.T) {
	router, _, _, messages, accounts, _ := testRouter()

	payload := basePayload(EventAccountError)
	payload.EmailAccount = "a@b.com"
	payload.ErrorMessage = "SMTP auth failed"

	result, err := router.Process(context.Background(), payload)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !result.AccountSuspended || result.ErrorText != "SMTP auth failed" {
		t.Errorf("unexpected result: %+v", result)
	}
	if accounts.suspended["a@b.com"] != "SMTP auth failed" {
		t.Errorf("expected account suspended with error text, got %v", accounts.suspended)
	}
	if len(messages.inserted) != 1 {
		t.Errorf("account errors still write a message row, got %d", len(messages.inserted))
	}
}

func TestCampaignCompletedUpdatesStatusWithoutMessage(t *testing.T) {
	router, campaigns, _, messages, _, _ := testRouter()

	result, err := router.Process(context.Background(), basePayload(EventCampaignCompleted))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.CampaignID != "local_1" || result.CampaignStatus != "completed" {
		t.Errorf("unexpected result: %+v", result)
	}
	if campaigns.statusUpdates["local_1"] != "completed" {
		t.Errorf("expected status transition to completed, got %v", campaigns.statusUpdates)
	}
	if len(messages.inserted) != 0 {
		t.Errorf("campaign completion must not write a message, got %d", len(messages.inserted))
	}
}

func TestUnknownEventTypeIsAcceptedNoOp(t *testing.T) {
	router, _, _, messages, _, logs := testRouter()

	result, err := router.Process(context.Background(), basePayload(EventType("totally_unknown_kind")))
	if err != nil {
		t.Fatalf("unknown event type must not error, got %v", err)
	}
	if result.Handled || result.Reason != "unknown_event_type" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(messages.inserted) != 0 {
		t.Errorf("no-op route must not write messages, got %d", len(messages.inserted))
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != "success" {
		t.Errorf("unknown events still get an audit entry, got %+v", logs.entries)
	}
}

func TestUnresolvedCampaignFailsWithoutMessage(t *testing.T) {
	categories := []EventType{EventEmailSent, EventLeadInterested, EventMeetingBooked, EventAccountError, EventCampaignCompleted}

	for _, eventType := range categories {
		t.Run(string(eventType), func(t *testing.T) {
			router, _, _, messages, _, logs := testRouter()

			payload := basePayload(eventType)
			payload.CampaignID = "camp_missing"

			_, err := router.Process(context.Background(), payload)
			if !errors.Is(err, ErrCampaignNotFound) {
				t.Fatalf("expected ErrCampaignNotFound, got %v", err)
			}
			if len(messages.inserted) != 0 {
				t.Errorf("no message may be written on resolution failure, got %d", len(messages.inserted))
			}
			if len(logs.entries) != 1 || logs.entries[0].Status != "failed" {
				t.Errorf("expected a failed audit entry, got %+v", logs.entries)
			}
		})
	}
}

func TestRoutingPartition(t *testing.T) {
	// Each recognized event kind must land in exactly one handler group.
	for eventType := range recognizedEvents {
		groups := 0
		if emailEvents[eventType] {
			groups++
		}
		if leadStatusEvents[eventType] {
			groups++
		}
		if meetingEvents[eventType] {
			groups++
		}
		if eventType == EventAccountError {
			groups++
		}
		if eventType == EventCampaignCompleted {
			groups++
		}
		if eventType == EventLeadClosed {
			// Recognized but deliberately unrouted; falls through to the no-op path.
			if groups != 0 {
				t.Errorf("lead_closed should not belong to a handler group")
			}
			continue
		}
		if groups != 1 {
			t.Errorf("event %q belongs to %d handler groups, want 1", eventType, groups)
		}
	}
}

func TestLeadStatusEventEchoesStatus(t *testing.T) {
	router, _, _, _, _, _ := testRouter()

	payload := basePayload(EventLeadInterested)
	payload.LeadEmail = "lead@x.com"

	result, err := router.Process(context.Background(), payload)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.LeadStatus != "lead_interested" {
		t.Errorf("expected lead_status echoed, got %q", result.LeadStatus)
	}
}

func TestMeetingEventEchoesMeetingFields(t *testing.T) {
	router, _, _, _, _, _ := testRouter()

	payload := basePayload(EventMeetingBooked)
	payload.LeadEmail = "lead@x.com"
	payload.MeetingURL = "https://cal.example.com/m/1"
	payload.MeetingTime = "2025-10-11T15:00:00Z"

	result, err := router.Process(context.Background(), payload)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.MeetingURL != payload.MeetingURL || result.MeetingTime != payload.MeetingTime {
		t.Errorf("meeting fields not echoed: %+v", result)
	}
}
