package webhook

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPayloadParsesNamedAndExtraFields(t *testing.T) {
	body := []byte(`{
		"timestamp": "2025-10-10T12:00:00Z",
		"event_type": "email_sent",
		"workspace_id": "ws_1",
		"campaign_id": "camp_123",
		"campaign_name": "Spring Launch",
		"lead_email": "lead@x.com",
		"email_account": "a@b.com",
		"subject": "Hello",
		"open_count": 2,
		"campaign_owner": "someone",
		"sequence_step": 3
	}`)

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	if p.EventType != EventEmailSent {
		t.Errorf("expected event_type email_sent, got %q", p.EventType)
	}
	if p.LeadEmail != "lead@x.com" || p.EmailAccount != "a@b.com" {
		t.Errorf("named optional fields not decoded: %+v", p)
	}
	if p.OpenCount != 2 {
		t.Errorf("expected open_count 2, got %d", p.OpenCount)
	}
	if p.Extra["campaign_owner"] != "someone" {
		t.Errorf("unmapped field not folded into extra: %v", p.Extra)
	}
	if _, shadowed := p.Extra["lead_email"]; shadowed {
		t.Error("named field leaked into extra")
	}
	if len(p.Raw) == 0 {
		t.Error("original body not retained")
	}
}

func TestPayloadMissingRequiredField(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing timestamp", `{"event_type":"email_sent","workspace_id":"w","campaign_id":"c","campaign_name":"n"}`},
		{"missing event_type", `{"timestamp":"t","workspace_id":"w","campaign_id":"c","campaign_name":"n"}`},
		{"missing workspace_id", `{"timestamp":"t","event_type":"email_sent","campaign_id":"c","campaign_name":"n"}`},
		{"missing campaign_id", `{"timestamp":"t","event_type":"email_sent","workspace_id":"w","campaign_name":"n"}`},
		{"missing campaign_name", `{"timestamp":"t","event_type":"email_sent","workspace_id":"w","campaign_id":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Payload
			err := json.Unmarshal([]byte(tt.body), &p)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestPayloadUnknownEventTypeStillParses(t *testing.T) {
	body := []byte(`{"timestamp":"t","event_type":"totally_unknown_kind","workspace_id":"w","campaign_id":"c","campaign_name":"n"}`)

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unknown event_type should parse, got %v", err)
	}
	if p.EventType.Recognized() {
		t.Errorf("expected %q to be unrecognized", p.EventType)
	}
}

func TestEventTypeRecognized(t *testing.T) {
	for _, e := range []EventType{
		EventEmailSent, EventReplyReceived, EventAccountError,
		EventCampaignCompleted, EventMeetingBooked, EventLeadClosed,
	} {
		if !e.Recognized() {
			t.Errorf("expected %q to be recognized", e)
		}
	}
}

func TestPayloadBodyFallback(t *testing.T) {
	p := Payload{BodyHTML: "<p>hi</p>"}
	if p.Body() != "<p>hi</p>" {
		t.Errorf("expected HTML fallback, got %q", p.Body())
	}
	p.BodyText = "hi"
	if p.Body() != "hi" {
		t.Errorf("expected text preferred, got %q", p.Body())
	}
}
