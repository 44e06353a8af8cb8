package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// EventType is the provider's webhook event kind. Unknown values still parse
// so new provider events never break ingestion; they route to the catch-all.
type EventType string

const (
	EventEmailSent        EventType = "email_sent"
	EventEmailOpened      EventType = "email_opened"
	EventReplyReceived    EventType = "reply_received"
	EventAutoReply        EventType = "auto_reply_received"
	EventLinkClicked      EventType = "link_clicked"
	EventEmailBounced     EventType = "email_bounced"
	EventLeadUnsubscribed EventType = "lead_unsubscribed"

	EventLeadNeutral       EventType = "lead_neutral"
	EventLeadInterested    EventType = "lead_interested"
	EventLeadNotInterested EventType = "lead_not_interested"
	EventLeadOutOfOffice   EventType = "lead_out_of_office"
	EventLeadWrongPerson   EventType = "lead_wrong_person"

	EventMeetingBooked    EventType = "lead_meeting_booked"
	EventMeetingCompleted EventType = "lead_meeting_completed"

	EventLeadClosed        EventType = "lead_closed"
	EventAccountError      EventType = "account_error"
	EventCampaignCompleted EventType = "campaign_completed"
)

var recognizedEvents = map[EventType]bool{
	EventEmailSent:         true,
	EventEmailOpened:       true,
	EventReplyReceived:     true,
	EventAutoReply:         true,
	EventLinkClicked:       true,
	EventEmailBounced:      true,
	EventLeadUnsubscribed:  true,
	EventLeadNeutral:       true,
	EventLeadInterested:    true,
	EventLeadNotInterested: true,
	EventLeadOutOfOffice:   true,
	EventLeadWrongPerson:   true,
	EventMeetingBooked:     true,
	EventMeetingCompleted:  true,
	EventLeadClosed:        true,
	EventAccountError:      true,
	EventCampaignCompleted: true,
}

func (e EventType) Recognized() bool {
	return recognizedEvents[e]
}

// Payload is one inbound webhook call from the provider. Named fields cover
// what the handlers consume; everything else lands in Extra so no provider
// field is ever dropped.
type Payload struct {
	Timestamp    string    `json:"timestamp"`
	EventType    EventType `json:"event_type"`
	WorkspaceID  string    `json:"workspace_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`

	LeadEmail    string `json:"lead_email,omitempty"`
	EmailAccount string `json:"email_account,omitempty"`
	UniboxURL    string `json:"unibox_url,omitempty"`

	Subject  string `json:"subject,omitempty"`
	BodyText string `json:"body_text,omitempty"`
	BodyHTML string `json:"body_html,omitempty"`

	OpenCount  int `json:"open_count,omitempty"`
	ClickCount int `json:"click_count,omitempty"`

	BounceType   string `json:"bounce_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`

	LeadID     string `json:"lead_id,omitempty"`
	LeadStatus string `json:"lead_status,omitempty"`

	MeetingURL  string `json:"meeting_url,omitempty"`
	MeetingTime string `json:"meeting_time,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`

	// Raw is the original request body, kept for audit storage.
	Raw []byte `json:"-"`
}

// namedPayloadKeys guards Extra against shadowing a named field.
var namedPayloadKeys = map[string]bool{
	"timestamp": true, "event_type": true, "workspace_id": true,
	"campaign_id": true, "campaign_name": true, "lead_email": true,
	"email_account": true, "unibox_url": true, "subject": true,
	"body_text": true, "body_html": true, "open_count": true,
	"click_count": true, "bounce_type": true, "error_message": true,
	"error_code": true, "lead_id": true, "lead_status": true,
	"meeting_url": true, "meeting_time": true, "extra": true,
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	type alias Payload
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	for key, value := range all {
		if namedPayloadKeys[key] {
			continue
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]any)
		}
		decoded.Extra[key] = value
	}

	*p = Payload(decoded)
	p.Raw = append([]byte(nil), data...)
	return p.validate()
}

func (p *Payload) validate() error {
	switch {
	case p.Timestamp == "":
		return fmt.Errorf("%w: missing timestamp", ErrInvalidPayload)
	case p.EventType == "":
		return fmt.Errorf("%w: missing event_type", ErrInvalidPayload)
	case p.WorkspaceID == "":
		return fmt.Errorf("%w: missing workspace_id", ErrInvalidPayload)
	case p.CampaignID == "":
		return fmt.Errorf("%w: missing campaign_id", ErrInvalidPayload)
	case p.CampaignName == "":
		return fmt.Errorf("%w: missing campaign_name", ErrInvalidPayload)
	}
	return nil
}

// Body prefers the plain-text body, falling back to HTML.
func (p *Payload) Body() string {
	if p.BodyText != "" {
		return p.BodyText
	}
	return p.BodyHTML
}
