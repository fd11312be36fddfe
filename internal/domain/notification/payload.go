package notification

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the channel-tagged union carried by a notification. Exactly
// one branch is set, matching the notification's Channel. It is decoded
// with DecodePayload at the wire boundary so the dispatcher never sees a
// loosely-typed map.
type Payload struct {
	Email *EmailPayload `json:"email,omitempty"`
	SMS   *SMSPayload   `json:"sms,omitempty"`
	Push  *PushPayload  `json:"push,omitempty"`
	InApp *InAppPayload `json:"inApp,omitempty"`
}

type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html,omitempty"`
}

type SMSPayload struct {
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

type PushPayload struct {
	DeviceToken string            `json:"deviceToken"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

type InAppPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link,omitempty"`
}

// DecodePayload interprets raw payload JSON for the given channel. The
// wire form is a flat object ({"to": ..., "subject": ...}); which fields
// are required depends on the channel.
func DecodePayload(ch Channel, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, fmt.Errorf("payload is empty")
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return Payload{}, fmt.Errorf("payload must be an object")
	}

	switch ch {
	case ChannelEmail:
		var p EmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, fmt.Errorf("decode email payload: %w", err)
		}
		if p.To == "" {
			return Payload{}, fmt.Errorf("email payload: to is required")
		}
		return Payload{Email: &p}, nil
	case ChannelSMS:
		var p SMSPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, fmt.Errorf("decode sms payload: %w", err)
		}
		if p.PhoneNumber == "" {
			return Payload{}, fmt.Errorf("sms payload: phoneNumber is required")
		}
		return Payload{SMS: &p}, nil
	case ChannelPush:
		var p PushPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, fmt.Errorf("decode push payload: %w", err)
		}
		if p.DeviceToken == "" {
			return Payload{}, fmt.Errorf("push payload: deviceToken is required")
		}
		return Payload{Push: &p}, nil
	case ChannelInApp:
		var p InAppPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Payload{}, fmt.Errorf("decode in-app payload: %w", err)
		}
		if p.Title == "" && p.Body == "" {
			return Payload{}, fmt.Errorf("in-app payload: title or body is required")
		}
		return Payload{InApp: &p}, nil
	default:
		return Payload{}, fmt.Errorf("unknown channel %q", ch)
	}
}
