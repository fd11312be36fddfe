package notification

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the wire form on the broker (JSON). Payload stays raw until
// Validate decodes it against the channel.
type Message struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	TenantID       string          `json:"tenantId,omitempty"`
	Channel        Channel         `json:"channel"`
	Type           Type            `json:"type"`
	Priority       Priority        `json:"priority"`
	Payload        json.RawMessage `json:"payload"`
	CorrelationID  string          `json:"correlationId,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	RetryCount     int             `json:"retryCount,omitempty"`
	// DelayMs is attached by the retry router; a retry-topic consumer
	// holds the message back until the delay has elapsed.
	DelayMs int64 `json:"delayMs,omitempty"`

	decoded Payload
}

// Validate checks the required fields and decodes the payload union.
// A message that fails here cannot be reprocessed meaningfully and must
// be consumed without retry.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid type %q", m.Type)
	}
	p, err := DecodePayload(m.Channel, m.Payload)
	if err != nil {
		return err
	}
	m.decoded = p
	return nil
}

// Notification builds the in-memory notification handed to the dispatcher.
// Call only after Validate succeeded.
func (m *Message) Notification() *Notification {
	prio := m.Priority
	if !prio.IsValid() {
		prio = PriorityMedium
	}
	return &Notification{
		ID:             m.ID,
		UserID:         m.UserID,
		TenantID:       m.TenantID,
		Channel:        m.Channel,
		Type:           m.Type,
		Priority:       prio,
		Payload:        m.decoded,
		Status:         StatusProcessing,
		RetryCount:     m.RetryCount,
		IdempotencyKey: m.IdempotencyKey,
		CorrelationID:  m.CorrelationID,
	}
}

// DeadLetter is the envelope published to the dead-letter topic once a
// message has exhausted its retry budget. It is kept replayable: the
// original message rides along verbatim.
type DeadLetter struct {
	Message      Message   `json:"message"`
	ErrorMessage string    `json:"errorMessage"`
	Exhausted    bool      `json:"exhausted"`
	RetryCount   int       `json:"retryCount"`
	FailedAt     time.Time `json:"failedAt"`
}
