package notification

import (
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
	ChannelInApp Channel = "IN_APP"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

type Type string

const (
	TypeTransactional Type = "TRANSACTIONAL"
	TypeMarketing     Type = "MARKETING"
	TypeSystem        Type = "SYSTEM"
	TypeAlert         Type = "ALERT"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeTransactional, TypeMarketing, TypeSystem, TypeAlert:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
	StatusScheduled  Status = "SCHEDULED"
)

// Notification is the persisted record. The creation path writes the
// initial PENDING row; the worker owns every status transition after that.
// Once Status is SENT the record is terminal: no further dispatch happens
// for this id.
type Notification struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	TenantID       string     `json:"tenantId,omitempty"`
	Channel        Channel    `json:"channel"`
	Type           Type       `json:"type"`
	Priority       Priority   `json:"priority"`
	Payload        Payload    `json:"payload"`
	Status         Status     `json:"status"`
	RetryCount     int        `json:"retryCount"`
	MaxRetries     int        `json:"maxRetries"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty"`
	CorrelationID  string     `json:"correlationId,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	FailedAt       *time.Time `json:"failedAt,omitempty"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
}
