package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
)

type Config struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Sender posts SMS and PUSH notifications to a provider webhook. The
// provider's reply {"id": "..."} becomes the provider message id.
type Sender struct {
	url   string
	token string
	ua    string
	httpc *http.Client
	log   *zap.Logger
}

var _ notification.Sender = (*Sender)(nil)

func New(name string, cfg Config) *Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sender{
		url:   cfg.URL,
		token: cfg.Token,
		ua:    cfg.UserAgent,
		httpc: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: zap.L().With(zap.String("component", "sender."+name)),
	}
}

func (s *Sender) WithLogger(l *zap.Logger, name string) *Sender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "sender."+name))
	return &cp
}

type providerRequest struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
	TenantID       string `json:"tenantId,omitempty"`
	Priority       string `json:"priority"`
	CorrelationID  string `json:"correlationId,omitempty"`
	SMS            any    `json:"sms,omitempty"`
	Push           any    `json:"push,omitempty"`
}

type providerResponse struct {
	ID string `json:"id"`
}

func (s *Sender) Send(ctx context.Context, n *notification.Notification) (notification.SendResult, error) {
	req := providerRequest{
		NotificationID: n.ID,
		UserID:         n.UserID,
		TenantID:       n.TenantID,
		Priority:       string(n.Priority),
		CorrelationID:  n.CorrelationID,
	}
	switch n.Channel {
	case notification.ChannelSMS:
		req.SMS = n.Payload.SMS
	case notification.ChannelPush:
		req.Push = n.Payload.Push
	default:
		return notification.SendResult{}, fmt.Errorf("webhook sender cannot deliver channel %s", n.Channel)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("marshal provider request: %w", err)
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("build provider request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		hr.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.ua != "" {
		hr.Header.Set("User-Agent", s.ua)
	}

	start := time.Now()
	resp, err := s.httpc.Do(hr)
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return notification.SendResult{}, fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&pr); err != nil {
		// Delivery succeeded; an unreadable body only loses the provider id.
		s.log.Debug("provider response not decodable", zap.Error(err))
	}

	s.log.Info("webhook delivered",
		zap.String("notification_id", n.ID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return notification.SendResult{ProviderMessageID: pr.ID}, nil
}
