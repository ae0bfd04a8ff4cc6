package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPStatusThreshold = 300
	webhookTimeout             = 5 * time.Second

	EventLoginLockout = "login_lockout"
)

// SecurityEvent is the JSON body posted to WEBHOOK_URL.
type SecurityEvent struct {
	Event      string    `json:"event"`
	ClientKey  string    `json:"client_key"`
	Identifier string    `json:"identifier,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SecurityNotifier posts security events to an external webhook. Delivery is
// fire-and-forget; a missing URL disables it.
type SecurityNotifier struct {
	client     *http.Client
	log        *zap.SugaredLogger
	webhookURL string
}

func NewSecurityNotifier(log *zap.SugaredLogger, webhookURL string) *SecurityNotifier {
	return &SecurityNotifier{
		client:     &http.Client{Timeout: webhookTimeout},
		log:        log,
		webhookURL: webhookURL,
	}
}

func (s *SecurityNotifier) Enabled() bool { return s.webhookURL != "" }

// NotifyLockout reports that clientKey hit the login limit.
func (s *SecurityNotifier) NotifyLockout(ctx context.Context, clientKey, identifier string) {
	s.notify(ctx, SecurityEvent{
		Event:      EventLoginLockout,
		ClientKey:  clientKey,
		Identifier: identifier,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *SecurityNotifier) notify(ctx context.Context, event SecurityEvent) {
	if !s.Enabled() {
		return
	}

	// the request context is cancelled as soon as the handler returns
	ctx = context.WithoutCancel(ctx)

	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Errorw("failed to marshal webhook payload", "error", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
		if err != nil {
			s.log.Errorw("failed to create webhook request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Errorw("failed to send webhook", "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= defaultHTTPStatusThreshold {
			s.log.Warnw("webhook returned non-2xx status", "status", resp.StatusCode, "event", event.Event)
		}
	}()
}
