package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SmsWebhook posts SMS messages to a provider-agnostic webhook, keeping the
// vendor integration outside this service.
type SmsWebhook struct {
	url    string
	client *http.Client
}

func NewSmsWebhook(url string) *SmsWebhook {
	return &SmsWebhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SmsWebhook) SendSms(ctx context.Context, to, body string) error {
	if s.url == "" {
		return errors.New("notify: sms webhook url not configured")
	}

	payload, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// SendEmail is unsupported on the SMS adapter.
func (s *SmsWebhook) SendEmail(ctx context.Context, to, subject, body string) error {
	return errors.New("notify: email not supported by sms webhook")
}

// Multi fans messages out to the channel-appropriate sender.
type Multi struct {
	Email Notifier
	Sms   Notifier
}

func (m Multi) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Email.SendEmail(ctx, to, subject, body)
}

func (m Multi) SendSms(ctx context.Context, to, body string) error {
	return m.Sms.SendSms(ctx, to, body)
}
