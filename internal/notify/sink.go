// Package notify delivers post-acceptance callbacks to third parties. A
// failing delivery is a first-class error for the caller, not a best-effort
// side effect: acceptance aborts when the configured sink rejects the event.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrCallbackFailed    = errors.New("notify: callback rejected the event")
	ErrMalformedCallback = errors.New("notify: callback url must be absolute http(s)")
)

// Event is the payload delivered after a claim has been created for an
// accepted offer.
type Event struct {
	Kind      string    `json:"kind"`
	OfferID   string    `json:"offer_id"`
	LoanID    string    `json:"loan_id"`
	ClaimRef  string    `json:"claim_ref"`
	Creditor  string    `json:"creditor"`
	Debtor    string    `json:"debtor"`
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	DueBy     time.Time `json:"due_by"`
}

type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// ValidateURL checks a callback destination at registration time, before any
// offer is persisted with it.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrMalformedCallback
	}
	return nil
}

// WebhookSink posts the event as JSON and signs the body with the offer's
// shared secret so the receiver can authenticate the origin.
type WebhookSink struct {
	client *http.Client
	url    string
	secret string
}

func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sign(s.secret, body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrCallbackFailed, resp.StatusCode, payload)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Factory builds a sink for an offer's callback configuration. Swapped for a
// recording fake in tests.
type Factory func(url, secret string) Sink

func WebhookFactory(url, secret string) Sink { return NewWebhookSink(url, secret) }
