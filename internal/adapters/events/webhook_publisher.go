package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

const defaultWebhookTimeout = 10 * time.Second

const (
	HeaderTopic     = "X-Entitygen-Topic"
	HeaderEventType = "X-Entitygen-Event-Type"
	HeaderTenant    = "X-Entitygen-Tenant"
	HeaderSession   = "X-Entitygen-Session"
	HeaderDelivery  = "X-Entitygen-Delivery"
	HeaderSignature = "X-Hub-Signature-256"
)

// WebhookPublisher hands generation events to the orchestration endpoint.
// Bodies are signed with HMAC-SHA256. Non-2xx responses are errors so the
// outbox dispatcher retries them.
type WebhookPublisher struct {
	url    string
	secret []byte
	client *http.Client
}

// NewWebhookPublisher posts to url. A non-positive timeout means
// defaultWebhookTimeout.
func NewWebhookPublisher(url, secret string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookPublisher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, topic string, event domain.GenerationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTopic, topic)
	req.Header.Set(HeaderEventType, event.EventType)
	req.Header.Set(HeaderTenant, event.TenantID)
	req.Header.Set(HeaderSession, event.SessionID)
	// receivers deduplicate retried deliveries by event id
	req.Header.Set(HeaderDelivery, event.EventID)
	req.Header.Set(HeaderSignature, "sha256="+Sign(p.secret, payload))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a X-Hub-Signature-256 header value against payload.
func Verify(secret, payload []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	got, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
