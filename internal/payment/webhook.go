package payment

import (
	"encoding/json"
	"fmt"
	"io"
)

// Webhook event types the reconciler acts on. Other event types are
// acknowledged and ignored.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is the provider's asynchronous notification. Delivery is
// at-least-once and unordered relative to direct confirm calls; the
// intent id is the only key the reconciler needs to deduplicate.
type WebhookEvent struct {
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
	Metadata struct {
		UserID int64 `json:"user_id"`
	} `json:"metadata"`
}

// ParseWebhookEvent decodes a webhook payload. A payload without a type
// or intent id is malformed and rejected; the provider will retry with
// the same body, so there is no point accepting it.
func ParseWebhookEvent(r io.Reader) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&event); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if event.Type == "" || event.IntentID == "" {
		return nil, fmt.Errorf("webhook payload missing type or intent_id")
	}
	return &event, nil
}
