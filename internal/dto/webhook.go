package dto

// WebhookEventDTO is the notification payload posted by the payment
// processor. ID is the processor's transaction identifier; amounts are in
// minor units.
type WebhookEventDTO struct {
	ID            string            `json:"id" example:"pi_3MtwBwLkdIwHu7ix28a3tqPa"`
	Type          string            `json:"type" example:"payment_intent.succeeded"`
	Amount        int64             `json:"amount" example:"8548"`
	Currency      string            `json:"currency" example:"eur"`
	Metadata      map[string]string `json:"metadata"`
	FailureReason string            `json:"failure_reason,omitempty"`
}
