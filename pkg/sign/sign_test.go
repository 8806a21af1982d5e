package sign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"pi_1","type":"payment_intent.succeeded"}`)
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name          string
		header        string
		body          []byte
		now           time.Time
		expectedError error
	}{
		{
			name:          "Valid signature",
			header:        Sign(secret, now, body),
			body:          body,
			now:           now,
			expectedError: nil,
		},
		{
			name:          "Valid signature within tolerance",
			header:        Sign(secret, now.Add(-4*time.Minute), body),
			body:          body,
			now:           now,
			expectedError: nil,
		},
		{
			name:          "Tampered body",
			header:        Sign(secret, now, body),
			body:          []byte(`{"id":"pi_2","type":"payment_intent.succeeded"}`),
			now:           now,
			expectedError: ErrSignatureMismatch,
		},
		{
			name:          "Wrong secret",
			header:        Sign("whsec_other", now, body),
			body:          body,
			now:           now,
			expectedError: ErrSignatureMismatch,
		},
		{
			name:          "Expired timestamp",
			header:        Sign(secret, now.Add(-6*time.Minute), body),
			body:          body,
			now:           now,
			expectedError: ErrTimestampExpired,
		},
		{
			name:          "Timestamp from the future",
			header:        Sign(secret, now.Add(6*time.Minute), body),
			body:          body,
			now:           now,
			expectedError: ErrTimestampExpired,
		},
		{
			name:          "Missing signature part",
			header:        "t=1700000000",
			body:          body,
			now:           now,
			expectedError: ErrInvalidHeader,
		},
		{
			name:          "Garbage header",
			header:        "nonsense",
			body:          body,
			now:           now,
			expectedError: ErrInvalidHeader,
		},
		{
			name:          "Non-numeric timestamp",
			header:        "t=abc,v1=deadbeef",
			body:          body,
			now:           now,
			expectedError: ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(secret, tt.header, tt.body, DefaultTolerance, tt.now)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignFormat(t *testing.T) {
	header := Sign("secret", time.Unix(1700000000, 0), []byte("body"))
	assert.Contains(t, header, "t=1700000000,v1=")
}
