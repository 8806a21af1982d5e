package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature header format: "t=<unix seconds>,v1=<hex hmac-sha256>".
// The digest covers "<timestamp>.<raw body>" so a captured signature cannot
// be replayed against a different payload or outside the tolerance window.

const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidHeader     = errors.New("invalid signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTimestampExpired  = errors.New("signature timestamp outside tolerance")
)

func Sign(secret string, timestamp time.Time, body []byte) string {
	ts := strconv.FormatInt(timestamp.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, digest(secret, ts, body))
}

func Verify(secret, header string, body []byte, tolerance time.Duration, now time.Time) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidHeader
	}
	age := now.Sub(time.Unix(issued, 0))
	if age > tolerance || age < -tolerance {
		return ErrTimestampExpired
	}

	expected := digest(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureMismatch
	}
	return nil
}

func parseHeader(header string) (timestamp, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return "", "", ErrInvalidHeader
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signature = v
		}
	}
	if timestamp == "" || signature == "" {
		return "", "", ErrInvalidHeader
	}
	return timestamp, signature, nil
}

func digest(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
