package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	jwtService := &JWTService{}
	validToken, _ := jwtService.GenerateJWT(123, time.Now().Add(time.Hour))

	tests := []struct {
		name         string
		authHeader   string
		expectedCode int
		expectUserID bool
	}{
		{
			name:         "Valid Bearer token",
			authHeader:   "Bearer " + validToken,
			expectedCode: http.StatusOK,
			expectUserID: true,
		},
		{
			name:         "Missing header",
			authHeader:   "",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Not a Bearer scheme",
			authHeader:   "Basic dXNlcjpwYXNz",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Invalid token",
			authHeader:   "Bearer invalid.token.string",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID int
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = r.Context().Value(UserIDKey).(int)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/user/wallet", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectUserID {
				assert.Equal(t, 123, gotUserID)
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		apiKey       string
		header       string
		expectedCode int
	}{
		{
			name:         "Valid key",
			apiKey:       "admin_test",
			header:       "admin_test",
			expectedCode: http.StatusOK,
		},
		{
			name:         "Wrong key",
			apiKey:       "admin_test",
			header:       "guess",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "Missing key header",
			apiKey:       "admin_test",
			header:       "",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "Empty configured key rejects everything",
			apiKey:       "",
			header:       "",
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("PATCH", "/api/admin/orders/1/status", nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Key", tt.header)
			}
			rr := httptest.NewRecorder()

			AdminMiddleware(tt.apiKey)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}
