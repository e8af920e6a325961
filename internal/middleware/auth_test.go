package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradesim/tradesim-api/internal/pkg/jwt"
)

func TestAuthResolvesCallerIdentity(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	userID := uuid.New()

	token, err := jwtService.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	var gotUserID uuid.UUID
	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != userID {
		t.Fatalf("expected user id %s in context, got %s", userID, gotUserID)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	otherService := jwt.NewService("other-secret", time.Hour)
	expiredService := jwt.NewService("test-secret", -time.Minute)

	foreignToken, _ := otherService.GenerateAccessToken(uuid.New())
	expiredToken, _ := expiredService.GenerateAccessToken(uuid.New())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + foreignToken},
		{"expired", "Bearer " + expiredToken},
	}

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached without valid auth")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
