package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shakha99/backend-repo/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour, nil)
	valid, err := tokens.Generate(7)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen int64
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   int64
	}{
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, 0},
		{"bad token", "Bearer nope", http.StatusUnauthorized, 0},
		{"valid token", "Bearer " + valid, http.StatusNoContent, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if seen != tt.wantUser {
				t.Errorf("user id: expected %d, got %d", tt.wantUser, seen)
			}
		})
	}
}
