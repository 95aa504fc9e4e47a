package user

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Shakha99/backend-repo/internal/auth"
	"github.com/Shakha99/backend-repo/internal/database/dbtest"
	"github.com/Shakha99/backend-repo/internal/identity"
)

const testBotToken = "123456:test-bot-token"

func setupService(t *testing.T, now time.Time) (*Service, *identity.Verifier) {
	t.Helper()

	clock := func() time.Time { return now }
	verifier := identity.NewVerifier(testBotToken, time.Hour, clock)
	tokens := auth.NewTokenManager("jwt-secret", time.Hour, clock)

	return NewService(NewRepository(dbtest.New(t)), verifier, tokens, clock), verifier
}

func signedInitData(v *identity.Verifier, userJSON string, authDate time.Time) string {
	fields := []string{
		"user=" + url.QueryEscape(userJSON),
		"auth_date=" + strconv.FormatInt(authDate.Unix(), 10),
	}
	return strings.Join(fields, "&") + "&hash=" + v.Sign(fields)
}

func TestAuthenticateUpserts(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc, verifier := setupService(t, now)
	ctx := context.Background()

	first := signedInitData(verifier, `{"id":101,"username":"alisher","first_name":"Alisher","language_code":"uz"}`, now)
	user, token, err := svc.Authenticate(ctx, first)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if token == "" {
		t.Error("expected session token")
	}
	if user.Language != "uz" {
		t.Errorf("language: expected uz from client locale, got %q", user.Language)
	}

	// Profile changes overwrite, the stored language preference is kept
	if _, err := svc.SetLanguage(ctx, 101, "en"); err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}
	second := signedInitData(verifier, `{"id":101,"username":"alisher_new","first_name":"Alisher","language_code":"uz"}`, now)
	user, _, err = svc.Authenticate(ctx, second)
	if err != nil {
		t.Fatalf("second Authenticate failed: %v", err)
	}
	if user.Username != "alisher_new" {
		t.Errorf("username: expected overwrite, got %q", user.Username)
	}
	if user.Language != "en" {
		t.Errorf("language: expected preference en to survive re-auth, got %q", user.Language)
	}
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc, verifier := setupService(t, now)

	raw := signedInitData(verifier, `{"id":5,"first_name":"Eve"}`, now)
	raw = strings.Replace(raw, "auth_date=", "auth_date=1", 1)

	_, _, err := svc.Authenticate(context.Background(), raw)
	if !errors.Is(err, identity.ErrInvalidInitData) {
		t.Errorf("expected ErrInvalidInitData, got %v", err)
	}
}

func TestSetLanguage(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc, verifier := setupService(t, now)
	ctx := context.Background()

	if _, _, err := svc.Authenticate(ctx, signedInitData(verifier, `{"id":7,"first_name":"Bob","language_code":"de"}`, now)); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	user, err := svc.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if user.Language != DefaultLanguage {
		t.Errorf("unsupported client locale should fall back to %s, got %s", DefaultLanguage, user.Language)
	}

	tests := []struct {
		lang    string
		want    string
		wantErr error
	}{
		{"uz-Latn-UZ", "uz", nil},
		{"en-US", "en", nil},
		{"ru", "ru", nil},
		{"de", "", ErrUnsupportedLanguage},
		{"???", "", ErrUnsupportedLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			user, err := svc.SetLanguage(ctx, 7, tt.lang)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetLanguage failed: %v", err)
			}
			if user.Language != tt.want {
				t.Errorf("expected %s, got %s", tt.want, user.Language)
			}
		})
	}

	if _, err := svc.SetLanguage(ctx, 999, "ru"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
