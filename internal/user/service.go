package user

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/identity"
)

// Common errors
var (
	ErrUserNotFound        = apperr.New(apperr.KindNotFound, "user not found")
	ErrUnsupportedLanguage = apperr.New(apperr.KindBadRequest, "unsupported language")
)

// supportedLanguages lists the locales the bot is translated to; the first is the fallback
var supportedLanguages = []language.Tag{language.Russian, language.Uzbek, language.English}

var languageMatcher = language.NewMatcher(supportedLanguages)

// TokenIssuer issues session tokens for verified users
type TokenIssuer interface {
	Generate(userID int64) (string, error)
}

// Service handles user business logic
type Service struct {
	repo     *Repository
	verifier *identity.Verifier
	tokens   TokenIssuer
	now      func() time.Time
}

// NewService creates a new user service with dependencies injected
func NewService(repo *Repository, verifier *identity.Verifier, tokens TokenIssuer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, verifier: verifier, tokens: tokens, now: now}
}

// Authenticate verifies the initData payload, upserts the user and issues a session token
func (s *Service) Authenticate(ctx context.Context, initData string) (*User, string, error) {
	data, err := s.verifier.Verify(initData)
	if err != nil {
		return nil, "", err
	}

	lang, ok := MatchLanguage(data.User.LanguageCode)
	if !ok {
		lang = DefaultLanguage
	}

	err = s.repo.Upsert(ctx, &User{
		TelegramID: data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		Language:   lang,
	}, s.now().UTC())
	if err != nil {
		return nil, "", err
	}

	user, err := s.GetByID(ctx, data.User.ID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user.TelegramID)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User authenticated", "tg_id", user.TelegramID, "username", user.Username)
	return user, token, nil
}

// GetByID retrieves a user by their platform ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetLanguage validates and stores the user's locale preference
func (s *Service) SetLanguage(ctx context.Context, id int64, lang string) (*User, error) {
	matched, ok := MatchLanguage(lang)
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	updated, err := s.repo.UpdateLanguage(ctx, id, matched, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrUserNotFound
	}

	return s.GetByID(ctx, id)
}

// MatchLanguage maps a BCP 47 tag such as "uz-Latn-UZ" to a supported locale
func MatchLanguage(raw string) (string, bool) {
	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}

	_, idx, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return "", false
	}

	base, _ := supportedLanguages[idx].Base()
	return base.String(), true
}
