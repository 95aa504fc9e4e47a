// Package identity verifies Telegram Mini App launch payloads (initData)
//
// The payload is a query string signed by the bot token. Verification derives
// a secondary key as HMAC-SHA256("WebAppData", token), hashes the canonical
// form of the payload with it, and compares the result with the embedded hash
// field. The canonical form is every key=value field except hash, sorted by
// its raw text and joined with newlines
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Shakha99/backend-repo/internal/apperr"
)

const (
	keyLabel   = "WebAppData"
	hashField  = "hash"
	userField  = "user"
	authField  = "auth_date"
	hashPrefix = hashField + "="
)

var (
	// ErrInvalidInitData is returned for any payload that fails verification
	ErrInvalidInitData = apperr.New(apperr.KindUnauthenticated, "invalid init data")
	// ErrExpiredInitData is returned when auth_date is older than the allowed age
	ErrExpiredInitData = apperr.New(apperr.KindUnauthenticated, "init data expired")
)

// Claims is the user profile embedded in the payload
type Claims struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

// InitData is a verified payload
type InitData struct {
	User     Claims
	AuthDate time.Time
}

// Verifier checks payload signatures against a bot token
type Verifier struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier for botToken. A zero maxAge disables the
// auth_date freshness check
func NewVerifier(botToken string, maxAge time.Duration, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secretKey: sign([]byte(keyLabel), []byte(botToken)),
		maxAge:    maxAge,
		now:       now,
	}
}

// Valid reports whether raw carries a correct signature
func (v *Verifier) Valid(raw string) bool {
	canonical, provided, ok := split(raw)
	if !ok {
		return false
	}

	expected := hex.EncodeToString(sign(v.secretKey, []byte(canonical)))
	return hmac.Equal([]byte(expected), []byte(provided))
}

// Verify checks the signature and decodes the identity claims
func (v *Verifier) Verify(raw string) (*InitData, error) {
	if !v.Valid(raw) {
		return nil, ErrInvalidInitData
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	data := &InitData{}
	if err := json.Unmarshal([]byte(values.Get(userField)), &data.User); err != nil || data.User.ID == 0 {
		return nil, ErrInvalidInitData
	}

	if ts := values.Get(authField); ts != "" {
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, ErrInvalidInitData
		}
		data.AuthDate = time.Unix(sec, 0).UTC()
	}

	if v.maxAge > 0 && v.now().Sub(data.AuthDate) > v.maxAge {
		return nil, ErrExpiredInitData
	}

	return data, nil
}

// Sign computes the hash field for the given fields (all but hash).
// Used by tests and tooling that need to mint payloads
func (v *Verifier) Sign(fields []string) string {
	return hex.EncodeToString(sign(v.secretKey, []byte(canonicalize(fields))))
}

// split separates the provided hash from the canonical data-check string
func split(raw string) (canonical, provided string, ok bool) {
	parts := strings.Split(raw, "&")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, hashPrefix) {
			provided = strings.TrimPrefix(p, hashPrefix)
			ok = true
			continue
		}
		fields = append(fields, p)
	}
	if !ok || provided == "" {
		return "", "", false
	}
	return canonicalize(fields), provided, true
}

func canonicalize(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n")
}

func sign(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
