// Package auth stores the bearer token sent to the city API.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/cities/internal/store/jsonstore"
)

const (
	credFileName = "credentials.json"
	// TokenEnv overrides the stored token when set.
	TokenEnv = "CITIES_TOKEN"
)

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT or server-provided)
}

// Dir is the per-user state directory, ~/.cities.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".cities"), nil
}

func credFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credFileName), nil
}

// GetToken returns nil, nil when no token is configured.
func GetToken() (*TokenInfo, error) {
	// 1) env override
	if env := stripBearer(os.Getenv(TokenEnv)); env != "" {
		return &TokenInfo{Token: env, Source: "env"}, nil
	}

	// 2) file
	p, err := credFilePath()
	if err != nil {
		return nil, err
	}
	var ti TokenInfo
	found, err := jsonstore.Load(p, &ti)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if !found {
		return nil, nil // not logged in
	}
	ti.Token = stripBearer(ti.Token)
	if ti.Token == "" {
		return nil, nil
	}
	return &ti, nil
}

func SetToken(token string, expires *time.Time) error {
	token = stripBearer(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if expires == nil {
		expires = jwtExpiry(token)
	}
	p, err := credFilePath()
	if err != nil {
		return err
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	// owner-only
	return jsonstore.Save(p, ti, 0o600)
}

func DeleteToken() error {
	p, err := credFilePath()
	if err != nil {
		return err
	}
	return jsonstore.Remove(p)
}

// Expired reports whether the token carries an expiry in the past.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && now.After(*ti.ExpiresAt)
}

// JWTPayload decodes the (unverified) payload of a JWT. ok is false for
// opaque tokens.
func JWTPayload(token string) (payload string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	p, err := decodeB64URL(parts[1])
	if err != nil {
		return "", false
	}
	return p, true
}

func jwtExpiry(token string) *time.Time {
	payload, ok := JWTPayload(token)
	if !ok {
		return nil
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal([]byte(payload), &claims); err != nil || claims.Exp == 0 {
		return nil
	}
	t := time.Unix(claims.Exp, 0).UTC()
	return &t
}

func decodeB64URL(s string) (string, error) {
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(dec), nil
}

// stripBearer trims s and drops a leading "Bearer" scheme. A bare scheme
// yields "".
func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 || !strings.EqualFold(s[:6], "bearer") {
		return s
	}
	rest := s[6:]
	if rest == "" {
		return ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return s
	}
	return strings.TrimSpace(rest)
}
