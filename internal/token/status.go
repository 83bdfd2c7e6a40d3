package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Presence is the redacted form of a token: whether it is set, never its value.
type Presence string

const (
	Set    Presence = "Set"
	NotSet Presence = "Not Set"
)

func presence(v string) Presence {
	if v == "" {
		return NotSet
	}
	return Set
}

// Status is a redacted snapshot of the manager state.
type Status struct {
	CurrentToken   Presence   `json:"currentToken"`
	PrimaryToken   Presence   `json:"primaryToken"`
	SecondaryToken Presence   `json:"secondaryToken"`
	ServiceToken   Presence   `json:"serviceToken"`
	Source         Source     `json:"source,omitempty"`
	TokenType      string     `json:"tokenType,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	LastRotation   time.Time  `json:"lastRotation"`
	NextRotation   time.Time  `json:"nextRotation"`
	IsRotating     bool       `json:"isRotating"`
	IsInitializing bool       `json:"isInitializing"`
}

// Status returns a redacted view of the current state. It has no side effects.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		CurrentToken:   NotSet,
		PrimaryToken:   presence(m.creds.PrimaryToken),
		SecondaryToken: presence(m.creds.SecondaryToken),
		ServiceToken:   presence(m.creds.ServiceToken),
		LastRotation:   m.lastRotation,
		NextRotation:   m.lastRotation.Add(m.interval),
		IsRotating:     m.rotating.Load(),
		IsInitializing: m.initializing.Load(),
	}

	if m.current != nil && m.current.AccessToken != "" {
		s.CurrentToken = Set
		s.Source = m.source
		s.TokenType = m.current.Type()
		if !m.current.Expiry.IsZero() {
			expiry := m.current.Expiry
			s.ExpiresAt = &expiry
		}
	}

	return s
}

// staticToken wraps a raw bearer value. If the value is a JWT with an exp
// claim, the expiry is recorded; the signature is not verified.
func staticToken(raw string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      jwtExpiry(raw),
	}
}

func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
