// Package token owns the Port API bearer token for the life of the process.
//
// A Manager holds the current token, seeds it from the static primary token,
// acquires one from client credentials on first use, and rotates it on demand
// or on a schedule. Rotation falls back from a generated token to the static
// primary/secondary pair. Rotation and initialization are each single-flight.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/config"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ErrMissingCredentials is returned when a token must be generated but the
// client id or secret is not configured.
var ErrMissingCredentials = errors.New("client credentials not configured: set PORT_CLIENT_ID and PORT_CLIENT_SECRET")

// ErrEmptyToken is returned by CheckToken for an empty token. No request is made.
var ErrEmptyToken = errors.New("no token to validate")

// InvalidTokenError explains why a token failed validation: either the Port
// API answered with a non-200 status, or the request itself failed.
type InvalidTokenError struct {
	StatusCode int // zero when no response was received
	Err        error
}

func (e *InvalidTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token could not be validated: %v", e.Err)
	}
	return fmt.Sprintf("token was not accepted by the Port API: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *InvalidTokenError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the Port API explicitly refused the token.
func (e *InvalidTokenError) Rejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

const initKey = "initialize"

// Authenticator performs the upstream calls the manager depends on.
// *api.Client implements it.
type Authenticator interface {
	RequestAccessToken(ctx context.Context, clientID, clientSecret string) (*api.TokenResponse, error)
	Probe(ctx context.Context, token string) (int, error)
}

// Source identifies which credential produced the current token.
type Source string

const (
	SourceNone      Source = ""
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceGenerated Source = "generated"
)

// Outcome is the result of a rotation attempt.
type Outcome string

const (
	// OutcomeSkipped means another rotation was already in flight.
	OutcomeSkipped    Outcome = "skipped"
	OutcomeStillValid Outcome = "still_valid"
	OutcomeGenerated  Outcome = "generated"
	OutcomeBackup     Outcome = "backup"
	// OutcomeFailed leaves the current token unchanged.
	OutcomeFailed Outcome = "failed"
)

// Changed reports whether the rotation replaced the current token.
func (o Outcome) Changed() bool {
	return o == OutcomeGenerated || o == OutcomeBackup
}

// Manager owns the current bearer token.
type Manager struct {
	creds          config.Credentials
	auth           Authenticator
	now            func() time.Time
	interval       time.Duration
	requestTimeout time.Duration
	log            zerolog.Logger

	mu           sync.RWMutex
	current      *oauth2.Token
	source       Source
	lastRotation time.Time

	rotating     atomic.Bool
	initializing atomic.Bool
	initGroup    singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for rotation timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRotationInterval sets the scheduled rotation interval reported in Status.
func WithRotationInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithRequestTimeout bounds each validate and token exchange call.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// WithLogger sets the manager logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a Manager seeded from the static primary token, if any.
// It performs no network I/O.
func NewManager(creds config.Credentials, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		creds:          creds,
		auth:           auth,
		now:            time.Now,
		interval:       config.DefaultRotationInterval,
		requestTimeout: config.DefaultValidateTimeout,
		log:            logging.Component("token"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if creds.PrimaryToken != "" {
		m.current = staticToken(creds.PrimaryToken)
		m.source = SourcePrimary
	}
	m.lastRotation = m.now()

	m.log.Info().
		Str("primary_token", string(presence(creds.PrimaryToken))).
		Str("secondary_token", string(presence(creds.SecondaryToken))).
		Str("service_token", string(presence(creds.ServiceToken))).
		Str("client_id", string(presence(creds.ClientID))).
		Str("client_secret", string(presence(creds.ClientSecret))).
		Msg("Token manager initialized")

	if creds.PrimaryToken == "" && !creds.HasClientCredentials() {
		m.log.Warn().Msg("No primary token or client credentials set")
	}

	return m
}

// Interval returns the scheduled rotation interval.
func (m *Manager) Interval() time.Duration {
	return m.interval
}

func (m *Manager) snapshot() (string, Source) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", SourceNone
	}
	return m.current.AccessToken, m.source
}

func (m *Manager) token() string {
	tok, _ := m.snapshot()
	return tok
}

// adopt replaces the current token and records the rotation time.
func (m *Manager) adopt(tok *oauth2.Token, source Source) {
	now := m.now()

	m.mu.Lock()
	m.current = tok
	m.source = source
	m.lastRotation = now
	m.mu.Unlock()

	metrics.TokenLastRotation.Set(float64(now.Unix()))
}

// CurrentToken returns the in-memory token without blocking. When no token is
// set and client credentials are configured, it starts initialization in the
// background.
func (m *Manager) CurrentToken() string {
	tok := m.token()
	if tok == "" && m.creds.HasClientCredentials() && !m.initializing.Load() {
		m.initGroup.DoChan(initKey, m.initFunc(context.Background()))
	}
	return tok
}

// AwaitToken returns the current token, or waits up to maxWait for
// initialization to produce one. It joins an in-flight initialization or
// starts one, and wakes as soon as it completes. It returns "" if no token is
// available when the wait ends.
func (m *Manager) AwaitToken(ctx context.Context, maxWait time.Duration) string {
	if tok := m.token(); tok != "" {
		return tok
	}
	if !m.creds.HasClientCredentials() {
		return ""
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case res := <-m.initGroup.DoChan(initKey, m.initFunc(ctx)):
		if res.Err != nil {
			m.log.Debug().Err(res.Err).Msg("Token initialization finished without a token")
		}
	case <-timer.C:
		m.log.Warn().Dur("waited", maxWait).Msg("Timed out waiting for token initialization")
	case <-ctx.Done():
	}

	return m.token()
}

// Initialize acquires a first token from client credentials. Concurrent
// callers share a single in-flight exchange. The exchange is detached from
// ctx cancellation so one caller giving up does not abort it for the others.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.creds.HasClientCredentials() {
		return ErrMissingCredentials
	}

	select {
	case res := <-m.initGroup.DoChan(initKey, m.initFunc(ctx)):
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) initFunc(ctx context.Context) func() (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	return func() (interface{}, error) {
		return m.initialize(detached)
	}
}

func (m *Manager) initialize(ctx context.Context) (interface{}, error) {
	m.initializing.Store(true)
	defer m.initializing.Store(false)

	// A rotation may have installed a token while we were queued.
	if tok := m.token(); tok != "" {
		return tok, nil
	}

	m.log.Info().Msg("Initializing token from client credentials")

	tok, err := m.exchange(ctx)
	if err != nil {
		metrics.TokenInitializations.WithLabelValues("error").Inc()
		m.log.Error().Err(err).Msg("Token initialization failed")
		return nil, err
	}

	m.adopt(tok, SourceGenerated)
	metrics.TokenInitializations.WithLabelValues("success").Inc()
	m.log.Info().Msg("Token initialized from client credentials")
	return tok.AccessToken, nil
}

// exchange requests a new access token using the configured client credentials.
func (m *Manager) exchange(ctx context.Context) (*oauth2.Token, error) {
	if !m.creds.HasClientCredentials() {
		return nil, ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	resp, err := m.auth.RequestAccessToken(ctx, m.creds.ClientID, m.creds.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	tok := staticToken(resp.AccessToken)
	if resp.TokenType != "" {
		tok.TokenType = resp.TokenType
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// GenerateToken exchanges the client credentials for a new access token and
// returns it. It does not replace the current token.
func (m *Manager) GenerateToken(ctx context.Context) (string, error) {
	tok, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// ValidateToken probes the Port API with token. Only an explicit 200 counts as
// valid; transport errors and any other status are treated as invalid.
func (m *Manager) ValidateToken(ctx context.Context, token string) bool {
	return m.CheckToken(ctx, token) == nil
}

// CheckToken is ValidateToken with the reason. It returns ErrEmptyToken or an
// *InvalidTokenError when the token is not usable.
func (m *Manager) CheckToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	status, err := m.auth.Probe(ctx, token)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		m.log.Warn().Err(err).Msg("Token validation failed")
		return &InvalidTokenError{Err: err}
	}
	if status != http.StatusOK {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		m.log.Warn().Int("status", status).Msg("Token validation failed")
		return &InvalidTokenError{StatusCode: status}
	}

	metrics.TokenValidations.WithLabelValues("valid").Inc()
	return nil
}

// Rotate validates the current token and replaces it if it no longer works.
// A call made while another rotation is in flight returns OutcomeSkipped
// without doing anything. Rotate never fails: problems are logged and leave
// the current token unchanged.
func (m *Manager) Rotate(ctx context.Context) Outcome {
	if !m.rotating.CompareAndSwap(false, true) {
		m.log.Debug().Msg("Token rotation already in progress")
		metrics.TokenRotations.WithLabelValues(string(OutcomeSkipped)).Inc()
		return OutcomeSkipped
	}
	defer m.rotating.Store(false)

	outcome := m.rotate(ctx)
	metrics.TokenRotations.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (m *Manager) rotate(ctx context.Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("Token rotation error")
			outcome = OutcomeFailed
		}
	}()

	current, source := m.snapshot()
	if m.currentUsable() && m.ValidateToken(ctx, current) {
		m.log.Debug().Str("source", string(source)).Msg("Current token still valid")
		return OutcomeStillValid
	}

	m.log.Info().Str("source", string(source)).Msg("Current token invalid, attempting rotation")

	if m.creds.HasClientCredentials() {
		tok, err := m.exchange(ctx)
		if err == nil {
			m.adopt(tok, SourceGenerated)
			m.log.Info().Msg("Token rotated successfully (programmatically generated)")
			return OutcomeGenerated
		}
		m.log.Warn().Err(err).Msg("Programmatic token generation failed, trying backup tokens")
	}

	candidate, candidateSource := m.creds.PrimaryToken, SourcePrimary
	if current == m.creds.PrimaryToken {
		candidate, candidateSource = m.creds.SecondaryToken, SourceSecondary
	}

	if candidate != "" && m.ValidateToken(ctx, candidate) {
		m.adopt(staticToken(candidate), candidateSource)
		m.log.Info().Str("source", string(candidateSource)).Msg("Token rotated successfully (backup token)")
		return OutcomeBackup
	}

	m.log.Warn().Msg("All tokens appear to be invalid")
	return OutcomeFailed
}

// currentUsable is false when the current token is absent or already past
// its known expiry, so no probe is needed to call it invalid.
func (m *Manager) currentUsable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return false
	}
	return m.current.Expiry.IsZero() || m.now().Before(m.current.Expiry)
}

// Refresh rotates and returns the token current afterwards. The result may
// come from a concurrent rotation rather than this call.
func (m *Manager) Refresh(ctx context.Context) string {
	m.Rotate(ctx)
	return m.CurrentToken()
}
