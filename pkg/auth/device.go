package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"seedrio/pkg/logger"
	"seedrio/pkg/persistence"
	"seedrio/pkg/seedr"
)

const (
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	credentialKey   = "credential"
)

// ErrUnknownDevice means the device_code was never registered or has been pruned.
var ErrUnknownDevice = errors.New("auth: unknown device_code")

// DeviceSession is one pending or completed device authorization.
// Sessions move one way, PENDING to AUTHORIZED; a denied or expired grant
// never transitions and is pruned by age.
type DeviceSession struct {
	DeviceCode      string    `json:"device_code"`
	UserCode        string    `json:"user_code"`
	VerificationURI string    `json:"verification_uri"`
	ExpiresIn       int       `json:"expires_in"`
	Interval        int       `json:"interval"`
	CreatedAt       time.Time `json:"created_at"`
	Authorized      bool      `json:"authorized"`
	Token           string    `json:"-"`
}

// PollResult is the outcome of one poll attempt.
type PollResult struct {
	Status      string `json:"status"` // "pending" or "authorized"
	AccessToken string `json:"access_token,omitempty"`
	Interval    int    `json:"interval,omitempty"`
}

// Manager holds device sessions and the account credential. It is the single
// writer for both; handlers share one instance by reference.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*DeviceSession
	token    string // token obtained via the device flow

	oauthURL    string
	clientID    string
	staticToken string // pasted bearer token (env), wins over the device flow
	cookie      string // session cookie (env)

	ttl    time.Duration
	state  *persistence.StateManager
	client *http.Client
}

// NewManager creates a device authorization manager. A previously persisted
// device-flow token is restored from state so a restart does not force
// re-authorization. The cleanup loop prunes sessions past their expiry.
func NewManager(oauthURL, clientID string, ttl time.Duration, state *persistence.StateManager) *Manager {
	m := &Manager{
		sessions: make(map[string]*DeviceSession),
		oauthURL: strings.TrimRight(oauthURL, "/"),
		clientID: clientID,
		ttl:      ttl,
		state:    state,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if state != nil {
		var tok string
		if found, err := state.Get(credentialKey, &tok); found && err == nil && tok != "" {
			m.token = tok
			logger.Info("Restored persisted credential")
		}
	}

	go m.cleanupLoop()

	return m
}

// UseStaticToken sets a pasted bearer token as the credential source.
func (m *Manager) UseStaticToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staticToken = token
}

// UseCookie sets a browser session cookie as the credential source.
func (m *Manager) UseCookie(cookie string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookie = cookie
}

// Credential implements seedr.CredentialSource.
// Precedence: pasted token, then cookie, then the device-flow token.
func (m *Manager) Credential() (seedr.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.staticToken != "":
		return seedr.Credential{Token: m.staticToken}, true
	case m.cookie != "":
		return seedr.Credential{Cookie: m.cookie}, true
	case m.token != "":
		return seedr.Credential{Token: m.token}, true
	}
	return seedr.Credential{}, false
}

// Authorized reports whether any credential is currently available.
func (m *Manager) Authorized() bool {
	_, ok := m.Credential()
	return ok
}

// PendingSessions returns the number of registered, not yet authorized sessions.
func (m *Manager) PendingSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sessions {
		if !s.Authorized {
			n++
		}
	}
	return n
}

// Start requests a device/user code pair from the remote and registers a new
// PENDING session keyed by device_code.
func (m *Manager) Start(ctx context.Context) (*DeviceSession, error) {
	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("scope", "user")

	var payload struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := m.postForm(ctx, m.oauthURL+"/device", form, &payload); err != nil {
		return nil, err
	}
	if payload.DeviceCode == "" {
		return nil, fmt.Errorf("auth: device endpoint returned no device_code")
	}
	if payload.VerificationURI == "" {
		payload.VerificationURI = "https://www.seedr.cc/devices"
	}
	if payload.Interval <= 0 {
		payload.Interval = 5
	}

	session := &DeviceSession{
		DeviceCode:      payload.DeviceCode,
		UserCode:        payload.UserCode,
		VerificationURI: payload.VerificationURI,
		ExpiresIn:       payload.ExpiresIn,
		Interval:        payload.Interval,
		CreatedAt:       time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.DeviceCode] = session
	m.mu.Unlock()

	logger.Info("Started device authorization", "user_code", session.UserCode, "expires_in", session.ExpiresIn)

	// Callers get a detached copy; the stored session is only ever touched
	// under the mutex, and a concurrent Poll may transition it at any time.
	snapshot := *session
	return &snapshot, nil
}

// Poll exchanges a device_code for a token. The caller re-invokes at the
// advertised interval; this does not schedule anything itself. Once a session
// is authorized, subsequent polls return the same token without a remote call.
func (m *Manager) Poll(ctx context.Context, deviceCode string) (*PollResult, error) {
	// Snapshot the session fields while holding the lock; a concurrent poll
	// for the same code may be writing them.
	m.mu.RLock()
	session, ok := m.sessions[deviceCode]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrUnknownDevice
	}
	authorized := session.Authorized
	token := session.Token
	interval := session.Interval
	userCode := session.UserCode
	m.mu.RUnlock()

	if authorized {
		return &PollResult{Status: "authorized", AccessToken: token}, nil
	}

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("grant_type", deviceGrantType)
	form.Set("device_code", deviceCode)

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := m.postForm(ctx, m.oauthURL+"/token", form, &payload); err != nil {
		return nil, err
	}

	if payload.AccessToken == "" {
		// authorization_pending / slow_down: the user hasn't finished yet
		logger.Debug("Device authorization pending", "device_code", deviceCode, "remote", payload.Error)
		return &PollResult{Status: "pending", Interval: interval}, nil
	}

	// Re-fetch under the write lock; cleanup may have pruned the session
	// while the token exchange was in flight.
	m.mu.Lock()
	if s, ok := m.sessions[deviceCode]; ok {
		s.Authorized = true
		s.Token = payload.AccessToken
	}
	m.token = payload.AccessToken
	m.mu.Unlock()

	if m.state != nil {
		if err := m.state.Set(credentialKey, payload.AccessToken); err != nil {
			logger.Warn("Failed to persist credential", "err", err)
		}
	}

	logger.Info("Device authorization completed", "user_code", userCode)
	return &PollResult{Status: "authorized", AccessToken: payload.AccessToken}, nil
}

// postForm posts a form and decodes the JSON body into target. The token
// endpoint answers 400 while the grant is pending, so non-2xx bodies that are
// valid JSON are still decoded; everything else is an error.
func (m *Manager) postForm(ctx context.Context, endpoint string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("auth: reading %s response: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("auth: %s returned status %d", endpoint, resp.StatusCode)
		}
		return fmt.Errorf("auth: malformed response from %s: %w", endpoint, err)
	}
	return nil
}

// cleanupLoop periodically removes expired sessions
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

// cleanup removes sessions past their advertised expiry (or the configured
// TTL when the remote didn't advertise one).
func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for code, session := range m.sessions {
		maxAge := m.ttl
		if session.ExpiresIn > 0 {
			maxAge = time.Duration(session.ExpiresIn) * time.Second
		}
		if now.Sub(session.CreatedAt) > maxAge {
			delete(m.sessions, code)
			logger.Debug("Pruned expired device session", "user_code", session.UserCode)
		}
	}
}
