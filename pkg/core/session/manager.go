package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/angelospk/subdivx-dl/internal/constants"
	"github.com/angelospk/subdivx-dl/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

var versionRegex = regexp.MustCompile(`>v([0-9.a-z]+)<`)

type tokenQuery struct {
	GT int `url:"gt"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Manager negotiates the site session and keeps the cookie in the shared
// headers of the HTTP client.
type Manager struct {
	store  *Store
	client *httpclient.Client
	ttl    time.Duration
	now    func() time.Time
	logger *logrus.Logger

	state *State
}

// NewManager creates a Manager. A ttl of zero selects one hour.
func NewManager(store *Store, client *httpclient.Client, ttl time.Duration, logger *logrus.Logger) *Manager {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Manager{
		store:  store,
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// State returns the session in use, or false if none was loaded or created.
func (m *Manager) State() (State, bool) {
	if m.state == nil {
		return State{}, false
	}
	return *m.state, true
}

// HasSession reports whether a persisted session exists.
func (m *Manager) HasSession() bool {
	return m.store.Exists()
}

// IsExpired reports whether the persisted session can no longer be used.
// An unreadable file counts as expired.
func (m *Manager) IsExpired() bool {
	state, err := m.store.Load()
	if err != nil {
		m.logger.WithError(err).Debug("Session file unreadable, treating as expired")
		return true
	}
	return !m.now().Before(state.ExpiresAt)
}

// Create fetches a fresh session from the site. Failures are not retried.
func (m *Manager) Create(ctx context.Context) (State, error) {
	m.client.DelHeader("Cookie")

	resp, err := m.client.Get(ctx, "/", nil)
	if err != nil {
		return State{}, fmt.Errorf("failed to load site root: %w", err)
	}
	match := versionRegex.FindSubmatch(resp.Body)
	if match == nil {
		return State{}, fmt.Errorf("%w: site version not found", coreErrors.ErrInvalidResponse)
	}
	version := strings.ReplaceAll(string(match[1]), ".", "")

	cookie := firstCookie(resp.Header)
	if cookie == "" {
		m.logger.Warn("Site did not set a session cookie")
	} else {
		m.client.SetHeader("Cookie", cookie)
	}

	resp, err = m.client.Get(ctx, constants.TokenPath, tokenQuery{GT: 1})
	if err != nil {
		return State{}, fmt.Errorf("failed to fetch token: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil || tr.Token == "" {
		return State{}, fmt.Errorf("%w: token response unusable", coreErrors.ErrInvalidResponse)
	}

	state := State{
		WebVersion: version,
		Cookie:     cookie,
		Token:      tr.Token,
		ExpiresAt:  m.now().Add(m.ttl),
	}
	m.state = &state
	m.logger.WithFields(logrus.Fields{
		"web_version": version,
		"expires":     state.ExpiresAt.Format(time.RFC3339),
	}).Debug("Created new session")
	return state, nil
}

// Persist saves the current session.
func (m *Manager) Persist() error {
	if m.state == nil {
		return fmt.Errorf("no session to persist")
	}
	return m.store.Save(*m.state)
}

// Load reads the persisted session and makes it current.
func (m *Manager) Load() (State, error) {
	state, err := m.store.Load()
	if err != nil {
		return State{}, err
	}
	m.apply(state)
	return state, nil
}

// Delete forgets the session in memory and on disk.
func (m *Manager) Delete() error {
	m.state = nil
	m.client.DelHeader("Cookie")
	return m.store.Delete()
}

// Ensure returns a usable session, reusing the persisted one when it has not
// expired and forceNew is false.
func (m *Manager) Ensure(ctx context.Context, forceNew bool) (State, error) {
	if forceNew {
		if err := m.Delete(); err != nil {
			m.logger.WithError(err).Warn("Could not delete old session")
		}
	}
	if m.HasSession() && !m.IsExpired() {
		state, err := m.Load()
		if err == nil {
			m.logger.Debug("Reusing saved session")
			return state, nil
		}
		m.logger.WithError(err).Debug("Saved session unusable")
	}

	state, err := m.Create(ctx)
	if err != nil {
		return State{}, err
	}
	if err := m.Persist(); err != nil {
		m.logger.WithError(err).Warn("Could not save session")
	}
	return state, nil
}

func (m *Manager) apply(state State) {
	m.state = &state
	if state.Cookie != "" {
		m.client.SetHeader("Cookie", state.Cookie)
	} else {
		m.client.DelHeader("Cookie")
	}
}

// firstCookie returns "name=value" of the first Set-Cookie header.
func firstCookie(h http.Header) string {
	for _, line := range h.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		return c.Name + "=" + c.Value
	}
	return ""
}
