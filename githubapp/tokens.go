// Copyright 2025 Hooksmith Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package githubapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// tokenRefreshWindow is how long before expiry a cached installation token
// is considered stale and refreshed.
const tokenRefreshWindow = time.Minute

// InstallationTokenSource exchanges the application's signed assertion for a
// short-lived installation access token and caches it until shortly before
// expiry. The cache is guarded so a reader never observes a half-written
// token and at most one exchange runs when concurrent deliveries race on a
// stale token.
type InstallationTokenSource struct {
	creds          Credentials
	installationID int64
	client         *http.Client
	baseURL        string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// TokenSourceOption configures an InstallationTokenSource.
type TokenSourceOption func(*InstallationTokenSource)

// WithTokenBaseURL points the exchange at a non-default v3 API base URL.
func WithTokenBaseURL(url string) TokenSourceOption {
	return func(s *InstallationTokenSource) {
		s.baseURL = url
	}
}

// WithTokenHTTPClient sets the HTTP client used for the exchange.
func WithTokenHTTPClient(client *http.Client) TokenSourceOption {
	return func(s *InstallationTokenSource) {
		s.client = client
	}
}

// NewInstallationTokenSource returns a token source for one installation of
// the app identified by creds.
func NewInstallationTokenSource(creds Credentials, installationID int64, opts ...TokenSourceOption) *InstallationTokenSource {
	s := &InstallationTokenSource{
		creds:          creds,
		installationID: installationID,
		client:         http.DefaultClient,
		baseURL:        DefaultV3APIURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseURL = strings.TrimSuffix(s.baseURL, "/")
	return s
}

// InstallationID returns the installation this source mints tokens for.
func (s *InstallationTokenSource) InstallationID() int64 {
	return s.installationID
}

// Token returns a valid installation access token, performing the exchange
// only when no unexpired token is cached.
func (s *InstallationTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expiry) > tokenRefreshWindow {
		return s.token, nil
	}

	token, expiry, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expiry = expiry
	return s.token, nil
}

type accessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *InstallationTokenSource) exchange(ctx context.Context) (string, time.Time, error) {
	assertion, err := s.creds.Assertion(time.Now())
	if err != nil {
		return "", time.Time{}, err
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.baseURL, s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to create token exchange request")
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "Bearer "+assertion)

	res, err := s.client.Do(req)
	if err != nil {
		return "", time.Time{}, errors.Wrapf(err, "token exchange failed for installation %d", s.installationID)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusCreated {
		return "", time.Time{}, errors.Errorf(
			"token exchange for installation %d returned status %d", s.installationID, res.StatusCode)
	}

	var body accessTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to decode access token response")
	}
	if body.Token == "" {
		return "", time.Time{}, errors.New("access token response contained no token")
	}
	return body.Token, body.ExpiresAt, nil
}

// TokenSources hands out one shared InstallationTokenSource per installation
// for the lifetime of the process, so every lazy resource constructed under
// an installation reuses the same cached token.
type TokenSources struct {
	creds Credentials
	opts  []TokenSourceOption

	mu      sync.Mutex
	sources map[int64]*InstallationTokenSource
}

// NewTokenSources returns a process-wide token source cache for the app.
func NewTokenSources(creds Credentials, opts ...TokenSourceOption) *TokenSources {
	return &TokenSources{
		creds:   creds,
		opts:    opts,
		sources: make(map[int64]*InstallationTokenSource),
	}
}

// ForInstallation returns the shared token source for an installation.
func (t *TokenSources) ForInstallation(installationID int64) *InstallationTokenSource {
	t.mu.Lock()
	defer t.mu.Unlock()

	source, ok := t.sources[installationID]
	if !ok {
		source = NewInstallationTokenSource(t.creds, installationID, t.opts...)
		t.sources[installationID] = source
	}
	return source
}
