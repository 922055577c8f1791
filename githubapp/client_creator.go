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
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/gregjones/httpcache"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/hooksmith/hooksmith/lazy"
)

// ClientCreator constructs authenticated GitHub clients for the app.
type ClientCreator interface {
	// NewAppClient returns a v3 client that authenticates as the
	// application itself, signing a fresh app assertion for each request.
	// Used for app-level operations like listing installations or minting
	// installation tokens.
	NewAppClient() (*github.Client, error)

	// NewAppV4Client is NewAppClient for the v4 (GraphQL) API.
	NewAppV4Client() (*githubv4.Client, error)

	// NewInstallationClient returns a v3 client that authenticates as one
	// installation of the app, exchanging the app assertion for an
	// installation access token and refreshing it as it expires.
	NewInstallationClient(installationID int64) (*github.Client, error)

	// NewInstallationV4Client is NewInstallationClient for the v4 API.
	NewInstallationV4Client(installationID int64) (*githubv4.Client, error)

	// NewTokenClient returns a v3 client using a fixed OAuth token.
	NewTokenClient(token string) (*github.Client, error)

	// NewTokenV4Client is NewTokenClient for the v4 API.
	NewTokenV4Client(token string) (*githubv4.Client, error)

	// NewRequester returns the narrow fetch collaborator used by lazy
	// resources, authenticated as the given installation. Requesters for
	// the same installation share one cached access token.
	NewRequester(installationID int64) lazy.Requester
}

// ClientOption configures properties of created clients.
type ClientOption func(*clientCreator)

// ClientMiddleware modifies the transport of a GitHub client to add common
// functionality, like logging or metrics collection.
type ClientMiddleware func(http.RoundTripper) http.RoundTripper

// WithClientUserAgent sets the base user agent for all created clients.
func WithClientUserAgent(agent string) ClientOption {
	return func(c *clientCreator) {
		c.userAgent = agent
	}
}

// WithClientTimeout sets a timeout for requests made by created clients.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *clientCreator) {
		c.timeout = timeout
	}
}

// WithClientCaching adds response caching to all created clients. The cache
// function is called once per client; returning the same cache from every
// call shares it across installations, which is safe because GitHub marks
// authorization-sensitive responses with Vary: Authorization.
func WithClientCaching(cache func() httpcache.Cache) ClientOption {
	return func(c *clientCreator) {
		c.cacheFunc = cache
	}
}

// WithClientMiddleware adds middleware that is applied to all created
// clients.
func WithClientMiddleware(middleware ...ClientMiddleware) ClientOption {
	return func(c *clientCreator) {
		c.middleware = middleware
	}
}

// NewClientCreator returns a ClientCreator for the app identified by creds.
func NewClientCreator(c Config, creds Credentials, opts ...ClientOption) ClientCreator {
	c.FillDefaults()

	cc := &clientCreator{
		v3BaseURL: c.V3APIURL,
		v4BaseURL: c.V4APIURL,
		creds:     creds,
		tokens:    NewTokenSources(creds, WithTokenBaseURL(c.V3APIURL)),
	}

	for _, opt := range opts {
		opt(cc)
	}

	if !strings.HasSuffix(cc.v3BaseURL, "/") {
		cc.v3BaseURL += "/"
	}
	// graphql URL should not end in trailing slash
	cc.v4BaseURL = strings.TrimSuffix(cc.v4BaseURL, "/")

	return cc
}

type clientCreator struct {
	v3BaseURL  string
	v4BaseURL  string
	creds      Credentials
	tokens     *TokenSources
	userAgent  string
	timeout    time.Duration
	cacheFunc  func() httpcache.Cache
	middleware []ClientMiddleware
}

var _ ClientCreator = (*clientCreator)(nil)

func (c *clientCreator) NewAppClient() (*github.Client, error) {
	return c.newClient(&appTransport{base: http.DefaultTransport, creds: c.creds})
}

func (c *clientCreator) NewAppV4Client() (*githubv4.Client, error) {
	return c.newV4Client(&appTransport{base: http.DefaultTransport, creds: c.creds})
}

func (c *clientCreator) NewInstallationClient(installationID int64) (*github.Client, error) {
	return c.newClient(c.installationTransport(installationID))
}

func (c *clientCreator) NewInstallationV4Client(installationID int64) (*githubv4.Client, error) {
	return c.newV4Client(c.installationTransport(installationID))
}

func (c *clientCreator) NewTokenClient(token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return c.newClient(&oauth2.Transport{Source: ts, Base: http.DefaultTransport})
}

func (c *clientCreator) NewTokenV4Client(token string) (*githubv4.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return c.newV4Client(&oauth2.Transport{Source: ts, Base: http.DefaultTransport})
}

func (c *clientCreator) NewRequester(installationID int64) lazy.Requester {
	return NewTokenRequester(c.httpClient(http.DefaultTransport), c.tokens.ForInstallation(installationID))
}

func (c *clientCreator) installationTransport(installationID int64) http.RoundTripper {
	return &installationTransport{
		base:   http.DefaultTransport,
		tokens: c.tokens.ForInstallation(installationID),
	}
}

func (c *clientCreator) httpClient(transport http.RoundTripper) *http.Client {
	transport = applyMiddleware(transport, c.middleware)
	if c.cacheFunc != nil {
		cached := httpcache.NewTransport(c.cacheFunc())
		cached.Transport = transport
		cached.MarkCachedResponses = true
		transport = cached
	}
	return &http.Client{Transport: transport, Timeout: c.timeout}
}

func (c *clientCreator) newClient(transport http.RoundTripper) (*github.Client, error) {
	client := github.NewClient(c.httpClient(transport))
	client.UserAgent = c.userAgent

	baseURL, err := url.Parse(c.v3BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse base URL: %q", c.v3BaseURL)
	}
	client.BaseURL = baseURL

	return client, nil
}

func (c *clientCreator) newV4Client(transport http.RoundTripper) (*githubv4.Client, error) {
	httpClient := c.httpClient(transport)
	if c.v4BaseURL == strings.TrimSuffix(DefaultV4APIURL, "/") {
		return githubv4.NewClient(httpClient), nil
	}
	return githubv4.NewEnterpriseClient(c.v4BaseURL, httpClient), nil
}

func applyMiddleware(base http.RoundTripper, middleware []ClientMiddleware) http.RoundTripper {
	for i := len(middleware) - 1; i >= 0; i-- {
		base = middleware[i](base)
	}
	return base
}

// appTransport signs a fresh application assertion for every request.
type appTransport struct {
	base  http.RoundTripper
	creds Credentials
}

func (t *appTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	assertion, err := t.creds.Assertion(time.Now())
	if err != nil {
		return nil, err
	}

	r = cloneRequest(r)
	r.Header.Set("Authorization", "Bearer "+assertion)
	return t.base.RoundTrip(r)
}

// installationTransport authenticates requests with the installation's
// cached access token.
type installationTransport struct {
	base   http.RoundTripper
	tokens *InstallationTokenSource
}

func (t *installationTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	r = cloneRequest(r)
	r.Header.Set("Authorization", "token "+token)
	return t.base.RoundTrip(r)
}

func cloneRequest(r *http.Request) *http.Request {
	r2 := r.Clone(r.Context())
	if r2.Header == nil {
		r2.Header = make(http.Header)
	}
	return r2
}
