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
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hooksmith/hooksmith/lazy"
)

// TokenRequester implements lazy.Requester with installation-token
// authentication: each request carries a token minted (or reused) by the
// installation's shared token source. It is the fetch path behind every lazy
// resource the dispatcher constructs.
type TokenRequester struct {
	client *http.Client
	tokens *InstallationTokenSource
}

// NewTokenRequester returns a requester authenticating with tokens from the
// given source. A nil client uses http.DefaultClient; timeouts and retries
// belong to the client, not to this layer.
func NewTokenRequester(client *http.Client, tokens *InstallationTokenSource) *TokenRequester {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenRequester{client: client, tokens: tokens}
}

// Do issues a single authenticated request and returns the response headers
// and body. Transport errors, token exchange failures, and non-2xx statuses
// are all returned as errors.
func (t *TokenRequester) Do(ctx context.Context, method, url string) (http.Header, []byte, error) {
	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create %s request for %s", method, url)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+token)

	zerolog.Ctx(ctx).Debug().Msgf("Fetching %s %s", method, url)

	res, err := t.client.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "request failed: %s %s", method, url)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read response body: %s %s", method, url)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, nil, errors.Errorf("%s %s returned status %d", method, url, res.StatusCode)
	}
	return res.Header, body, nil
}

var _ lazy.Requester = (*TokenRequester)(nil)
