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
	"fmt"

	"github.com/google/go-github/v65/github"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"

	"github.com/hooksmith/hooksmith/lazy"
)

// DefaultCachingClientCapacity bounds the per-installation client cache.
const DefaultCachingClientCapacity = 64

// NewDefaultCachingClientCreator builds credentials from the configuration
// and wraps the standard creator in a client cache of default capacity.
func NewDefaultCachingClientCreator(c Config, opts ...ClientOption) (ClientCreator, error) {
	creds, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	return NewCachingClientCreator(NewClientCreator(c, creds, opts...), DefaultCachingClientCapacity)
}

// NewCachingClientCreator wraps a delegate so installation clients are
// memoized in an LRU cache of the given capacity. App and token clients are
// cheap to build and are not cached.
func NewCachingClientCreator(delegate ClientCreator, capacity int) (ClientCreator, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client cache")
	}

	return &cachingClientCreator{
		cachedClients: cache,
		delegate:      delegate,
	}, nil
}

type cachingClientCreator struct {
	cachedClients *lru.Cache
	delegate      ClientCreator
}

var _ ClientCreator = (*cachingClientCreator)(nil)

func (c *cachingClientCreator) NewAppClient() (*github.Client, error) {
	return c.delegate.NewAppClient()
}

func (c *cachingClientCreator) NewAppV4Client() (*githubv4.Client, error) {
	return c.delegate.NewAppV4Client()
}

func (c *cachingClientCreator) NewInstallationClient(installationID int64) (*github.Client, error) {
	key := c.toCacheKey("v3", installationID)
	if val, ok := c.cachedClients.Get(key); ok {
		if client, ok := val.(*github.Client); ok {
			return client, nil
		}
	}

	client, err := c.delegate.NewInstallationClient(installationID)
	if err != nil {
		return nil, err
	}
	c.cachedClients.Add(key, client)
	return client, nil
}

func (c *cachingClientCreator) NewInstallationV4Client(installationID int64) (*githubv4.Client, error) {
	key := c.toCacheKey("v4", installationID)
	if val, ok := c.cachedClients.Get(key); ok {
		if client, ok := val.(*githubv4.Client); ok {
			return client, nil
		}
	}

	client, err := c.delegate.NewInstallationV4Client(installationID)
	if err != nil {
		return nil, err
	}
	c.cachedClients.Add(key, client)
	return client, nil
}

func (c *cachingClientCreator) NewTokenClient(token string) (*github.Client, error) {
	return c.delegate.NewTokenClient(token)
}

func (c *cachingClientCreator) NewTokenV4Client(token string) (*githubv4.Client, error) {
	return c.delegate.NewTokenV4Client(token)
}

func (c *cachingClientCreator) NewRequester(installationID int64) lazy.Requester {
	// requesters already share token state per installation
	return c.delegate.NewRequester(installationID)
}

func (c *cachingClientCreator) toCacheKey(apiVersion string, installationID int64) string {
	return fmt.Sprintf("%s:%d", apiVersion, installationID)
}
