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

package server

import (
	"time"

	"github.com/bluekeyes/hatpear"
	"github.com/c2h5oh/datasize"
	"github.com/die-net/lrucache"
	"github.com/gregjones/httpcache"
	"github.com/palantir/go-baseapp/baseapp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"goji.io/pat"

	"github.com/hooksmith/hooksmith/event"
	"github.com/hooksmith/hooksmith/githubapp"
	"github.com/hooksmith/hooksmith/metrics"
	"github.com/hooksmith/hooksmith/server/handler"
)

const (
	DefaultGitHubTimeout = 10 * time.Second

	DefaultHTTPCacheSize = 50 * datasize.MB
)

type Server struct {
	config *Config
	base   *baseapp.Server
}

// New instantiates a new Server.
// Callers must then invoke Start to run the Server.
func New(c *Config) (*Server, error) {
	logger := baseapp.NewLogger(baseapp.LoggingConfig{
		Level:  c.Logging.Level,
		Pretty: c.Logging.Text,
	})

	base, err := baseapp.NewServer(c.Server, baseapp.DefaultParams(logger, "hooksmith.")...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize base server")
	}
	metrics.SetRegistry(base.Registry())

	maxSize := int64(DefaultHTTPCacheSize)
	if c.Cache.MaxSize != 0 {
		maxSize = int64(c.Cache.MaxSize)
	}

	githubTimeout := c.Workers.GithubTimeout
	if githubTimeout == 0 {
		githubTimeout = DefaultGitHubTimeout
	}

	requestCache := lrucache.New(maxSize, 0)
	metrics.RequestCacheApproxSize(requestCache.Size)

	c.Options.FillDefaults()

	cc, err := githubapp.NewDefaultCachingClientCreator(
		c.Github,
		githubapp.WithClientUserAgent(c.Options.AppName+"/1.0.0"),
		githubapp.WithClientTimeout(githubTimeout),
		githubapp.WithClientCaching(func() httpcache.Cache {
			return requestCache
		}),
		githubapp.WithClientMiddleware(
			githubapp.ClientLogging(zerolog.DebugLevel),
			githubapp.ClientMetrics(base.Registry()),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize client creator")
	}

	registry := event.NewRegistry()
	pullRequest := registry.Root().MustChild("pull_request", event.Fields{
		"github_event": "pull_request",
	})
	pullRequest.MustChild("pull_request.opened", event.Fields{
		"action": "opened",
	})

	dispatcher := githubapp.NewDispatcher(
		registry,
		c.Github.App.WebhookSecret,
		cc,
		githubapp.WithErrorCallback(githubapp.MetricsErrorCallback(base.Registry())),
	)
	dispatcher.On("pull_request.opened", &handler.PullRequest{
		Clients: cc,
		Options: &c.Options,
	})

	mux := base.Mux()

	// webhook route
	mux.Handle(pat.Post(githubapp.DefaultWebhookRoute), dispatcher)

	// additional API routes
	mux.Handle(pat.Get("/api/health"), hatpear.Try(hatpear.HandlerFunc((&handler.Health{Clients: cc}).Health)))

	return &Server{
		config: c,
		base:   base,
	}, nil
}

// Start is blocking and long-running
func (s *Server) Start() error {
	return s.base.Start()
}
