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
	"net/http"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
)

const (
	MetricsKeyRequests    = "github.requests"
	MetricsKeyRequests2xx = "github.requests.2xx"
	MetricsKeyRequests3xx = "github.requests.3xx"
	MetricsKeyRequests4xx = "github.requests.4xx"
	MetricsKeyRequests5xx = "github.requests.5xx"

	MetricsKeyRequestsCached = "github.requests.cached"

	MetricsKeyRateLimit          = "github.rate.limit"
	MetricsKeyRateLimitRemaining = "github.rate.remaining"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// ClientMetrics creates client middleware that records request counts,
// status buckets, cache hits, and rate-limit gauges in the provided
// registry.
func ClientMetrics(registry metrics.Registry) ClientMiddleware {
	for _, key := range []string{
		MetricsKeyRequests,
		MetricsKeyRequests2xx,
		MetricsKeyRequests3xx,
		MetricsKeyRequests4xx,
		MetricsKeyRequests5xx,
		MetricsKeyRequestsCached,
	} {
		// GetOrRegister for thread-safety when multiple transports share
		// the registry
		metrics.GetOrRegisterCounter(key, registry)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			res, err := next.RoundTrip(r)

			if res != nil {
				registry.Get(MetricsKeyRequests).(metrics.Counter).Inc(1)
				if key := bucketStatus(res.StatusCode); key != "" {
					registry.Get(key).(metrics.Counter).Inc(1)
				}

				if res.Header.Get(httpcache.XFromCache) != "" {
					registry.Get(MetricsKeyRequestsCached).(metrics.Counter).Inc(1)
				}

				updateGaugeForHeader(res.Header, "X-RateLimit-Limit",
					metrics.GetOrRegisterGauge(MetricsKeyRateLimit, registry))
				updateGaugeForHeader(res.Header, "X-RateLimit-Remaining",
					metrics.GetOrRegisterGauge(MetricsKeyRateLimitRemaining, registry))
			}

			return res, err
		})
	}
}

// ClientLogging creates client middleware that logs request and response
// information at the given level, using the logger from the request context.
// A request that fails without a response logs a status code of -1.
func ClientLogging(lvl zerolog.Level) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			res, err := next.RoundTrip(r)
			elapsed := time.Since(start)

			status := -1
			cached := false
			if res != nil {
				status = res.StatusCode
				cached = res.Header.Get(httpcache.XFromCache) != ""
			}

			zerolog.Ctx(r.Context()).WithLevel(lvl).
				Str("method", r.Method).
				Str("path", r.URL.String()).
				Int("status", status).
				Bool("cached", cached).
				Dur("elapsed", elapsed).
				Msg("github_request")

			return res, err
		})
	}
}

func updateGaugeForHeader(headers http.Header, header string, gauge metrics.Gauge) {
	if value := headers.Get(header); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			gauge.Update(parsed)
		}
	}
}

func bucketStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return MetricsKeyRequests2xx
	case status >= 300 && status < 400:
		return MetricsKeyRequests3xx
	case status >= 400 && status < 500:
		return MetricsKeyRequests4xx
	case status >= 500 && status < 600:
		return MetricsKeyRequests5xx
	}
	return ""
}
