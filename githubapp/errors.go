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
	"net/http"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
)

// MetricsKeyHandlerError counts handler failures, tagged by event type.
const MetricsKeyHandlerError = "github.handler.error"

// ValidationError is passed to error callbacks when the webhook headers or
// payload fail validation.
type ValidationError struct {
	EventType  string
	DeliveryID string
	Cause      error
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %v", ve.Cause)
}

func (ve ValidationError) Unwrap() error {
	return ve.Cause
}

func errorCounter(r metrics.Registry, eventType string) metrics.Counter {
	if r == nil {
		return metrics.NilCounter{}
	}

	key := MetricsKeyHandlerError
	if eventType != "" {
		key = fmt.Sprintf("%s[event:%s]", key, eventType)
	}
	return metrics.GetOrRegisterCounter(key, r)
}

// MetricsErrorCallback logs errors, increments an error counter, and
// responds with an appropriate status code.
func MetricsErrorCallback(reg metrics.Registry) ErrorCallback {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		logger := zerolog.Ctx(r.Context())

		var ve ValidationError
		if errors.As(err, &ve) {
			logger.Warn().Err(ve.Cause).Msg("Received invalid webhook headers or payload")
			http.Error(w, "Invalid webhook headers or payload", http.StatusBadRequest)
			return
		}

		logger.Error().Err(err).Msg("Unexpected error handling webhook")
		errorCounter(reg, r.Header.Get("X-Github-Event")).Inc(1)

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
