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

	"github.com/rs/zerolog"

	"github.com/hooksmith/hooksmith/event"
)

const (
	LogKeyEventType       string = "github_event_type"
	LogKeyEventDescriptor string = "github_event_descriptor"
	LogKeyDeliveryID      string = "github_delivery_id"
	LogKeyInstallationID  string = "github_installation_id"
)

// PrepareEventContext adds delivery metadata to the logger in a context and
// returns the modified context and logger.
func PrepareEventContext(ctx context.Context, meta event.Metadata) (context.Context, zerolog.Logger) {
	logctx := zerolog.Ctx(ctx).With().
		Str(LogKeyEventType, meta.EventName).
		Str(LogKeyDeliveryID, meta.DeliveryID)

	if meta.InstallationID > 0 {
		logctx = logctx.Int64(LogKeyInstallationID, meta.InstallationID)
	}

	logger := logctx.Logger()
	return logger.WithContext(ctx), logger
}
