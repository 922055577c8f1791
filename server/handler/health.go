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

package handler

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/hooksmith/hooksmith/githubapp"
)

// Health reports whether the server can authenticate as the configured app.
type Health struct {
	Clients githubapp.ClientCreator
}

func (h *Health) Health(w http.ResponseWriter, r *http.Request) error {
	client, err := h.Clients.NewAppClient()
	if err != nil {
		return errors.Wrap(err, "failed to create app client")
	}

	if _, _, err := client.Apps.Get(r.Context(), ""); err != nil {
		return errors.Wrap(err, "failed to authenticate as app")
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
	return nil
}
