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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksmith/hooksmith/lazy"
)

func TestTokenRequesterAuthenticatesFetches(t *testing.T) {
	var exchanges atomic.Int64
	tokenServer := newTokenServer(t, &exchanges, time.Hour)
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"attr1": "value1"}`))
	}))
	defer apiServer.Close()

	source := NewInstallationTokenSource(newTestCredentials(t), 55, WithTokenBaseURL(tokenServer.URL))
	requester := NewTokenRequester(nil, source)

	// two fetches through the same requester reuse one token
	for i := 0; i < 2; i++ {
		_, body, err := requester.Do(context.Background(), http.MethodGet, apiServer.URL)
		require.NoError(t, err)
		assert.JSONEq(t, `{"attr1": "value1"}`, string(body))
	}
	assert.Equal(t, int64(1), exchanges.Load())
}

func TestTokenRequesterSurfacesHTTPErrors(t *testing.T) {
	var exchanges atomic.Int64
	tokenServer := newTokenServer(t, &exchanges, time.Hour)
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer apiServer.Close()

	source := NewInstallationTokenSource(newTestCredentials(t), 55, WithTokenBaseURL(tokenServer.URL))
	requester := NewTokenRequester(nil, source)

	_, _, err := requester.Do(context.Background(), http.MethodGet, apiServer.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTokenRequesterDrivesLazyResources(t *testing.T) {
	var exchanges atomic.Int64
	tokenServer := newTokenServer(t, &exchanges, time.Hour)
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attr1": "value1"}`))
	}))
	defer apiServer.Close()

	source := NewInstallationTokenSource(newTestCredentials(t), 55, WithTokenBaseURL(tokenServer.URL))
	requester := NewTokenRequester(nil, source)

	resource := lazy.NewResource(requester, map[string]json.RawMessage{
		"url": json.RawMessage(`"` + apiServer.URL + `"`),
	})

	value, err := resource.GetString(context.Background(), "attr1")
	require.NoError(t, err)
	assert.Equal(t, "value1", value)
	assert.True(t, resource.Complete())
}
