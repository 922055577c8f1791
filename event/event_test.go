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

package event

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksmith/hooksmith/lazy"
)

type recordingRequester struct {
	calls    int
	lastURL  string
	response string
}

func (r *recordingRequester) Do(ctx context.Context, method, url string) (http.Header, []byte, error) {
	r.calls++
	r.lastURL = url
	return http.Header{}, []byte(r.response), nil
}

func TestNewMetadata(t *testing.T) {
	meta, err := NewMetadata(prHeaders("pull_request"), map[string]any{
		"installation": map[string]any{"id": float64(55)},
	})
	require.NoError(t, err)

	assert.Equal(t, Metadata{
		DeliveryID:     "d1",
		EventName:      "pull_request",
		HookID:         1,
		TargetID:       2,
		TargetType:     "integration",
		InstallationID: 55,
	}, meta)
}

func TestNewMetadataMissingHeader(t *testing.T) {
	for _, header := range []string{HeaderDelivery, HeaderEvent, HeaderHookID, HeaderTargetID, HeaderTargetType} {
		headers := prHeaders("pull_request")
		delete(headers, header)

		_, err := NewMetadata(headers, map[string]any{})
		assert.Error(t, err, "expected missing %s to fail", header)
	}
}

func TestNewMetadataWithoutInstallation(t *testing.T) {
	meta, err := NewMetadata(prHeaders("push"), map[string]any{})
	require.NoError(t, err)
	assert.Zero(t, meta.InstallationID)
}

func TestClassifyAndConstruct(t *testing.T) {
	reg := NewRegistry()
	reg.Root().MustChild("pull_request.opened", Fields{
		"github_event": "pull_request",
		"action":       "opened",
	})

	headers := map[string]string{
		HeaderDelivery:   "d1",
		HeaderEvent:      "pull_request",
		HeaderHookID:     "1",
		HeaderTargetID:   "2",
		HeaderTargetType: "integration",
	}
	body := map[string]any{
		"action":       "opened",
		"installation": map[string]any{"id": float64(55)},
	}

	desc := reg.Classify(headers, body)
	require.Equal(t, "pull_request.opened", desc.Name())

	evt, err := New(&recordingRequester{}, desc, headers, body)
	require.NoError(t, err)
	assert.Equal(t, int64(55), evt.Metadata.InstallationID)
	assert.Same(t, desc, evt.Descriptor)
	assert.Nil(t, evt.Repository)
	assert.Nil(t, evt.Sender)
}

func TestNewParsesSubResources(t *testing.T) {
	req := &recordingRequester{response: `{"full_name": "org/repo", "private": true}`}

	body := map[string]any{
		"repository": map[string]any{
			"url":  "https://api.github.com/repos/org/repo",
			"name": "repo",
		},
		"sender": map[string]any{
			"login": "octocat",
		},
	}

	evt, err := New(req, NewRegistry().Root(), prHeaders("pull_request"), body)
	require.NoError(t, err)
	require.NotNil(t, evt.Repository)
	require.NotNil(t, evt.Sender)

	partial, err := evt.Repository.Partial()
	require.NoError(t, err)
	assert.Equal(t, "repo", partial.GetName())
	assert.Equal(t, 0, req.calls)

	full, err := evt.Repository.Value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "org/repo", full.GetFullName())
	assert.Equal(t, 1, req.calls)

	sender, err := evt.Sender.Partial()
	require.NoError(t, err)
	assert.Equal(t, "octocat", sender.GetLogin())
}

func TestNewRewritesWebURLs(t *testing.T) {
	req := &recordingRequester{response: `{"name": "repo"}`}

	body := map[string]any{
		"repository": map[string]any{
			"url": "https://github.com/org/repo",
		},
	}

	evt, err := New(req, NewRegistry().Root(), prHeaders("push"), body)
	require.NoError(t, err)

	_, err = evt.Repository.Value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/org/repo", req.lastURL)
}

var _ lazy.Requester = (*recordingRequester)(nil)
