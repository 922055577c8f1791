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

package lazy

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	calls    int
	lastURL  string
	response string
	err      error
}

func (f *fakeRequester) Do(ctx context.Context, method, url string) (http.Header, []byte, error) {
	f.calls++
	f.lastURL = url
	if f.err != nil {
		return nil, nil, f.err
	}
	return http.Header{}, []byte(f.response), nil
}

func mustFragment(t *testing.T, data string) map[string]json.RawMessage {
	t.Helper()
	fields, err := ParseFragment([]byte(data))
	require.NoError(t, err)
	return fields
}

func TestGetSetFieldDoesNotFetch(t *testing.T) {
	req := &fakeRequester{response: `{}`}
	r := NewResource(req, mustFragment(t, `{"url": "https://api.github.com/repos/org/repo", "name": "repo"}`))

	name, err := r.GetString(context.Background(), "name")
	require.NoError(t, err)

	assert.Equal(t, "repo", name)
	assert.Equal(t, 0, req.calls)
	assert.False(t, r.Complete())
}

func TestGetUnsetFieldFetchesExactlyOnce(t *testing.T) {
	req := &fakeRequester{response: `{"attr1": "value1"}`}
	r := NewResource(req, mustFragment(t, `{"url": "https://api.github.com/repos/org/repo"}`))

	v, err := r.GetString(context.Background(), "attr1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
	assert.Equal(t, 1, req.calls)
	assert.True(t, r.Complete())
	assert.Equal(t, "https://api.github.com/repos/org/repo", req.lastURL)

	// second read is served from the completed field set
	v, err = r.GetString(context.Background(), "attr1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
	assert.Equal(t, 1, req.calls)
}

func TestGetMissingFieldAfterCompletion(t *testing.T) {
	req := &fakeRequester{response: `{"attr1": "value1"}`}
	r := NewResource(req, mustFragment(t, `{"url": "https://api.github.com/repos/org/repo"}`))

	raw, err := r.Get(context.Background(), "other")
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, 1, req.calls)

	// the resource is complete, so further unset reads never fetch again
	raw, err = r.Get(context.Background(), "another")
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, 1, req.calls)
}

func TestNullValueIsSet(t *testing.T) {
	req := &fakeRequester{response: `{}`}
	r := NewResource(req, mustFragment(t, `{"url": "u", "description": null}`))

	// an explicit null was delivered, so no fetch happens
	desc, err := r.GetString(context.Background(), "description")
	require.NoError(t, err)
	assert.Equal(t, "", desc)
	assert.Equal(t, 0, req.calls)
}

func TestFailedFetchLeavesResourceIncomplete(t *testing.T) {
	req := &fakeRequester{err: errors.New("boom")}
	r := NewResource(req, mustFragment(t, `{"url": "https://api.github.com/repos/org/repo"}`))

	_, err := r.Get(context.Background(), "attr1")
	require.Error(t, err)
	assert.False(t, r.Complete())
	assert.Equal(t, 1, req.calls)

	// a later access retries and can succeed
	req.err = nil
	req.response = `{"attr1": "value1"}`

	v, err := r.GetString(context.Background(), "attr1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
	assert.True(t, r.Complete())
	assert.Equal(t, 2, req.calls)
}

func TestFetchMergesOverKnownFields(t *testing.T) {
	req := &fakeRequester{response: `{"name": "full-name", "stars": 7}`}
	r := NewResource(req, mustFragment(t, `{"url": "u", "name": "short-name"}`))

	stars, err := r.GetInt64(context.Background(), "stars")
	require.NoError(t, err)
	assert.Equal(t, int64(7), stars)

	// fetched values replace known ones, fields the response omits survive
	name, err := r.GetString(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, "full-name", name)

	url, err := r.GetString(context.Background(), "url")
	require.NoError(t, err)
	assert.Equal(t, "u", url)
}

func TestCompleteResourceNeverFetches(t *testing.T) {
	r := NewCompleteResource(mustFragment(t, `{"name": "repo"}`))

	raw, err := r.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.True(t, r.Complete())
}

func TestMaterializeWithoutURL(t *testing.T) {
	r := NewResource(&fakeRequester{}, mustFragment(t, `{"name": "repo"}`))

	_, err := r.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no url")
	assert.False(t, r.Complete())
}
