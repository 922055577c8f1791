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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()
	root := reg.Root()

	pr, err := root.Child("pull_request", Fields{"github_event": "pull_request"})
	require.NoError(t, err)
	_, err = pr.Child("pull_request.opened", Fields{"github_event": "pull_request", "action": "opened"})
	require.NoError(t, err)
	_, err = pr.Child("pull_request.closed", Fields{"github_event": "pull_request", "action": "closed"})
	require.NoError(t, err)

	_, err = root.Child("push", Fields{"github_event": "push"})
	require.NoError(t, err)

	return reg
}

func prHeaders(event string) map[string]string {
	return map[string]string{
		HeaderDelivery:   "d1",
		HeaderEvent:      event,
		HeaderHookID:     "1",
		HeaderTargetID:   "2",
		HeaderTargetType: "integration",
	}
}

func TestClassify(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		Name    string
		Headers map[string]string
		Body    map[string]any
		Want    string
	}{
		{
			Name:    "deepest match wins",
			Headers: prHeaders("pull_request"),
			Body:    map[string]any{"action": "opened"},
			Want:    "pull_request.opened",
		},
		{
			Name:    "parent when no child matches",
			Headers: prHeaders("pull_request"),
			Body:    map[string]any{"action": "labeled"},
			Want:    "pull_request",
		},
		{
			Name:    "sibling at top level",
			Headers: prHeaders("push"),
			Body:    map[string]any{},
			Want:    "push",
		},
		{
			Name:    "root fallback for unknown event",
			Headers: prHeaders("issues"),
			Body:    map[string]any{"action": "opened"},
			Want:    RootName,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			desc := reg.Classify(test.Headers, test.Body)
			assert.Equal(t, test.Want, desc.Name())
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	reg := newTestRegistry(t)
	headers := prHeaders("pull_request")
	body := map[string]any{"action": "opened"}

	first := reg.Classify(headers, body)
	for i := 0; i < 10; i++ {
		assert.Same(t, first, reg.Classify(headers, body))
	}
}

func TestChildOnlyReachableThroughParent(t *testing.T) {
	reg := newTestRegistry(t)

	// action=opened alone matches pull_request.opened's action field, but
	// the event header does not match the parent, so the walk never reaches
	// the child
	desc := reg.Classify(prHeaders("issues"), map[string]any{"action": "opened"})
	assert.Equal(t, RootName, desc.Name())
}

func TestChildRejectsOverlappingSiblings(t *testing.T) {
	reg := NewRegistry()
	root := reg.Root()

	_, err := root.Child("pull_request", Fields{"github_event": "pull_request"})
	require.NoError(t, err)

	// no shared field forces different values, so a single delivery could
	// match both: flagged at registration instead of resolved by order
	_, err = root.Child("opened", Fields{"action": "opened"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")

	_, err = root.Child("pull_request2", Fields{"github_event": "pull_request", "action": "opened"})
	require.Error(t, err)
}

func TestChildRejectsDuplicatesAndEmptyFields(t *testing.T) {
	reg := NewRegistry()
	root := reg.Root()

	_, err := root.Child("push", Fields{"github_event": "push"})
	require.NoError(t, err)

	_, err = root.Child("push", Fields{"github_event": "push"})
	require.Error(t, err)

	_, err = root.Child("anything", Fields{})
	require.Error(t, err)
}

func TestChildNormalizesFieldNames(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Root().Child("integration", Fields{
		"X-Github-Hook-Installation-Target-Type": "integration",
	})
	require.NoError(t, err)

	assert.Equal(t, Fields{
		"github_hook_installation_target_type": "integration",
	}, desc.RequiredFields())

	match := reg.Classify(prHeaders("pull_request"), map[string]any{})
	assert.Same(t, desc, match)
}

func TestMatchRequiresAllFields(t *testing.T) {
	reg := NewRegistry()
	desc := reg.Root().MustChild("pull_request.opened", Fields{
		"github_event": "pull_request",
		"action":       "opened",
	})

	tests := []struct {
		Normalized map[string]any
		Matches    bool
	}{
		{map[string]any{"github_event": "pull_request", "action": "opened"}, true},
		{map[string]any{"github_event": "pull_request"}, false},
		{map[string]any{"github_event": "pull_request", "action": "closed"}, false},
		{map[string]any{"github_event": "pull_request", "action": 1}, false},
		{map[string]any{}, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.Matches, Match(desc, test.Normalized), "matched %v incorrectly", test.Normalized)
	}
}
