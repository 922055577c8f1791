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
	"encoding/json"
	"strings"
)

const (
	webBaseURL      = "https://github.com"
	apiReposBaseURL = "https://api.github.com/repos"
)

// FixResourceURL rewrites a human-facing github.com URL into the equivalent
// API endpoint. Webhook payloads sometimes carry web URLs where the API
// object has an API URL; a fetch only works against the API shape. URLs that
// already point at the API are returned unchanged.
func FixResourceURL(url string) string {
	if !strings.HasPrefix(url, webBaseURL) {
		return url
	}
	url = apiReposBaseURL + strings.TrimPrefix(url, webBaseURL)
	return strings.ReplaceAll(url, "/commit/", "/commits/")
}

// fixFragmentURL applies FixResourceURL to a fragment's "url" field in place.
func fixFragmentURL(fields map[string]json.RawMessage) {
	raw, ok := fields["url"]
	if !ok {
		return
	}

	var url string
	if err := json.Unmarshal(raw, &url); err != nil {
		return
	}
	if fixed := FixResourceURL(url); fixed != url {
		data, _ := json.Marshal(fixed)
		fields["url"] = data
	}
}
