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

// Package event classifies incoming webhook deliveries. Request headers and
// the decoded JSON body are flattened into one normalized mapping, then a
// statically-registered tree of descriptors is walked depth-first to find the
// most specific event type that matches.
package event

import "strings"

const headerPrefix = "x-"

var keyReplacer = strings.NewReplacer("-", "_", " ", "_")

// NormalizeKey standardizes a header or body key: lower-cased, the "x-"
// extension-header prefix stripped, spaces and hyphens replaced by
// underscores. "X-Github-Event" and "github_event" normalize to the same
// key, and normalizing an already-normalized key returns it unchanged.
func NormalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, headerPrefix)
	return keyReplacer.Replace(key)
}

// Normalize flattens one or more source mappings into a single mapping with
// normalized keys. Earlier sources win on key collisions, so merge order
// matters: callers pass headers first, then the body.
func Normalize(sources ...map[string]any) map[string]any {
	normalized := make(map[string]any)
	for _, source := range sources {
		for key, value := range source {
			key = NormalizeKey(key)
			if _, ok := normalized[key]; !ok {
				normalized[key] = value
			}
		}
	}
	return normalized
}

// headerSource converts a flat header mapping for use with Normalize.
func headerSource(headers map[string]string) map[string]any {
	source := make(map[string]any, len(headers))
	for key, value := range headers {
		source[key] = value
	}
	return source
}
