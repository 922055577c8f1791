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

// Package lazy materializes partially-known API resources on demand. Webhook
// payloads embed abbreviated snapshots of the resources they reference; a
// Resource holds whatever fields the payload provided and fetches the full
// representation from the API the first time an unset field is read.
package lazy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// Requester issues a single HTTP request and returns the response headers and
// body. Implementations must return an error for transport failures and for
// non-2xx responses. Authentication, timeouts, and retries are the
// implementation's concern; this package performs each fetch exactly once.
type Requester interface {
	Do(ctx context.Context, method, url string) (http.Header, []byte, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, method, url string) (http.Header, []byte, error)

func (f RequesterFunc) Do(ctx context.Context, method, url string) (http.Header, []byte, error) {
	return f(ctx, method, url)
}

// Resource is the field store for a partially-known API entity.
//
// Fields are kept as raw JSON keyed by name. A missing key means the field is
// unset and may become available by fetching the full representation; an
// explicit JSON null is a real value and never triggers a fetch. This is the
// distinction between "not delivered in the payload" and "delivered as empty".
type Resource struct {
	requester Requester
	fields    map[string]json.RawMessage
	complete  bool
}

// NewResource returns an incomplete resource populated from a webhook payload
// fragment. Reading a field the fragment did not include triggers a fetch of
// the resource's identity URL through the requester.
func NewResource(requester Requester, fragment map[string]json.RawMessage) *Resource {
	return &Resource{
		requester: requester,
		fields:    cloneFields(fragment),
	}
}

// NewCompleteResource returns a resource built from a full API response.
// It never fetches: fields absent from the response stay absent.
func NewCompleteResource(fields map[string]json.RawMessage) *Resource {
	return &Resource{
		fields:   cloneFields(fields),
		complete: true,
	}
}

// ParseFragment decodes a JSON object into the field map used by resources.
func ParseFragment(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to parse resource fragment")
	}
	return fields, nil
}

// URL returns the resource's identity URL: the value of its "url" field, used
// as the fetch target when an unset field is read.
func (r *Resource) URL() string {
	var u string
	if raw, ok := r.fields["url"]; ok {
		_ = json.Unmarshal(raw, &u)
	}
	return u
}

// Complete reports whether a full fetch has occurred or the resource was
// constructed from a full response.
func (r *Resource) Complete() bool {
	return r.complete
}

// Has reports whether the field is currently set, without fetching.
func (r *Resource) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Get returns the raw value of a field. If the field is unset and the
// resource is incomplete, Get performs one synchronous fetch of the identity
// URL, replaces the known fields with the fetched representation, and marks
// the resource complete before re-reading the field. A nil value with a nil
// error means the field is unset even in the full representation.
//
// A failed fetch is returned to the caller and leaves the resource
// incomplete, so a later read retries.
func (r *Resource) Get(ctx context.Context, field string) (json.RawMessage, error) {
	if raw, ok := r.fields[field]; ok {
		return raw, nil
	}
	if r.complete {
		return nil, nil
	}
	if err := r.Materialize(ctx); err != nil {
		return nil, err
	}
	return r.fields[field], nil
}

// Materialize fetches the full representation from the identity URL and
// merges it over the known fields. It is a no-op on a complete resource.
func (r *Resource) Materialize(ctx context.Context) error {
	if r.complete {
		return nil
	}
	if r.requester == nil {
		return errors.New("resource has no requester")
	}

	url := r.URL()
	if url == "" {
		return errors.New("resource has no url field to fetch")
	}

	_, body, err := r.requester.Do(ctx, http.MethodGet, url)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch resource from %s", url)
	}

	fetched, err := ParseFragment(body)
	if err != nil {
		return errors.Wrapf(err, "failed to parse resource fetched from %s", url)
	}

	if r.fields == nil {
		r.fields = make(map[string]json.RawMessage, len(fetched))
	}
	// The response is the authoritative full representation, but fields it
	// omits (like the identity URL on some endpoints) keep their known values.
	for k, v := range fetched {
		r.fields[k] = v
	}
	r.complete = true
	return nil
}

// GetString reads a field as a string. Unset and null both read as "".
func (r *Resource) GetString(ctx context.Context, field string) (string, error) {
	return Field[string](ctx, r, field)
}

// GetInt64 reads a field as an integer. Unset and null both read as 0.
func (r *Resource) GetInt64(ctx context.Context, field string) (int64, error) {
	return Field[int64](ctx, r, field)
}

// GetBool reads a field as a boolean. Unset and null both read as false.
func (r *Resource) GetBool(ctx context.Context, field string) (bool, error) {
	return Field[bool](ctx, r, field)
}

// Field reads a field from a resource and decodes it into T, triggering
// materialization the same way Resource.Get does. An unset or null field
// decodes to the zero value of T.
func Field[T any](ctx context.Context, r *Resource, field string) (T, error) {
	var v T

	raw, err := r.Get(ctx, field)
	if err != nil {
		return v, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.Wrapf(err, "failed to decode field %q", field)
	}
	return v, nil
}

func cloneFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
