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

	"github.com/pkg/errors"
)

// Lazy decorates a concrete API type T (for example github.Repository) with
// on-demand materialization. It is a thin typed view over a Resource: Partial
// decodes only what the payload provided, Value fetches the rest first.
//
// Laziness is composed at the type level instead of being attached to T at
// runtime, so T never needs to know it is wrapped.
type Lazy[T any] struct {
	res *Resource
}

// Wrap attaches lazy behavior to a resource value. Accepted values:
//
//   - *Lazy[T]: returned unchanged, so wrapping is idempotent and a value
//     never carries more than one lazy layer
//   - *Resource: viewed as T without copying
//   - map[string]json.RawMessage, json.RawMessage, []byte: treated as an
//     incomplete payload fragment
//
// Fragment identity URLs pointing at the human-facing site are rewritten to
// their API equivalents so the fetch target is always API-shaped.
func Wrap[T any](requester Requester, v any) (*Lazy[T], error) {
	switch t := v.(type) {
	case *Lazy[T]:
		return t, nil
	case *Resource:
		return &Lazy[T]{res: t}, nil
	case map[string]json.RawMessage:
		return wrapFragment[T](requester, t), nil
	case json.RawMessage:
		return wrapBytes[T](requester, t)
	case []byte:
		return wrapBytes[T](requester, t)
	}
	return nil, errors.Errorf("cannot wrap value of type %T as a lazy resource", v)
}

func wrapBytes[T any](requester Requester, data []byte) (*Lazy[T], error) {
	fields, err := ParseFragment(data)
	if err != nil {
		return nil, err
	}
	return wrapFragment[T](requester, fields), nil
}

func wrapFragment[T any](requester Requester, fields map[string]json.RawMessage) *Lazy[T] {
	fields = cloneFields(fields)
	fixFragmentURL(fields)
	return &Lazy[T]{res: &Resource{requester: requester, fields: fields}}
}

// Resource exposes the underlying field store for raw field access.
func (l *Lazy[T]) Resource() *Resource {
	return l.res
}

// Partial decodes the currently-known fields into T without fetching.
func (l *Lazy[T]) Partial() (*T, error) {
	return decodeFields[T](l.res.fields)
}

// Value returns the fully-materialized T, fetching the complete
// representation first if the resource is still partial. A failed fetch
// leaves the resource partial so a later call retries.
func (l *Lazy[T]) Value(ctx context.Context) (*T, error) {
	if err := l.res.Materialize(ctx); err != nil {
		return nil, err
	}
	return decodeFields[T](l.res.fields)
}

// Get reads a single raw field, materializing if it is unset.
func (l *Lazy[T]) Get(ctx context.Context, field string) (json.RawMessage, error) {
	return l.res.Get(ctx, field)
}

func decodeFields[T any](fields map[string]json.RawMessage) (*T, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode resource fields")
	}

	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, errors.Wrapf(err, "failed to decode resource as %T", v)
	}
	return v, nil
}
