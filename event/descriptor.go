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
	"github.com/pkg/errors"
)

// Fields is the set of normalized field names and expected values that
// discriminate one event type from its siblings.
type Fields map[string]string

// RootName is the name of the implicit generic event type at the top of
// every registry. Classification falls back to it when nothing more specific
// matches, so every delivery is handleable.
const RootName = "event"

// Descriptor is one node in the classification tree: an event type, the
// fields that must match for it to apply, and its more-specific children.
// Descriptors are created through registration and immutable afterward.
type Descriptor struct {
	name     string
	fields   Fields
	parent   *Descriptor
	children []*Descriptor
}

// Name returns the registered event type name, e.g. "pull_request.opened".
func (d *Descriptor) Name() string {
	return d.name
}

// Parent returns the descriptor this one specializes, or nil for the root.
func (d *Descriptor) Parent() *Descriptor {
	return d.parent
}

// RequiredFields returns a copy of the discriminating fields.
func (d *Descriptor) RequiredFields() Fields {
	fields := make(Fields, len(d.fields))
	for k, v := range d.fields {
		fields[k] = v
	}
	return fields
}

// Child registers a more-specific event type under this descriptor. The
// field names are normalized on registration. Registration fails if the new
// sibling's field set overlaps an existing sibling's: two siblings overlap
// when no shared field forces different values, which would let a single
// delivery match both and make the winner depend on registration order.
func (d *Descriptor) Child(name string, fields Fields) (*Descriptor, error) {
	if name == "" {
		return nil, errors.New("event descriptor must have a name")
	}
	if len(fields) == 0 {
		return nil, errors.Errorf("event descriptor %q must have at least one required field", name)
	}

	normalized := make(Fields, len(fields))
	for k, v := range fields {
		normalized[NormalizeKey(k)] = v
	}

	for _, sibling := range d.children {
		if sibling.name == name {
			return nil, errors.Errorf("event descriptor %q is already registered under %q", name, d.name)
		}
		if !conflicts(sibling.fields, normalized) {
			return nil, errors.Errorf(
				"event descriptor %q overlaps sibling %q: no shared field discriminates them",
				name, sibling.name)
		}
	}

	child := &Descriptor{
		name:   name,
		fields: normalized,
		parent: d,
	}
	d.children = append(d.children, child)
	return child, nil
}

// MustChild is Child for static registration at process start; it panics on
// a registration error.
func (d *Descriptor) MustChild(name string, fields Fields) *Descriptor {
	child, err := d.Child(name, fields)
	if err != nil {
		panic(err)
	}
	return child
}

// conflicts reports whether some field shared by both sets requires
// different values, guaranteeing no delivery can match both.
func conflicts(a, b Fields) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && av != bv {
			return true
		}
	}
	return false
}

// Match reports whether every required field of the descriptor is present in
// the normalized request with an equal string value. It is a pure function of
// its inputs; no coercion happens beyond what normalization already applied.
func Match(d *Descriptor, normalized map[string]any) bool {
	for field, want := range d.fields {
		got, ok := normalized[field].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Registry is a statically-registered classification tree. Build it once at
// process start, then classify any number of deliveries; classification
// itself keeps no state between calls.
type Registry struct {
	root *Descriptor
}

// NewRegistry returns a registry containing only the root generic type.
func NewRegistry() *Registry {
	return &Registry{root: &Descriptor{name: RootName}}
}

// Root returns the generic event descriptor, the anchor for registration.
func (r *Registry) Root() *Descriptor {
	return r.root
}

// Classify normalizes the headers and body and walks the tree depth-first,
// most-specific-first. A child is only considered once its parent matched;
// siblings are tried in registration order and the first full match wins.
// The deepest match is returned, falling back to the root generic type when
// nothing matches, so classification never fails.
func (r *Registry) Classify(headers map[string]string, body map[string]any) *Descriptor {
	normalized := Normalize(headerSource(headers), body)
	return classify(r.root, normalized)
}

func classify(d *Descriptor, normalized map[string]any) *Descriptor {
	for _, child := range d.children {
		if Match(child, normalized) {
			return classify(child, normalized)
		}
	}
	return d
}
