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

// Package appconfig loads per-repository YAML configuration into a value
// tree with dotted-path access. A lookup with neither a configured value nor
// a registered default is an error, never a silent zero, so a deployment
// typo cannot pass unnoticed.
package appconfig

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// NoValueError reports a lookup of a path with no configured value and no
// default.
type NoValueError struct {
	Path string
}

func (e *NoValueError) Error() string {
	return fmt.Sprintf("no such config value: %s, and no default is defined for it", e.Path)
}

// Value is a node in the configuration tree: either a leaf holding a scalar
// or list, or an inner node with named children.
type Value struct {
	children map[string]*Value
	leaf     any
	isLeaf   bool
}

// New returns an empty configuration tree.
func New() *Value {
	return &Value{children: make(map[string]*Value)}
}

// Parse builds a configuration tree from YAML bytes. Empty input yields an
// empty tree.
func Parse(data []byte) (*Value, error) {
	v := New()
	if err := v.LoadYAML(data); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadYAML merges YAML content over the tree. Existing values, including
// defaults registered with Define, are overwritten where the document sets
// them and kept where it does not.
func (v *Value) LoadYAML(data []byte) error {
	var raw map[any]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "failed to unmarshal config yaml")
	}
	v.merge(raw)
	return nil
}

func (v *Value) merge(raw map[any]any) {
	for key, value := range raw {
		name := fmt.Sprintf("%v", key)
		if nested, ok := value.(map[any]any); ok {
			child, ok := v.children[name]
			if !ok || child.isLeaf {
				child = New()
				v.children[name] = child
			}
			child.merge(nested)
			continue
		}
		v.children[name] = &Value{leaf: normalizeYAML(value), isLeaf: true}
	}
}

// normalizeYAML converts nested yaml.v2 map values inside lists so callers
// see map[string]any, not map[interface{}]interface{}.
func normalizeYAML(value any) any {
	switch t := value.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return out
	}
	return value
}

// Define registers a default for a dotted path. Intermediate nodes are
// created as needed. Values loaded later override defaults.
func (v *Value) Define(path string, def any) {
	v.set(path, def)
}

func (v *Value) set(path string, value any) {
	parts := strings.Split(path, ".")
	node := v
	for _, part := range parts[:len(parts)-1] {
		child, ok := node.children[part]
		if !ok || child.isLeaf {
			child = New()
			node.children[part] = child
		}
		node = child
	}
	node.children[parts[len(parts)-1]] = &Value{leaf: value, isLeaf: true}
}

// Get returns the value at a dotted path. Looking up a path that is neither
// configured nor defaulted returns a NoValueError.
func (v *Value) Get(path string) (any, error) {
	node := v
	for _, part := range strings.Split(path, ".") {
		if node.isLeaf {
			return nil, &NoValueError{Path: path}
		}
		child, ok := node.children[part]
		if !ok {
			return nil, &NoValueError{Path: path}
		}
		node = child
	}
	if !node.isLeaf {
		return nil, &NoValueError{Path: path}
	}
	return node.leaf, nil
}

// GetDefault returns the value at a dotted path, or def when the path has
// no value.
func (v *Value) GetDefault(path string, def any) any {
	value, err := v.Get(path)
	if err != nil {
		return def
	}
	return value
}

// GetString reads a string value at a dotted path.
func (v *Value) GetString(path string) (string, error) {
	value, err := v.Get(path)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", errors.Errorf("config value %s is %T, not a string", path, value)
	}
	return s, nil
}

// GetBool reads a boolean value at a dotted path.
func (v *Value) GetBool(path string) (bool, error) {
	value, err := v.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, errors.Errorf("config value %s is %T, not a bool", path, value)
	}
	return b, nil
}

// GetInt reads an integer value at a dotted path.
func (v *Value) GetInt(path string) (int, error) {
	value, err := v.Get(path)
	if err != nil {
		return 0, err
	}
	switch t := value.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	}
	return 0, errors.Errorf("config value %s is %T, not an integer", path, value)
}
