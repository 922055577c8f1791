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
	"encoding/json"
	"strconv"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"

	"github.com/hooksmith/hooksmith/lazy"
)

// Header names GitHub sends with every webhook delivery.
const (
	HeaderDelivery   = "X-Github-Delivery"
	HeaderEvent      = "X-Github-Event"
	HeaderHookID     = "X-Github-Hook-Id"
	HeaderTargetID   = "X-Github-Hook-Installation-Target-Id"
	HeaderTargetType = "X-Github-Hook-Installation-Target-Type"
)

// Metadata is the per-delivery context extracted from the webhook headers and
// body. It is built once at construction and passed by value, so concurrent
// deliveries never share mutable state.
type Metadata struct {
	DeliveryID     string
	EventName      string
	HookID         int64
	TargetID       int64
	TargetType     string
	InstallationID int64
}

// NewMetadata extracts delivery metadata from webhook headers and the decoded
// body. The five X-Github-* headers are required; the installation ID is
// optional and comes from the body's installation.id field.
func NewMetadata(headers map[string]string, body map[string]any) (Metadata, error) {
	meta := Metadata{
		DeliveryID: headers[HeaderDelivery],
		EventName:  headers[HeaderEvent],
		TargetType: headers[HeaderTargetType],
	}
	if meta.DeliveryID == "" {
		return meta, errors.Errorf("missing %s header", HeaderDelivery)
	}
	if meta.EventName == "" {
		return meta, errors.Errorf("missing %s header", HeaderEvent)
	}
	if meta.TargetType == "" {
		return meta, errors.Errorf("missing %s header", HeaderTargetType)
	}

	var err error
	if meta.HookID, err = headerInt64(headers, HeaderHookID); err != nil {
		return meta, err
	}
	if meta.TargetID, err = headerInt64(headers, HeaderTargetID); err != nil {
		return meta, err
	}

	if installation, ok := body["installation"].(map[string]any); ok {
		id, err := toInt64(installation["id"])
		if err != nil {
			return meta, errors.Wrap(err, "invalid installation.id in body")
		}
		meta.InstallationID = id
	}
	return meta, nil
}

func headerInt64(headers map[string]string, name string) (int64, error) {
	value, ok := headers[name]
	if !ok {
		return 0, errors.Errorf("missing %s header", name)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s header", name)
	}
	return id, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, errors.Errorf("value %v is not an integer", v)
}

// Event is one classified webhook delivery: its metadata, the most specific
// descriptor that matched, the raw body, and the common sub-resources parsed
// as lazy partial objects. Fields the payload snapshot omitted are fetched
// from the API the first time handler code asks for them.
type Event struct {
	Metadata   Metadata
	Descriptor *Descriptor
	Body       map[string]any

	Repository *lazy.Lazy[github.Repository]
	Sender     *lazy.Lazy[github.User]
}

// New constructs the concrete event for a delivery that Classify resolved to
// desc. Embedded repository and sender fragments become lazy resources bound
// to the given requester; either may be nil when the payload omits it.
func New(requester lazy.Requester, desc *Descriptor, headers map[string]string, body map[string]any) (*Event, error) {
	meta, err := NewMetadata(headers, body)
	if err != nil {
		return nil, err
	}

	evt := &Event{
		Metadata:   meta,
		Descriptor: desc,
		Body:       body,
	}

	if evt.Repository, err = parseObject[github.Repository](requester, body["repository"]); err != nil {
		return nil, errors.Wrap(err, "failed to parse repository")
	}
	if evt.Sender, err = parseObject[github.User](requester, body["sender"]); err != nil {
		return nil, errors.Wrap(err, "failed to parse sender")
	}
	return evt, nil
}

// parseObject turns a decoded payload fragment into a lazy resource. Wrap
// rewrites web-facing URLs into API-shaped ones so the fragment is a valid
// fetch target.
func parseObject[T any](requester lazy.Requester, fragment any) (*lazy.Lazy[T], error) {
	if fragment == nil {
		return nil, nil
	}

	data, err := json.Marshal(fragment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload fragment")
	}
	return lazy.Wrap[T](requester, json.RawMessage(data))
}
