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

package githubapp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"

	"github.com/hooksmith/hooksmith/event"
	"github.com/hooksmith/hooksmith/lazy"
)

// DefaultWebhookRoute is the conventional mount point for the dispatcher.
const DefaultWebhookRoute string = "/api/github/hook"

// Handler processes one classified webhook event. The dispatcher invokes the
// handler registered for the event's descriptor, or the nearest registered
// ancestor when the exact type has no handler of its own.
type Handler interface {
	Handle(ctx context.Context, evt *event.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt *event.Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt *event.Event) error {
	return f(ctx, evt)
}

// DispatcherOption configures properties of a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithErrorCallback sets the error callback for a dispatcher.
func WithErrorCallback(onError ErrorCallback) DispatcherOption {
	return func(d *Dispatcher) {
		if onError != nil {
			d.onError = onError
		}
	}
}

// ErrorCallback is called when payload validation, event construction, or a
// handler fails.
type ErrorCallback func(w http.ResponseWriter, r *http.Request, err error)

// Dispatcher is an http.Handler for GitHub webhook deliveries. It validates
// the payload signature, classifies the delivery against the registry, and
// runs the handler registered for the matched descriptor. Handlers receive
// events whose sub-resources lazily fetch through the creator's
// per-installation requesters.
type Dispatcher struct {
	registry *event.Registry
	handlers map[string]Handler
	secret   string
	clients  ClientCreator
	onError  ErrorCallback
}

// NewDispatcher creates a dispatcher for the given classification registry.
// Payload integrity is validated against secret; an empty secret disables
// signature validation, for local development only.
func NewDispatcher(registry *event.Registry, secret string, clients ClientCreator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		handlers: make(map[string]Handler),
		secret:   secret,
		clients:  clients,
		onError:  DefaultErrorCallback,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// On registers a handler for the named descriptor, replacing any previous
// registration for the same name. Use event.RootName to catch everything
// that no more specific handler claims.
func (d *Dispatcher) On(descriptor string, h Handler) *Dispatcher {
	d.handlers[descriptor] = h
	return d
}

// ServeHTTP processes one webhook delivery from GitHub.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventType := r.Header.Get(event.HeaderEvent)
	deliveryID := r.Header.Get(event.HeaderDelivery)

	if eventType == "" {
		d.onError(w, r, ValidationError{
			EventType:  eventType,
			DeliveryID: deliveryID,
			Cause:      errors.New("missing event type"),
		})
		return
	}

	payload, err := github.ValidatePayload(r, []byte(d.secret))
	if err != nil {
		d.onError(w, r, ValidationError{
			EventType:  eventType,
			DeliveryID: deliveryID,
			Cause:      err,
		})
		return
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		d.onError(w, r, ValidationError{
			EventType:  eventType,
			DeliveryID: deliveryID,
			Cause:      errors.Wrap(err, "failed to decode payload"),
		})
		return
	}

	headers := deliveryHeaders(r)
	desc := d.registry.Classify(headers, body)

	meta, err := event.NewMetadata(headers, body)
	if err != nil {
		d.onError(w, r, ValidationError{
			EventType:  eventType,
			DeliveryID: deliveryID,
			Cause:      err,
		})
		return
	}

	ctx, logger := PrepareEventContext(ctx, meta)
	logger.Info().Str(LogKeyEventDescriptor, desc.Name()).Msg("Received webhook event")

	handler, matched := d.findHandler(desc)
	if handler == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	evt, err := event.New(d.requester(meta.InstallationID), desc, headers, body)
	if err != nil {
		d.onError(w, r.WithContext(ctx), err)
		return
	}

	if err := handler.Handle(ctx, evt); err != nil {
		d.onError(w, r.WithContext(ctx), errors.Wrapf(err, "handler for %q failed", matched))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// findHandler walks from the matched descriptor toward the root and returns
// the first registered handler, so an app can handle "pull_request" without
// registering every action subtype.
func (d *Dispatcher) findHandler(desc *event.Descriptor) (Handler, string) {
	for node := desc; node != nil; node = node.Parent() {
		if h, ok := d.handlers[node.Name()]; ok {
			return h, node.Name()
		}
	}
	return nil, ""
}

func (d *Dispatcher) requester(installationID int64) lazy.Requester {
	if d.clients == nil {
		return nil
	}
	return d.clients.NewRequester(installationID)
}

func deliveryHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string)
	for _, name := range []string{
		event.HeaderDelivery,
		event.HeaderEvent,
		event.HeaderHookID,
		event.HeaderTargetID,
		event.HeaderTargetType,
	} {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}
	return headers
}

// DefaultErrorCallback logs errors and responds with an appropriate status
// code.
func DefaultErrorCallback(w http.ResponseWriter, r *http.Request, err error) {
	defaultErrorCallback(w, r, err)
}

var defaultErrorCallback = MetricsErrorCallback(nil)
