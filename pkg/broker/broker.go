// Copyright 2025 Kadir Pekel
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

// Package broker implements a process-wide publish/subscribe bus: a single
// process, many in-memory subscribers, glob topic patterns (path.Match
// syntax, e.g. "agent.*"), best-effort ordered-per-topic delivery. It owns no
// application state and offers no persistence or backpressure beyond each
// subscriber's own channel.
package broker

import (
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/agentruntime/core/pkg/logger"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
	Sender  string
}

// Handler receives matched events. A Handler that panics is isolated: the
// broker recovers it and logs, leaving other subscribers unaffected.
type Handler func(Event)

// Broker is a process-wide pub/sub bus. The zero value is not usable; call New.
type Broker struct {
	mu   sync.RWMutex
	subs map[int]subscription
	next int
	log  *slog.Logger
}

type subscription struct {
	pattern string
	handler Handler
}

// Subscription is an opaque handle returned by Subscribe, used to Unsubscribe.
type Subscription int

// New creates an empty Broker.
func New() *Broker {
	return &Broker{
		subs: make(map[int]subscription),
		log:  logger.GetLogger(),
	}
}

// Subscribe registers handler for every topic matching pattern (path.Match
// glob syntax against the full topic string, segments split on '.').
func (b *Broker) Subscribe(pattern string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = subscription{pattern: pattern, handler: handler}
	return Subscription(id)
}

// Unsubscribe removes a previously registered subscription. Safe to call
// more than once or with an id that no longer exists.
func (b *Broker) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, int(sub))
}

// Publish fans payload out, synchronously and in registration order, to
// every subscriber whose pattern matches topic. Delivery is best-effort: a
// handler that panics is recovered and logged, never aborting the fan-out.
func (b *Broker) Publish(topic string, payload any, sender string) {
	event := Event{Topic: topic, Payload: payload, Sender: sender}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id, sub := range b.subs {
		if matches(sub.pattern, topic) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	matched := make([]Handler, 0, len(ids))
	for _, id := range ids {
		matched = append(matched, b.subs[id].handler)
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.deliver(h, event)
	}
}

func (b *Broker) deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("broker subscriber panicked", "topic", event.Topic, "recover", r)
		}
	}()
	h(event)
}

// matches implements glob matching over dot-separated topic segments, e.g.
// pattern "agent.*" matches topic "agent.started" but not "agent.a.b".
func matches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	ok, err := path.Match(strings.ReplaceAll(pattern, ".", "/"), strings.ReplaceAll(topic, ".", "/"))
	return err == nil && ok
}
