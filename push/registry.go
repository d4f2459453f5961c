////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package push

import (
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

// registry fans decoded push events out to listeners. Message and typing
// listeners are keyed by conversation; reaction listeners are global because
// reaction events carry no conversation scope. Each registration returns a
// disposable handle whose Unlisten is idempotent, so tearing a conversation
// down can never leak a listener.
type registry struct {
	mux    sync.RWMutex
	lastID uint64

	messages  map[messaging.ConversationID]map[uint64]func(messaging.MessageSentEvent)
	typing    map[messaging.ConversationID]map[uint64]func(messaging.TypingEvent)
	reactions map[uint64]func(messaging.ReactionEvent)
}

func newRegistry() *registry {
	return &registry{
		messages:  make(map[messaging.ConversationID]map[uint64]func(messaging.MessageSentEvent)),
		typing:    make(map[messaging.ConversationID]map[uint64]func(messaging.TypingEvent)),
		reactions: make(map[uint64]func(messaging.ReactionEvent)),
	}
}

// handle is the Subscription returned to callers. unregister is called at
// most once.
type handle struct {
	once       sync.Once
	unregister func()
}

func (h *handle) Unlisten() {
	h.once.Do(h.unregister)
}

func (r *registry) registerMessages(conversationID messaging.ConversationID,
	fn func(messaging.MessageSentEvent)) messaging.Subscription {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.lastID++
	id := r.lastID
	if r.messages[conversationID] == nil {
		r.messages[conversationID] =
			make(map[uint64]func(messaging.MessageSentEvent))
	}
	r.messages[conversationID][id] = fn

	return &handle{unregister: func() {
		r.mux.Lock()
		defer r.mux.Unlock()
		delete(r.messages[conversationID], id)
	}}
}

func (r *registry) registerTyping(conversationID messaging.ConversationID,
	fn func(messaging.TypingEvent)) messaging.Subscription {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.lastID++
	id := r.lastID
	if r.typing[conversationID] == nil {
		r.typing[conversationID] =
			make(map[uint64]func(messaging.TypingEvent))
	}
	r.typing[conversationID][id] = fn

	return &handle{unregister: func() {
		r.mux.Lock()
		defer r.mux.Unlock()
		delete(r.typing[conversationID], id)
	}}
}

func (r *registry) registerReactions(
	fn func(messaging.ReactionEvent)) messaging.Subscription {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.lastID++
	id := r.lastID
	r.reactions[id] = fn

	return &handle{unregister: func() {
		r.mux.Lock()
		defer r.mux.Unlock()
		delete(r.reactions, id)
	}}
}

// speak routes one decoded event to every matching listener. Events nobody
// listens for are normal (the conversation is simply not open) and only
// traced.
func (r *registry) speak(event interface{}, localUserID int64) {
	switch ev := event.(type) {
	case messaging.MessageSentEvent:
		conversationID := ev.Message.Conversation(localUserID)
		for _, fn := range r.matchMessages(conversationID) {
			fn(ev)
		}

	case messaging.TypingEvent:
		for _, fn := range r.matchTyping(ev.ConversationID) {
			fn(ev)
		}

	case messaging.ReactionEvent:
		for _, fn := range r.matchReactions() {
			fn(ev)
		}

	default:
		jww.ERROR.Printf("[PUSH] No route for event of type %T", event)
	}
}

func (r *registry) matchMessages(conversationID messaging.ConversationID,
) []func(messaging.MessageSentEvent) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	fns := make([]func(messaging.MessageSentEvent), 0,
		len(r.messages[conversationID]))
	for _, fn := range r.messages[conversationID] {
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		jww.TRACE.Printf(
			"[PUSH] No message listeners for %q", conversationID)
	}
	return fns
}

func (r *registry) matchTyping(conversationID messaging.ConversationID,
) []func(messaging.TypingEvent) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	fns := make([]func(messaging.TypingEvent), 0,
		len(r.typing[conversationID]))
	for _, fn := range r.typing[conversationID] {
		fns = append(fns, fn)
	}
	return fns
}

func (r *registry) matchReactions() []func(messaging.ReactionEvent) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	fns := make([]func(messaging.ReactionEvent), 0, len(r.reactions))
	for _, fn := range r.reactions {
		fns = append(fns, fn)
	}
	return fns
}
