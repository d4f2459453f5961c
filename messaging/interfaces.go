////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

// Client is the REST surface the messaging layer needs from the platform
// backend. The concrete implementation lives in the api package; tests
// substitute a mock.
type Client interface {
	// FetchMessages returns one page of messages for the conversation,
	// newest page first. An empty cursor requests the first page.
	FetchMessages(conversationID ConversationID, cursor string,
		perPage int) (*MessagePage, error)

	// SendMessage posts a message and returns the server-confirmed copy,
	// including its real ID. The request carries the temp ID as a
	// correlation token so push delivery can confirm the optimistic entry.
	SendMessage(msg Message) (*Message, error)

	// DeleteMessage removes a message by its server-assigned ID.
	DeleteMessage(messageID int64) error

	// SetTyping posts the local user's typing state for the conversation.
	SetTyping(conversationID ConversationID, typing bool) error

	// FetchReactions returns the reaction state of a single message.
	FetchReactions(messageID int64) (*ReactionSet, error)

	// ToggleReaction sends one add/toggle request for the (message, emoji,
	// current user) tuple. Whether this adds or removes is decided by the
	// server.
	ToggleReaction(messageID int64, emoji string) error

	// PinMessage sets or clears the pin flag on a message.
	PinMessage(messageID int64, pinned bool) error

	// Search queries the global search endpoint. kind filters the result
	// type and may be empty.
	Search(query, kind string) ([]SearchResult, error)

	// SearchConversation queries messages within one conversation.
	SearchConversation(conversationID ConversationID, query string) (
		[]Message, error)
}

// EventModel is the interface the embedding application implements to be told
// about state changes. All of the calls must be thread-safe. None of them may
// call back into the Manager.
type EventModel interface {
	// ConversationUpdated is called whenever the visible message list of the
	// open conversation changes: initial load, loadMore, poll or push merge,
	// local mutation. messages is sorted ascending by creation time and must
	// not be retained past the call.
	ConversationUpdated(conversationID ConversationID, messages []Message,
		hasMore bool)

	// MessageStatusUpdated is called whenever the status of an optimistic
	// message changes. On confirmation, msg is the server-confirmed copy; on
	// failure it is the pending copy with Status set to Failed.
	MessageStatusUpdated(tempID string, msg Message, status Status)

	// TypingUpdated is called with the full set of remote users currently
	// typing whenever that set changes.
	TypingUpdated(conversationID ConversationID, typers []TypingEntry)

	// ReactionsUpdated is called when a message's server-derived reaction
	// counts change.
	ReactionsUpdated(messageID int64, counts map[string]int)
}

// MessageSentEvent is the push event delivered when a message is posted to a
// conversation the user can see. TempID carries the sender's correlation
// token so the sender's own clients can confirm their optimistic entries.
type MessageSentEvent struct {
	Message Message
	TempID  string
}

// ReactionEvent is the push event delivered when a message's reaction counts
// change. Counts fully replaces the local map.
type ReactionEvent struct {
	MessageID int64
	Counts    map[string]int
}

// TypingEvent is the push event delivered when a user starts or stops typing
// in a conversation.
type TypingEvent struct {
	ConversationID ConversationID
	UserID         int64
	DisplayName    string
	AvatarURL      string
	Typing         bool
}

// Subscription is a disposable handle to a push listener. Unlisten is
// idempotent; a single teardown of all held subscriptions guarantees no
// listener leaks across conversation switches.
type Subscription interface {
	Unlisten()
}

// PushBus is the push-delivery surface the messaging layer needs. The
// concrete implementation lives in the push package; when no bus is supplied
// the Manager falls back to polling.
type PushBus interface {
	// IsConnected reports whether the push channel is currently live. The
	// poll loop only fetches while this is false.
	IsConnected() bool

	// SubscribeMessages registers a listener for message-sent events in the
	// given conversation.
	SubscribeMessages(conversationID ConversationID,
		fn func(MessageSentEvent)) Subscription

	// SubscribeReactions registers a listener for reaction-updated events.
	SubscribeReactions(fn func(ReactionEvent)) Subscription

	// SubscribeTyping registers a listener for typing-updated events in the
	// given conversation.
	SubscribeTyping(conversationID ConversationID,
		fn func(TypingEvent)) Subscription
}
