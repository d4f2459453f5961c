////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	eventConversationPrefix  = "event"
	directConversationPrefix = "direct"
	conversationSeparator    = "_"
)

// Error messages.
const (
	malformedConversationErr = "malformed conversation identifier %q"
	unknownConversationErr   = "unknown conversation kind %q"
)

// ConversationID is the composite key that scopes message fetches, pagination
// cursors, and push subscriptions. It is either event-scoped ("event_<id>")
// or direct ("direct_<otherUserID>") and is stable for the lifetime of an
// open conversation view.
type ConversationID string

// NewEventConversation returns the identifier of the conversation attached to
// the given event.
func NewEventConversation(eventID int64) ConversationID {
	return ConversationID(fmt.Sprintf("%s%s%d",
		eventConversationPrefix, conversationSeparator, eventID))
}

// NewDirectConversation returns the identifier of the direct conversation
// with the given user.
func NewDirectConversation(otherUserID int64) ConversationID {
	return ConversationID(fmt.Sprintf("%s%s%d",
		directConversationPrefix, conversationSeparator, otherUserID))
}

// ParseConversationID validates a raw conversation identifier string.
func ParseConversationID(raw string) (ConversationID, error) {
	kind, id, found := strings.Cut(raw, conversationSeparator)
	if !found {
		return "", errors.Errorf(malformedConversationErr, raw)
	}

	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", errors.Errorf(malformedConversationErr, raw)
	}

	switch kind {
	case eventConversationPrefix, directConversationPrefix:
		return ConversationID(raw), nil
	default:
		return "", errors.Errorf(unknownConversationErr, kind)
	}
}

// IsEvent reports whether the conversation is scoped to an event.
func (c ConversationID) IsEvent() bool {
	return strings.HasPrefix(
		string(c), eventConversationPrefix+conversationSeparator)
}

// IsDirect reports whether the conversation is a direct conversation with
// another user.
func (c ConversationID) IsDirect() bool {
	return strings.HasPrefix(
		string(c), directConversationPrefix+conversationSeparator)
}

// Scope returns the numeric scope of the identifier: the event ID for event
// conversations or the other user's ID for direct conversations.
func (c ConversationID) Scope() int64 {
	_, id, found := strings.Cut(string(c), conversationSeparator)
	if !found {
		return 0
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// String returns the raw identifier. This function adheres to the
// [fmt.Stringer] interface.
func (c ConversationID) String() string {
	return string(c)
}
