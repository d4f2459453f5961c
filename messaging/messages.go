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
	"time"
)

// Status represents the current local status of a message.
type Status uint8

const (
	// Sending is the status of an optimistic message that has been handed to
	// the network but not yet confirmed by the server.
	Sending Status = iota

	// Sent is the status of a message once the server has confirmed it and
	// assigned it a real ID.
	Sent

	// Failed is the status of a message whose send failed. The message stays
	// visible so the user can retry it.
	Failed
)

// String returns a human-readable version of [Status], used for debugging and
// logging. This function adheres to the [fmt.Stringer] interface.
func (s Status) String() string {
	switch s {
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return "Invalid Status: " + strconv.Itoa(int(s))
	}
}

// Attachment describes the single optional file carried by a message.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`

	// PreviewPath points at a locally generated preview file for an
	// optimistic send. It is never set on server-confirmed messages and must
	// be released when the message is confirmed, removed, or terminally
	// failed.
	PreviewPath string `json:"-"`
}

// Message is a single message in a conversation. Before server confirmation
// only TempID is set; afterwards ID is set. Exactly one of RecipientID and
// EventID is non-zero and determines the conversation the message belongs to.
type Message struct {
	ID     int64  `json:"id"`
	TempID string `json:"temp_id,omitempty"`

	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name,omitempty"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	EventID     int64  `json:"event_id,omitempty"`

	Content         string      `json:"content"`
	Attachment      *Attachment `json:"attachment,omitempty"`
	ParentMessageID int64       `json:"parent_message_id,omitempty"`
	Pinned          bool        `json:"pinned,omitempty"`

	// ReactionCounts is the server-derived emoji to count map. It is never
	// computed locally from individual reactions.
	ReactionCounts map[string]int `json:"reaction_counts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// Key returns the stable identity used to deduplicate a message across poll
// responses and push events. The server ID wins when present, then the temp
// ID; a sender+timestamp composite tolerates payloads missing both.
func (m *Message) Key() string {
	if m.ID != 0 {
		return "id:" + strconv.FormatInt(m.ID, 10)
	}
	if m.TempID != "" {
		return "temp:" + m.TempID
	}
	return fmt.Sprintf("fb:%d:%d", m.SenderID, m.CreatedAt.UnixNano())
}

// Conversation returns the identifier of the conversation this message
// belongs to, from the local user's point of view. localUserID is needed for
// direct messages the local user sent, where the conversation is keyed on the
// recipient.
func (m *Message) Conversation(localUserID int64) ConversationID {
	if m.EventID != 0 {
		return NewEventConversation(m.EventID)
	}
	if m.SenderID == localUserID {
		return NewDirectConversation(m.RecipientID)
	}
	return NewDirectConversation(m.SenderID)
}

// MessagePage is one page of a cursor-paginated message fetch. NextCursor is
// an opaque server token; empty means there are no more pages.
type MessagePage struct {
	Messages   []Message
	NextCursor string
	HasMore    bool
}

// Reaction is one user's emoji reaction to a message.
type Reaction struct {
	MessageID int64  `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// ReactionSet is the full reaction state of a single message: the individual
// reactions plus the server-derived emoji to count map. Both are kept; the
// counts are authoritative for display.
type ReactionSet struct {
	Reactions []Reaction     `json:"reactions"`
	Counts    map[string]int `json:"reaction_counts"`
}

// TypingEntry identifies a remote user currently typing in the open
// conversation.
type TypingEntry struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// SearchResult is a single hit from the global search endpoint.
type SearchResult struct {
	Kind    string   `json:"kind"`
	Message *Message `json:"message,omitempty"`
	UserID  int64    `json:"user_id,omitempty"`
	EventID int64    `json:"event_id,omitempty"`
	Label   string   `json:"label"`
}
