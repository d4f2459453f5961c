////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package api

import (
	"time"

	"github.com/pkg/errors"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

// Error messages.
const (
	noMessageIDErr   = "message has no server ID"
	noSenderErr      = "message %d has no sender"
	noTimestampErr   = "message %d has no creation time"
	badScopeErr      = "message %d belongs to no conversation"
	noReactionIDErr  = "reaction is bound to no message"
	badCountErr      = "reaction count for %q is negative"
	badResultKindErr = "search result has unknown kind %q"
)

// Every response body is parsed into one of the wire types below and
// validated before it is handed to the rest of the SDK. A payload that fails
// validation is rejected at this boundary; nothing downstream ever sees a
// half-formed message.

type wireAttachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type wireMessage struct {
	ID              int64           `json:"id"`
	TempID          string          `json:"temp_id"`
	SenderID        int64           `json:"sender_id"`
	SenderName      string          `json:"sender_name"`
	RecipientID     int64           `json:"recipient_id"`
	EventID         int64           `json:"event_id"`
	Content         string          `json:"content"`
	Attachment      *wireAttachment `json:"attachment"`
	ParentMessageID int64           `json:"parent_message_id"`
	Pinned          bool            `json:"pinned"`
	ReactionCounts  map[string]int  `json:"reaction_counts"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (wm *wireMessage) validate() error {
	if wm.ID == 0 {
		return errors.New(noMessageIDErr)
	}
	if wm.SenderID == 0 {
		return errors.Errorf(noSenderErr, wm.ID)
	}
	if wm.CreatedAt.IsZero() {
		return errors.Errorf(noTimestampErr, wm.ID)
	}
	if wm.RecipientID == 0 && wm.EventID == 0 {
		return errors.Errorf(badScopeErr, wm.ID)
	}
	return nil
}

func (wm *wireMessage) toMessage() messaging.Message {
	msg := messaging.Message{
		ID:              wm.ID,
		TempID:          wm.TempID,
		SenderID:        wm.SenderID,
		SenderName:      wm.SenderName,
		RecipientID:     wm.RecipientID,
		EventID:         wm.EventID,
		Content:         wm.Content,
		ParentMessageID: wm.ParentMessageID,
		Pinned:          wm.Pinned,
		ReactionCounts:  wm.ReactionCounts,
		CreatedAt:       wm.CreatedAt,
		Status:          messaging.Sent,
	}
	if wm.Attachment != nil {
		msg.Attachment = &messaging.Attachment{
			Name: wm.Attachment.Name,
			URL:  wm.Attachment.URL,
			Type: wm.Attachment.Type,
			Size: wm.Attachment.Size,
		}
	}
	return msg
}

type wirePage struct {
	Messages   []wireMessage `json:"messages"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

func (wp *wirePage) validate() error {
	for i := range wp.Messages {
		if err := wp.Messages[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (wp *wirePage) toPage() *messaging.MessagePage {
	page := &messaging.MessagePage{
		Messages:   make([]messaging.Message, 0, len(wp.Messages)),
		NextCursor: wp.NextCursor,
		HasMore:    wp.HasMore,
	}
	for i := range wp.Messages {
		page.Messages = append(page.Messages, wp.Messages[i].toMessage())
	}
	return page
}

type wireReaction struct {
	MessageID int64  `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type wireReactionSet struct {
	Reactions []wireReaction `json:"reactions"`
	Counts    map[string]int `json:"reaction_counts"`
}

func (ws *wireReactionSet) validate() error {
	for _, r := range ws.Reactions {
		if r.MessageID == 0 {
			return errors.New(noReactionIDErr)
		}
	}
	for emj, count := range ws.Counts {
		if count < 0 {
			return errors.Errorf(badCountErr, emj)
		}
	}
	return nil
}

func (ws *wireReactionSet) toSet() *messaging.ReactionSet {
	set := &messaging.ReactionSet{
		Reactions: make([]messaging.Reaction, 0, len(ws.Reactions)),
		Counts:    ws.Counts,
	}
	if set.Counts == nil {
		set.Counts = make(map[string]int)
	}
	for _, r := range ws.Reactions {
		set.Reactions = append(set.Reactions, messaging.Reaction{
			MessageID: r.MessageID,
			UserID:    r.UserID,
			Emoji:     r.Emoji,
		})
	}
	return set
}

type wireSearchResult struct {
	Kind    string       `json:"kind"`
	Message *wireMessage `json:"message"`
	UserID  int64        `json:"user_id"`
	EventID int64        `json:"event_id"`
	Label   string       `json:"label"`
}

func (wr *wireSearchResult) validate() error {
	switch wr.Kind {
	case "message":
		if wr.Message == nil {
			return errors.Errorf(badResultKindErr, wr.Kind)
		}
		return wr.Message.validate()
	case "user", "event":
		return nil
	default:
		return errors.Errorf(badResultKindErr, wr.Kind)
	}
}

func (wr *wireSearchResult) toResult() messaging.SearchResult {
	result := messaging.SearchResult{
		Kind:    wr.Kind,
		UserID:  wr.UserID,
		EventID: wr.EventID,
		Label:   wr.Label,
	}
	if wr.Message != nil {
		msg := wr.Message.toMessage()
		result.Message = &msg
	}
	return result
}

// Request bodies.

type sendRequest struct {
	TempID          string          `json:"temp_id"`
	RecipientID     int64           `json:"recipient_id,omitempty"`
	EventID         int64           `json:"event_id,omitempty"`
	Content         string          `json:"content"`
	Attachment      *wireAttachment `json:"attachment,omitempty"`
	ParentMessageID int64           `json:"parent_message_id,omitempty"`
}

type typingRequest struct {
	ConversationID string `json:"conversation_id"`
	Typing         bool   `json:"typing"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// wireError is the backend's error envelope.
type wireError struct {
	Message string `json:"message"`
}
