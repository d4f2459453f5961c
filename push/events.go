////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package push

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

// Event type discriminators on the push channel.
const (
	eventMessageSent     = "message_sent"
	eventReactionUpdated = "reaction_updated"
	eventTypingUpdated   = "typing_updated"
)

// Error messages.
const (
	decodeEnvelopeErr = "failed to decode push frame"
	decodePayloadErr  = "failed to decode %q payload"
	unknownEventErr   = "unknown push event type %q"
	noEventIDErr      = "%q event carries no message ID"
	badEventScopeErr  = "%q event message belongs to no conversation"
	noEventSenderErr  = "%q event message has no sender"
	badEventCountErr  = "%q event carries a negative count for %q"
	noTypingUserErr   = "typing event carries no user ID"
	badTypingConvErr  = "typing event conversation"
)

// envelope is the outer frame of every push event.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type messageSentPayload struct {
	Message messaging.Message `json:"message"`
	TempID  string            `json:"temp_id"`
}

func (p *messageSentPayload) validate() error {
	if p.Message.ID == 0 {
		return errors.Errorf(noEventIDErr, eventMessageSent)
	}
	if p.Message.SenderID == 0 {
		return errors.Errorf(noEventSenderErr, eventMessageSent)
	}
	if p.Message.RecipientID == 0 && p.Message.EventID == 0 {
		return errors.Errorf(badEventScopeErr, eventMessageSent)
	}
	return nil
}

type reactionPayload struct {
	MessageID int64          `json:"message_id"`
	Counts    map[string]int `json:"reaction_counts"`
}

func (p *reactionPayload) validate() error {
	if p.MessageID == 0 {
		return errors.Errorf(noEventIDErr, eventReactionUpdated)
	}
	for emj, count := range p.Counts {
		if count < 0 {
			return errors.Errorf(
				badEventCountErr, eventReactionUpdated, emj)
		}
	}
	return nil
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
	Typing         bool   `json:"typing"`
}

func (p *typingPayload) validate() error {
	if p.UserID == 0 {
		return errors.New(noTypingUserErr)
	}
	if _, err := messaging.ParseConversationID(p.ConversationID); err != nil {
		return errors.WithMessage(err, badTypingConvErr)
	}
	return nil
}

// decodeFrame parses and validates one raw push frame. Frames that fail
// validation are rejected whole; the returned event is exactly one of the
// three messaging event types.
func decodeFrame(data []byte) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, decodeEnvelopeErr)
	}

	switch env.Type {
	case eventMessageSent:
		var payload messageSentPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, errors.Wrapf(err, decodePayloadErr, env.Type)
		}
		if err := payload.validate(); err != nil {
			return nil, err
		}
		msg := payload.Message
		msg.Status = messaging.Sent
		return messaging.MessageSentEvent{
			Message: msg,
			TempID:  payload.TempID,
		}, nil

	case eventReactionUpdated:
		var payload reactionPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, errors.Wrapf(err, decodePayloadErr, env.Type)
		}
		if err := payload.validate(); err != nil {
			return nil, err
		}
		counts := payload.Counts
		if counts == nil {
			counts = make(map[string]int)
		}
		return messaging.ReactionEvent{
			MessageID: payload.MessageID,
			Counts:    counts,
		}, nil

	case eventTypingUpdated:
		var payload typingPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, errors.Wrapf(err, decodePayloadErr, env.Type)
		}
		if err := payload.validate(); err != nil {
			return nil, err
		}
		return messaging.TypingEvent{
			ConversationID: messaging.ConversationID(payload.ConversationID),
			UserID:         payload.UserID,
			DisplayName:    payload.DisplayName,
			AvatarURL:      payload.AvatarURL,
			Typing:         payload.Typing,
		}, nil

	default:
		return nil, errors.Errorf(unknownEventErr, env.Type)
	}
}
