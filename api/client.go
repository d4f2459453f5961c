////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package api is the REST client for the event platform backend. It
// implements [messaging.Client]: paginated message fetches for event and
// direct conversations, sends carrying a temp-ID correlation token, deletes,
// pins, typing status posts, reaction fetch/toggle, and search. Every
// response body is parsed into a typed wire struct and validated before it
// crosses into the messaging layer.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"go.uber.org/ratelimit"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

// Error messages.
const (
	emptyBaseURLErr = "base URL cannot be empty"
	parseBaseURLErr = "failed to parse base URL %q"
	statusErr       = "%s %s returned %d: %s"
	decodeErr       = "failed to decode %s %s response"
	unknownConvErr  = "cannot fetch messages for conversation %q"
)

// responseLimit bounds how much of a response body is read.
const responseLimit = 1 << 20

// Client talks to the platform REST API. It is safe for concurrent use; all
// requests share one rate limiter so a burst of fetches cannot starve sends.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter ratelimit.Limiter
}

// NewClient builds a Client from the given parameters.
func NewClient(params Params) (*Client, error) {
	if params.BaseURL == "" {
		return nil, errors.New(emptyBaseURLErr)
	}
	base, err := url.Parse(strings.TrimSuffix(params.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, parseBaseURLErr, params.BaseURL)
	}

	if params.RequestTimeout <= 0 {
		params.RequestTimeout = defaultRequestTimeout
	}
	if params.RequestsPerSecond <= 0 {
		params.RequestsPerSecond = defaultRequestsPerSecond
	}

	return &Client{
		base:    base,
		token:   params.AuthToken,
		http:    &http.Client{Timeout: params.RequestTimeout},
		limiter: ratelimit.New(params.RequestsPerSecond),
	}, nil
}

// FetchMessages retrieves one page of a conversation, newest page first. An
// empty cursor requests the first page.
func (c *Client) FetchMessages(conversationID messaging.ConversationID,
	cursor string, perPage int) (*messaging.MessagePage, error) {

	var path string
	switch {
	case conversationID.IsEvent():
		path = fmt.Sprintf("/api/events/%d/messages", conversationID.Scope())
	case conversationID.IsDirect():
		path = fmt.Sprintf(
			"/api/messages/direct/%d", conversationID.Scope())
	default:
		return nil, errors.Errorf(unknownConvErr, conversationID)
	}

	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}

	var page wirePage
	if err := c.do(http.MethodGet, path, query, nil, &page); err != nil {
		return nil, err
	}
	if err := page.validate(); err != nil {
		return nil, errors.WithMessagef(err,
			"rejected message page for %q", conversationID)
	}
	return page.toPage(), nil
}

// SendMessage transmits a pending message. The temp ID rides along as a
// correlation token so the server echoes it back on the push channel. The
// returned message is the confirmed server copy.
func (c *Client) SendMessage(
	msg messaging.Message) (*messaging.Message, error) {

	body := sendRequest{
		TempID:          msg.TempID,
		RecipientID:     msg.RecipientID,
		EventID:         msg.EventID,
		Content:         msg.Content,
		ParentMessageID: msg.ParentMessageID,
	}
	if msg.Attachment != nil {
		body.Attachment = &wireAttachment{
			Name: msg.Attachment.Name,
			URL:  msg.Attachment.URL,
			Type: msg.Attachment.Type,
			Size: msg.Attachment.Size,
		}
	}

	var path string
	if msg.EventID != 0 {
		path = fmt.Sprintf("/api/events/%d/messages", msg.EventID)
	} else {
		path = fmt.Sprintf("/api/messages/direct/%d", msg.RecipientID)
	}

	var confirmed wireMessage
	if err := c.do(
		http.MethodPost, path, nil, body, &confirmed); err != nil {
		return nil, err
	}
	if err := confirmed.validate(); err != nil {
		return nil, errors.WithMessage(err, "rejected send confirmation")
	}

	result := confirmed.toMessage()
	return &result, nil
}

// DeleteMessage deletes a confirmed message.
func (c *Client) DeleteMessage(messageID int64) error {
	return c.do(http.MethodDelete,
		fmt.Sprintf("/api/messages/%d", messageID), nil, nil, nil)
}

// SetTyping posts the local user's typing state for the conversation.
func (c *Client) SetTyping(
	conversationID messaging.ConversationID, typing bool) error {
	return c.do(http.MethodPost, "/api/typing", nil, typingRequest{
		ConversationID: conversationID.String(),
		Typing:         typing,
	}, nil)
}

// FetchReactions retrieves the full reaction state of a message.
func (c *Client) FetchReactions(
	messageID int64) (*messaging.ReactionSet, error) {

	var set wireReactionSet
	err := c.do(http.MethodGet,
		fmt.Sprintf("/api/messages/%d/reactions", messageID),
		nil, nil, &set)
	if err != nil {
		return nil, err
	}
	if err = set.validate(); err != nil {
		return nil, errors.WithMessagef(err,
			"rejected reaction state for message %d", messageID)
	}
	return set.toSet(), nil
}

// ToggleReaction sends one add/toggle request. Whether the reaction is added
// or removed is the server's decision.
func (c *Client) ToggleReaction(messageID int64, emoji string) error {
	return c.do(http.MethodPost,
		fmt.Sprintf("/api/messages/%d/reactions", messageID),
		nil, reactionRequest{Emoji: emoji}, nil)
}

// PinMessage sets or clears a message's pin flag.
func (c *Client) PinMessage(messageID int64, pinned bool) error {
	return c.do(http.MethodPost,
		fmt.Sprintf("/api/messages/%d/pin", messageID),
		nil, pinRequest{Pinned: pinned}, nil)
}

// Search queries the global search endpoint. kind filters the result type
// ("message", "user", "event"); empty searches everything.
func (c *Client) Search(
	query, kind string) ([]messaging.SearchResult, error) {

	values := url.Values{}
	values.Set("q", query)
	if kind != "" {
		values.Set("kind", kind)
	}

	var results []wireSearchResult
	err := c.do(http.MethodGet, "/api/search", values, nil, &results)
	if err != nil {
		return nil, err
	}

	out := make([]messaging.SearchResult, 0, len(results))
	for i := range results {
		if err = results[i].validate(); err != nil {
			return nil, errors.WithMessagef(err,
				"rejected search result for %q", query)
		}
		out = append(out, results[i].toResult())
	}
	return out, nil
}

// SearchConversation queries messages within a single conversation.
func (c *Client) SearchConversation(
	conversationID messaging.ConversationID, query string,
) ([]messaging.Message, error) {

	values := url.Values{}
	values.Set("q", query)
	values.Set("conversation_id", conversationID.String())

	var page wirePage
	err := c.do(
		http.MethodGet, "/api/messages/search", values, nil, &page)
	if err != nil {
		return nil, err
	}
	if err = page.validate(); err != nil {
		return nil, errors.WithMessagef(err,
			"rejected search results for %q", conversationID)
	}
	return page.toPage().Messages, nil
}

// do performs one rate-limited request. A non-nil body is sent as JSON; a
// non-nil out receives the decoded response body. Non-2xx responses become
// errors carrying the backend's error message when one is present.
func (c *Client) do(method, path string, query url.Values, body,
	out interface{}) error {

	c.limiter.Take()

	target := *c.base
	target.Path = strings.TrimSuffix(target.Path, "/") + path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err,
				"failed to encode %s %s request", method, path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target.String(), reader)
	if err != nil {
		return errors.Wrapf(err,
			"failed to build %s %s request", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	jww.TRACE.Printf("[API] %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			jww.WARN.Printf(
				"[API] Failed to close %s %s response body: %+v",
				method, path, err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return errors.Wrapf(err,
			"failed to read %s %s response", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var we wireError
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &we) == nil && we.Message != "" {
			message = we.Message
		}
		return errors.Errorf(
			statusErr, method, path, resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, decodeErr, method, path)
	}
	return nil
}
