////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package messaging keeps a client's local view of one conversation
// consistent with the platform backend. It combines optimistic sends,
// cursor-based backfill pagination, poll- or push-driven live updates, typing
// presence, and reaction aggregation behind a single Manager whose state
// changes are reported through the EventModel callback interface.
package messaging

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/stoppable"
	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/storage/versioned"
)

const (
	defaultPerPage      = 50
	defaultPollInterval = 5 * time.Second

	pollStoppableName = "MessagePollThread"
)

// Error messages.
const (
	noConversationErr = "no conversation is open"
	tempDeleteErr     = "message %d cannot be deleted before it is confirmed"
)

// Params configures a Manager.
type Params struct {
	// PerPage is the page size for message fetches.
	PerPage int

	// PollInterval is the cadence of first-page refreshes while the push
	// channel is down. Zero disables polling entirely.
	PollInterval time.Duration
}

// GetDefaultParams returns a Params with the default page size and poll
// cadence.
func GetDefaultParams() Params {
	return Params{
		PerPage:      defaultPerPage,
		PollInterval: defaultPollInterval,
	}
}

// Manager owns the local messaging state for one open conversation at a
// time. It is safe for concurrent use. All network failures degrade: reads
// surface empty results, sends surface a retryable Failed status; nothing in
// this layer is fatal except local storage corruption.
type Manager struct {
	client Client
	bus    PushBus
	model  EventModel
	kv     *versioned.KV

	localUserID int64
	params      Params

	store    *Store
	tracker  *sendTracker
	typing   *typingTracker
	searches *recentSearches

	mux      sync.Mutex
	subs     []Subscription
	pollStop *stoppable.Single
	views    map[int64]*ReactionView
	busSub   Subscription
}

// NewManager wires the REST client, the optional push bus, and the consumer's
// EventModel into a Manager. Passing a nil bus leaves the Manager on the
// polling path. The KV is used for the pending-send journal and the recent
// search list; sends journaled by a previous run are replayed to the
// EventModel as Failed during construction.
func NewManager(client Client, bus PushBus, model EventModel,
	kv *versioned.KV, localUserID int64, params Params) *Manager {

	if params.PerPage <= 0 {
		params.PerPage = defaultPerPage
	}

	m := &Manager{
		client:      client,
		bus:         bus,
		model:       model,
		kv:          kv,
		localUserID: localUserID,
		params:      params,
		store:       NewStore(),
		searches:    loadRecentSearches(kv),
		views:       make(map[int64]*ReactionView),
	}

	m.typing = newTypingTracker(m.signalTyping, model.TypingUpdated)
	m.tracker = loadSendTracker(kv, m.handleStatus)

	if bus != nil {
		m.busSub = bus.SubscribeReactions(m.handleReactionEvent)
	}

	return m
}

// SetConversation switches the open conversation. The previous conversation's
// subscriptions, timers, and pagination state are torn down unconditionally;
// the new conversation starts with an initial page fetch and, when a push bus
// is present, fresh subscriptions. Passing the empty identifier just tears
// down.
func (m *Manager) SetConversation(conversationID ConversationID) {
	m.teardownConversation()

	m.typing.SetConversation(conversationID)
	m.store.Reset(conversationID)

	if conversationID == "" {
		return
	}

	jww.INFO.Printf("[MSG] Opening conversation %q", conversationID)

	m.mux.Lock()
	if m.bus != nil {
		m.subs = append(m.subs,
			m.bus.SubscribeMessages(conversationID, m.handlePushMessage),
			m.bus.SubscribeTyping(conversationID, m.typing.HandleRemote))
	}

	if m.params.PollInterval > 0 {
		stop := stoppable.NewSingle(pollStoppableName)
		m.pollStop = stop
		go m.pollThread(conversationID, stop)
	}
	m.mux.Unlock()

	// Pending and failed sends outlive the window in the tracker; put the
	// ones belonging to this conversation back so a retryable entry does not
	// vanish across a switch away and back.
	restored := false
	for _, pending := range m.tracker.Pending() {
		if pending.Conversation(m.localUserID) == conversationID &&
			m.store.Add(conversationID, pending) {
			restored = true
		}
	}
	if restored {
		m.notifyConversation()
	}

	if m.store.BeginInitial(conversationID) {
		go m.fetchInitial(conversationID)
	}
}

// Close tears down the open conversation, the poll loop, and all push
// subscriptions.
func (m *Manager) Close() {
	m.teardownConversation()
	m.typing.Reset()
	m.store.Reset("")

	m.mux.Lock()
	if m.busSub != nil {
		m.busSub.Unlisten()
		m.busSub = nil
	}
	m.mux.Unlock()
}

// Messages returns the ordered message window of the open conversation,
// including pending optimistic entries.
func (m *Manager) Messages() []Message {
	return m.store.Messages()
}

// HasMore reports whether older pages remain for the open conversation.
func (m *Manager) HasMore() bool {
	return m.store.HasMore()
}

// LoadMore fetches the next older page. It is a silent no-op when there is
// no open conversation, no further cursor, or a load already in flight. A
// failed fetch leaves existing state untouched and may simply be retried.
func (m *Manager) LoadMore() {
	conversationID, cursor, ok := m.store.BeginLoadMore()
	if !ok {
		return
	}

	page, err := m.client.FetchMessages(
		conversationID, cursor, m.params.PerPage)
	if err != nil {
		jww.WARN.Printf("[MSG] Failed to load older page for %q: %+v",
			conversationID, err)
		m.store.FailLoadMore(conversationID)
		return
	}

	if m.store.CompleteLoadMore(conversationID, page) {
		m.notifyConversation()
	}
}

// Send creates an optimistic message visible immediately and transmits it in
// the background. It returns the temp ID identifying the pending entry. A
// network failure never surfaces as an error here; it degrades the entry to
// the retryable Failed status.
func (m *Manager) Send(content string, attachment *Attachment,
	parentMessageID int64) (string, error) {

	conversationID := m.store.ConversationID()
	if conversationID == "" {
		return "", errors.New(noConversationErr)
	}

	msg := Message{
		SenderID:        m.localUserID,
		Content:         content,
		ParentMessageID: parentMessageID,
		CreatedAt:       time.Now(),
	}
	if conversationID.IsEvent() {
		msg.EventID = conversationID.Scope()
	} else {
		msg.RecipientID = conversationID.Scope()
	}

	if attachment != nil {
		att := *attachment
		if err := makePreview(&att); err != nil {
			// The message still sends; it just has no local preview
			jww.WARN.Printf("[MSG] No preview for %q: %+v", att.Name, err)
		}
		msg.Attachment = &att
	}

	pending := m.tracker.DenotePendingSend(msg)
	if m.store.Add(conversationID, pending) {
		m.notifyConversation()
	}

	go m.transmit(pending)
	return pending.TempID, nil
}

// Retry re-issues a failed send. It is a no-op for unknown temp IDs and for
// entries that are not Failed.
func (m *Manager) Retry(tempID string) {
	pending, ok := m.tracker.Retry(tempID)
	if !ok {
		return
	}
	go m.transmit(pending)
}

// Cancel drops a pending message entirely (user-initiated).
func (m *Manager) Cancel(tempID string) {
	m.tracker.Remove(tempID)
	if m.store.RemoveTemp(tempID) {
		m.notifyConversation()
	}
}

// DeleteMessage deletes a confirmed message on the server and removes it
// locally. The error is returned loudly so the UI can surface it.
func (m *Manager) DeleteMessage(messageID int64) error {
	if messageID == 0 {
		return errors.Errorf(tempDeleteErr, messageID)
	}

	if err := m.client.DeleteMessage(messageID); err != nil {
		return errors.WithMessagef(err,
			"failed to delete message %d", messageID)
	}

	if m.store.Remove(messageID) {
		m.notifyConversation()
	}
	return nil
}

// PinMessage sets or clears the pin flag of a confirmed message.
func (m *Manager) PinMessage(messageID int64, pinned bool) error {
	if err := m.client.PinMessage(messageID, pinned); err != nil {
		return errors.WithMessagef(err, "failed to update pin state of "+
			"message %d", messageID)
	}

	if m.store.Update(messageID, func(msg *Message) { msg.Pinned = pinned }) {
		m.notifyConversation()
	}
	return nil
}

// StartTyping reports local typing activity; the tracker debounces it into at
// most one signal per transition.
func (m *Manager) StartTyping() {
	m.typing.StartTyping()
}

// StopTyping reports that the local user stopped typing.
func (m *Manager) StopTyping() {
	m.typing.StopTyping()
}

// Typers returns the remote users currently typing in the open conversation.
func (m *Manager) Typers() []TypingEntry {
	return m.typing.Typers()
}

// Reactions returns the reaction view of the given message, creating it on
// first use. Views receive push reconciliation until the conversation is
// switched or the Manager is closed; switching drops the cache.
func (m *Manager) Reactions(messageID int64) *ReactionView {
	m.mux.Lock()
	defer m.mux.Unlock()

	view, exists := m.views[messageID]
	if !exists {
		view = newReactionView(m.client, messageID, m.handleCounts)
		m.views[messageID] = view
	}
	return view
}

// Search queries the global search endpoint and records the query in the
// recent search list.
func (m *Manager) Search(query, kind string) ([]SearchResult, error) {
	m.searches.Add(query)
	results, err := m.client.Search(query, kind)
	if err != nil {
		return nil, errors.WithMessagef(err, "search %q failed", query)
	}
	return results, nil
}

// SearchConversation queries messages within the open conversation and
// records the query in the recent search list.
func (m *Manager) SearchConversation(query string) ([]Message, error) {
	conversationID := m.store.ConversationID()
	if conversationID == "" {
		return nil, errors.New(noConversationErr)
	}

	m.searches.Add(query)
	results, err := m.client.SearchConversation(conversationID, query)
	if err != nil {
		return nil, errors.WithMessagef(err, "search %q in %q failed",
			query, conversationID)
	}
	return results, nil
}

// RecentSearches returns the persisted recent search strings, newest first.
func (m *Manager) RecentSearches() []string {
	return m.searches.List()
}

// transmit performs the network send for a pending message and reconciles the
// result through the send tracker.
func (m *Manager) transmit(pending Message) {
	confirmed, err := m.client.SendMessage(pending)
	if err != nil {
		jww.WARN.Printf("[MSG] Send of %s failed: %+v",
			pending.TempID, err)
		m.tracker.Fail(pending.TempID)
		return
	}

	m.tracker.Confirm(pending.TempID, *confirmed)
}

// fetchInitial loads the first page of a freshly opened conversation.
func (m *Manager) fetchInitial(conversationID ConversationID) {
	page, err := m.client.FetchMessages(
		conversationID, "", m.params.PerPage)
	if err != nil {
		jww.WARN.Printf("[MSG] Initial fetch for %q failed: %+v",
			conversationID, err)
		m.store.FailInitial(conversationID)
		return
	}

	m.confirmCorrelated(page.Messages)
	if m.store.CompleteInitial(conversationID, page) {
		m.notifyConversation()
	}
}

// pollThread refreshes the first page on a fixed cadence while the push
// channel is down. It exits when its stoppable closes, which happens on every
// conversation switch.
func (m *Manager) pollThread(
	conversationID ConversationID, stop *stoppable.Single) {
	ticker := time.NewTicker(m.params.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Quit():
			stop.ToStopped()
			return
		case <-ticker.C:
			if m.bus != nil && m.bus.IsConnected() {
				continue
			}
			m.pollOnce(conversationID)
		}
	}
}

// pollOnce refetches the first page and merges it without disturbing
// backfill pagination state.
func (m *Manager) pollOnce(conversationID ConversationID) {
	page, err := m.client.FetchMessages(
		conversationID, "", m.params.PerPage)
	if err != nil {
		jww.WARN.Printf("[MSG] Poll of %q failed: %+v",
			conversationID, err)
		return
	}

	m.confirmCorrelated(page.Messages)
	if m.store.MergeLive(conversationID, page) {
		m.notifyConversation()
	}
}

// confirmCorrelated diverts fetched copies of the local user's own pending
// sends to the send tracker. The tracker tolerates the temp ID already being
// confirmed through the other delivery path.
func (m *Manager) confirmCorrelated(msgs []Message) {
	for i := range msgs {
		msg := msgs[i]
		if msg.TempID != "" && msg.SenderID == m.localUserID {
			m.tracker.Confirm(msg.TempID, msg)
		}
	}
}

// handlePushMessage reconciles an inbound message-sent event.
func (m *Manager) handlePushMessage(event MessageSentEvent) {
	if event.TempID != "" && event.Message.SenderID == m.localUserID {
		msg := event.Message
		msg.TempID = event.TempID
		if m.tracker.Confirm(event.TempID, msg) {
			// handleStatus already merged and notified
			return
		}
	}

	conversationID := event.Message.Conversation(m.localUserID)
	if m.store.Add(conversationID, event.Message) {
		m.notifyConversation()
	}
}

// handleReactionEvent reconciles an inbound reaction-updated event. When a
// view exists for the message it owns the reconciliation; otherwise the
// counts are applied to the store directly.
func (m *Manager) handleReactionEvent(event ReactionEvent) {
	m.mux.Lock()
	view, exists := m.views[event.MessageID]
	m.mux.Unlock()

	if exists {
		view.ApplyPush(event)
		return
	}
	m.handleCounts(event.MessageID, event.Counts)
}

// handleCounts applies server-derived reaction counts to the stored message
// and tells the event model.
func (m *Manager) handleCounts(messageID int64, counts map[string]int) {
	if m.store.Update(messageID, func(msg *Message) {
		msg.ReactionCounts = counts
	}) {
		m.notifyConversation()
	}
	m.model.ReactionsUpdated(messageID, counts)
}

// handleStatus is the send tracker's status callback: it folds the change
// into the store and forwards it to the event model.
func (m *Manager) handleStatus(tempID string, msg Message, status Status) {
	conversationID := msg.Conversation(m.localUserID)
	if m.store.Add(conversationID, msg) {
		m.notifyConversation()
	}
	m.model.MessageStatusUpdated(tempID, msg, status)
}

// signalTyping posts the local typing transition without blocking the
// tracker's timers.
func (m *Manager) signalTyping(
	conversationID ConversationID, typing bool) {
	go func() {
		if err := m.client.SetTyping(conversationID, typing); err != nil {
			jww.WARN.Printf("[MSG] Failed to post typing=%t for %q: %+v",
				typing, conversationID, err)
		}
	}()
}

// notifyConversation pushes the current window to the event model.
func (m *Manager) notifyConversation() {
	m.model.ConversationUpdated(
		m.store.ConversationID(), m.store.Messages(), m.store.HasMore())
}

// teardownConversation releases every per-conversation resource: push
// subscriptions, the poll loop, and the reaction view cache.
func (m *Manager) teardownConversation() {
	m.mux.Lock()
	subs := m.subs
	m.subs = nil
	stop := m.pollStop
	m.pollStop = nil
	m.views = make(map[int64]*ReactionView)
	m.mux.Unlock()

	for _, sub := range subs {
		sub.Unlisten()
	}
	if stop != nil {
		if err := stop.Close(); err != nil {
			jww.ERROR.Printf("[MSG] Failed to stop poll thread: %+v", err)
		}
	}
}
