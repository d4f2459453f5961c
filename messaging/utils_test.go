////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"sync"

	"github.com/pkg/errors"
)

// mockClient implements Client for testing. Responses are programmed per
// test; calls are counted so tests can assert how often the network was hit.
type mockClient struct {
	mux sync.Mutex

	pages       map[string]*MessagePage // keyed by conversation+"|"+cursor
	fetchErr    error
	fetchCalls  int
	cursorGate  chan struct{} // when set, cursor fetches block until closed
	sendErr     error
	sendCalls   int
	nextID      int64
	typingCalls []bool
	reactionSet *ReactionSet
	reactionErr error
	toggleErr   error
	toggleCalls int
	deleted     []int64
	pinned      map[int64]bool
	results     []SearchResult
	convResults []Message
}

func newMockClient() *mockClient {
	return &mockClient{
		pages:  make(map[string]*MessagePage),
		pinned: make(map[int64]bool),
		nextID: 1000,
	}
}

func (mc *mockClient) setPage(
	conversationID ConversationID, cursor string, page *MessagePage) {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	mc.pages[string(conversationID)+"|"+cursor] = page
}

func (mc *mockClient) FetchMessages(conversationID ConversationID,
	cursor string, _ int) (*MessagePage, error) {
	mc.mux.Lock()
	gate := mc.cursorGate
	mc.mux.Unlock()
	if cursor != "" && gate != nil {
		<-gate
	}

	mc.mux.Lock()
	defer mc.mux.Unlock()

	mc.fetchCalls++
	if mc.fetchErr != nil {
		return nil, mc.fetchErr
	}

	page, exists := mc.pages[string(conversationID)+"|"+cursor]
	if !exists {
		return &MessagePage{}, nil
	}
	return page, nil
}

func (mc *mockClient) SendMessage(msg Message) (*Message, error) {
	mc.mux.Lock()
	defer mc.mux.Unlock()

	mc.sendCalls++
	if mc.sendErr != nil {
		return nil, mc.sendErr
	}

	confirmed := msg
	confirmed.ID = mc.nextID
	mc.nextID++
	confirmed.Status = Sent
	return &confirmed, nil
}

func (mc *mockClient) DeleteMessage(messageID int64) error {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	mc.deleted = append(mc.deleted, messageID)
	return nil
}

func (mc *mockClient) SetTyping(_ ConversationID, typing bool) error {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	mc.typingCalls = append(mc.typingCalls, typing)
	return nil
}

func (mc *mockClient) FetchReactions(_ int64) (*ReactionSet, error) {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	if mc.reactionErr != nil {
		return nil, mc.reactionErr
	}
	if mc.reactionSet == nil {
		return &ReactionSet{Counts: make(map[string]int)}, nil
	}
	return mc.reactionSet, nil
}

func (mc *mockClient) ToggleReaction(_ int64, _ string) error {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	mc.toggleCalls++
	return mc.toggleErr
}

func (mc *mockClient) PinMessage(messageID int64, pinned bool) error {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	mc.pinned[messageID] = pinned
	return nil
}

func (mc *mockClient) Search(_, _ string) ([]SearchResult, error) {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	return mc.results, nil
}

func (mc *mockClient) SearchConversation(
	_ ConversationID, _ string) ([]Message, error) {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	return mc.convResults, nil
}

func (mc *mockClient) typingSignals() []bool {
	mc.mux.Lock()
	defer mc.mux.Unlock()
	out := make([]bool, len(mc.typingCalls))
	copy(out, mc.typingCalls)
	return out
}

// mockModel implements EventModel and records the most recent callbacks.
type mockModel struct {
	mux sync.Mutex

	conversationID ConversationID
	messages       []Message
	hasMore        bool

	statuses map[string]Status

	typers []TypingEntry

	counts map[int64]map[string]int
}

func newMockModel() *mockModel {
	return &mockModel{
		statuses: make(map[string]Status),
		counts:   make(map[int64]map[string]int),
	}
}

func (mm *mockModel) ConversationUpdated(conversationID ConversationID,
	messages []Message, hasMore bool) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	mm.conversationID = conversationID
	mm.messages = messages
	mm.hasMore = hasMore
}

func (mm *mockModel) MessageStatusUpdated(
	tempID string, _ Message, status Status) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	mm.statuses[tempID] = status
}

func (mm *mockModel) TypingUpdated(
	_ ConversationID, typers []TypingEntry) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	mm.typers = typers
}

func (mm *mockModel) ReactionsUpdated(
	messageID int64, counts map[string]int) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	mm.counts[messageID] = counts
}

func (mm *mockModel) status(tempID string) (Status, bool) {
	mm.mux.Lock()
	defer mm.mux.Unlock()
	s, ok := mm.statuses[tempID]
	return s, ok
}

// mockSub and mockBus implement the push surface for tests. Events are
// injected by calling the captured listener functions directly.
type mockSub struct {
	unlistened *bool
}

func (ms *mockSub) Unlisten() { *ms.unlistened = true }

type mockBus struct {
	mux sync.Mutex

	connected bool

	messageFns  map[ConversationID]func(MessageSentEvent)
	typingFns   map[ConversationID]func(TypingEvent)
	reactionFn  func(ReactionEvent)
	unsubscribe []*bool
}

func newMockBus() *mockBus {
	return &mockBus{
		messageFns: make(map[ConversationID]func(MessageSentEvent)),
		typingFns:  make(map[ConversationID]func(TypingEvent)),
	}
}

func (mb *mockBus) IsConnected() bool {
	mb.mux.Lock()
	defer mb.mux.Unlock()
	return mb.connected
}

func (mb *mockBus) SubscribeMessages(conversationID ConversationID,
	fn func(MessageSentEvent)) Subscription {
	mb.mux.Lock()
	defer mb.mux.Unlock()
	mb.messageFns[conversationID] = fn
	flag := new(bool)
	mb.unsubscribe = append(mb.unsubscribe, flag)
	return &mockSub{unlistened: flag}
}

func (mb *mockBus) SubscribeReactions(
	fn func(ReactionEvent)) Subscription {
	mb.mux.Lock()
	defer mb.mux.Unlock()
	mb.reactionFn = fn
	flag := new(bool)
	mb.unsubscribe = append(mb.unsubscribe, flag)
	return &mockSub{unlistened: flag}
}

func (mb *mockBus) SubscribeTyping(conversationID ConversationID,
	fn func(TypingEvent)) Subscription {
	mb.mux.Lock()
	defer mb.mux.Unlock()
	mb.typingFns[conversationID] = fn
	flag := new(bool)
	mb.unsubscribe = append(mb.unsubscribe, flag)
	return &mockSub{unlistened: flag}
}

func (mb *mockBus) pushMessage(
	conversationID ConversationID, event MessageSentEvent) error {
	mb.mux.Lock()
	fn, exists := mb.messageFns[conversationID]
	mb.mux.Unlock()
	if !exists {
		return errors.Errorf("no message listener for %q", conversationID)
	}
	fn(event)
	return nil
}

func (mb *mockBus) pushTyping(
	conversationID ConversationID, event TypingEvent) error {
	mb.mux.Lock()
	fn, exists := mb.typingFns[conversationID]
	mb.mux.Unlock()
	if !exists {
		return errors.Errorf("no typing listener for %q", conversationID)
	}
	fn(event)
	return nil
}
