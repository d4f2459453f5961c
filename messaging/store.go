////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"sort"
	"strconv"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

// FetchState is the pagination state of the store for the open conversation.
type FetchState uint8

const (
	// Empty is the state before any conversation is loaded and immediately
	// after a conversation switch.
	Empty FetchState = iota

	// LoadingInitial is the state while the first page is in flight.
	LoadingInitial

	// Ready is the steady state: messages are visible and no fetch is in
	// flight.
	Ready

	// LoadingMore is the state while an older page is in flight.
	LoadingMore
)

// String returns a human-readable version of [FetchState], used for debugging
// and logging. This function adheres to the [fmt.Stringer] interface.
func (fs FetchState) String() string {
	switch fs {
	case Empty:
		return "empty"
	case LoadingInitial:
		return "loadingInitial"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loadingMore"
	default:
		return "Invalid FetchState: " + strconv.Itoa(int(fs))
	}
}

// Store holds the authoritative, deduplicated, time-ordered message window
// for a single conversation. It merges the initial page load, explicit
// backfill pagination, and asynchronous poll or push updates. All methods are
// thread-safe. Every method that applies fetch results takes the conversation
// identifier the fetch was issued for; results for a conversation that is no
// longer open are discarded, not applied.
type Store struct {
	mux sync.RWMutex

	conversationID ConversationID
	state          FetchState

	// messages is kept sorted ascending by creation time; index maps each
	// message's stable key to its slice position.
	messages []Message
	index    map[string]int

	cursor  string
	hasMore bool

	// backfilled pins cursor and hasMore once any loadMore has succeeded so
	// a first-page refetch racing in afterwards cannot clobber them.
	backfilled bool
}

// NewStore returns an empty Store with no conversation attached.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// Reset unconditionally clears all state and attaches the store to the given
// conversation. Passing the empty identifier detaches the store.
func (s *Store) Reset(conversationID ConversationID) {
	s.mux.Lock()
	defer s.mux.Unlock()

	jww.INFO.Printf("[STORE] Reset to conversation %q (was %q)",
		conversationID, s.conversationID)

	s.conversationID = conversationID
	s.state = Empty
	s.messages = nil
	s.index = make(map[string]int)
	s.cursor = ""
	s.hasMore = false
	s.backfilled = false
}

// ConversationID returns the conversation the store is attached to.
func (s *Store) ConversationID() ConversationID {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.conversationID
}

// State returns the current fetch state.
func (s *Store) State() FetchState {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.state
}

// HasMore reports whether older pages remain.
func (s *Store) HasMore() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.hasMore
}

// Cursor returns the cursor for the next older page. Empty means no more
// pages.
func (s *Store) Cursor() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.cursor
}

// Messages returns a copy of the current ordered message window.
func (s *Store) Messages() []Message {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Get looks up a message by its server-assigned ID.
func (s *Store) Get(messageID int64) (Message, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	idx, exists := s.index["id:"+strconv.FormatInt(messageID, 10)]
	if !exists {
		return Message{}, false
	}
	return s.messages[idx], true
}

// BeginInitial transitions Empty to LoadingInitial for the given
// conversation. It reports whether the caller should issue the fetch.
func (s *Store) BeginInitial(conversationID ConversationID) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID || s.state != Empty {
		return false
	}

	s.state = LoadingInitial
	return true
}

// CompleteInitial applies the first page. The results are discarded if the
// store has moved to a different conversation since the fetch was issued.
func (s *Store) CompleteInitial(
	conversationID ConversationID, page *MessagePage) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID {
		jww.INFO.Printf("[STORE] Dropping initial page for stale "+
			"conversation %q; %q is open", conversationID, s.conversationID)
		return false
	}

	if s.state == LoadingInitial {
		s.state = Ready
	}

	changed := s.mergeLocked(page.Messages)
	if !s.backfilled {
		s.cursor = page.NextCursor
		s.hasMore = page.HasMore
		changed = true
	}
	return changed
}

// FailInitial records a failed first-page fetch. Existing state is left
// untouched; the conversation surfaces as an empty, retryable view.
func (s *Store) FailInitial(conversationID ConversationID) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID {
		return
	}
	if s.state == LoadingInitial {
		s.state = Ready
	}
}

// BeginLoadMore transitions Ready to LoadingMore and hands out the cursor to
// fetch with, bound to the conversation it belongs to. The caller must tag
// the completion with that same identifier. It is a silent no-op when there
// is no attached conversation, no further cursor, or a load already in
// flight.
func (s *Store) BeginLoadMore() (
	conversationID ConversationID, cursor string, ok bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID == "" || s.state != Ready ||
		!s.hasMore || s.cursor == "" {
		return "", "", false
	}

	s.state = LoadingMore
	return s.conversationID, s.cursor, true
}

// CompleteLoadMore merges an older page and advances the cursor. From here on
// the cursor and hasMore are pinned to the loadMore path: poll-driven
// first-page merges no longer overwrite them. A completion is discarded
// unless a load is still in flight for the same conversation; a Reset between
// Begin and Complete abandons the page even when the identifiers match.
func (s *Store) CompleteLoadMore(
	conversationID ConversationID, page *MessagePage) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID || s.state != LoadingMore {
		jww.INFO.Printf("[STORE] Dropping older page for conversation %q; "+
			"%q is open in state %s",
			conversationID, s.conversationID, s.state)
		return false
	}

	s.state = Ready
	s.mergeLocked(page.Messages)
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	s.backfilled = true
	return true
}

// FailLoadMore returns the store to Ready without touching messages or
// cursor. The caller may retry by calling BeginLoadMore again.
func (s *Store) FailLoadMore(conversationID ConversationID) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID {
		return
	}
	if s.state == LoadingMore {
		s.state = Ready
	}
}

// MergeLive merges messages arriving outside the pagination path: poll
// refreshes of the first page and inbound push events. The merge is
// idempotent under the per-message key, so the same message arriving from
// both a poll and a push yields one entry. Cursor state is only adopted
// before the first successful loadMore.
func (s *Store) MergeLive(
	conversationID ConversationID, page *MessagePage) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID {
		return false
	}

	changed := s.mergeLocked(page.Messages)
	if !s.backfilled && page.NextCursor != "" {
		if s.cursor != page.NextCursor || s.hasMore != page.HasMore {
			s.cursor = page.NextCursor
			s.hasMore = page.HasMore
			changed = true
		}
	}
	return changed
}

// Add inserts or merges a single message.
func (s *Store) Add(conversationID ConversationID, msg Message) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.conversationID != conversationID {
		return false
	}
	return s.mergeLocked([]Message{msg})
}

// Update applies mutate to the message with the given server-assigned ID.
// Temporary messages cannot be updated through this path.
func (s *Store) Update(messageID int64, mutate func(*Message)) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	idx, exists := s.index["id:"+strconv.FormatInt(messageID, 10)]
	if !exists {
		return false
	}

	mutate(&s.messages[idx])
	return true
}

// Remove deletes the message with the given server-assigned ID.
func (s *Store) Remove(messageID int64) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	key := "id:" + strconv.FormatInt(messageID, 10)
	idx, exists := s.index[key]
	if !exists {
		return false
	}

	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	delete(s.index, key)
	s.reindexLocked()
	return true
}

// RemoveTemp deletes an optimistic message by its temp ID.
func (s *Store) RemoveTemp(tempID string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	key := "temp:" + tempID
	idx, exists := s.index[key]
	if !exists {
		return false
	}

	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	delete(s.index, key)
	s.reindexLocked()
	return true
}

// mergeLocked folds incoming messages into the window by stable key, then
// restores the canonical order. A confirmed message that carries the temp ID
// of an existing optimistic entry replaces that entry. Returns whether
// anything changed.
func (s *Store) mergeLocked(incoming []Message) bool {
	changed := false

	for i := range incoming {
		msg := incoming[i]
		key := msg.Key()

		if idx, exists := s.index[key]; exists {
			if !messagesEqual(&s.messages[idx], &msg) {
				s.messages[idx] = msg
				changed = true
			}
			continue
		}

		// A confirmed copy of a still-pending optimistic entry arrives under
		// a new key; swap the pending entry out.
		if msg.ID != 0 && msg.TempID != "" {
			tempKey := "temp:" + msg.TempID
			if idx, exists := s.index[tempKey]; exists {
				s.messages[idx] = msg
				delete(s.index, tempKey)
				s.index[key] = idx
				changed = true
				continue
			}
		}

		s.messages = append(s.messages, msg)
		s.index[key] = len(s.messages) - 1
		changed = true
	}

	if changed {
		s.sortLocked()
	}
	return changed
}

// sortLocked restores the canonical order: creation time ascending, ties
// broken by server ID ascending with pending entries last.
func (s *Store) sortLocked() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := &s.messages[i], &s.messages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.ID != 0 && b.ID != 0 {
			return a.ID < b.ID
		}
		return b.ID == 0 && a.ID != 0
	})
	s.reindexLocked()
}

func (s *Store) reindexLocked() {
	for i := range s.messages {
		s.index[s.messages[i].Key()] = i
	}
}

// messagesEqual compares the fields a re-delivery can change.
func messagesEqual(a, b *Message) bool {
	if a.ID != b.ID || a.Content != b.Content || a.Pinned != b.Pinned ||
		a.Status != b.Status || !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if len(a.ReactionCounts) != len(b.ReactionCounts) {
		return false
	}
	for emoji, count := range a.ReactionCounts {
		if b.ReactionCounts[emoji] != count {
			return false
		}
	}
	return true
}
