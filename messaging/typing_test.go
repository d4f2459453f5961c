////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type signalRecorder struct {
	mux     sync.Mutex
	signals []bool
}

func (sr *signalRecorder) record(_ ConversationID, typing bool) {
	sr.mux.Lock()
	defer sr.mux.Unlock()
	sr.signals = append(sr.signals, typing)
}

func (sr *signalRecorder) list() []bool {
	sr.mux.Lock()
	defer sr.mux.Unlock()
	out := make([]bool, len(sr.signals))
	copy(out, sr.signals)
	return out
}

// newTestTypingTracker shortens the timers so tests run quickly.
func newTestTypingTracker(sr *signalRecorder,
	onChange typingChangedFunc) *typingTracker {
	if onChange == nil {
		onChange = func(ConversationID, []TypingEntry) {}
	}
	tt := newTypingTracker(sr.record, onChange)
	tt.localTimeout = 50 * time.Millisecond
	tt.remoteTimeout = 100 * time.Millisecond
	return tt
}

// Repeated StartTyping within the debounce window must send exactly one
// typing=true, and the idle timeout exactly one typing=false.
func TestTypingTracker_Debounce(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	tt.SetConversation(NewDirectConversation(42))

	tt.StartTyping()
	tt.StartTyping()
	tt.StartTyping()

	require.Equal(t, []bool{true}, sr.list())

	// Wait out the inactivity timer
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, []bool{true, false}, sr.list())

	// StopTyping while idle must not resend
	tt.StopTyping()
	require.Equal(t, []bool{true, false}, sr.list())
}

// An explicit StopTyping sends one typing=false and cancels the timer.
func TestTypingTracker_ExplicitStop(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	tt.SetConversation(NewDirectConversation(42))

	tt.StartTyping()
	tt.StopTyping()
	require.Equal(t, []bool{true, false}, sr.list())

	// The canceled timer must not fire a second stop
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, []bool{true, false}, sr.list())
}

// StartTyping with no conversation open is a no-op.
func TestTypingTracker_NoConversation(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)

	tt.StartTyping()
	require.Empty(t, sr.list())
}

// A remote typing=true expires the user after the timeout exactly once; a
// refresh restarts, not stacks, the timer.
func TestTypingTracker_RemoteExpiry(t *testing.T) {
	sr := &signalRecorder{}
	var mux sync.Mutex
	var changes [][]TypingEntry
	tt := newTestTypingTracker(sr,
		func(_ ConversationID, typers []TypingEntry) {
			mux.Lock()
			changes = append(changes, typers)
			mux.Unlock()
		})
	conv := NewDirectConversation(42)
	tt.SetConversation(conv)

	event := TypingEvent{
		ConversationID: conv, UserID: 9, DisplayName: "Ana", Typing: true}
	tt.HandleRemote(event)
	require.Len(t, tt.Typers(), 1)

	// Refresh just before expiry; the indicator must survive past the
	// original deadline
	time.Sleep(60 * time.Millisecond)
	tt.HandleRemote(event)
	time.Sleep(60 * time.Millisecond)
	require.Len(t, tt.Typers(), 1)

	// Silence past the refreshed deadline removes the user exactly once
	time.Sleep(80 * time.Millisecond)
	require.Empty(t, tt.Typers())

	mux.Lock()
	final := changes[len(changes)-1]
	mux.Unlock()
	require.Empty(t, final)
}

// An expiry that fires for a registration that has since been refreshed must
// not remove the refreshed entry. The stale timer callback is driven directly
// with the superseded registration, standing in for a timer that fired just
// as the refresh stopped it.
func TestTypingTracker_StaleExpiryIgnored(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	conv := NewDirectConversation(42)
	tt.SetConversation(conv)

	event := TypingEvent{
		ConversationID: conv, UserID: 9, DisplayName: "Ana", Typing: true}
	tt.HandleRemote(event)

	tt.mux.Lock()
	stale := tt.remote[9]
	tt.mux.Unlock()

	// Refresh replaces the registration; the old timer may still fire
	tt.HandleRemote(event)

	tt.expire(9, stale)
	require.Len(t, tt.Typers(), 1)

	// The current registration's expiry still removes the user
	tt.mux.Lock()
	current := tt.remote[9]
	tt.mux.Unlock()
	tt.expire(9, current)
	require.Empty(t, tt.Typers())
}

// A remote typing=false removes the user immediately regardless of the
// timer.
func TestTypingTracker_RemoteStop(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	conv := NewDirectConversation(42)
	tt.SetConversation(conv)

	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 9, DisplayName: "Ana", Typing: true})
	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 9, Typing: false})
	require.Empty(t, tt.Typers())

	// typing=false for an unknown user is a no-op
	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 77, Typing: false})
	require.Empty(t, tt.Typers())
}

// Each user's expiry is independent.
func TestTypingTracker_IndependentTimers(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	conv := NewEventConversation(5)
	tt.SetConversation(conv)

	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 1, DisplayName: "A", Typing: true})
	time.Sleep(60 * time.Millisecond)
	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 2, DisplayName: "B", Typing: true})

	// User 1 expires first
	time.Sleep(60 * time.Millisecond)
	typers := tt.Typers()
	require.Len(t, typers, 1)
	require.Equal(t, int64(2), typers[0].UserID)
}

// Events for another conversation are ignored, and switching conversations
// clears the remote set.
func TestTypingTracker_ConversationScoping(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	conv := NewDirectConversation(42)
	tt.SetConversation(conv)

	tt.HandleRemote(TypingEvent{
		ConversationID: NewDirectConversation(43), UserID: 9, Typing: true})
	require.Empty(t, tt.Typers())

	tt.HandleRemote(TypingEvent{
		ConversationID: conv, UserID: 9, Typing: true})
	require.Len(t, tt.Typers(), 1)

	tt.SetConversation(NewDirectConversation(43))
	require.Empty(t, tt.Typers())
}

// Switching away mid-typing sends one stop signal for the old conversation.
func TestTypingTracker_SwitchSendsStop(t *testing.T) {
	sr := &signalRecorder{}
	tt := newTestTypingTracker(sr, nil)
	tt.SetConversation(NewDirectConversation(42))

	tt.StartTyping()
	tt.SetConversation(NewDirectConversation(43))

	require.Equal(t, []bool{true, false}, sr.list())
}
