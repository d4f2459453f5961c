////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"sort"
	"sync"
	"time"
)

const (
	// localTypingTimeout is how long after the last keystroke the local user
	// is still reported as typing.
	localTypingTimeout = 2 * time.Second

	// remoteTypingTimeout expires a remote user's typing indicator when
	// their stopped-typing event is lost.
	remoteTypingTimeout = 4 * time.Second
)

// typingSignalFunc posts the local user's typing state to the backend.
type typingSignalFunc func(conversationID ConversationID, typing bool)

// typingChangedFunc is called with the full remote typing set whenever it
// changes.
type typingChangedFunc func(
	conversationID ConversationID, typers []TypingEntry)

type remoteTyper struct {
	entry TypingEntry
	timer *time.Timer
}

// typingTracker debounces the local user's typing state into single
// start/stop signals and tracks remote users' typing state with a per-user
// expiry. One network signal is sent per transition, not per keystroke.
type typingTracker struct {
	mux sync.Mutex

	conversationID ConversationID

	localTyping bool
	localTimer  *time.Timer

	remote map[int64]*remoteTyper

	signal   typingSignalFunc
	onChange typingChangedFunc

	localTimeout  time.Duration
	remoteTimeout time.Duration
}

func newTypingTracker(
	signal typingSignalFunc, onChange typingChangedFunc) *typingTracker {
	return &typingTracker{
		remote:        make(map[int64]*remoteTyper),
		signal:        signal,
		onChange:      onChange,
		localTimeout:  localTypingTimeout,
		remoteTimeout: remoteTypingTimeout,
	}
}

// SetConversation rebinds the tracker. All pending timers and the remote set
// are cleared so indicators never bleed across conversations; if the local
// user was mid-typing, one stop signal is sent for the old conversation.
func (tt *typingTracker) SetConversation(conversationID ConversationID) {
	tt.mux.Lock()
	previous := tt.conversationID
	wasTyping := tt.localTyping
	tt.clearLocked()
	tt.conversationID = conversationID
	tt.mux.Unlock()

	if wasTyping && previous != "" {
		tt.signal(previous, false)
	}
}

// StartTyping reports local typing activity. The first call sends one
// typing=true signal; repeated calls only restart the inactivity timer. After
// localTimeout of silence StopTyping fires automatically.
func (tt *typingTracker) StartTyping() {
	tt.mux.Lock()

	conversationID := tt.conversationID
	if conversationID == "" {
		tt.mux.Unlock()
		return
	}

	sendStart := !tt.localTyping
	tt.localTyping = true

	if tt.localTimer != nil {
		tt.localTimer.Stop()
	}
	tt.localTimer = time.AfterFunc(tt.localTimeout, tt.StopTyping)

	tt.mux.Unlock()

	if sendStart {
		tt.signal(conversationID, true)
	}
}

// StopTyping sends one typing=false signal if the local user is currently
// reported as typing. Calling it while already idle is a no-op.
func (tt *typingTracker) StopTyping() {
	tt.mux.Lock()

	conversationID := tt.conversationID
	if !tt.localTyping || conversationID == "" {
		tt.mux.Unlock()
		return
	}

	tt.localTyping = false
	if tt.localTimer != nil {
		tt.localTimer.Stop()
		tt.localTimer = nil
	}

	tt.mux.Unlock()

	tt.signal(conversationID, false)
}

// HandleRemote folds an inbound typing event into the remote set. A
// typing=true event inserts or refreshes the user and restarts that user's
// expiry timer; typing=false removes the user immediately. Events for other
// conversations are ignored.
func (tt *typingTracker) HandleRemote(event TypingEvent) {
	tt.mux.Lock()

	if event.ConversationID != tt.conversationID ||
		tt.conversationID == "" {
		tt.mux.Unlock()
		return
	}

	changed := false

	if event.Typing {
		existing, exists := tt.remote[event.UserID]
		if exists {
			// Restart, never stack, the expiry
			existing.timer.Stop()
		} else {
			changed = true
		}

		userID := event.UserID
		rt := &remoteTyper{
			entry: TypingEntry{
				UserID:      event.UserID,
				DisplayName: event.DisplayName,
				AvatarURL:   event.AvatarURL,
			},
		}
		rt.timer = time.AfterFunc(tt.remoteTimeout, func() {
			tt.expire(userID, rt)
		})
		tt.remote[userID] = rt
	} else if existing, exists := tt.remote[event.UserID]; exists {
		existing.timer.Stop()
		delete(tt.remote, event.UserID)
		changed = true
	}

	conversationID := tt.conversationID
	typers := tt.typersLocked()
	tt.mux.Unlock()

	if changed {
		tt.onChange(conversationID, typers)
	}
}

// Typers returns the remote users currently typing, ordered by user ID.
func (tt *typingTracker) Typers() []TypingEntry {
	tt.mux.Lock()
	defer tt.mux.Unlock()
	return tt.typersLocked()
}

// Reset clears all timers and the remote set without sending any signals.
// Used on teardown.
func (tt *typingTracker) Reset() {
	tt.mux.Lock()
	defer tt.mux.Unlock()
	tt.clearLocked()
	tt.conversationID = ""
}

// expire removes a remote user whose typing indicator timed out. rt is the
// registration the timer belongs to: a timer that already fired when its
// registration was refreshed survives Stop, and must not remove the newer
// registration it finds in the map.
func (tt *typingTracker) expire(userID int64, rt *remoteTyper) {
	tt.mux.Lock()

	if current, exists := tt.remote[userID]; !exists || current != rt {
		tt.mux.Unlock()
		return
	}

	delete(tt.remote, userID)
	conversationID := tt.conversationID
	typers := tt.typersLocked()
	tt.mux.Unlock()

	tt.onChange(conversationID, typers)
}

func (tt *typingTracker) typersLocked() []TypingEntry {
	typers := make([]TypingEntry, 0, len(tt.remote))
	for _, rt := range tt.remote {
		typers = append(typers, rt.entry)
	}
	sort.Slice(typers, func(i, j int) bool {
		return typers[i].UserID < typers[j].UserID
	})
	return typers
}

// clearLocked stops every timer and empties all state. Must be called under
// the mutex.
func (tt *typingTracker) clearLocked() {
	if tt.localTimer != nil {
		tt.localTimer.Stop()
		tt.localTimer = nil
	}
	tt.localTyping = false

	for _, rt := range tt.remote {
		rt.timer.Stop()
	}
	tt.remote = make(map[int64]*remoteTyper)
}
