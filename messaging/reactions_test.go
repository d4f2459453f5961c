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

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/emoji"
)

type countsRecorder struct {
	mux    sync.Mutex
	calls  int
	latest map[string]int
}

func (cr *countsRecorder) record(_ int64, counts map[string]int) {
	cr.mux.Lock()
	defer cr.mux.Unlock()
	cr.calls++
	cr.latest = counts
}

// Refresh adopts the server's reactions and counts wholesale.
func TestReactionView_Refresh(t *testing.T) {
	mc := newMockClient()
	mc.reactionSet = &ReactionSet{
		Reactions: []Reaction{
			{MessageID: 7, UserID: 1, Emoji: "👍"},
			{MessageID: 7, UserID: 2, Emoji: "👍"},
			{MessageID: 7, UserID: 3, Emoji: "🔥"},
		},
		Counts: map[string]int{"👍": 2, "🔥": 1},
	}

	cr := &countsRecorder{}
	rv := newReactionView(mc, 7, cr.record)
	rv.Refresh()

	require.Len(t, rv.Reactions(), 3)
	require.Equal(t, map[string]int{"👍": 2, "🔥": 1}, rv.Counts())
	require.False(t, rv.IsStale())
	require.Equal(t, 1, cr.calls)
	require.Equal(t, map[string]int{"👍": 2, "🔥": 1}, cr.latest)
}

// A failed fetch degrades to empty state instead of erroring.
func TestReactionView_Refresh_Degrades(t *testing.T) {
	mc := newMockClient()
	mc.reactionErr = errors.New("backend unavailable")

	cr := &countsRecorder{}
	rv := newReactionView(mc, 7, cr.record)
	rv.Refresh()

	require.Empty(t, rv.Reactions())
	require.Empty(t, rv.Counts())
	require.Equal(t, 1, cr.calls)
}

// Toggle validates the emoji before touching the network and never mutates
// local state.
func TestReactionView_Toggle(t *testing.T) {
	mc := newMockClient()
	cr := &countsRecorder{}
	rv := newReactionView(mc, 7, cr.record)

	require.NoError(t, rv.Toggle("👍"))
	require.Equal(t, 1, mc.toggleCalls)
	require.Empty(t, rv.Counts())
	require.Equal(t, 0, cr.calls)

	// Invalid reactions never reach the network
	err := rv.Toggle("not an emoji")
	require.ErrorIs(t, err, emoji.InvalidReaction)
	require.Equal(t, 1, mc.toggleCalls)

	err = rv.Toggle("👍👍")
	require.ErrorIs(t, err, emoji.InvalidReaction)
	require.Equal(t, 1, mc.toggleCalls)
}

// A failed toggle is surfaced loudly and leaves local state untouched.
func TestReactionView_Toggle_Err(t *testing.T) {
	mc := newMockClient()
	mc.reactionSet = &ReactionSet{Counts: map[string]int{"👍": 1}}
	cr := &countsRecorder{}
	rv := newReactionView(mc, 7, cr.record)
	rv.Refresh()

	mc.toggleErr = errors.New("rate limited")
	require.Error(t, rv.Toggle("🔥"))
	require.Equal(t, map[string]int{"👍": 1}, rv.Counts())
}

// ApplyPush replaces the counts with the event's counts and marks the
// reaction list stale; events for other messages are ignored.
func TestReactionView_ApplyPush(t *testing.T) {
	mc := newMockClient()
	mc.reactionSet = &ReactionSet{
		Reactions: []Reaction{{MessageID: 7, UserID: 1, Emoji: "👍"}},
		Counts:    map[string]int{"👍": 1},
	}
	cr := &countsRecorder{}
	rv := newReactionView(mc, 7, cr.record)
	rv.Refresh()

	rv.ApplyPush(ReactionEvent{
		MessageID: 8, Counts: map[string]int{"🎉": 5}})
	require.Equal(t, map[string]int{"👍": 1}, rv.Counts())
	require.False(t, rv.IsStale())

	rv.ApplyPush(ReactionEvent{
		MessageID: 7, Counts: map[string]int{"👍": 2, "🎉": 1}})
	require.Equal(t, map[string]int{"👍": 2, "🎉": 1}, rv.Counts())
	require.True(t, rv.IsStale())
	require.Equal(t, map[string]int{"👍": 2, "🎉": 1}, cr.latest)

	// A refresh clears the stale marker
	mc.mux.Lock()
	mc.reactionSet = &ReactionSet{Counts: map[string]int{"👍": 2, "🎉": 1}}
	mc.mux.Unlock()
	rv.Refresh()
	require.False(t, rv.IsStale())
}
