////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/emoji"
)

// countsChangedFunc is called when a message's displayed reaction counts
// change.
type countsChangedFunc func(messageID int64, counts map[string]int)

// ReactionView aggregates the reaction state of a single message: the
// individual reactions and the server-derived emoji to count map. The counts
// on display always come from the server, never from counting the local
// reaction list, so an optimistic toggle can never drift from eventual
// consistency.
type ReactionView struct {
	mux sync.Mutex

	messageID int64
	client    Client
	onCounts  countsChangedFunc

	reactions []Reaction
	counts    map[string]int

	// stale is set when a push update replaced the counts; the fuller
	// reaction list no longer matches and needs a refetch.
	stale bool
}

func newReactionView(
	client Client, messageID int64, onCounts countsChangedFunc,
) *ReactionView {
	return &ReactionView{
		messageID: messageID,
		client:    client,
		onCounts:  onCounts,
		counts:    make(map[string]int),
	}
}

// MessageID returns the message this view aggregates.
func (rv *ReactionView) MessageID() int64 {
	return rv.messageID
}

// Refresh refetches the reaction state. Reactions are a non-critical
// enhancement: a failed fetch degrades to empty state instead of returning an
// error.
func (rv *ReactionView) Refresh() {
	set, err := rv.client.FetchReactions(rv.messageID)
	if err != nil {
		jww.WARN.Printf("Failed to fetch reactions for message %d: %+v",
			rv.messageID, err)
		set = &ReactionSet{Counts: make(map[string]int)}
	}

	rv.mux.Lock()
	rv.reactions = set.Reactions
	rv.counts = set.Counts
	if rv.counts == nil {
		rv.counts = make(map[string]int)
	}
	rv.stale = false
	counts := rv.countsLocked()
	rv.mux.Unlock()

	rv.onCounts(rv.messageID, counts)
}

// Toggle sends one add/toggle request for the emoji. Whether this adds or
// removes the reaction is the server's decision; local state is only updated
// by the next refresh or push update. The error is returned loudly so the
// caller can surface it, but existing local state is never touched on
// failure.
func (rv *ReactionView) Toggle(reaction string) error {
	if err := emoji.ValidateReaction(reaction); err != nil {
		return err
	}

	return rv.client.ToggleReaction(rv.messageID, reaction)
}

// ApplyPush reconciles an inbound reaction-updated event: the count map is
// replaced wholesale with the server-provided counts and the fuller reaction
// list is marked stale for the next Refresh. Events for other messages are
// ignored.
func (rv *ReactionView) ApplyPush(event ReactionEvent) {
	if event.MessageID != rv.messageID {
		return
	}

	rv.mux.Lock()
	rv.counts = make(map[string]int, len(event.Counts))
	for emj, count := range event.Counts {
		rv.counts[emj] = count
	}
	rv.stale = true
	counts := rv.countsLocked()
	rv.mux.Unlock()

	rv.onCounts(rv.messageID, counts)
}

// Reactions returns a copy of the individual reaction list.
func (rv *ReactionView) Reactions() []Reaction {
	rv.mux.Lock()
	defer rv.mux.Unlock()
	out := make([]Reaction, len(rv.reactions))
	copy(out, rv.reactions)
	return out
}

// Counts returns a copy of the server-derived emoji to count map.
func (rv *ReactionView) Counts() map[string]int {
	rv.mux.Lock()
	defer rv.mux.Unlock()
	return rv.countsLocked()
}

// IsStale reports whether a push update has outdated the reaction list.
func (rv *ReactionView) IsStale() bool {
	rv.mux.Lock()
	defer rv.mux.Unlock()
	return rv.stale
}

func (rv *ReactionView) countsLocked() map[string]int {
	out := make(map[string]int, len(rv.counts))
	for emj, count := range rv.counts {
		out[emj] = count
	}
	return out
}
