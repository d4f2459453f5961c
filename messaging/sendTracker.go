////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/storage/versioned"
)

const (
	sendTrackerStorageKey     = "messageSendTrackerStorageKey"
	sendTrackerStorageVersion = 0
)

// statusUpdateFunc is called whenever the status of a pending message
// changes. On confirmation, msg is the server-confirmed copy.
type statusUpdateFunc func(tempID string, msg Message, status Status)

// sendTracker keeps messages visible between the moment the user presses
// send and the server's confirmation. Pending entries are journaled to local
// storage; entries found in the journal on startup are surfaced as Failed so
// the user can retry sends interrupted by a previous shutdown.
type sendTracker struct {
	byTempID map[string]*Message

	// counter makes temp IDs unique within a session even when two sends
	// share a timestamp.
	counter uint64

	mux sync.Mutex

	onStatus statusUpdateFunc

	kv *versioned.KV
}

// loadSendTracker restores the journaled pending sends from storage. The
// returned tracker marks every restored entry Failed.
func loadSendTracker(kv *versioned.KV, onStatus statusUpdateFunc) *sendTracker {
	st := &sendTracker{
		byTempID: make(map[string]*Message),
		onStatus: onStatus,
		kv:       kv,
	}

	if err := st.load(); err != nil && kv.Exists(err) {
		jww.FATAL.Panicf("Failed to load the pending send journal: %+v", err)
	}

	// Sends interrupted by shutdown can no longer complete
	for tempID, msg := range st.byTempID {
		msg.Status = Failed
		st.onStatus(tempID, *msg, Failed)
	}

	return st
}

// DenotePendingSend assigns the message a session-unique temp ID and tracks
// it with status Sending. The returned copy is what the caller inserts into
// the visible message list and hands to the network.
func (st *sendTracker) DenotePendingSend(msg Message) Message {
	st.mux.Lock()
	defer st.mux.Unlock()

	st.counter++
	msg.ID = 0
	msg.TempID = fmt.Sprintf(
		"temp_%d_%d", st.counter, time.Now().UnixNano())
	msg.Status = Sending
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	st.byTempID[msg.TempID] = &msg
	st.store()

	return msg
}

// Confirm hands the pending entry over to the authoritative server copy and
// stops tracking it. It is a no-op if the temp ID is unknown: confirmation
// can race in from both a poll response and a push event for the same send,
// and the second arrival must do nothing.
func (st *sendTracker) Confirm(tempID string, confirmed Message) bool {
	st.mux.Lock()

	pending, exists := st.byTempID[tempID]
	if !exists {
		st.mux.Unlock()
		return false
	}

	releasePreview(pending)
	delete(st.byTempID, tempID)
	st.store()
	st.mux.Unlock()

	confirmed.TempID = tempID
	confirmed.Status = Sent
	st.onStatus(tempID, confirmed, Sent)
	return true
}

// Fail transitions the pending entry to Failed. The message stays visible and
// retryable; its preview, if any, is kept until the entry is removed.
func (st *sendTracker) Fail(tempID string) bool {
	st.mux.Lock()

	pending, exists := st.byTempID[tempID]
	if !exists {
		st.mux.Unlock()
		return false
	}

	pending.Status = Failed
	msg := *pending
	st.store()
	st.mux.Unlock()

	st.onStatus(tempID, msg, Failed)
	return true
}

// Retry transitions a failed entry back to Sending and returns the copy the
// caller must re-issue to the network.
func (st *sendTracker) Retry(tempID string) (Message, bool) {
	st.mux.Lock()

	pending, exists := st.byTempID[tempID]
	if !exists || pending.Status != Failed {
		st.mux.Unlock()
		return Message{}, false
	}

	pending.Status = Sending
	msg := *pending
	st.store()
	st.mux.Unlock()

	st.onStatus(tempID, msg, Sending)
	return msg, true
}

// Remove unconditionally drops the pending entry and releases its preview.
func (st *sendTracker) Remove(tempID string) bool {
	st.mux.Lock()
	defer st.mux.Unlock()

	pending, exists := st.byTempID[tempID]
	if !exists {
		return false
	}

	releasePreview(pending)
	delete(st.byTempID, tempID)
	st.store()
	return true
}

// CheckIfSent reports whether the temp ID belongs to a tracked pending send.
func (st *sendTracker) CheckIfSent(tempID string) bool {
	st.mux.Lock()
	defer st.mux.Unlock()
	_, exists := st.byTempID[tempID]
	return exists
}

// Pending returns copies of all tracked entries.
func (st *sendTracker) Pending() []Message {
	st.mux.Lock()
	defer st.mux.Unlock()

	out := make([]Message, 0, len(st.byTempID))
	for _, msg := range st.byTempID {
		out = append(out, *msg)
	}
	return out
}

// store writes the pending journal. Must be called under the mutex.
func (st *sendTracker) store() {
	data, err := json.Marshal(st.byTempID)
	if err != nil {
		jww.FATAL.Panicf("Failed to marshal the pending send journal: %+v",
			err)
	}

	err = st.kv.Set(sendTrackerStorageKey, &versioned.Object{
		Version:   sendTrackerStorageVersion,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		jww.FATAL.Panicf("Failed to store the pending send journal: %+v",
			err)
	}
}

func (st *sendTracker) load() error {
	obj, err := st.kv.Get(sendTrackerStorageKey, sendTrackerStorageVersion)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj.Data, &st.byTempID)
}
