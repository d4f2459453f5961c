////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/ekv"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/storage/versioned"
)

type statusRecorder struct {
	mux     sync.Mutex
	updates []Status
	byTemp  map[string]Status
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{byTemp: make(map[string]Status)}
}

func (sr *statusRecorder) record(tempID string, _ Message, status Status) {
	sr.mux.Lock()
	defer sr.mux.Unlock()
	sr.updates = append(sr.updates, status)
	sr.byTemp[tempID] = status
}

// Tests the send -> confirm happy path: after confirmation the tracker no
// longer holds the temp ID.
func TestSendTracker_DenoteConfirm(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	sr := newStatusRecorder()
	st := loadSendTracker(kv, sr.record)

	msg := Message{
		SenderID:    7,
		RecipientID: 42,
		Content:     "hi",
		CreatedAt:   time.Now(),
	}
	pending := st.DenotePendingSend(msg)

	require.True(t, strings.HasPrefix(pending.TempID, "temp_"))
	require.Equal(t, Sending, pending.Status)
	require.True(t, st.CheckIfSent(pending.TempID))

	confirmed := pending
	confirmed.ID = 555
	require.True(t, st.Confirm(pending.TempID, confirmed))

	require.False(t, st.CheckIfSent(pending.TempID))
	require.Equal(t, Sent, sr.byTemp[pending.TempID])
}

// Confirm must be a no-op, not a panic, when the poll path and the push path
// race to confirm the same send.
func TestSendTracker_Confirm_Race(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	sr := newStatusRecorder()
	st := loadSendTracker(kv, sr.record)

	pending := st.DenotePendingSend(Message{SenderID: 7, RecipientID: 42})
	confirmed := pending
	confirmed.ID = 556

	require.True(t, st.Confirm(pending.TempID, confirmed))
	require.False(t, st.Confirm(pending.TempID, confirmed))
	require.False(t, st.Confirm("temp_never_existed", confirmed))
}

// Tests that temp IDs are unique across rapid sends.
func TestSendTracker_TempIDUnique(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	st := loadSendTracker(kv, func(string, Message, Status) {})

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pending := st.DenotePendingSend(
			Message{SenderID: 7, RecipientID: 42})
		require.False(t, seen[pending.TempID],
			"duplicate temp ID %s", pending.TempID)
		seen[pending.TempID] = true
	}
}

// Tests the fail -> retry -> confirm walk.
func TestSendTracker_FailRetry(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	sr := newStatusRecorder()
	st := loadSendTracker(kv, sr.record)

	pending := st.DenotePendingSend(Message{SenderID: 7, RecipientID: 42})

	require.True(t, st.Fail(pending.TempID))
	require.Equal(t, Failed, sr.byTemp[pending.TempID])

	// The failed message is still tracked so the user can retry
	require.True(t, st.CheckIfSent(pending.TempID))

	retried, ok := st.Retry(pending.TempID)
	require.True(t, ok)
	require.Equal(t, Sending, retried.Status)

	// Retry of a message that is not failed is refused
	_, ok = st.Retry(pending.TempID)
	require.False(t, ok)

	confirmed := retried
	confirmed.ID = 557
	require.True(t, st.Confirm(pending.TempID, confirmed))
}

// Tests Remove drops the entry unconditionally.
func TestSendTracker_Remove(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	st := loadSendTracker(kv, func(string, Message, Status) {})

	pending := st.DenotePendingSend(Message{SenderID: 7, RecipientID: 42})
	require.True(t, st.Remove(pending.TempID))
	require.False(t, st.Remove(pending.TempID))
	require.False(t, st.CheckIfSent(pending.TempID))
}

// Tests that pending sends journaled by a previous run are restored as
// Failed.
func TestSendTracker_JournalRestore(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	st := loadSendTracker(kv, func(string, Message, Status) {})

	pending := st.DenotePendingSend(Message{
		SenderID: 7, RecipientID: 42, Content: "interrupted"})

	// Simulate a restart on the same storage
	sr := newStatusRecorder()
	restored := loadSendTracker(kv, sr.record)

	require.True(t, restored.CheckIfSent(pending.TempID))
	require.Equal(t, Failed, sr.byTemp[pending.TempID])

	msgs := restored.Pending()
	require.Len(t, msgs, 1)
	require.Equal(t, "interrupted", msgs[0].Content)
	require.Equal(t, Failed, msgs[0].Status)
}
