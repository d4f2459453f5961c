////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package versioned

import (
	"bytes"
	"testing"
	"time"

	"gitlab.com/elixxir/ekv"
)

// Getting a key that was never set must return an error and no data.
func TestVersionedKV_Get_Err(t *testing.T) {
	vkv := NewKV(ekv.MakeMemstore())
	result, err := vkv.Get("test", 0)
	if err == nil {
		t.Error("Getting a key that didn't exist should have" +
			" returned an error")
	}
	if result != nil {
		t.Error("Getting a key that didn't exist shouldn't " +
			"have returned data")
	}
	if vkv.Exists(err) {
		t.Error("Exists should report a missing element")
	}
}

// Tests that Set then Get returns the same object.
func TestVersionedKV_SetGet(t *testing.T) {
	vkv := NewKV(ekv.MakeMemstore())
	originalVersion := uint64(1)
	original := Object{
		Version:   originalVersion,
		Timestamp: time.Now(),
		Data:      []byte("contents"),
	}
	err := vkv.Set("test", &original)
	if err != nil {
		t.Fatal(err)
	}

	result, err := vkv.Get("test", originalVersion)
	if err != nil {
		t.Fatalf("Error getting something that should have been in: %v",
			err)
	}
	if !bytes.Equal(result.Data, []byte("contents")) {
		t.Errorf("Get returned wrong data: %q", result.Data)
	}
}

// Tests that the same key under different prefixes does not collide and that
// Delete only removes the prefixed entry.
func TestVersionedKV_Prefix(t *testing.T) {
	vkv := NewKV(ekv.MakeMemstore())
	a := vkv.Prefix(MakeConversationPrefix("direct_42"))
	b := vkv.Prefix(MakeConversationPrefix("event_7"))

	obj := Object{Version: 0, Timestamp: time.Now(), Data: []byte("a")}
	if err := a.Set("test", &obj); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Get("test", 0); err == nil {
		t.Error("prefixed keys should not collide across prefixes")
	}

	if err := a.Delete("test", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Get("test", 0); err == nil {
		t.Error("Delete should have removed the entry")
	}
}
