////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package versioned

import (
	"fmt"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/ekv"
)

const PrefixSeparator = "/"

// MakeConversationPrefix creates a string prefix to denote which conversation
// a piece of stored state belongs to.
func MakeConversationPrefix(conversationID string) string {
	return fmt.Sprintf("Conversation:%s", conversationID)
}

type root struct {
	data ekv.KeyValue
}

// KV stores versioned data under prefixed keys.
type KV struct {
	r      *root
	prefix string
}

// NewKV creates a versioned key/value store backed by something implementing
// KeyValue.
func NewKV(data ekv.KeyValue) *KV {
	newKV := KV{}
	root := root{}

	root.data = data

	newKV.r = &root

	return &newKV
}

// Get gets data stored in the key/value store.
// Make sure to inspect the version returned in the versioned object.
func (v *KV) Get(key string, version uint64) (*Object, error) {
	key = v.makeKey(key, version)
	result := Object{}
	err := v.r.data.Get(key, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a given key from the data store.
func (v *KV) Delete(key string, version uint64) error {
	key = v.makeKey(key, version)
	jww.TRACE.Printf("delete %p with key %v", v.r.data, key)
	return v.r.data.Delete(key)
}

// Set upserts new data into the storage
// When calling this, you are responsible for prefixing the key with the
// correct type optionally unique id! Call Prefix() to do so.
// The [Object] should contain the versioning if you are maintaining such
// a functionality.
func (v *KV) Set(key string, object *Object) error {
	key = v.makeKey(key, object.Version)
	return v.r.data.Set(key, object)
}

// GetPrefix returns the prefix of the KV.
func (v *KV) GetPrefix() string {
	return v.prefix
}

// Prefix returns a new KV with the new prefix appended.
func (v *KV) Prefix(prefix string) *KV {
	kvPrefix := KV{
		r:      v.r,
		prefix: v.prefix + prefix + PrefixSeparator,
	}
	return &kvPrefix
}

func (v *KV) IsMemStore() bool {
	_, success := v.r.data.(*ekv.Memstore)
	return success
}

// GetFullKey returns the key with all prefixes appended.
func (v *KV) GetFullKey(key string, version uint64) string {
	return v.makeKey(key, version)
}

func (v *KV) makeKey(key string, version uint64) string {
	return fmt.Sprintf("%s%s_%d", v.prefix, key, version)
}

// Exists returns false if the error indicates the element doesn't exist.
func (v *KV) Exists(err error) bool {
	return ekv.Exists(err)
}
