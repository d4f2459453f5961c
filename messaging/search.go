////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/storage/versioned"
)

const (
	recentSearchesStorageKey     = "recentSearchesStorageKey"
	recentSearchesStorageVersion = 0

	// maxRecentSearches bounds the persisted list.
	maxRecentSearches = 10
)

// recentSearches is the bounded, locally persisted list of search strings,
// newest first, deduplicated case-insensitively on insert.
type recentSearches struct {
	mux  sync.Mutex
	list []string
	kv   *versioned.KV
}

// loadRecentSearches restores the list from local storage, or starts empty.
func loadRecentSearches(kv *versioned.KV) *recentSearches {
	rs := &recentSearches{kv: kv}

	obj, err := rs.kv.Get(
		recentSearchesStorageKey, recentSearchesStorageVersion)
	if err != nil {
		if kv.Exists(err) {
			jww.FATAL.Panicf(
				"Failed to load the recent search list: %+v", err)
		}
		return rs
	}

	if err = json.Unmarshal(obj.Data, &rs.list); err != nil {
		jww.FATAL.Panicf("Failed to unmarshal the recent search list: %+v",
			err)
	}
	return rs
}

// Add inserts the query at the front of the list. A case-insensitive
// duplicate is moved to the front rather than repeated; the list is capped at
// maxRecentSearches. Blank queries are ignored.
func (rs *recentSearches) Add(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	rs.mux.Lock()
	defer rs.mux.Unlock()

	deduped := make([]string, 0, len(rs.list)+1)
	deduped = append(deduped, query)
	for _, entry := range rs.list {
		if !strings.EqualFold(entry, query) {
			deduped = append(deduped, entry)
		}
	}
	if len(deduped) > maxRecentSearches {
		deduped = deduped[:maxRecentSearches]
	}
	rs.list = deduped

	rs.store()
}

// List returns a copy of the recent searches, newest first.
func (rs *recentSearches) List() []string {
	rs.mux.Lock()
	defer rs.mux.Unlock()

	out := make([]string, len(rs.list))
	copy(out, rs.list)
	return out
}

// store writes the list. Must be called under the mutex.
func (rs *recentSearches) store() {
	data, err := json.Marshal(rs.list)
	if err != nil {
		jww.FATAL.Panicf("Failed to marshal the recent search list: %+v",
			err)
	}

	err = rs.kv.Set(recentSearchesStorageKey, &versioned.Object{
		Version:   recentSearchesStorageVersion,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		jww.FATAL.Panicf("Failed to store the recent search list: %+v", err)
	}
}
