////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Error message.
const closeMultiErr = "multi stoppable %q failed to close %d/%d stoppables"

// Multi holds a list of stoppables that are closed together. It adheres to the
// Stoppable interface.
type Multi struct {
	name       string
	stoppables []Stoppable
	mux        sync.RWMutex
	status     Status
	once       sync.Once
}

// NewMulti returns a new multi Stoppable.
func NewMulti(name string) *Multi {
	return &Multi{
		name:   name,
		status: Running,
	}
}

// Add adds the given Stoppable to the list of stoppables.
func (m *Multi) Add(stoppable Stoppable) {
	m.mux.Lock()
	m.stoppables = append(m.stoppables, stoppable)
	m.mux.Unlock()
}

// Name returns the name of the Multi Stoppable and the names of all stoppables
// it contains.
func (m *Multi) Name() string {
	m.mux.RLock()

	names := make([]string, len(m.stoppables))
	for i, s := range m.stoppables {
		names[i] = s.Name()
	}

	m.mux.RUnlock()

	return m.name + "{" + strings.Join(names, ", ") + "}"
}

// GetStatus returns the status of the Stoppable.
func (m *Multi) GetStatus() Status {
	return Status(atomic.LoadUint32((*uint32)(&m.status)))
}

// IsRunning returns true if Stoppable is marked as running.
func (m *Multi) IsRunning() bool {
	return m.GetStatus() == Running
}

// Close closes all child stoppables. It does not return their errors and
// assumes they print them to the log.
func (m *Multi) Close() error {
	var err error

	m.once.Do(func() {
		atomic.StoreUint32((*uint32)(&m.status), uint32(Stopping))

		var numErrors uint32

		m.mux.Lock()
		for _, stoppable := range m.stoppables {
			if stoppable.Close() != nil {
				numErrors++
			}
		}
		m.mux.Unlock()

		if numErrors > 0 {
			err = errors.Errorf(
				closeMultiErr, m.name, numErrors, len(m.stoppables))
			jww.ERROR.Print(err.Error())
		}

		atomic.StoreUint32((*uint32)(&m.status), uint32(Stopped))
	})

	return err
}
