////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package stoppable provides named handles for stopping long-running
// goroutines. A Single guards one goroutine; a Multi groups stoppables so an
// entire subsystem can be torn down with one Close call.
package stoppable

// Status holds the current status of a Stoppable.
type Status uint32

const (
	Running Status = iota
	Stopping
	Stopped
)

// String returns a human-readable version of [Status], used for debugging and
// logging. This function adheres to the [fmt.Stringer] interface.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "invalid status"
	}
}

// Stoppable is the interface for stopping a goroutine or a group of
// goroutines.
type Stoppable interface {
	Name() string
	GetStatus() Status
	IsRunning() bool
	Close() error
}
