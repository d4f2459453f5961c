////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"strings"
	"testing"
)

// Tests that NewMulti returns a Multi that is running with the given name.
func TestNewMulti(t *testing.T) {
	name := "testMulti"
	multi := NewMulti(name)

	if !strings.HasPrefix(multi.Name(), name) {
		t.Errorf("NewMulti returned Multi with incorrect name."+
			"\nexpected prefix: %s\nreceived: %s", name, multi.Name())
	}

	if !multi.IsRunning() {
		t.Errorf("NewMulti returned Multi with status %s instead of %s.",
			multi.GetStatus(), Running)
	}
}

// Tests that Multi.Close closes all added stoppables.
func TestMulti_Close(t *testing.T) {
	multi := NewMulti("testMulti")

	singles := []*Single{
		NewSingle("testSingle0"),
		NewSingle("testSingle1"),
		NewSingle("testSingle2"),
	}

	for _, single := range singles {
		s := single
		multi.Add(s)
		go func() {
			<-s.Quit()
			s.ToStopped()
		}()
	}

	if err := multi.Close(); err != nil {
		t.Errorf("Close returned an error: %+v", err)
	}

	for i, single := range singles {
		if single.IsRunning() {
			t.Errorf("Single %d has status %s instead of %s.",
				i, single.GetStatus(), Stopped)
		}
	}

	if multi.GetStatus() != Stopped {
		t.Errorf("Multi has status %s instead of %s.",
			multi.GetStatus(), Stopped)
	}
}

// Tests that calling Multi.Close a second time is a no-op.
func TestMulti_Close_Multiple(t *testing.T) {
	multi := NewMulti("testMulti")

	single := NewSingle("testSingle")
	multi.Add(single)
	go func() {
		<-single.Quit()
		single.ToStopped()
	}()

	if err := multi.Close(); err != nil {
		t.Errorf("First Close returned an error: %+v", err)
	}
	if err := multi.Close(); err != nil {
		t.Errorf("Second Close returned an error: %+v", err)
	}
}
