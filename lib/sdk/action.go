// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sdk

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
)

// Action is a timed unit of work inside a session. Events, values,
// errors, and web requests reported on it carry its id as parent.
type Action struct {
	beacon        *beacon.Beacon
	id            int32
	parentID      int32
	name          string
	startTime     int64
	startSequence int32
	parent        *Action
	// detach removes the action from its parent's open list.
	detach func(*Action)

	mu       sync.Mutex
	left     bool
	children []*Action
}

func newAction(b *beacon.Beacon, name string, parentID int32, detach func(*Action)) *Action {
	return &Action{
		beacon:        b,
		id:            b.NextID(),
		parentID:      parentID,
		name:          name,
		startTime:     b.CurrentTimestamp(),
		startSequence: b.NextSequenceNumber(),
		detach:        detach,
	}
}

func (a *Action) isLeft() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.left
}

// ID returns the action id within its session.
func (a *Action) ID() int32 {
	if a == nil {
		return 0
	}
	return a.id
}

// EnterAction starts a child action.
func (a *Action) EnterAction(name string) *Action {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.left {
		return nil
	}
	child := newAction(a.beacon, name, a.id, a.removeChild)
	child.parent = a
	a.children = append(a.children, child)
	return child
}

func (a *Action) removeChild(child *Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.children = slices.DeleteFunc(a.children, func(c *Action) bool { return c == child })
}

// ReportEvent records a named event.
func (a *Action) ReportEvent(name string) *Action {
	if a == nil || name == "" || a.isLeft() {
		return a
	}
	a.beacon.ReportEvent(a.id, name)
	return a
}

// ReportValueInt records an integer value.
func (a *Action) ReportValueInt(name string, value int64) *Action {
	if a == nil || name == "" || a.isLeft() {
		return a
	}
	a.beacon.ReportValueInt(a.id, name, value)
	return a
}

// ReportValueDouble records a floating point value.
func (a *Action) ReportValueDouble(name string, value float64) *Action {
	if a == nil || name == "" || a.isLeft() {
		return a
	}
	a.beacon.ReportValueDouble(a.id, name, value)
	return a
}

// ReportValueString records a string value.
func (a *Action) ReportValueString(name, value string) *Action {
	if a == nil || name == "" || a.isLeft() {
		return a
	}
	a.beacon.ReportValueString(a.id, name, value)
	return a
}

// ReportError records an error with a code and an optional reason.
func (a *Action) ReportError(name string, code int, reason string) *Action {
	if a == nil || name == "" || a.isLeft() {
		return a
	}
	a.beacon.ReportError(a.id, name, code, reason)
	return a
}

// TraceWebRequest creates a tracer for a request made inside this
// action.
func (a *Action) TraceWebRequest(url string) *WebRequestTracer {
	if a == nil || url == "" || a.isLeft() {
		return nil
	}
	return newWebRequestTracer(a.beacon, a.id, url)
}

// Leave leaves open child actions, records the action, and returns
// the parent action (nil for a root action). Later calls only return
// the parent.
func (a *Action) Leave() *Action {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if a.left {
		a.mu.Unlock()
		return a.parent
	}
	a.left = true
	children := slices.Clone(a.children)
	a.mu.Unlock()

	for _, child := range slices.Backward(children) {
		child.Leave()
	}
	a.beacon.AddAction(beacon.ActionData{
		ID:            a.id,
		ParentID:      a.parentID,
		Name:          a.name,
		StartTime:     a.startTime,
		EndTime:       a.beacon.CurrentTimestamp(),
		StartSequence: a.startSequence,
		EndSequence:   a.beacon.NextSequenceNumber(),
	})
	a.detach(a)
	return a.parent
}
