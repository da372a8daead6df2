// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sdk

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
	"github.com/bureau-foundation/beaconkit/lib/sender"
)

// Session is one user session.
type Session struct {
	beacon  *beacon.Beacon
	tracked *sender.Session

	mu          sync.Mutex
	ended       bool
	openActions []*Action
}

func (s *Session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// EnterAction starts a root action.
func (s *Session) EnterAction(name string) *Action {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	action := newAction(s.beacon, name, 0, s.removeAction)
	s.openActions = append(s.openActions, action)
	return action
}

func (s *Session) removeAction(action *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openActions = slices.DeleteFunc(s.openActions, func(a *Action) bool { return a == action })
}

// IdentifyUser tags the session with a user.
func (s *Session) IdentifyUser(userTag string) {
	if s == nil || userTag == "" || s.isEnded() {
		return
	}
	s.beacon.IdentifyUser(userTag)
}

// ReportCrash records a crash. The session stays open.
func (s *Session) ReportCrash(name, reason, stacktrace string) {
	if s == nil || name == "" || s.isEnded() {
		return
	}
	s.beacon.ReportCrash(name, reason, stacktrace)
}

// TraceWebRequest creates a tracer for a request made outside of any
// action.
func (s *Session) TraceWebRequest(url string) *WebRequestTracer {
	if s == nil || url == "" || s.isEnded() {
		return nil
	}
	return newWebRequestTracer(s.beacon, 0, url)
}

// End leaves all open actions, records the session end, and hands the
// session to the sender for upload. Later calls do nothing.
func (s *Session) End() {
	if s == nil {
		return
	}
	s.tracked.End()
}

// finish is the end hook of the sender session. It runs once, on End
// or when shutdown flushes a session that is still open.
func (s *Session) finish() {
	s.mu.Lock()
	s.ended = true
	open := slices.Clone(s.openActions)
	s.mu.Unlock()

	// Newest first, so roots close in reverse order of entry.
	for _, action := range slices.Backward(open) {
		action.Leave()
	}
}
