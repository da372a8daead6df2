// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"sync"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// Session is the sender's view of one SDK session: its beacon plus
// the bookkeeping needed to configure, upload, and retire it.
type Session struct {
	beacon *beacon.Beacon

	mu                     sync.Mutex
	configured             bool
	finished               bool
	newSessionRequestsLeft int
	// config is the session's own server configuration, applied when
	// capture is re-enabled after a CaptureOff period.
	config protocol.ServerConfiguration

	onEnd   func()
	endOnce sync.Once
}

// Beacon returns the session's beacon.
func (s *Session) Beacon() *beacon.Beacon { return s.beacon }

// End runs the session's end hook, records the session end, and marks
// the session finished so the next CaptureOn iteration uploads it.
// Later calls do nothing.
func (s *Session) End() {
	s.endOnce.Do(func() {
		if s.onEnd != nil {
			s.onEnd()
		}
		s.beacon.EndSession()
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
	})
}

// IsFinished reports whether End has been called.
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// IsConfigured reports whether a new-session response (or the retry
// limit) has fixed the session's configuration.
func (s *Session) IsConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

func (s *Session) configure(config protocol.ServerConfiguration) {
	s.mu.Lock()
	s.configured = true
	s.config = config
	s.mu.Unlock()
	s.beacon.UpdateServerConfiguration(config)
}

// takeNewSessionRequest consumes one new-session request. It returns
// false once the budget is spent.
func (s *Session) takeNewSessionRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newSessionRequestsLeft <= 0 {
		return false
	}
	s.newSessionRequestsLeft--
	return true
}

func (s *Session) ownConfiguration() protocol.ServerConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *Session) isSendingDataAllowed() bool {
	return s.beacon.ServerConfiguration().IsSendingDataAllowed()
}
