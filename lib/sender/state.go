// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"fmt"
	"time"
)

// StateType names a state.
type StateType int

const (
	StateInit StateType = iota
	// StateTimeSync is reserved; no state of this type exists.
	StateTimeSync
	StateCaptureOn
	StateCaptureOff
	StateFlushSessions
	StateTerminal
)

// AllStateTypes lists every state that can actually be current.
var AllStateTypes = []StateType{StateInit, StateCaptureOn, StateCaptureOff, StateFlushSessions, StateTerminal}

func (t StateType) String() string {
	switch t {
	case StateInit:
		return "init"
	case StateTimeSync:
		return "time-sync"
	case StateCaptureOn:
		return "capture-on"
	case StateCaptureOff:
		return "capture-off"
	case StateFlushSessions:
		return "flush-sessions"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// IsShutdownState reports whether the type is FlushSessions or
// Terminal.
func (t StateType) IsShutdownState() bool {
	return t == StateFlushSessions || t == StateTerminal
}

// State is one state of the machine. The set of implementations is
// closed; construct states with the functions below.
type State interface {
	Type() StateType
	sealed()
}

type initState struct {
	// round counts failed Init rounds since the last reset.
	round int
}

type captureOnState struct{}

type captureOffState struct {
	// retryAfter, when positive, is the exact wait before the next
	// status check, as requested by the collector.
	retryAfter time.Duration
	// failures counts consecutive failed status checks.
	failures int
}

type flushSessionsState struct{}

type terminalState struct{}

func (initState) Type() StateType          { return StateInit }
func (captureOnState) Type() StateType     { return StateCaptureOn }
func (captureOffState) Type() StateType    { return StateCaptureOff }
func (flushSessionsState) Type() StateType { return StateFlushSessions }
func (terminalState) Type() StateType      { return StateTerminal }

func (initState) sealed()          {}
func (captureOnState) sealed()     {}
func (captureOffState) sealed()    {}
func (flushSessionsState) sealed() {}
func (terminalState) sealed()      {}

// InitState returns the initial state.
func InitState() State { return initState{} }

// CaptureOnState returns the capturing state.
func CaptureOnState() State { return captureOnState{} }

// CaptureOffState returns the non-capturing state. A positive
// retryAfter replaces the regular status check interval once.
func CaptureOffState(retryAfter time.Duration) State {
	return captureOffState{retryAfter: retryAfter}
}

// FlushSessionsState returns the final flush state.
func FlushSessionsState() State { return flushSessionsState{} }

// TerminalState returns the absorbing final state.
func TerminalState() State { return terminalState{} }
