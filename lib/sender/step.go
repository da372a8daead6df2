// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// step runs one state's work and returns its successor.
func step(state State, c *Context) State {
	switch s := state.(type) {
	case initState:
		return executeInit(s, c)
	case captureOnState:
		return executeCaptureOn(c)
	case captureOffState:
		return executeCaptureOff(s, c)
	case flushSessionsState:
		return executeFlushSessions(c)
	case terminalState:
		c.RequestShutdown()
		return s
	default:
		panic(fmt.Sprintf("sender: unknown state %T", state))
	}
}

// sendStatusRequest sends a status request, retrying failures up to
// Config.StatusRequestRetries times with a doubling delay. A 429 is
// not retried.
func sendStatusRequest(c *Context) (*protocol.StatusResponse, error) {
	delay := c.config.InitialRetryDelay
	for attempt := 0; ; attempt++ {
		response, err := c.client.SendStatusRequest(c.requestContext, c.ServerID())
		if err == nil || protocol.IsTooManyRequests(err) || attempt >= c.config.StatusRequestRetries {
			return response, err
		}
		c.logger.Debug("status request failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if !c.Sleep(delay) {
			return nil, err
		}
		delay = min(delay*2, c.config.MaxRetryDelay)
	}
}

func executeInit(s initState, c *Context) State {
	if c.IsShutdownRequested() {
		return s
	}

	response, err := sendStatusRequest(c)
	if c.IsShutdownRequested() {
		return s
	}
	if err == nil {
		now := c.now()
		c.lastStatusCheck = now
		c.lastOpenSessionSend = now
		c.HandleStatusResponse(response)
		c.completeInit(true)
		c.logger.Info("beacon sender initialized",
			"server_id", c.ServerID(),
			"capture", c.IsCaptureOn(),
		)
		if c.IsCaptureOn() {
			return captureOnState{}
		}
		return captureOffState{}
	}

	if protocol.IsTooManyRequests(err) {
		retryAfter := protocol.RetryAfter(err)
		c.logger.Warn("collector throttled initialization", "retry_after", retryAfter)
		c.Sleep(retryAfter)
		return initState{}
	}

	if s.round+1 >= c.config.MaxInitAttempts {
		c.logger.Error("beacon sender initialization failed, giving up",
			"attempts", s.round+1,
			"error", err,
		)
		c.completeInit(false)
		return flushSessionsState{}
	}
	delay := c.config.initRetryDelay(s.round)
	c.logger.Warn("beacon sender initialization failed",
		"attempt", s.round+1,
		"retry_in", delay,
		"error", err,
	)
	c.Sleep(delay)
	return initState{round: s.round + 1}
}

func executeCaptureOn(c *Context) State {
	if !c.Sleep(c.config.CaptureOnInterval) {
		return captureOnState{}
	}

	if next := sendNewSessionRequests(c); next != nil {
		return next
	}
	last, next := sendFinishedSessions(c)
	if next != nil {
		return next
	}
	open, next := sendOpenSessions(c)
	if next != nil {
		return next
	}
	if open != nil {
		last = open
	}

	c.HandleStatusResponse(last)
	if !c.IsCaptureOn() {
		return captureOffState{}
	}
	return captureOnState{}
}

// sendNewSessionRequests configures unconfigured sessions. Sessions
// that exhaust their request budget are configured with capture off.
func sendNewSessionRequests(c *Context) State {
	for _, session := range c.newSessions() {
		if !session.takeNewSessionRequest() {
			config := c.ServerConfiguration()
			config.CaptureEnabled = false
			session.configure(config)
			session.beacon.ClearData()
			c.logger.Debug("new-session request budget exhausted, capture disabled",
				"session", session.beacon.SessionNumber(),
			)
			continue
		}
		response, err := c.client.SendNewSessionRequest(c.requestContext, c.ServerID())
		if protocol.IsTooManyRequests(err) {
			return captureOffState{retryAfter: protocol.RetryAfter(err)}
		}
		if err != nil {
			c.logger.Debug("new-session request failed",
				"session", session.beacon.SessionNumber(),
				"error", err,
			)
			continue
		}
		config := c.updateFrom(response)
		session.configure(config)
		if !config.IsSendingDataAllowed() {
			session.beacon.ClearData()
		}
	}
	return nil
}

// sendFinishedSessions uploads and retires finished sessions. A
// session whose upload failed stays queued, and the remaining finished
// sessions wait for the next iteration.
func sendFinishedSessions(c *Context) (*protocol.StatusResponse, State) {
	var last *protocol.StatusResponse
	for _, session := range c.finishedConfiguredSessions() {
		if session.isSendingDataAllowed() {
			response, err := session.beacon.Send(c.requestContext, c.client, c.ServerID())
			if response != nil {
				last = response
			}
			if protocol.IsTooManyRequests(err) {
				return last, captureOffState{retryAfter: protocol.RetryAfter(err)}
			}
			if err != nil && !session.beacon.IsEmpty() {
				c.logger.Warn("sending finished session failed",
					"session", session.beacon.SessionNumber(),
					"error", err,
				)
				break
			}
		}
		c.removeSession(session)
		session.beacon.ClearData()
	}
	return last, nil
}

// sendOpenSessions uploads what open sessions have captured so far,
// at most once per server send interval.
func sendOpenSessions(c *Context) (*protocol.StatusResponse, State) {
	now := c.now()
	interval := c.ServerConfiguration().SendInterval
	if time.Duration(now-c.lastOpenSessionSend)*time.Millisecond < interval {
		return nil, nil
	}

	var last *protocol.StatusResponse
	for _, session := range c.openConfiguredSessions() {
		if !session.isSendingDataAllowed() {
			session.beacon.ClearData()
			continue
		}
		response, err := session.beacon.Send(c.requestContext, c.client, c.ServerID())
		if response != nil {
			last = response
		}
		if protocol.IsTooManyRequests(err) {
			return last, captureOffState{retryAfter: protocol.RetryAfter(err)}
		}
		if err != nil {
			c.logger.Debug("sending open session failed",
				"session", session.beacon.SessionNumber(),
				"error", err,
			)
		}
	}
	c.lastOpenSessionSend = now
	return last, nil
}

func executeCaptureOff(s captureOffState, c *Context) State {
	c.DisableCaptureAndClear()

	delay := s.retryAfter
	if delay <= 0 {
		if s.failures > 0 {
			delay = c.config.backoff(s.failures)
		} else {
			elapsed := time.Duration(c.now()-c.lastStatusCheck) * time.Millisecond
			delay = max(c.config.StatusCheckInterval-elapsed, 0)
		}
	}
	if !c.Sleep(delay) {
		return s
	}

	response, err := sendStatusRequest(c)
	c.lastStatusCheck = c.now()
	if c.IsShutdownRequested() {
		return s
	}
	if protocol.IsTooManyRequests(err) {
		return captureOffState{retryAfter: protocol.RetryAfter(err)}
	}
	if err != nil {
		c.logger.Debug("status check failed", "failures", s.failures+1, "error", err)
		return captureOffState{failures: s.failures + 1}
	}

	c.HandleStatusResponse(response)
	if c.IsCaptureOn() {
		return captureOnState{}
	}
	return captureOffState{}
}

// executeFlushSessions ends every open session and, if the SDK was
// initialized with capture on, sends all sessions once. Everything is
// dropped afterwards.
func executeFlushSessions(c *Context) State {
	c.completeInit(false)

	config := c.ServerConfiguration()
	for _, session := range c.newSessions() {
		session.configure(config)
	}
	for _, session := range c.allSessions() {
		session.End()
	}

	send := c.IsInitialized() && c.IsCaptureOn()
	sent := 0
	for _, session := range c.allSessions() {
		if send && session.isSendingDataAllowed() {
			_, err := session.beacon.Send(c.requestContext, c.client, c.ServerID())
			switch {
			case protocol.IsTooManyRequests(err):
				c.logger.Warn("collector throttled final flush, dropping remaining sessions")
				send = false
			case err != nil:
				c.logger.Warn("flushing session failed",
					"session", session.beacon.SessionNumber(),
					"error", err,
				)
			default:
				sent++
			}
		}
		session.beacon.ClearData()
		c.removeSession(session)
	}
	c.logger.Info("beacon sessions flushed", "sent", sent)
	return terminalState{}
}
