// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

var errUnavailable = errors.New("collector unavailable")

// outcome is one scripted collector answer.
type outcome struct {
	attributes protocol.Attributes
	err        error
}

func ok(attributes protocol.Attributes) outcome { return outcome{attributes: attributes} }

func fail() outcome { return outcome{err: errUnavailable} }

func throttled(seconds int) outcome {
	return outcome{err: protocol.NewResponseError(http.StatusTooManyRequests, http.Header{
		"Retry-After": []string{strconv.Itoa(seconds)},
	})}
}

// fakeClient answers from per-endpoint queues. An empty queue answers
// with a successful response carrying no attributes.
type fakeClient struct {
	mu         sync.Mutex
	status     []outcome
	newSession []outcome
	beacon     []outcome

	statusCalls     int
	newSessionCalls int
	beaconCalls     int
	bodies          []string
	serverIDs       []int
}

func (f *fakeClient) SendStatusRequest(_ context.Context, serverID int) (*protocol.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	f.serverIDs = append(f.serverIDs, serverID)
	return answer(&f.status)
}

func (f *fakeClient) SendNewSessionRequest(_ context.Context, serverID int) (*protocol.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newSessionCalls++
	f.serverIDs = append(f.serverIDs, serverID)
	return answer(&f.newSession)
}

func (f *fakeClient) SendBeaconRequest(_ context.Context, serverID int, _ string, body []byte) (*protocol.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beaconCalls++
	f.serverIDs = append(f.serverIDs, serverID)
	response, err := answer(&f.beacon)
	if err == nil {
		f.bodies = append(f.bodies, string(body))
	}
	return response, err
}

func (f *fakeClient) counts() (status, newSession, beacons int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.newSessionCalls, f.beaconCalls
}

func (f *fakeClient) sentBodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bodies)
}

func answer(queue *[]outcome) (*protocol.StatusResponse, error) {
	var next outcome
	if len(*queue) > 0 {
		next = (*queue)[0]
		*queue = (*queue)[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	return &protocol.StatusResponse{StatusCode: http.StatusOK, Attributes: next.attributes}, nil
}

// stepClock is a clock whose waits complete immediately by moving
// time forward. It records every positive wait, which lets state
// executions run synchronously on the test goroutine.
type stepClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.UnixMilli(1_000_000)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.waits = append(c.waits, d)
		c.now = c.now.Add(d)
	}
	channel := make(chan time.Time, 1)
	channel <- c.now
	return channel
}

func (c *stepClock) Sleep(d time.Duration) { <-c.After(d) }

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Waits returns the recorded waits and forgets them.
func (c *stepClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	waits := c.waits
	c.waits = nil
	return waits
}

func testConfig() Config {
	return Config{
		InitRetryDelays:       []time.Duration{time.Minute},
		MaxInitAttempts:       3,
		StatusRequestRetries:  0,
		InitialRetryDelay:     time.Second,
		MaxRetryDelay:         8 * time.Second,
		StatusCheckInterval:   time.Hour,
		CaptureOnInterval:     0,
		MaxNewSessionRequests: 2,
		ShutdownTimeout:       5 * time.Second,
	}
}

func newTestContext(t *testing.T, client *fakeClient, clk clock.Clock, mutate func(*Config)) *Context {
	t.Helper()
	config := testConfig()
	if mutate != nil {
		mutate(&config)
	}
	return NewContext(ContextParams{Config: config, Client: client, Clock: clk})
}

func setState(c *Context, state State) {
	c.current = state
	c.currentType.Store(int32(state.Type()))
}

func startSession(c *Context, cache *beaconcache.Cache, clk clock.Clock, number int32) *Session {
	b := beacon.New(beacon.Params{
		Identity: beacon.Identity{
			ApplicationID:  "app-id",
			AgentVersion:   "0.1.0",
			TechnologyType: "go",
			DeviceID:       42,
		},
		SessionNumber: number,
		ClientIP:      "10.0.0.1",
		Cache:         cache,
		Clock:         clk,
	})
	return c.StartSession(b, nil)
}
