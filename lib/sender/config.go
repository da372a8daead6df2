// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every timing constant of the state machine.
type Config struct {
	// InitRetryDelays are the waits between failed Init rounds. Rounds
	// beyond the list reuse its last entry.
	InitRetryDelays []time.Duration

	// MaxInitAttempts is the number of Init rounds before giving up.
	MaxInitAttempts int

	// StatusRequestRetries is how often a failed status request is
	// retried within one Init round or CaptureOff check.
	StatusRequestRetries int

	// InitialRetryDelay is the first wait between status request
	// retries, and the first CaptureOff backoff after a failed check.
	// Both double per failure up to MaxRetryDelay.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	// StatusCheckInterval is the regular CaptureOff re-check period.
	StatusCheckInterval time.Duration

	// CaptureOnInterval is the pause at the start of every CaptureOn
	// iteration.
	CaptureOnInterval time.Duration

	// MaxNewSessionRequests bounds the new-session requests made for
	// one session before it is configured with capture off.
	MaxNewSessionRequests int

	// ShutdownTimeout bounds how long Sender.Shutdown waits for the
	// final flush.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the production schedule.
func DefaultConfig() Config {
	return Config{
		InitRetryDelays: []time.Duration{
			1 * time.Minute,
			5 * time.Minute,
			15 * time.Minute,
			1 * time.Hour,
			2 * time.Hour,
		},
		MaxInitAttempts:       6,
		StatusRequestRetries:  5,
		InitialRetryDelay:     1 * time.Second,
		MaxRetryDelay:         2 * time.Hour,
		StatusCheckInterval:   2 * time.Hour,
		CaptureOnInterval:     1 * time.Second,
		MaxNewSessionRequests: 4,
		ShutdownTimeout:       10 * time.Second,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var problems []error
	if len(c.InitRetryDelays) == 0 {
		problems = append(problems, errors.New("init retry delays must not be empty"))
	}
	for i, delay := range c.InitRetryDelays {
		if delay < 0 {
			problems = append(problems, fmt.Errorf("init retry delay %d is negative", i))
		}
	}
	if c.MaxInitAttempts < 1 {
		problems = append(problems, errors.New("max init attempts must be at least 1"))
	}
	if c.StatusRequestRetries < 0 {
		problems = append(problems, errors.New("status request retries must not be negative"))
	}
	if c.InitialRetryDelay <= 0 {
		problems = append(problems, errors.New("initial retry delay must be positive"))
	}
	if c.MaxRetryDelay < c.InitialRetryDelay {
		problems = append(problems, errors.New("max retry delay must not be below the initial retry delay"))
	}
	if c.StatusCheckInterval <= 0 {
		problems = append(problems, errors.New("status check interval must be positive"))
	}
	if c.CaptureOnInterval < 0 {
		problems = append(problems, errors.New("capture-on interval must not be negative"))
	}
	if c.MaxNewSessionRequests < 1 {
		problems = append(problems, errors.New("max new-session requests must be at least 1"))
	}
	if c.ShutdownTimeout <= 0 {
		problems = append(problems, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(problems...)
}

// initRetryDelay returns the wait after the given failed round
// (0-based).
func (c Config) initRetryDelay(round int) time.Duration {
	if round >= len(c.InitRetryDelays) {
		return c.InitRetryDelays[len(c.InitRetryDelays)-1]
	}
	return c.InitRetryDelays[round]
}

// backoff returns InitialRetryDelay doubled failures-1 times, capped
// at MaxRetryDelay.
func (c Config) backoff(failures int) time.Duration {
	delay := c.InitialRetryDelay
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= c.MaxRetryDelay {
			return c.MaxRetryDelay
		}
	}
	return min(delay, c.MaxRetryDelay)
}
