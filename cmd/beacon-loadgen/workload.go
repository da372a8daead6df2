// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/sdk"
)

// workload drives synthetic sessions through a kit. Each worker runs
// sessions back to back, each session entering actions actions with a
// traced web request inside, until the context ends.
type workload struct {
	kit     *sdk.Kit
	workers int
	actions int
	pause   time.Duration
	clock   clock.Clock
	logger  *slog.Logger

	sessionsCompleted atomic.Int64
	actionsCompleted  atomic.Int64
	requestsTraced    atomic.Int64
}

// run starts the workers and waits for all of them.
func (w *workload) run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for worker := range w.workers {
		group.Go(func() error {
			ip := clientIP(worker)
			for ctx.Err() == nil {
				w.runSession(ctx, ip)
			}
			return nil
		})
	}
	return group.Wait()
}

// runSession records one session. A cancelled context ends the session
// early; open actions are left by End.
func (w *workload) runSession(ctx context.Context, ip string) {
	session := w.kit.CreateSession(ip)
	defer session.End()
	session.IdentifyUser("user-" + uuid.NewString())

	for i := range w.actions {
		action := session.EnterAction("action-" + strconv.Itoa(i))
		action.ReportEvent("step").ReportValueInt("iteration", int64(i))

		tracer := action.TraceWebRequest(fmt.Sprintf("https://shop.example.com/api/items?page=%d", i)).Start()
		if !w.sleep(ctx) {
			tracer.Stop()
			return
		}
		tracer.SetResponseCode(200).SetBytes(512, 4096).Stop()
		w.requestsTraced.Add(1)

		if i%7 == 6 {
			action.ReportError("inventory lookup failed", 503, "upstream unavailable")
		}
		action.Leave()
		w.actionsCompleted.Add(1)
	}
	w.sessionsCompleted.Add(1)
	w.logger.Debug("session completed", "client_ip", ip, "actions", w.actions)
}

// sleep pauses between actions and reports whether ctx is still live.
func (w *workload) sleep(ctx context.Context) bool {
	if w.pause <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-w.clock.After(w.pause):
		return true
	case <-ctx.Done():
		return false
	}
}

// clientIP returns a distinct private address for worker n.
func clientIP(worker int) string {
	n := worker + 1
	return fmt.Sprintf("10.%d.%d.%d", (n>>16)&0xff, (n>>8)&0xff, n&0xff)
}
