// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(1500 * time.Millisecond)
	if got := TimestampMillis(c); got != epoch.UnixMilli()+1500 {
		t.Fatalf("TimestampMillis() = %d, want %d", got, epoch.UnixMilli()+1500)
	}
}

func TestFakeClockAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(5 * time.Second)

	c.Advance(3 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before deadline")
	default:
	}

	c.Advance(2 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at exact deadline")
	}
	if c.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d after firing, want 0", c.PendingCount())
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-c.After(d):
		default:
			t.Fatalf("After(%v) should fire immediately", d)
		}
	}
	if c.PendingCount() != 0 {
		t.Fatalf("non-positive After registered a waiter")
	}
}

func TestFakeClockSleepReleasedByAdvance(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.Sleep(time.Minute)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Minute)
	<-done
}

func TestFakeClockConcurrentSleepers(t *testing.T) {
	c := Fake(epoch)
	var waitGroup sync.WaitGroup
	for i := 1; i <= 5; i++ {
		waitGroup.Add(1)
		go func(seconds int) {
			defer waitGroup.Done()
			c.Sleep(time.Duration(seconds) * time.Second)
		}(i)
	}
	c.WaitForTimers(5)
	c.Advance(5 * time.Second)
	waitGroup.Wait()
}

func TestRealClockImplementsClock(t *testing.T) {
	var _ Clock = Real()
	var _ Clock = Fake(epoch)
}
