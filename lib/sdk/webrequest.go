// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sdk

import (
	"strings"
	"sync"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
)

// WebRequestTracer times one outgoing request. Send Tag in the
// beacon.TagHeader request header so the server side can correlate.
type WebRequestTracer struct {
	beacon   *beacon.Beacon
	parentID int32
	url      string
	tag      string

	mu            sync.Mutex
	startTime     int64
	startSequence int32
	responseCode  int
	bytesSent     int64
	bytesReceived int64
	stopped       bool
}

func newWebRequestTracer(b *beacon.Beacon, parentID int32, url string) *WebRequestTracer {
	// Query strings are not recorded.
	url, _, _ = strings.Cut(url, "?")
	sequence := b.NextSequenceNumber()
	return &WebRequestTracer{
		beacon:        b,
		parentID:      parentID,
		url:           url,
		tag:           b.CreateTag(parentID, sequence),
		startTime:     b.CurrentTimestamp(),
		startSequence: sequence,
		responseCode:  -1,
		bytesSent:     -1,
		bytesReceived: -1,
	}
}

// Tag returns the correlation tag, or "" while capture is off.
func (w *WebRequestTracer) Tag() string {
	if w == nil {
		return ""
	}
	return w.tag
}

// Start resets the start time to now. Tracers start timing on
// creation; call Start when the request is sent later.
func (w *WebRequestTracer) Start() *WebRequestTracer {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.startTime = w.beacon.CurrentTimestamp()
	}
	return w
}

// SetResponseCode sets the HTTP status code.
func (w *WebRequestTracer) SetResponseCode(code int) *WebRequestTracer {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.responseCode = code
	}
	return w
}

// SetBytes sets the request and response body sizes.
func (w *WebRequestTracer) SetBytes(sent, received int64) *WebRequestTracer {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.bytesSent = sent
		w.bytesReceived = received
	}
	return w
}

// Stop records the request. Later calls do nothing.
func (w *WebRequestTracer) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	data := beacon.WebRequestData{
		ParentID:      w.parentID,
		URL:           w.url,
		StartTime:     w.startTime,
		EndTime:       w.beacon.CurrentTimestamp(),
		StartSequence: w.startSequence,
		EndSequence:   w.beacon.NextSequenceNumber(),
		ResponseCode:  w.responseCode,
		BytesSent:     w.bytesSent,
		BytesReceived: w.bytesReceived,
	}
	w.mu.Unlock()
	w.beacon.AddWebRequest(data)
}
