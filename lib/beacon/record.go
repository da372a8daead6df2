// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"net/url"
	"strconv"
	"strings"
)

// EventType is the et field of a record.
type EventType int

const (
	EventAction       EventType = 1
	EventNamedEvent   EventType = 10
	EventValueString  EventType = 11
	EventValueInt     EventType = 12
	EventValueDouble  EventType = 13
	EventSessionStart EventType = 18
	EventSessionEnd   EventType = 19
	EventWebRequest   EventType = 30
	EventError        EventType = 40
	EventCrash        EventType = 50
	EventIdentifyUser EventType = 60
)

// Record field keys.
const (
	keyEventType      = "et"
	keyName           = "na"
	keyThreadID       = "it"
	keyActionID       = "ca"
	keyParentActionID = "pa"
	keyStartSequence  = "s0"
	keyTime0          = "t0"
	keyEndSequence    = "s1"
	keyTime1          = "t1"
	keyValue          = "vl"
	keyErrorCode      = "ev"
	keyReason         = "rs"
	keyStacktrace     = "st"
	keyResponseCode   = "rc"
	keyBytesSent      = "bs"
	keyBytesReceived  = "br"
)

// Prefix field keys.
const (
	keyProtocolVersion    = "vv"
	keyAgentVersion       = "va"
	keyApplicationID      = "ap"
	keyApplicationName    = "an"
	keyApplicationVersion = "vn"
	keyPlatformType       = "pt"
	keyTechnologyType     = "tt"
	keyVisitorID          = "vi"
	keySessionNumber      = "sn"
	keySessionSequence    = "ss"
	keyOperatingSystem    = "os"
	keyManufacturer       = "mf"
	keyModelID            = "md"
	keyTransmissionTime   = "tx"
	keySessionStartTime   = "tv"
	keyMultiplicity       = "mp"
)

const (
	protocolVersion = 3
	platformTypeGo  = 1

	// threadID fills the it field. Goroutines have no stable identity
	// worth reporting, so every record carries the same value.
	threadID = 1
)

// recordWriter builds one &-separated key-value record.
type recordWriter struct {
	builder strings.Builder
}

func (w *recordWriter) separator() {
	if w.builder.Len() > 0 {
		w.builder.WriteByte('&')
	}
}

func (w *recordWriter) text(key, value string) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(url.QueryEscape(value))
}

// optionalText omits the field when value is empty.
func (w *recordWriter) optionalText(key, value string) {
	if value != "" {
		w.text(key, value)
	}
}

func (w *recordWriter) integer(key string, value int64) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(strconv.FormatInt(value, 10))
}

func (w *recordWriter) float(key string, value float64) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
}

func (w *recordWriter) String() string {
	return w.builder.String()
}
