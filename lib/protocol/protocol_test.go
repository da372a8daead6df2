// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/codec"
)

func TestParseKeyValue(t *testing.T) {
	attributes, err := ParseKeyValue("type=m&cp=0&id=7&si=60&bl=64&er=0&cr=2&mp=3&tc=50&xx=ignored")
	if err != nil {
		t.Fatalf("ParseKeyValue: %v", err)
	}
	if attributes.Capture() {
		t.Error("Capture() = true, want false")
	}
	if attributes.ServerID() != 7 {
		t.Errorf("ServerID() = %d, want 7", attributes.ServerID())
	}
	if attributes.SendInterval() != time.Minute {
		t.Errorf("SendInterval() = %v, want 1m", attributes.SendInterval())
	}
	if attributes.MaxBeaconSize() != 64*1024 {
		t.Errorf("MaxBeaconSize() = %d, want %d", attributes.MaxBeaconSize(), 64*1024)
	}
	if attributes.CaptureErrors() {
		t.Error("CaptureErrors() = true, want false")
	}
	if !attributes.CaptureCrashes() {
		t.Error("CaptureCrashes() = false for cr=2, want true")
	}
	if attributes.Multiplicity() != 3 {
		t.Errorf("Multiplicity() = %d, want 3", attributes.Multiplicity())
	}
	if attributes.TrafficControlPercentage() != 50 {
		t.Errorf("TrafficControlPercentage() = %d, want 50", attributes.TrafficControlPercentage())
	}
	if attributes.IsSet(AttributeTimestamp) {
		t.Error("timestamp reported as set")
	}
}

func TestParseKeyValueDefaults(t *testing.T) {
	attributes, err := ParseKeyValue("type=m")
	if err != nil {
		t.Fatalf("ParseKeyValue: %v", err)
	}
	if attributes.MaxBeaconSize() != DefaultKeyValueMaxBeaconSize {
		t.Errorf("MaxBeaconSize() = %d, want key-value default", attributes.MaxBeaconSize())
	}
	if !attributes.Capture() || attributes.IsSet(AttributeCapture) {
		t.Error("capture should default to enabled and unset")
	}
}

func TestParseKeyValueErrors(t *testing.T) {
	for _, body := range []string{
		"",
		"type=x&cp=1",
		"cp=1&type=m",
		"type=mobile",
		"type=m&cp",
		"type=m&id=abc",
	} {
		if _, err := ParseKeyValue(body); err == nil {
			t.Errorf("ParseKeyValue(%q) succeeded", body)
		}
	}
}

const statusJSON = `{
	"mobileAgentConfig": {"maxBeaconSizeKb": 100, "sendIntervalSec": 30},
	"appConfig": {"capture": 1, "reportCrashes": 0, "reportErrors": 1, "trafficControlPercentage": 25, "applicationId": "app"},
	"dynamicConfig": {"multiplicity": 2, "serverId": 9, "status": "OK"},
	"timestamp": 1700000000000
}`

func TestParseJSON(t *testing.T) {
	attributes, err := ParseJSON([]byte(statusJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if attributes.MaxBeaconSize() != 100*1024 || attributes.SendInterval() != 30*time.Second {
		t.Errorf("agent config = %d bytes, %v", attributes.MaxBeaconSize(), attributes.SendInterval())
	}
	if !attributes.Capture() || attributes.CaptureCrashes() || !attributes.CaptureErrors() {
		t.Errorf("app switches = %v %v %v", attributes.Capture(), attributes.CaptureCrashes(), attributes.CaptureErrors())
	}
	if attributes.TrafficControlPercentage() != 25 || attributes.ApplicationID() != "app" {
		t.Errorf("app config = %d %q", attributes.TrafficControlPercentage(), attributes.ApplicationID())
	}
	if attributes.Multiplicity() != 2 || attributes.ServerID() != 9 || attributes.Status() != "OK" {
		t.Errorf("dynamic config = %d %d %q", attributes.Multiplicity(), attributes.ServerID(), attributes.Status())
	}
	if attributes.Timestamp() != 1700000000000 {
		t.Errorf("Timestamp() = %d", attributes.Timestamp())
	}
}

func TestParseJSONInvalid(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"appConfig": `)); err == nil {
		t.Fatal("ParseJSON of truncated document succeeded")
	}
}

func TestDocumentRoundtrip(t *testing.T) {
	attributes := JSONDefaults().
		WithCapture(false).
		WithServerID(4).
		WithMultiplicity(0).
		WithSendInterval(45 * time.Second).
		WithTimestamp(99)

	t.Run("json", func(t *testing.T) {
		body, err := json.Marshal(DocumentFrom(attributes))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		parsed, err := ParseBody(ContentTypeJSON, body)
		if err != nil {
			t.Fatalf("ParseBody: %v", err)
		}
		if parsed != attributes {
			t.Fatalf("parsed %+v, want %+v", parsed, attributes)
		}
	})
	t.Run("cbor", func(t *testing.T) {
		body, err := codec.Marshal(DocumentFrom(attributes))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		parsed, err := ParseBody(ContentTypeCBOR+"; charset=binary", body)
		if err != nil {
			t.Fatalf("ParseBody: %v", err)
		}
		if parsed != attributes {
			t.Fatalf("parsed %+v, want %+v", parsed, attributes)
		}
	})
	t.Run("key-value", func(t *testing.T) {
		kv := KeyValueDefaults().WithCapture(false).WithServerID(4).WithMultiplicity(0)
		parsed, err := ParseBody(ContentTypeKeyValue, []byte(KeyValueBody(kv)))
		if err != nil {
			t.Fatalf("ParseBody: %v", err)
		}
		if parsed != kv {
			t.Fatalf("parsed %+v, want %+v", parsed, kv)
		}
	})
}

func TestDocumentFromOmitsUnsetBlocks(t *testing.T) {
	document := DocumentFrom(JSONDefaults().WithServerID(2))
	if document.MobileAgentConfig != nil || document.AppConfig != nil || document.Timestamp != nil {
		t.Fatalf("unexpected blocks in %+v", document)
	}
	if document.DynamicConfig == nil || *document.DynamicConfig.ServerID != 2 {
		t.Fatalf("dynamic config = %+v", document.DynamicConfig)
	}
}

func TestMergeOverridesOnlySetAttributes(t *testing.T) {
	current := JSONDefaults().WithServerID(5).WithMultiplicity(3).WithCapture(true)
	update, err := ParseJSON([]byte(`{"appConfig": {"capture": 0}}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	merged := current.Merge(update)
	if merged.Capture() {
		t.Error("capture not overridden")
	}
	if merged.ServerID() != 5 || merged.Multiplicity() != 3 {
		t.Errorf("unset attributes overridden: server %d multiplicity %d", merged.ServerID(), merged.Multiplicity())
	}
	if !merged.IsSet(AttributeServerID) || !merged.IsSet(AttributeCapture) {
		t.Error("set bits lost in merge")
	}
}

func TestServerConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		attributes Attributes
		data       bool
		crashes    bool
		errors     bool
	}{
		{"defaults", JSONDefaults(), true, true, true},
		{"capture off", JSONDefaults().WithCapture(false), false, false, false},
		{"multiplicity zero", JSONDefaults().WithMultiplicity(0), false, false, false},
		{"crashes off", JSONDefaults().WithCaptureCrashes(false), true, false, true},
		{"errors off", JSONDefaults().WithCaptureErrors(false), true, true, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			configuration := ConfigurationFrom(test.attributes)
			if got := configuration.IsSendingDataAllowed(); got != test.data {
				t.Errorf("IsSendingDataAllowed() = %v, want %v", got, test.data)
			}
			if got := configuration.IsSendingCrashesAllowed(); got != test.crashes {
				t.Errorf("IsSendingCrashesAllowed() = %v, want %v", got, test.crashes)
			}
			if got := configuration.IsSendingErrorsAllowed(); got != test.errors {
				t.Errorf("IsSendingErrorsAllowed() = %v, want %v", got, test.errors)
			}
		})
	}
}

func TestResponseError(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", "42")
	throttled := fmt.Errorf("status request: %w", NewResponseError(http.StatusTooManyRequests, headers))

	if !IsTooManyRequests(throttled) {
		t.Fatal("IsTooManyRequests() = false for wrapped 429")
	}
	if RetryAfter(throttled) != 42*time.Second {
		t.Fatalf("RetryAfter() = %v, want 42s", RetryAfter(throttled))
	}

	serverError := NewResponseError(http.StatusServiceUnavailable, headers)
	if IsTooManyRequests(serverError) || RetryAfter(serverError) != 0 {
		t.Fatal("503 treated as throttling")
	}
	if IsTooManyRequests(errors.New("connection refused")) {
		t.Fatal("plain error treated as throttling")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":      DefaultRetryAfter,
		"abc":   DefaultRetryAfter,
		"-5":    DefaultRetryAfter,
		"0":     0,
		" 120 ": 2 * time.Minute,
	}
	for value, want := range tests {
		if got := ParseRetryAfter(value); got != want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", value, got, want)
		}
	}
}
