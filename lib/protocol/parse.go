// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/codec"
)

// Key-value attribute names.
const (
	keyType                     = "type"
	keyCapture                  = "cp"
	keyServerID                 = "id"
	keySendInterval             = "si"
	keyMaxBeaconSize            = "bl"
	keyCaptureErrors            = "er"
	keyCaptureCrashes           = "cr"
	keyMultiplicity             = "mp"
	keyTrafficControlPercentage = "tc"

	keyValuePrefix = keyType + "=m"
)

// Content types understood by ParseBody.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeCBOR     = "application/cbor"
	ContentTypeKeyValue = "text/plain"
)

// ParseKeyValue parses a legacy key-value status body. The body must
// start with "type=m"; unknown keys are ignored.
func ParseKeyValue(body string) (Attributes, error) {
	if body != keyValuePrefix && !strings.HasPrefix(body, keyValuePrefix+"&") {
		return Attributes{}, fmt.Errorf("key-value response must start with %q", keyValuePrefix)
	}

	attributes := KeyValueDefaults()
	for _, pair := range strings.Split(body, "&")[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Attributes{}, fmt.Errorf("key-value response: malformed pair %q", pair)
		}
		var number int
		switch key {
		case keyCapture, keyServerID, keySendInterval, keyMaxBeaconSize,
			keyCaptureErrors, keyCaptureCrashes, keyMultiplicity, keyTrafficControlPercentage:
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return Attributes{}, fmt.Errorf("key-value response: %s: %w", key, err)
			}
			number = parsed
		default:
			continue
		}

		switch key {
		case keyCapture:
			attributes = attributes.WithCapture(number == 1)
		case keyServerID:
			attributes = attributes.WithServerID(number)
		case keySendInterval:
			attributes = attributes.WithSendInterval(time.Duration(number) * time.Second)
		case keyMaxBeaconSize:
			attributes = attributes.WithMaxBeaconSize(number * 1024)
		case keyCaptureErrors:
			// Only 0 disables error capture.
			attributes = attributes.WithCaptureErrors(number != 0)
		case keyCaptureCrashes:
			attributes = attributes.WithCaptureCrashes(number != 0)
		case keyMultiplicity:
			attributes = attributes.WithMultiplicity(number)
		case keyTrafficControlPercentage:
			attributes = attributes.WithTrafficControlPercentage(number)
		}
	}
	return attributes, nil
}

// KeyValueBody renders the set attributes in key-value form.
func KeyValueBody(attributes Attributes) string {
	var builder strings.Builder
	builder.WriteString(keyValuePrefix)
	write := func(key string, value int) {
		builder.WriteByte('&')
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(strconv.Itoa(value))
	}
	if attributes.IsSet(AttributeCapture) {
		write(keyCapture, boolToInt(attributes.capture))
	}
	if attributes.IsSet(AttributeServerID) {
		write(keyServerID, attributes.serverID)
	}
	if attributes.IsSet(AttributeSendInterval) {
		write(keySendInterval, int(attributes.sendInterval/time.Second))
	}
	if attributes.IsSet(AttributeMaxBeaconSize) {
		write(keyMaxBeaconSize, attributes.maxBeaconSize/1024)
	}
	if attributes.IsSet(AttributeCaptureErrors) {
		write(keyCaptureErrors, boolToInt(attributes.captureErrors))
	}
	if attributes.IsSet(AttributeCaptureCrashes) {
		write(keyCaptureCrashes, boolToInt(attributes.captureCrashes))
	}
	if attributes.IsSet(AttributeMultiplicity) {
		write(keyMultiplicity, attributes.multiplicity)
	}
	if attributes.IsSet(AttributeTrafficControlPercentage) {
		write(keyTrafficControlPercentage, attributes.trafficControlPercentage)
	}
	return builder.String()
}

// ParseJSON parses a JSON status document.
func ParseJSON(body []byte) (Attributes, error) {
	var document StatusDocument
	if err := json.Unmarshal(body, &document); err != nil {
		return Attributes{}, fmt.Errorf("json response: %w", err)
	}
	return document.Attributes(), nil
}

// ParseCBOR parses a CBOR-encoded status document.
func ParseCBOR(body []byte) (Attributes, error) {
	var document StatusDocument
	if err := codec.Unmarshal(body, &document); err != nil {
		return Attributes{}, fmt.Errorf("cbor response: %w", err)
	}
	return document.Attributes(), nil
}

// ParseBody picks the parser from the response content type, falling
// back to sniffing the body. An empty body yields the JSON defaults
// with nothing set.
func ParseBody(contentType string, body []byte) (Attributes, error) {
	if len(body) == 0 {
		return JSONDefaults(), nil
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == ContentTypeCBOR:
		return ParseCBOR(body)
	case strings.HasPrefix(string(body), keyValuePrefix):
		return ParseKeyValue(string(body))
	default:
		return ParseJSON(body)
	}
}
