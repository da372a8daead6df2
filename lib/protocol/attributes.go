// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "time"

// Attribute is a bit identifying one server attribute.
type Attribute uint32

const (
	AttributeCapture Attribute = 1 << iota
	AttributeServerID
	AttributeSendInterval
	AttributeMaxBeaconSize
	AttributeCaptureErrors
	AttributeCaptureCrashes
	AttributeMultiplicity
	AttributeTrafficControlPercentage
	AttributeApplicationID
	AttributeStatus
	AttributeTimestamp
)

// Defaults applied to attributes a response does not carry.
const (
	DefaultServerID                 = 1
	DefaultSendInterval             = 120 * time.Second
	DefaultMultiplicity             = 1
	DefaultTrafficControlPercentage = 100

	// JSON responses default to a larger beacon than key-value ones.
	DefaultJSONMaxBeaconSize     = 150 * 1024
	DefaultKeyValueMaxBeaconSize = 30 * 1024
)

// Attributes is one response's server attributes. The zero value is
// not useful; start from [JSONDefaults] or [KeyValueDefaults] and use
// the With methods.
//
// Attributes is a value type: With and Merge return modified copies.
type Attributes struct {
	set Attribute

	capture                  bool
	serverID                 int
	sendInterval             time.Duration
	maxBeaconSize            int
	captureErrors            bool
	captureCrashes           bool
	multiplicity             int
	trafficControlPercentage int
	applicationID            string
	status                   string
	timestamp                int64
}

// JSONDefaults returns the attributes assumed before any JSON
// response has been received.
func JSONDefaults() Attributes {
	return Attributes{
		capture:                  true,
		serverID:                 DefaultServerID,
		sendInterval:             DefaultSendInterval,
		maxBeaconSize:            DefaultJSONMaxBeaconSize,
		captureErrors:            true,
		captureCrashes:           true,
		multiplicity:             DefaultMultiplicity,
		trafficControlPercentage: DefaultTrafficControlPercentage,
	}
}

// KeyValueDefaults returns the defaults of the key-value format.
func KeyValueDefaults() Attributes {
	attributes := JSONDefaults()
	attributes.maxBeaconSize = DefaultKeyValueMaxBeaconSize
	return attributes
}

// IsSet reports whether the response explicitly carried attribute.
func (a Attributes) IsSet(attribute Attribute) bool {
	return a.set&attribute != 0
}

func (a Attributes) Capture() bool { return a.capture }
func (a Attributes) ServerID() int { return a.serverID }
func (a Attributes) SendInterval() time.Duration { return a.sendInterval }
func (a Attributes) MaxBeaconSize() int { return a.maxBeaconSize }
func (a Attributes) CaptureErrors() bool { return a.captureErrors }
func (a Attributes) CaptureCrashes() bool { return a.captureCrashes }
func (a Attributes) Multiplicity() int { return a.multiplicity }
func (a Attributes) TrafficControlPercentage() int { return a.trafficControlPercentage }
func (a Attributes) ApplicationID() string { return a.applicationID }
func (a Attributes) Status() string { return a.status }

// Timestamp is the collector's time in milliseconds since the Unix
// epoch when it built the response.
func (a Attributes) Timestamp() int64 { return a.timestamp }

func (a Attributes) WithCapture(capture bool) Attributes {
	a.capture = capture
	a.set |= AttributeCapture
	return a
}

func (a Attributes) WithServerID(serverID int) Attributes {
	a.serverID = serverID
	a.set |= AttributeServerID
	return a
}

func (a Attributes) WithSendInterval(interval time.Duration) Attributes {
	a.sendInterval = interval
	a.set |= AttributeSendInterval
	return a
}

// WithMaxBeaconSize sets the maximum beacon size in bytes.
func (a Attributes) WithMaxBeaconSize(size int) Attributes {
	a.maxBeaconSize = size
	a.set |= AttributeMaxBeaconSize
	return a
}

func (a Attributes) WithCaptureErrors(capture bool) Attributes {
	a.captureErrors = capture
	a.set |= AttributeCaptureErrors
	return a
}

func (a Attributes) WithCaptureCrashes(capture bool) Attributes {
	a.captureCrashes = capture
	a.set |= AttributeCaptureCrashes
	return a
}

func (a Attributes) WithMultiplicity(multiplicity int) Attributes {
	a.multiplicity = multiplicity
	a.set |= AttributeMultiplicity
	return a
}

func (a Attributes) WithTrafficControlPercentage(percentage int) Attributes {
	a.trafficControlPercentage = percentage
	a.set |= AttributeTrafficControlPercentage
	return a
}

func (a Attributes) WithApplicationID(id string) Attributes {
	a.applicationID = id
	a.set |= AttributeApplicationID
	return a
}

func (a Attributes) WithStatus(status string) Attributes {
	a.status = status
	a.set |= AttributeStatus
	return a
}

func (a Attributes) WithTimestamp(timestamp int64) Attributes {
	a.timestamp = timestamp
	a.set |= AttributeTimestamp
	return a
}

// Merge returns a with every attribute that newer explicitly carries
// replaced by newer's value.
func (a Attributes) Merge(newer Attributes) Attributes {
	if newer.IsSet(AttributeCapture) {
		a = a.WithCapture(newer.capture)
	}
	if newer.IsSet(AttributeServerID) {
		a = a.WithServerID(newer.serverID)
	}
	if newer.IsSet(AttributeSendInterval) {
		a = a.WithSendInterval(newer.sendInterval)
	}
	if newer.IsSet(AttributeMaxBeaconSize) {
		a = a.WithMaxBeaconSize(newer.maxBeaconSize)
	}
	if newer.IsSet(AttributeCaptureErrors) {
		a = a.WithCaptureErrors(newer.captureErrors)
	}
	if newer.IsSet(AttributeCaptureCrashes) {
		a = a.WithCaptureCrashes(newer.captureCrashes)
	}
	if newer.IsSet(AttributeMultiplicity) {
		a = a.WithMultiplicity(newer.multiplicity)
	}
	if newer.IsSet(AttributeTrafficControlPercentage) {
		a = a.WithTrafficControlPercentage(newer.trafficControlPercentage)
	}
	if newer.IsSet(AttributeApplicationID) {
		a = a.WithApplicationID(newer.applicationID)
	}
	if newer.IsSet(AttributeStatus) {
		a = a.WithStatus(newer.status)
	}
	if newer.IsSet(AttributeTimestamp) {
		a = a.WithTimestamp(newer.timestamp)
	}
	return a
}
