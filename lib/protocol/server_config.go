// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "time"

// ServerConfiguration is the collector-controlled behavior of the SDK,
// derived from merged [Attributes].
type ServerConfiguration struct {
	CaptureEnabled           bool
	CrashReportingEnabled    bool
	ErrorReportingEnabled    bool
	ServerID                 int
	MaxBeaconSize            int
	Multiplicity             int
	SendInterval             time.Duration
	TrafficControlPercentage int
}

// DefaultServerConfiguration is in effect until the first status
// response arrives.
func DefaultServerConfiguration() ServerConfiguration {
	return ConfigurationFrom(JSONDefaults())
}

// ConfigurationFrom derives a configuration from attributes.
func ConfigurationFrom(attributes Attributes) ServerConfiguration {
	return ServerConfiguration{
		CaptureEnabled:           attributes.Capture(),
		CrashReportingEnabled:    attributes.CaptureCrashes(),
		ErrorReportingEnabled:    attributes.CaptureErrors(),
		ServerID:                 attributes.ServerID(),
		MaxBeaconSize:            attributes.MaxBeaconSize(),
		Multiplicity:             attributes.Multiplicity(),
		SendInterval:             attributes.SendInterval(),
		TrafficControlPercentage: attributes.TrafficControlPercentage(),
	}
}

// IsSendingDataAllowed reports whether any data may be captured and
// uploaded. A multiplicity of zero turns capture off as well.
func (c ServerConfiguration) IsSendingDataAllowed() bool {
	return c.CaptureEnabled && c.Multiplicity > 0
}

// IsSendingCrashesAllowed reports whether crash reports may be sent.
func (c ServerConfiguration) IsSendingCrashesAllowed() bool {
	return c.CrashReportingEnabled && c.IsSendingDataAllowed()
}

// IsSendingErrorsAllowed reports whether error reports may be sent.
func (c ServerConfiguration) IsSendingErrorsAllowed() bool {
	return c.ErrorReportingEnabled && c.IsSendingDataAllowed()
}
