// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "time"

// StatusDocument is the JSON (and CBOR) status response body. Every
// field is optional; absent fields keep their previous value when the
// resulting attributes are merged. Boolean switches are encoded as 0
// or 1.
type StatusDocument struct {
	MobileAgentConfig *AgentConfig   `json:"mobileAgentConfig,omitempty"`
	AppConfig         *AppConfig     `json:"appConfig,omitempty"`
	DynamicConfig     *DynamicConfig `json:"dynamicConfig,omitempty"`
	Timestamp         *int64         `json:"timestamp,omitempty"`
}

// AgentConfig holds limits applied to every SDK instance.
type AgentConfig struct {
	MaxBeaconSizeKB *int `json:"maxBeaconSizeKb,omitempty"`
	SendIntervalSec *int `json:"sendIntervalSec,omitempty"`
}

// AppConfig holds per-application switches.
type AppConfig struct {
	Capture                  *int    `json:"capture,omitempty"`
	ReportCrashes            *int    `json:"reportCrashes,omitempty"`
	ReportErrors             *int    `json:"reportErrors,omitempty"`
	TrafficControlPercentage *int    `json:"trafficControlPercentage,omitempty"`
	ApplicationID            *string `json:"applicationId,omitempty"`
}

// DynamicConfig holds values the collector may change per response.
type DynamicConfig struct {
	Multiplicity *int    `json:"multiplicity,omitempty"`
	ServerID     *int    `json:"serverId,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// Attributes converts the document, applying it over JSONDefaults.
func (d StatusDocument) Attributes() Attributes {
	attributes := JSONDefaults()
	if agent := d.MobileAgentConfig; agent != nil {
		if agent.MaxBeaconSizeKB != nil {
			attributes = attributes.WithMaxBeaconSize(*agent.MaxBeaconSizeKB * 1024)
		}
		if agent.SendIntervalSec != nil {
			attributes = attributes.WithSendInterval(time.Duration(*agent.SendIntervalSec) * time.Second)
		}
	}
	if app := d.AppConfig; app != nil {
		if app.Capture != nil {
			attributes = attributes.WithCapture(*app.Capture == 1)
		}
		if app.ReportCrashes != nil {
			attributes = attributes.WithCaptureCrashes(*app.ReportCrashes == 1)
		}
		if app.ReportErrors != nil {
			attributes = attributes.WithCaptureErrors(*app.ReportErrors == 1)
		}
		if app.TrafficControlPercentage != nil {
			attributes = attributes.WithTrafficControlPercentage(*app.TrafficControlPercentage)
		}
		if app.ApplicationID != nil {
			attributes = attributes.WithApplicationID(*app.ApplicationID)
		}
	}
	if dynamic := d.DynamicConfig; dynamic != nil {
		if dynamic.Multiplicity != nil {
			attributes = attributes.WithMultiplicity(*dynamic.Multiplicity)
		}
		if dynamic.ServerID != nil {
			attributes = attributes.WithServerID(*dynamic.ServerID)
		}
		if dynamic.Status != nil {
			attributes = attributes.WithStatus(*dynamic.Status)
		}
	}
	if d.Timestamp != nil {
		attributes = attributes.WithTimestamp(*d.Timestamp)
	}
	return attributes
}

// DocumentFrom builds the document carrying exactly the attributes
// set in attributes. Collectors (and the mock collector) use it to
// answer status requests.
func DocumentFrom(attributes Attributes) StatusDocument {
	var document StatusDocument
	agent := &AgentConfig{}
	app := &AppConfig{}
	dynamic := &DynamicConfig{}

	if attributes.IsSet(AttributeMaxBeaconSize) {
		agent.MaxBeaconSizeKB = pointer(attributes.maxBeaconSize / 1024)
	}
	if attributes.IsSet(AttributeSendInterval) {
		agent.SendIntervalSec = pointer(int(attributes.sendInterval / time.Second))
	}
	if attributes.IsSet(AttributeCapture) {
		app.Capture = pointer(boolToInt(attributes.capture))
	}
	if attributes.IsSet(AttributeCaptureCrashes) {
		app.ReportCrashes = pointer(boolToInt(attributes.captureCrashes))
	}
	if attributes.IsSet(AttributeCaptureErrors) {
		app.ReportErrors = pointer(boolToInt(attributes.captureErrors))
	}
	if attributes.IsSet(AttributeTrafficControlPercentage) {
		app.TrafficControlPercentage = pointer(attributes.trafficControlPercentage)
	}
	if attributes.IsSet(AttributeApplicationID) {
		app.ApplicationID = pointer(attributes.applicationID)
	}
	if attributes.IsSet(AttributeMultiplicity) {
		dynamic.Multiplicity = pointer(attributes.multiplicity)
	}
	if attributes.IsSet(AttributeServerID) {
		dynamic.ServerID = pointer(attributes.serverID)
	}
	if attributes.IsSet(AttributeStatus) {
		dynamic.Status = pointer(attributes.status)
	}
	if attributes.IsSet(AttributeTimestamp) {
		document.Timestamp = pointer(attributes.timestamp)
	}

	if *agent != (AgentConfig{}) {
		document.MobileAgentConfig = agent
	}
	if *app != (AppConfig{}) {
		document.AppConfig = app
	}
	if *dynamic != (DynamicConfig{}) {
		document.DynamicConfig = dynamic
	}
	return document
}

func pointer[T any](value T) *T { return &value }

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
