// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/collector"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// chunkReserve is subtracted from the server's beacon size limit to
// leave room for the prefix and one oversized trailing record.
const chunkReserve = 1024

// minChunkSize is the smallest chunk budget Send uses, whatever beacon
// size limit the server announces.
const minChunkSize = 256

// Identity describes the application and device, shared by every
// session of one SDK instance.
type Identity struct {
	ApplicationID      string
	ApplicationName    string
	ApplicationVersion string
	AgentVersion       string
	TechnologyType     string
	DeviceID           int64
	OperatingSystem    string
	Manufacturer       string
	ModelID            string
}

// Params configures one Beacon.
type Params struct {
	Identity       Identity
	SessionNumber  int32
	SequenceNumber int32
	ClientIP       string

	// TrafficControlValue is drawn uniformly from [0, 100) per
	// session. The session captures data only while it is below the
	// server's traffic control percentage.
	TrafficControlValue int

	Cache *beaconcache.Cache
	Clock clock.Clock
}

// Beacon records and uploads one session's telemetry. All methods are
// safe for concurrent use.
type Beacon struct {
	identity            Identity
	key                 beaconcache.Key
	clientIP            string
	trafficControlValue int
	cache               *beaconcache.Cache
	clock               clock.Clock

	sessionStart    int64
	nextID          atomic.Int32
	nextSequence    atomic.Int32
	immutablePrefix string

	mu           sync.Mutex
	serverConfig protocol.ServerConfiguration
}

// New creates a beacon and stamps the session start time. Panics if
// the cache or clock is missing.
func New(params Params) *Beacon {
	if params.Cache == nil {
		panic("beacon: New called with nil cache")
	}
	if params.Clock == nil {
		panic("beacon: New called with nil clock")
	}
	b := &Beacon{
		identity:            params.Identity,
		key:                 beaconcache.Key{BeaconID: params.SessionNumber, SequenceNumber: params.SequenceNumber},
		clientIP:            params.ClientIP,
		trafficControlValue: params.TrafficControlValue,
		cache:               params.Cache,
		clock:               params.Clock,
		sessionStart:        clock.TimestampMillis(params.Clock),
		serverConfig:        protocol.DefaultServerConfiguration(),
	}
	b.immutablePrefix = b.buildImmutablePrefix()
	return b
}

// Key returns the cache key of this beacon.
func (b *Beacon) Key() beaconcache.Key { return b.key }

// SessionNumber returns the session number.
func (b *Beacon) SessionNumber() int32 { return b.key.BeaconID }

// ClientIP returns the client address sent with every upload.
func (b *Beacon) ClientIP() string { return b.clientIP }

// SessionStartTime returns the session start in milliseconds since the
// Unix epoch.
func (b *Beacon) SessionStartTime() int64 { return b.sessionStart }

// NextID returns a fresh action or web request id. Ids start at 1.
func (b *Beacon) NextID() int32 { return b.nextID.Add(1) }

// NextSequenceNumber returns the next event sequence number. Sequence
// numbers start at 1.
func (b *Beacon) NextSequenceNumber() int32 { return b.nextSequence.Add(1) }

// CurrentTimestamp returns the clock's time in milliseconds.
func (b *Beacon) CurrentTimestamp() int64 { return clock.TimestampMillis(b.clock) }

// UpdateServerConfiguration replaces the configuration that gates
// capture. The sender calls it when a new-session response arrives.
func (b *Beacon) UpdateServerConfiguration(config protocol.ServerConfiguration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serverConfig = config
}

// ServerConfiguration returns the configuration currently in effect.
func (b *Beacon) ServerConfiguration() protocol.ServerConfiguration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serverConfig
}

// IsCaptureEnabled reports whether records are currently accepted.
func (b *Beacon) IsCaptureEnabled() bool {
	config := b.ServerConfiguration()
	return config.IsSendingDataAllowed() && b.trafficControlValue < config.TrafficControlPercentage
}

func (b *Beacon) isErrorCaptureEnabled() bool {
	config := b.ServerConfiguration()
	return config.IsSendingErrorsAllowed() && b.trafficControlValue < config.TrafficControlPercentage
}

func (b *Beacon) isCrashCaptureEnabled() bool {
	config := b.ServerConfiguration()
	return config.IsSendingCrashesAllowed() && b.trafficControlValue < config.TrafficControlPercentage
}

// relative converts an absolute timestamp to session-relative time.
func (b *Beacon) relative(timestamp int64) int64 {
	return timestamp - b.sessionStart
}

// basicEvent writes the fields every non-action record starts with.
func (b *Beacon) basicEvent(writer *recordWriter, eventType EventType, name string, parentID int32, sequence int32, timestamp int64) {
	writer.integer(keyEventType, int64(eventType))
	writer.optionalText(keyName, name)
	writer.integer(keyThreadID, threadID)
	writer.integer(keyParentActionID, int64(parentID))
	writer.integer(keyStartSequence, int64(sequence))
	writer.integer(keyTime0, b.relative(timestamp))
}

func (b *Beacon) addEvent(timestamp int64, writer *recordWriter) {
	b.cache.AddEventData(b.key, timestamp, writer.String())
}

// StartSession records the session start.
func (b *Beacon) StartSession() {
	if !b.IsCaptureEnabled() {
		return
	}
	var writer recordWriter
	b.basicEvent(&writer, EventSessionStart, "", 0, b.NextSequenceNumber(), b.sessionStart)
	b.addEvent(b.sessionStart, &writer)
}

// EndSession records the session end.
func (b *Beacon) EndSession() {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventSessionEnd, "", 0, b.NextSequenceNumber(), timestamp)
	b.addEvent(timestamp, &writer)
}

// ActionData is a completed action.
type ActionData struct {
	ID            int32
	ParentID      int32
	Name          string
	StartTime     int64
	EndTime       int64
	StartSequence int32
	EndSequence   int32
}

// AddAction records a completed action.
func (b *Beacon) AddAction(action ActionData) {
	if !b.IsCaptureEnabled() {
		return
	}
	var writer recordWriter
	writer.integer(keyEventType, int64(EventAction))
	writer.optionalText(keyName, action.Name)
	writer.integer(keyThreadID, threadID)
	writer.integer(keyActionID, int64(action.ID))
	writer.integer(keyParentActionID, int64(action.ParentID))
	writer.integer(keyStartSequence, int64(action.StartSequence))
	writer.integer(keyTime0, b.relative(action.StartTime))
	writer.integer(keyEndSequence, int64(action.EndSequence))
	writer.integer(keyTime1, action.EndTime-action.StartTime)
	b.cache.AddActionData(b.key, action.StartTime, writer.String())
}

// ReportEvent records a named event inside the parent action.
func (b *Beacon) ReportEvent(parentID int32, name string) {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventNamedEvent, name, parentID, b.NextSequenceNumber(), timestamp)
	b.addEvent(timestamp, &writer)
}

// ReportValueInt records an integer value.
func (b *Beacon) ReportValueInt(parentID int32, name string, value int64) {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventValueInt, name, parentID, b.NextSequenceNumber(), timestamp)
	writer.integer(keyValue, value)
	b.addEvent(timestamp, &writer)
}

// ReportValueDouble records a floating point value.
func (b *Beacon) ReportValueDouble(parentID int32, name string, value float64) {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventValueDouble, name, parentID, b.NextSequenceNumber(), timestamp)
	writer.float(keyValue, value)
	b.addEvent(timestamp, &writer)
}

// ReportValueString records a string value.
func (b *Beacon) ReportValueString(parentID int32, name string, value string) {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventValueString, name, parentID, b.NextSequenceNumber(), timestamp)
	writer.text(keyValue, value)
	b.addEvent(timestamp, &writer)
}

// ReportError records an error with a numeric code.
func (b *Beacon) ReportError(parentID int32, name string, code int, reason string) {
	if !b.isErrorCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventError, name, parentID, b.NextSequenceNumber(), timestamp)
	writer.integer(keyErrorCode, int64(code))
	writer.optionalText(keyReason, reason)
	b.addEvent(timestamp, &writer)
}

// ReportCrash records an application crash.
func (b *Beacon) ReportCrash(name, reason, stacktrace string) {
	if !b.isCrashCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventCrash, name, 0, b.NextSequenceNumber(), timestamp)
	writer.optionalText(keyReason, reason)
	writer.optionalText(keyStacktrace, stacktrace)
	b.addEvent(timestamp, &writer)
}

// IdentifyUser tags the session with a user.
func (b *Beacon) IdentifyUser(userTag string) {
	if !b.IsCaptureEnabled() {
		return
	}
	timestamp := b.CurrentTimestamp()
	var writer recordWriter
	b.basicEvent(&writer, EventIdentifyUser, userTag, 0, b.NextSequenceNumber(), timestamp)
	b.addEvent(timestamp, &writer)
}

// WebRequestData is a completed traced web request.
type WebRequestData struct {
	ParentID      int32
	URL           string
	StartTime     int64
	EndTime       int64
	StartSequence int32
	EndSequence   int32
	ResponseCode  int
	BytesSent     int64
	BytesReceived int64
}

// AddWebRequest records a traced web request. Negative response codes
// and byte counts mean "unknown" and are omitted.
func (b *Beacon) AddWebRequest(request WebRequestData) {
	if !b.IsCaptureEnabled() {
		return
	}
	var writer recordWriter
	writer.integer(keyEventType, int64(EventWebRequest))
	writer.text(keyName, request.URL)
	writer.integer(keyThreadID, threadID)
	writer.integer(keyParentActionID, int64(request.ParentID))
	writer.integer(keyStartSequence, int64(request.StartSequence))
	writer.integer(keyTime0, b.relative(request.StartTime))
	writer.integer(keyEndSequence, int64(request.EndSequence))
	writer.integer(keyTime1, request.EndTime-request.StartTime)
	if request.BytesSent >= 0 {
		writer.integer(keyBytesSent, request.BytesSent)
	}
	if request.BytesReceived >= 0 {
		writer.integer(keyBytesReceived, request.BytesReceived)
	}
	if request.ResponseCode >= 0 {
		writer.integer(keyResponseCode, int64(request.ResponseCode))
	}
	b.addEvent(request.StartTime, &writer)
}

// TagHeader is the request header that carries CreateTag's value to
// the traced server.
const TagHeader = "X-BeaconKit-Tag"

// CreateTag returns the correlation tag for a web request started
// inside parentID with the given sequence number. Returns "" while
// capture is disabled.
func (b *Beacon) CreateTag(parentID int32, sequence int32) string {
	if !b.IsCaptureEnabled() {
		return ""
	}
	return fmt.Sprintf("MT_%d_%d_%d-%d_%s_%d_%d_%d_%d",
		protocolVersion,
		b.ServerConfiguration().ServerID,
		b.identity.DeviceID,
		b.key.SequenceNumber,
		b.identity.ApplicationID,
		b.key.BeaconID,
		parentID,
		threadID,
		sequence,
	)
}

func (b *Beacon) buildImmutablePrefix() string {
	var writer recordWriter
	writer.integer(keyProtocolVersion, protocolVersion)
	writer.text(keyAgentVersion, b.identity.AgentVersion)
	writer.text(keyApplicationID, b.identity.ApplicationID)
	writer.text(keyApplicationName, b.identity.ApplicationName)
	writer.optionalText(keyApplicationVersion, b.identity.ApplicationVersion)
	writer.integer(keyPlatformType, platformTypeGo)
	writer.text(keyTechnologyType, b.identity.TechnologyType)
	writer.integer(keyVisitorID, b.identity.DeviceID)
	writer.integer(keySessionNumber, int64(b.key.BeaconID))
	writer.integer(keySessionSequence, int64(b.key.SequenceNumber))
	writer.optionalText(keyOperatingSystem, b.identity.OperatingSystem)
	writer.optionalText(keyManufacturer, b.identity.Manufacturer)
	writer.optionalText(keyModelID, b.identity.ModelID)
	return writer.String()
}

// chunkPrefix is the immutable prefix plus the fields that change per
// upload.
func (b *Beacon) chunkPrefix() string {
	var writer recordWriter
	writer.builder.WriteString(b.immutablePrefix)
	writer.integer(keyTransmissionTime, b.CurrentTimestamp())
	writer.integer(keySessionStartTime, b.sessionStart)
	writer.integer(keyMultiplicity, int64(b.ServerConfiguration().Multiplicity))
	return writer.String()
}

// Send uploads every record of the beacon in chunks. It returns the
// last collector response; nil if there was nothing to send. On a
// failed chunk the remaining records go back to the cache and the
// error is returned.
func (b *Beacon) Send(ctx context.Context, client collector.Client, serverID int) (*protocol.StatusResponse, error) {
	b.cache.PrepareDataForSending(b.key)

	maxSize := max(b.ServerConfiguration().MaxBeaconSize-chunkReserve, minChunkSize)
	var last *protocol.StatusResponse
	for b.cache.HasDataForSending(b.key) {
		chunk := b.cache.NextBeaconChunk(b.key, b.chunkPrefix(), maxSize, '&')
		if chunk == "" {
			break
		}
		response, err := client.SendBeaconRequest(ctx, serverID, b.clientIP, []byte(chunk))
		if err != nil {
			b.cache.ResetChunkedData(b.key)
			return last, err
		}
		b.cache.RemoveChunkedData(b.key)
		last = response
	}
	return last, nil
}

// ClearData drops every record of the beacon.
func (b *Beacon) ClearData() {
	b.cache.DeleteCacheEntry(b.key)
}

// IsEmpty reports whether the beacon holds no records.
func (b *Beacon) IsEmpty() bool {
	return b.cache.IsEmpty(b.key)
}
