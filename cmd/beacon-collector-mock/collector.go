// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/codec"
	"github.com/bureau-foundation/beaconkit/lib/compress"
	"github.com/bureau-foundation/beaconkit/lib/netutil"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// Query parameters and headers sent by lib/collector.
const (
	paramServerID       = "srvid"
	paramApplicationID  = "app"
	paramResponseFormat = "resp"
	paramNewSession     = "ns"
	clientIPHeader      = "X-Client-IP"
)

// mockOptions configures a mockCollector.
type mockOptions struct {
	// Attributes are announced in every response.
	Attributes protocol.Attributes

	// TooManyRequests answers every /mbeacon request with 429 and
	// RetryAfter.
	TooManyRequests bool
	RetryAfter      time.Duration

	// MaxBodySize bounds a decompressed beacon body.
	MaxBodySize int64

	Clock  clock.Clock
	Logger *slog.Logger
}

// storedBeacon is one received beacon chunk.
type storedBeacon struct {
	ServerID      int       `json:"server_id"`
	ApplicationID string    `json:"application_id"`
	ClientIP      string    `json:"client_ip,omitempty"`
	Encoding      string    `json:"encoding"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"received_at"`
}

// statusSnapshot is the /admin/status response.
type statusSnapshot struct {
	Capture            bool   `json:"capture"`
	TooManyRequests    bool   `json:"too_many_requests"`
	StatusRequests     uint64 `json:"status_requests"`
	NewSessionRequests uint64 `json:"new_session_requests"`
	BeaconRequests     uint64 `json:"beacon_requests"`
	StoredBeacons      int    `json:"stored_beacons"`
	StoredBytes        int    `json:"stored_bytes"`
}

// mockCollector is an in-memory collector. It answers the SDK's
// status, new-session and beacon requests with fixed attributes and
// stores every beacon body for later inspection.
type mockCollector struct {
	options mockOptions

	mu              sync.Mutex
	attributes      protocol.Attributes
	tooManyRequests bool
	beacons         []storedBeacon
	storedBytes     int

	statusRequests     atomic.Uint64
	newSessionRequests atomic.Uint64
	beaconRequests     atomic.Uint64
}

func newMockCollector(options mockOptions) *mockCollector {
	if options.Clock == nil {
		panic("beacon-collector-mock: Clock is required")
	}
	if options.Logger == nil {
		panic("beacon-collector-mock: Logger is required")
	}
	if options.RetryAfter <= 0 {
		options.RetryAfter = protocol.DefaultRetryAfter
	}
	if options.MaxBodySize <= 0 {
		options.MaxBodySize = 8 << 20
	}
	return &mockCollector{
		options:         options,
		attributes:      options.Attributes,
		tooManyRequests: options.TooManyRequests,
	}
}

// routes returns the collector's router.
func (m *mockCollector) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/mbeacon", m.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/mbeacon", m.handleBeacon).Methods(http.MethodPost)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/status", m.handleAdminStatus).Methods(http.MethodGet)
	admin.HandleFunc("/capture", m.handleSetCapture).Methods(http.MethodPost)
	admin.HandleFunc("/throttle", m.handleSetThrottle).Methods(http.MethodPost)
	admin.HandleFunc("/beacons", m.handleListBeacons).Methods(http.MethodGet)
	admin.HandleFunc("/beacons", m.handleClearBeacons).Methods(http.MethodDelete)
	return router
}

// handleStatus answers status and new-session requests.
func (m *mockCollector) handleStatus(writer http.ResponseWriter, request *http.Request) {
	if request.URL.Query().Get(paramNewSession) == "1" {
		m.newSessionRequests.Add(1)
	} else {
		m.statusRequests.Add(1)
	}
	if m.throttled(writer) {
		return
	}
	m.writeAttributes(writer, request)
}

// handleBeacon stores one beacon chunk.
func (m *mockCollector) handleBeacon(writer http.ResponseWriter, request *http.Request) {
	m.beaconRequests.Add(1)
	if m.throttled(writer) {
		return
	}

	encoding, err := compress.Parse(request.Header.Get("Content-Encoding"))
	if err != nil {
		http.Error(writer, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	compressed, err := netutil.ReadBody(request.Body, m.options.MaxBodySize)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	body, err := compress.Decompress(compressed, encoding, m.options.MaxBodySize)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	query := request.URL.Query()
	serverID, _ := strconv.Atoi(query.Get(paramServerID))
	stored := storedBeacon{
		ServerID:      serverID,
		ApplicationID: query.Get(paramApplicationID),
		ClientIP:      request.Header.Get(clientIPHeader),
		Encoding:      encoding.String(),
		Body:          string(body),
		ReceivedAt:    m.options.Clock.Now().UTC(),
	}

	m.mu.Lock()
	m.beacons = append(m.beacons, stored)
	m.storedBytes += len(body)
	m.mu.Unlock()

	m.options.Logger.Debug("beacon received",
		"server_id", serverID,
		"client_ip", stored.ClientIP,
		"encoding", stored.Encoding,
		"wire_bytes", len(compressed),
		"bytes", len(body),
	)
	m.writeAttributes(writer, request)
}

// throttled answers 429 when throttling is on.
func (m *mockCollector) throttled(writer http.ResponseWriter) bool {
	m.mu.Lock()
	throttled := m.tooManyRequests
	m.mu.Unlock()
	if !throttled {
		return false
	}
	seconds := int(m.options.RetryAfter / time.Second)
	writer.Header().Set("Retry-After", strconv.Itoa(seconds))
	http.Error(writer, "too many requests", http.StatusTooManyRequests)
	return true
}

// writeAttributes encodes the current attributes in the format the
// request asks for. The resp query parameter wins over Accept.
func (m *mockCollector) writeAttributes(writer http.ResponseWriter, request *http.Request) {
	m.mu.Lock()
	attributes := m.attributes
	m.mu.Unlock()

	switch responseFormat(request) {
	case "cbor":
		data, err := codec.Marshal(protocol.DocumentFrom(attributes))
		if err != nil {
			http.Error(writer, err.Error(), http.StatusInternalServerError)
			return
		}
		writer.Header().Set("Content-Type", protocol.ContentTypeCBOR)
		writer.Write(data)
	case "kv":
		writer.Header().Set("Content-Type", protocol.ContentTypeKeyValue)
		writer.Write([]byte(protocol.KeyValueBody(attributes)))
	default:
		writeJSON(writer, http.StatusOK, protocol.DocumentFrom(attributes))
	}
}

func responseFormat(request *http.Request) string {
	if format := request.URL.Query().Get(paramResponseFormat); format == "cbor" || format == "kv" {
		return format
	}
	switch request.Header.Get("Accept") {
	case protocol.ContentTypeCBOR:
		return "cbor"
	case protocol.ContentTypeKeyValue:
		return "kv"
	default:
		return "json"
	}
}

func (m *mockCollector) handleAdminStatus(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, m.status())
}

func (m *mockCollector) status() statusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return statusSnapshot{
		Capture:            m.attributes.Capture(),
		TooManyRequests:    m.tooManyRequests,
		StatusRequests:     m.statusRequests.Load(),
		NewSessionRequests: m.newSessionRequests.Load(),
		BeaconRequests:     m.beaconRequests.Load(),
		StoredBeacons:      len(m.beacons),
		StoredBytes:        m.storedBytes,
	}
}

// handleSetCapture sets the announced capture flag from ?enabled=.
func (m *mockCollector) handleSetCapture(writer http.ResponseWriter, request *http.Request) {
	enabled, ok := boolParam(writer, request, "enabled")
	if !ok {
		return
	}
	m.mu.Lock()
	m.attributes = m.attributes.WithCapture(enabled)
	m.mu.Unlock()
	m.options.Logger.Info("capture changed", "enabled", enabled)
	writeJSON(writer, http.StatusOK, m.status())
}

// handleSetThrottle switches 429 answers on or off from ?enabled=.
func (m *mockCollector) handleSetThrottle(writer http.ResponseWriter, request *http.Request) {
	enabled, ok := boolParam(writer, request, "enabled")
	if !ok {
		return
	}
	m.mu.Lock()
	m.tooManyRequests = enabled
	m.mu.Unlock()
	m.options.Logger.Info("throttling changed", "enabled", enabled)
	writeJSON(writer, http.StatusOK, m.status())
}

// handleListBeacons returns stored beacons, optionally filtered by
// ?client_ip=.
func (m *mockCollector) handleListBeacons(writer http.ResponseWriter, request *http.Request) {
	clientIP := request.URL.Query().Get("client_ip")
	m.mu.Lock()
	beacons := make([]storedBeacon, 0, len(m.beacons))
	for _, stored := range m.beacons {
		if clientIP == "" || stored.ClientIP == clientIP {
			beacons = append(beacons, stored)
		}
	}
	m.mu.Unlock()
	writeJSON(writer, http.StatusOK, beacons)
}

func (m *mockCollector) handleClearBeacons(writer http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.beacons = nil
	m.storedBytes = 0
	m.mu.Unlock()
	writer.WriteHeader(http.StatusNoContent)
}

func boolParam(writer http.ResponseWriter, request *http.Request, name string) (bool, bool) {
	value, err := strconv.ParseBool(request.URL.Query().Get(name))
	if err != nil {
		http.Error(writer, name+" must be a boolean", http.StatusBadRequest)
		return false, false
	}
	return value, true
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", protocol.ContentTypeJSON)
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}
