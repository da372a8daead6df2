// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/codec"
	"github.com/bureau-foundation/beaconkit/lib/compress"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, modify func(*Config)) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := Config{
		Endpoint:       server.URL + "/mbeacon",
		ApplicationID:  "app-id",
		AgentVersion:   "1.2.3",
		TechnologyType: "go",
		Clock:          clock.Fake(time.UnixMilli(1_700_000_000_000)),
	}
	if modify != nil {
		modify(&config)
	}
	client, err := NewHTTPClient(config)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func writeJSON(writer http.ResponseWriter, attributes protocol.Attributes) {
	writer.Header().Set("Content-Type", protocol.ContentTypeJSON)
	json.NewEncoder(writer).Encode(protocol.DocumentFrom(attributes))
}

func TestStatusRequestQuery(t *testing.T) {
	requests := make(chan *http.Request, 1)
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		requests <- request
		writeJSON(writer, protocol.JSONDefaults().WithServerID(8))
	}, nil)

	response, err := client.SendStatusRequest(t.Context(), 3)
	if err != nil {
		t.Fatalf("SendStatusRequest: %v", err)
	}
	if response.Attributes.ServerID() != 8 {
		t.Fatalf("ServerID() = %d, want 8", response.Attributes.ServerID())
	}

	request := <-requests
	if request.Method != http.MethodGet || request.URL.Path != "/mbeacon" {
		t.Fatalf("request = %s %s", request.Method, request.URL.Path)
	}
	query := request.URL.Query()
	want := map[string]string{
		"type":  "m",
		"srvid": "3",
		"app":   "app-id",
		"va":    "1.2.3",
		"pt":    "1",
		"tt":    "go",
		"resp":  "json",
		"cts":   "1700000000000",
	}
	for key, value := range want {
		if got := query.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
	if query.Has("ns") {
		t.Error("status request carries ns")
	}
}

func TestNewSessionRequest(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("ns") != "1" {
			http.Error(writer, "missing ns", http.StatusBadRequest)
			return
		}
		writeJSON(writer, protocol.JSONDefaults().WithMultiplicity(5))
	}, nil)

	response, err := client.SendNewSessionRequest(t.Context(), 1)
	if err != nil {
		t.Fatalf("SendNewSessionRequest: %v", err)
	}
	if response.Attributes.Multiplicity() != 5 {
		t.Fatalf("Multiplicity() = %d, want 5", response.Attributes.Multiplicity())
	}
}

func TestBeaconRequestCompressesBody(t *testing.T) {
	type upload struct {
		encoding string
		clientIP string
		body     []byte
	}
	uploads := make(chan upload, 1)
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		uploads <- upload{
			encoding: request.Header.Get("Content-Encoding"),
			clientIP: request.Header.Get("X-Client-IP"),
			body:     body,
		}
		writer.Header().Set("Content-Type", protocol.ContentTypeKeyValue)
		io.WriteString(writer, "type=m&cp=1")
	}, func(config *Config) {
		config.Compression = compress.Zstd
	})

	payload := []byte("vv=3&va=1.2.3&ap=app-id&et=1&na=start")
	if _, err := client.SendBeaconRequest(t.Context(), 1, "10.0.0.1", payload); err != nil {
		t.Fatalf("SendBeaconRequest: %v", err)
	}

	received := <-uploads
	if received.encoding != "zstd" || received.clientIP != "10.0.0.1" {
		t.Fatalf("headers = %q %q", received.encoding, received.clientIP)
	}
	decoded, err := compress.Decompress(received.body, compress.Zstd, 1<<20)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("body = %q, want %q", decoded, payload)
	}
}

func TestCBORResponses(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Accept") != protocol.ContentTypeCBOR || request.URL.Query().Get("resp") != "cbor" {
			http.Error(writer, "wrong format", http.StatusBadRequest)
			return
		}
		data, _ := codec.Marshal(protocol.DocumentFrom(protocol.JSONDefaults().WithCapture(false)))
		writer.Header().Set("Content-Type", protocol.ContentTypeCBOR)
		writer.Write(data)
	}, func(config *Config) {
		config.ResponseFormat = FormatCBOR
	})

	response, err := client.SendStatusRequest(t.Context(), 1)
	if err != nil {
		t.Fatalf("SendStatusRequest: %v", err)
	}
	if response.Attributes.Capture() {
		t.Fatal("Capture() = true, want false")
	}
}

func TestTooManyRequests(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Retry-After", "1234")
		http.Error(writer, "slow down", http.StatusTooManyRequests)
	}, nil)

	_, err := client.SendStatusRequest(t.Context(), 1)
	if !protocol.IsTooManyRequests(err) {
		t.Fatalf("error = %v, want 429", err)
	}
	if protocol.RetryAfter(err) != 1234*time.Second {
		t.Fatalf("RetryAfter = %v, want 1234s", protocol.RetryAfter(err))
	}
}

func TestServerErrorIsNotThrottling(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "boom", http.StatusInternalServerError)
	}, nil)

	_, err := client.SendBeaconRequest(t.Context(), 1, "", []byte("x"))
	if err == nil {
		t.Fatal("SendBeaconRequest succeeded on 500")
	}
	if protocol.IsTooManyRequests(err) {
		t.Fatal("500 reported as 429")
	}
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", protocol.ContentTypeJSON)
		io.WriteString(writer, "{not json")
	}, nil)

	if _, err := client.SendStatusRequest(t.Context(), 1); err == nil {
		t.Fatal("malformed body accepted")
	}
}

func TestNewHTTPClientValidation(t *testing.T) {
	tests := []Config{
		{Endpoint: "ftp://collector/mbeacon", ApplicationID: "a"},
		{Endpoint: "://bad", ApplicationID: "a"},
		{Endpoint: "http://collector/mbeacon"},
	}
	for _, config := range tests {
		if _, err := NewHTTPClient(config); err == nil {
			t.Errorf("NewHTTPClient(%+v) succeeded", config)
		}
	}
}
