// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/compress"
	"github.com/bureau-foundation/beaconkit/lib/netutil"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// Client performs the collector exchanges.
type Client interface {
	SendStatusRequest(ctx context.Context, serverID int) (*protocol.StatusResponse, error)
	SendNewSessionRequest(ctx context.Context, serverID int) (*protocol.StatusResponse, error)
	SendBeaconRequest(ctx context.Context, serverID int, clientIP string, body []byte) (*protocol.StatusResponse, error)
}

// ResponseFormat is the body format requested from the collector.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatCBOR ResponseFormat = "cbor"
)

// Query parameter names and fixed values of the monitor URL.
const (
	paramType           = "type"
	paramServerID       = "srvid"
	paramApplicationID  = "app"
	paramAgentVersion   = "va"
	paramPlatformType   = "pt"
	paramTechnologyType = "tt"
	paramResponseFormat = "resp"
	paramClientTime     = "cts"
	paramNewSession     = "ns"

	typeMobile       = "m"
	platformTypeGo   = "1"
	clientIPHeader   = "X-Client-IP"
	beaconMediaType  = "text/plain; charset=UTF-8"
	defaultUserAgent = "beaconkit"
)

// Config configures an HTTPClient.
type Config struct {
	// Endpoint is the collector's beacon URL, for example
	// "https://collector.example.com/mbeacon".
	Endpoint string

	ApplicationID  string
	AgentVersion   string
	TechnologyType string

	// Compression is applied to beacon bodies.
	Compression compress.Encoding

	// ResponseFormat defaults to FormatJSON.
	ResponseFormat ResponseFormat

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	// Clock stamps the cts parameter. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// HTTPClient is the production Client.
type HTTPClient struct {
	endpoint   *url.URL
	config     Config
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient validates config and creates a client.
func NewHTTPClient(config Config) (*HTTPClient, error) {
	endpoint, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("collector endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("collector endpoint %q: scheme must be http or https", config.Endpoint)
	}
	if config.ApplicationID == "" {
		return nil, fmt.Errorf("collector: application id is required")
	}
	if config.ResponseFormat == "" {
		config.ResponseFormat = FormatJSON
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPClient{
		endpoint:   endpoint,
		config:     config,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// SendStatusRequest asks the collector for its current attributes.
func (c *HTTPClient) SendStatusRequest(ctx context.Context, serverID int) (*protocol.StatusResponse, error) {
	response, err := c.do(ctx, http.MethodGet, c.monitorURL(serverID, false), "", nil, "")
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	return response, nil
}

// SendNewSessionRequest asks the collector for a new session's
// attributes.
func (c *HTTPClient) SendNewSessionRequest(ctx context.Context, serverID int) (*protocol.StatusResponse, error) {
	response, err := c.do(ctx, http.MethodGet, c.monitorURL(serverID, true), "", nil, "")
	if err != nil {
		return nil, fmt.Errorf("new session request: %w", err)
	}
	return response, nil
}

// SendBeaconRequest uploads one beacon chunk.
func (c *HTTPClient) SendBeaconRequest(ctx context.Context, serverID int, clientIP string, body []byte) (*protocol.StatusResponse, error) {
	compressed, err := compress.Compress(body, c.config.Compression)
	if err != nil {
		return nil, fmt.Errorf("beacon request: %w", err)
	}
	response, err := c.do(ctx, http.MethodPost, c.monitorURL(serverID, false), clientIP, compressed,
		c.config.Compression.ContentEncoding())
	if err != nil {
		return nil, fmt.Errorf("beacon request: %w", err)
	}
	return response, nil
}

func (c *HTTPClient) monitorURL(serverID int, newSession bool) string {
	query := url.Values{}
	query.Set(paramType, typeMobile)
	query.Set(paramServerID, strconv.Itoa(serverID))
	query.Set(paramApplicationID, c.config.ApplicationID)
	query.Set(paramAgentVersion, c.config.AgentVersion)
	query.Set(paramPlatformType, platformTypeGo)
	query.Set(paramTechnologyType, c.config.TechnologyType)
	query.Set(paramResponseFormat, string(c.config.ResponseFormat))
	query.Set(paramClientTime, strconv.FormatInt(clock.TimestampMillis(c.clock), 10))
	if newSession {
		query.Set(paramNewSession, "1")
	}
	target := *c.endpoint
	target.RawQuery = query.Encode()
	return target.String()
}

func (c *HTTPClient) do(ctx context.Context, method, target, clientIP string, body []byte, contentEncoding string) (*protocol.StatusResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", defaultUserAgent)
	if c.config.ResponseFormat == FormatCBOR {
		request.Header.Set("Accept", protocol.ContentTypeCBOR)
	} else {
		request.Header.Set("Accept", protocol.ContentTypeJSON)
	}
	if body != nil {
		request.Header.Set("Content-Type", beaconMediaType)
		if contentEncoding != "" {
			request.Header.Set("Content-Encoding", contentEncoding)
		}
	}
	if clientIP != "" {
		request.Header.Set(clientIPHeader, clientIP)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		excerpt := netutil.ErrorBody(response.Body)
		netutil.Drain(response.Body)
		c.logger.Debug("collector error response",
			"method", method,
			"status", response.StatusCode,
			"body", excerpt,
		)
		return nil, protocol.NewResponseError(response.StatusCode, response.Header)
	}

	data, err := netutil.ReadBody(response.Body, netutil.MaxStatusResponseSize)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	attributes, err := protocol.ParseBody(response.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	return &protocol.StatusResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Header,
		Attributes: attributes,
	}, nil
}
