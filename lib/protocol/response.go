// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter applies to a 429 without a usable Retry-After
// header.
const DefaultRetryAfter = 10 * time.Minute

// StatusResponse is a successful collector response.
type StatusResponse struct {
	StatusCode int
	Headers    http.Header
	Attributes Attributes
}

// ResponseError is a collector response with status code 400 or above.
type ResponseError struct {
	StatusCode int

	// RetryAfter is only meaningful for 429 Too Many Requests.
	RetryAfter time.Duration
}

func (e *ResponseError) Error() string {
	if e.TooManyRequests() {
		return fmt.Sprintf("collector responded %d, retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("collector responded %d", e.StatusCode)
}

// TooManyRequests reports whether the collector is throttling the SDK.
func (e *ResponseError) TooManyRequests() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// NewResponseError builds the error for an unsuccessful response,
// reading Retry-After from headers when the status is 429.
func NewResponseError(statusCode int, headers http.Header) *ResponseError {
	responseError := &ResponseError{StatusCode: statusCode}
	if statusCode == http.StatusTooManyRequests {
		responseError.RetryAfter = ParseRetryAfter(headers.Get("Retry-After"))
	}
	return responseError
}

// ParseRetryAfter parses a Retry-After value given in seconds. Missing,
// malformed or negative values yield DefaultRetryAfter.
func ParseRetryAfter(value string) time.Duration {
	seconds, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || seconds < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

// IsTooManyRequests reports whether err is, or wraps, a 429 response.
func IsTooManyRequests(err error) bool {
	var responseError *ResponseError
	return errors.As(err, &responseError) && responseError.TooManyRequests()
}

// RetryAfter returns the Retry-After interval of a wrapped 429
// response, or 0 if err is not one.
func RetryAfter(err error) time.Duration {
	var responseError *ResponseError
	if errors.As(err, &responseError) && responseError.TooManyRequests() {
		return responseError.RetryAfter
	}
	return 0
}
