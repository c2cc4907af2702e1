package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Headers holds the three rate-limit values observed on a page response.
// Known is false when any of them was missing or unparseable.
type Headers struct {
	Limit     int
	Remaining int
	ResetAt   int64 // Unix seconds
	Known     bool
}

const (
	headerLimit     = "x-rate-limit-limit"
	headerRemaining = "x-rate-limit-remaining"
	headerReset     = "x-rate-limit-reset"
)

// ParseHeaders extracts the rate-limit headers from a page response
func ParseHeaders(h http.Header) Headers {
	limit, okL := parseIntHeader(h, headerLimit)
	remaining, okR := parseIntHeader(h, headerRemaining)
	reset, okT := parseIntHeader(h, headerReset)
	return Headers{
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   int64(reset),
		Known:     okL && okR && okT,
	}
}

func parseIntHeader(h http.Header, key string) (int, bool) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}

// Monitor decides, per response, whether a pagination run may continue.
// The decision is pure: it looks only at the observed header values.
type Monitor struct {
	// HaltThreshold is the fraction of the limit that must remain.
	// Concurrent workers can share an underlying per-credential budget
	// observed with some latency, so the floor stays conservative.
	HaltThreshold float64
	// ContinueOnUnknown treats missing headers as permission to continue.
	// The default fails safe toward not exceeding quota: misclassifying
	// unknown as continue risks account suspension.
	ContinueOnUnknown bool
}

// NewMonitor returns a Monitor with the default 30% floor and the
// fail-safe unknown policy.
func NewMonitor() *Monitor {
	return &Monitor{HaltThreshold: 0.3}
}

// ShouldContinue reports whether the run may fetch another page given the
// observed limit and remaining budget. A zero limit counts as unknown.
func (m *Monitor) ShouldContinue(limit, remaining int) bool {
	if limit <= 0 {
		return m.ContinueOnUnknown
	}
	return float64(remaining) >= m.HaltThreshold*float64(limit)
}

// Evaluate applies ShouldContinue to parsed headers, treating an
// unparseable set per the unknown policy.
func (m *Monitor) Evaluate(h Headers) bool {
	if !h.Known {
		return m.ContinueOnUnknown
	}
	return m.ShouldContinue(h.Limit, h.Remaining)
}

// ResetTime converts the observed reset header to an absolute time.
// Zero time when the headers were unknown.
func (h Headers) ResetTime() time.Time {
	if !h.Known || h.ResetAt <= 0 {
		return time.Time{}
	}
	return time.Unix(h.ResetAt, 0)
}
