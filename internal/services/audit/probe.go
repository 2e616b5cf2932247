package audit

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ProbeResult is the outcome of a performance measurement.
type ProbeResult struct {
	// Score is a normalized 0-100 figure.
	Score int
	// LoadTime is the observed full-load duration.
	LoadTime time.Duration
}

// PerformanceProbe measures how fast the audited site loads. A probe
// failure is reported as an error and the audit continues with the
// performance category unknown.
type PerformanceProbe interface {
	Measure(ctx context.Context, pageURL string) (ProbeResult, error)
}

// HTTPProbe measures load time with a plain GET and derives a coarse
// score from the transfer duration. It ignores client-side rendering
// cost; the browser probe covers that when enabled.
type HTTPProbe struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProbe creates a transfer-time probe.
func NewHTTPProbe(timeout time.Duration, userAgent string) *HTTPProbe {
	return &HTTPProbe{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Measure times a full body download of the page.
func (p *HTTPProbe) Measure(ctx context.Context, pageURL string) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ProbeResult{}, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return ProbeResult{}, err
	}
	elapsed := time.Since(start)

	return ProbeResult{
		Score:    scoreFromLoadTime(elapsed),
		LoadTime: elapsed,
	}, nil
}

// scoreFromLoadTime maps a load duration to the 0-100 scale: under one
// second is full marks, beyond ten seconds is zero, linear in between.
func scoreFromLoadTime(d time.Duration) int {
	secs := d.Seconds()
	switch {
	case secs <= 1:
		return 100
	case secs >= 10:
		return 0
	default:
		return int(100 - (secs-1)*100/9)
	}
}
