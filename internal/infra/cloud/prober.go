package cloud

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// HTTPProber probes the central service's health endpoint and records the
// diagnostics the monitor's classifier needs.
type HTTPProber struct {
	url     string
	timeout time.Duration
	client  *HTTPClient
}

// NewHTTPProber probes baseURL/health through the shared client so probes
// see the same resolver/interface configuration as pushes.
func NewHTTPProber(baseURL string, timeout time.Duration, client *HTTPClient) *HTTPProber {
	return &HTTPProber{
		url:     baseURL + "/health",
		timeout: timeout,
		client:  client,
	}
}

// Probe performs one health check.
func (p *HTTPProber) Probe(ctx context.Context) domain.ProbeResult {
	result := domain.ProbeResult{At: time.Now()}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.url, nil)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	resp, err := p.client.client().Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		classifyProbeError(&result, err)
		return result
	}
	defer resp.Body.Close()

	n, _ := io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	elapsed := time.Since(start)
	result.Latency = elapsed
	result.StatusCode = resp.StatusCode
	if secs := elapsed.Seconds(); secs > 0 && n > 0 {
		result.BytesPerSec = float64(n) / secs
	}

	if resp.StatusCode >= 500 {
		result.Err = errors.New(resp.Status)
	}
	return result
}

func classifyProbeError(result *domain.ProbeResult, err error) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		result.DNSFailure = true
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		result.Timeout = true
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		result.Timeout = true
	}
}
