package cloud

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// GRPCProber probes the central service over the standard gRPC health
// checking protocol. Used when the central service exposes a gRPC endpoint;
// diagnostics match what the HTTP prober reports.
type GRPCProber struct {
	endpoint string
	timeout  time.Duration
	conn     *grpc.ClientConn
	health   grpc_health_v1.HealthClient
}

// NewGRPCProber dials the endpoint; TLS is inferred from the scheme or a
// :443 suffix.
func NewGRPCProber(ctx context.Context, endpoint string, timeout time.Duration) (*GRPCProber, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCProber{
		endpoint: endpoint,
		timeout:  timeout,
		conn:     conn,
		health:   grpc_health_v1.NewHealthClient(conn),
	}, nil
}

// Probe performs one health check.
func (p *GRPCProber) Probe(ctx context.Context) domain.ProbeResult {
	result := domain.ProbeResult{At: time.Now()}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.health.Check(probeCtx, &grpc_health_v1.HealthCheckRequest{})
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		classifyGRPCError(&result, err)
		return result
	}

	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		result.Err = fmt.Errorf("central service not serving: %s", resp.GetStatus())
	}
	return result
}

// Close cleans up the connection.
func (p *GRPCProber) Close() error {
	return p.conn.Close()
}

func classifyGRPCError(result *domain.ProbeResult, err error) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		result.DNSFailure = true
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		result.Timeout = true
		return
	}
	// grpc wraps deadline errors in status codes
	if strings.Contains(err.Error(), "DeadlineExceeded") || strings.Contains(err.Error(), "context deadline exceeded") {
		result.Timeout = true
	}
}
