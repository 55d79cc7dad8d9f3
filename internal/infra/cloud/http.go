package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// HTTPClient talks JSON over HTTP to the central service.
type HTTPClient struct {
	baseURL  string
	deviceID string
	timeout  time.Duration
	netctl   *NetworkController

	mu         sync.RWMutex
	httpClient *http.Client
}

// NewHTTPClient creates the central-service client. When a network
// controller is given, the client rebuilds its transport on resolver or
// interface rotation.
func NewHTTPClient(baseURL, deviceID string, timeout time.Duration, netctl *NetworkController) *HTTPClient {
	c := &HTTPClient{
		baseURL:  baseURL,
		deviceID: deviceID,
		timeout:  timeout,
		netctl:   netctl,
	}
	c.rebuild()
	if netctl != nil {
		netctl.OnChange(c.rebuild)
	}
	return c
}

func (c *HTTPClient) rebuild() {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if c.netctl != nil {
		transport.DialContext = c.netctl.Dialer().DialContext
	}

	c.mu.Lock()
	c.httpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}
	c.mu.Unlock()
}

func (c *HTTPClient) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

type pushRequest struct {
	DeviceID  string          `json:"deviceId"`
	ID        string          `json:"id"`
	Kind      domain.ItemKind `json:"kind"`
	Priority  domain.Priority `json:"priority"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	Attempts  int             `json:"attempts"`
}

// Push delivers one queue item. The central service treats repeated ids as
// duplicates and acks them without error, so redelivery after a
// false-negative timeout is safe.
func (c *HTTPClient) Push(ctx context.Context, item *domain.QueueItem) (*Ack, error) {
	body, err := json.Marshal(pushRequest{
		DeviceID:  c.deviceID,
		ID:        item.ID,
		Kind:      item.Kind,
		Priority:  item.Priority,
		Payload:   item.Payload,
		CreatedAt: item.CreatedAt,
		Attempts:  item.Attempts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ack: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push rejected: status %d: %s", resp.StatusCode, string(data))
	}

	var ack Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("parse ack: %w", err)
	}
	return &ack, nil
}
