// Package delivery posts normalized inventory batches and status messages to
// the downstream consumer.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
	"github.com/aluiziolira/go-inventory-bridge/models"
	"github.com/google/uuid"
)

const (
	maxResponseBytes = 1 << 20
	maxDetailLength  = 200
)

// Client delivers payloads to the consumer endpoint.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewClient builds a client configured from cfg.
func NewClient(cfg *config.Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DeliveryTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
	}
}

// WithTransport swaps the underlying round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.httpClient.Transport = rt
	return c
}

// Deliver sends one batch and classifies the outcome. It never returns an
// error; every failure is folded into the result.
func (c *Client) Deliver(ctx context.Context, payload *models.Payload) (result models.DeliveryResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("delivery panic", slog.Any("panic", r))
			result = models.DeliveryResult{
				Outcome:   models.OutcomeRetryableFailure,
				Detail:    fmt.Sprintf("unexpected panic: %v", r),
				ErrorType: "other",
			}
		}
		result.Duration = time.Since(start)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return models.DeliveryResult{
			Outcome:   models.OutcomeFatalFailure,
			Detail:    fmt.Sprintf("encode payload: %v", err),
			ErrorType: "encode",
		}
	}

	statusCode, respBody, err := c.post(ctx, c.cfg.DeliveryTimeout, body)
	if classified := classifyError(err, statusCode); classified != nil {
		return failure(classified, statusCode, respBody)
	}

	var resp models.ConsumerResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return failure(ErrBadResponse{Err: fmt.Errorf("decode response: %w", err)}, statusCode, respBody)
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = resp.Message
		}
		if reason == "" {
			reason = "consumer reported failure"
		}
		return failure(ErrRejected{Err: errors.New(reason)}, statusCode, nil)
	}

	detail := fmt.Sprintf("delivered %d vehicles", len(payload.Vehicles))
	if resp.Stats != nil {
		detail = fmt.Sprintf("%s (processed %d, sold %d)", detail, resp.Stats.Processed, resp.Stats.Sold)
	}
	return models.DeliveryResult{
		Outcome:    models.OutcomeSuccess,
		Detail:     detail,
		StatusCode: statusCode,
		Stats:      resp.Stats,
	}
}

// SendStatus posts a status notification. Errors are returned for logging only.
func (c *Client) SendStatus(ctx context.Context, update models.StatusUpdate) error {
	if update.Type == "" {
		update.Type = models.MessageTypeStatus
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	return c.send(ctx, update)
}

// SendHeartbeat posts a liveness signal.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	return c.send(ctx, models.Heartbeat{Type: models.MessageTypeHeartbeat})
}

func (c *Client) send(ctx context.Context, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	statusCode, _, err := c.post(ctx, c.cfg.StatusTimeout, body)
	return classifyError(err, statusCode)
}

func (c *Client) post(ctx context.Context, timeout time.Duration, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// A truncated success body cannot be trusted; let the decoder reject it.
		slog.Debug("read response body", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, data, nil
}

func failure(err error, statusCode int, body []byte) models.DeliveryResult {
	detail := err.Error()
	if snippet := strings.TrimSpace(string(body)); snippet != "" {
		if len(snippet) > maxDetailLength {
			snippet = snippet[:maxDetailLength] + "..."
		}
		detail = fmt.Sprintf("%s: %s", detail, snippet)
	}
	return models.DeliveryResult{
		Outcome:    outcomeOf(err),
		Detail:     detail,
		StatusCode: statusCode,
		ErrorType:  errorTypeLabel(err),
	}
}
