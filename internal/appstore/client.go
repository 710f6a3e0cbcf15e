package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/geocoder89/certhub/internal/observability"
)

var ErrReceiptInvalid = errors.New("receipt rejected by live and sandbox verification")

type Config struct {
	LiveURL      string
	SandboxURL   string
	SharedSecret string
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
	prom       *observability.Prom
}

func NewClient(cfg Config, log *slog.Logger, prom *observability.Prom) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:  log,
		prom: prom,
	}
}

// Verify checks the receipt against production first and falls back to the
// sandbox when production does not answer with status 0. Transport failures
// are returned as errors; a receipt neither environment accepts is
// ErrReceiptInvalid.
func (c *Client) Verify(ctx context.Context, receiptData string) (*Receipt, error) {
	envs := []struct {
		name string
		url  string
	}{
		{"live", c.cfg.LiveURL},
		{"sandbox", c.cfg.SandboxURL},
	}

	for _, env := range envs {
		resp, err := c.post(ctx, env.url, receiptData)
		if err != nil {
			c.prom.ObserveReceipt(env.name, "error")
			return nil, fmt.Errorf("appstore %s: %w", env.name, err)
		}

		if resp.Status == 0 && resp.Receipt != nil {
			c.prom.ObserveReceipt(env.name, "ok")
			return resp.Receipt, nil
		}

		c.prom.ObserveReceipt(env.name, "rejected")
		c.log.DebugContext(ctx, "receipt_rejected",
			"environment", env.name,
			"status", resp.Status,
		)
	}

	return nil, ErrReceiptInvalid
}

func (c *Client) post(ctx context.Context, url, receiptData string) (*verifyResponse, error) {
	body, err := json.Marshal(verifyRequest{ReceiptData: receiptData, Password: c.cfg.SharedSecret})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status: " + res.Status)
	}

	var out verifyResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	return &out, nil
}
