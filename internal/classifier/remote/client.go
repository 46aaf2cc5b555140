// Package remote talks to a classifier sidecar over HTTP JSON. The sidecar
// hosts the similarity and top-k category models.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/venter/pkg/models"
)

// Client implements models.Classifier against the sidecar API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a sidecar client. timeout bounds each HTTP exchange.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "remote" }

type classifyRequest struct {
	InputPath     string              `json:"input_path"`
	Variant       string              `json:"variant"`
	DomainPresent bool                `json:"domain_present"`
	Domains       map[string][]string `json:"domains,omitempty"`
}

type topCategoriesRequest struct {
	Texts []string `json:"texts"`
	K     int      `json:"k"`
}

type topCategoriesResponse struct {
	Predictions []models.RankedCategories `json:"predictions"`
}

func (c *Client) Classify(ctx context.Context, req models.ClassifyRequest) (*models.Result, error) {
	body := classifyRequest{
		InputPath:     req.InputPath,
		Variant:       string(req.Variant),
		DomainPresent: req.DomainPresent,
	}
	if len(req.Domains) > 0 {
		body.Domains = make(map[string][]string, len(req.Domains))
		for _, dk := range req.Domains {
			body.Domains[dk.Domain] = dk.Keywords
		}
	}

	var result models.Result
	if err := c.post(ctx, "/v1/classify", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TopCategories(ctx context.Context, texts []string, k int) ([]models.RankedCategories, error) {
	var resp topCategoriesResponse
	if err := c.post(ctx, "/v1/top-categories", topCategoriesRequest{Texts: texts, K: k}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("%w: %d predictions for %d texts",
			models.ErrInvalidResponse, len(resp.Predictions), len(texts))
	}
	return resp.Predictions, nil
}

// Ready checks the sidecar health endpoint.
func (c *Client) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: classifier not ready (status %d)", models.ErrClassifierUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", models.ErrInferenceTimeout, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", models.ErrClassifierUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", models.ErrInvalidResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", models.ErrInvalidResponse, path, err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrClassifierUnavailable, err)
}

// Compile-time check that Client implements models.Classifier.
var _ models.Classifier = (*Client)(nil)
