package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

// Client talks to the external tier classifier over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Classifier = (*Client)(nil)

// NewClient creates a reusable HTTP client. The per-call deadline comes from
// the caller's context; timeout only caps calls made without one.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Features featurePayload `json:"features"`
}

type featurePayload struct {
	L int     `json:"L"`
	R int     `json:"R"`
	F int     `json:"F"`
	M float64 `json:"M"`
	S float64 `json:"S"`
}

type predictResponse struct {
	Tier         string   `json:"tier"`
	Confidence   *float64 `json:"confidence"`
	ModelVersion string   `json:"model_version"`
}

// Predict sends the L, R, F, M, S vector and parses the label and confidence.
func (c *Client) Predict(ctx context.Context, fv domain.FeatureVector) (domain.Prediction, error) {
	if c == nil || c.http == nil || c.endpoint == "" {
		return domain.Prediction{}, domain.ErrClassifierUnavailable
	}

	payload := predictRequest{Features: featurePayload{L: fv.L, R: fv.R, F: fv.F, M: fv.M, S: fv.S}}

	var resp predictResponse
	if err := c.post(ctx, "/predict", payload, &resp); err != nil {
		return domain.Prediction{}, err
	}

	tier, err := domain.ParseTier(resp.Tier)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrediction, err)
	}
	if resp.Confidence == nil {
		return domain.Prediction{}, fmt.Errorf("%w: confidence missing", domain.ErrInvalidPrediction)
	}

	pred := domain.Prediction{Tier: tier, Confidence: *resp.Confidence, ModelVersion: resp.ModelVersion}
	if err := pred.Validate(); err != nil {
		return domain.Prediction{}, err
	}
	return pred, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%w: %v", domain.ErrClassifierTimeout, err)
		}
		return fmt.Errorf("%w: do request: %v", domain.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %s: %s", domain.ErrClassifierUnavailable,
			resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrInvalidPrediction, err)
	}

	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
