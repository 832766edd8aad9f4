package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/craftedbits/emojigen/internal/config"
)

// ErrTimeout is returned when the vendor does not finish inside the configured
// wait bound. Callers surface it differently from a generic failure.
var ErrTimeout = errors.New("generation timed out")

// ErrNoOutput is returned when the vendor reports success but yields no image.
var ErrNoOutput = errors.New("no output from model")

type Client struct {
	apiToken     string
	baseURL      string
	modelVersion string
	waitBound    time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	log          *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	waitBound := cfg.GenerationTimeout
	if waitBound <= 0 {
		waitBound = 55 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		apiToken:     cfg.ReplicateAPIToken,
		baseURL:      strings.TrimRight(cfg.ReplicateBaseURL, "/"),
		modelVersion: extractVersion(cfg.ReplicateModel),
		waitBound:    waitBound,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: waitBound + 5*time.Second,
		},
		log: log,
	}
}

// Generate runs a prediction for the prompt and returns the first image URL.
// The whole call is bounded by the configured wait; expiry maps to ErrTimeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitBound)
	defer cancel()

	predictionID, err := c.createPrediction(ctx, prompt)
	if err != nil {
		return "", wrapDeadline(err)
	}

	url, err := c.pollPrediction(ctx, predictionID)
	if err != nil {
		return "", wrapDeadline(err)
	}
	return url, nil
}

func (c *Client) createPrediction(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"version": c.modelVersion,
		"input": map[string]any{
			"prompt": prompt,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post prediction: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("replicate create prediction failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		}
		return "", fmt.Errorf("replicate error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var createResp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rawBody, &createResp); err != nil {
		return "", fmt.Errorf("decode create response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if createResp.ID == "" {
		return "", fmt.Errorf("empty prediction id in response")
	}

	if c.log != nil {
		c.log.Info("replicate prediction created", "prediction_id", createResp.ID)
	}
	return createResp.ID, nil
}

func (c *Client) pollPrediction(ctx context.Context, predictionID string) (string, error) {
	url := c.baseURL + "/v1/predictions/" + predictionID

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("get prediction: %w", err)
		}

		rawBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= 300 {
			if c.log != nil {
				c.log.Error("replicate poll failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
			}
			return "", fmt.Errorf("replicate error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
		}

		var statusResp struct {
			ID     string          `json:"id"`
			Status string          `json:"status"`
			Output json.RawMessage `json:"output"`
			Error  string          `json:"error"`
		}
		if err := json.Unmarshal(rawBody, &statusResp); err != nil {
			return "", fmt.Errorf("decode status response: %w (body=%s)", err, truncateBody(rawBody))
		}

		switch statusResp.Status {
		case "succeeded":
			imageURL, err := firstOutputURL(statusResp.Output)
			if err != nil {
				return "", err
			}
			if c.log != nil {
				c.log.Info("replicate prediction completed", "prediction_id", predictionID, "attempt", attempt+1)
			}
			return imageURL, nil

		case "failed", "canceled":
			msg := statusResp.Error
			if msg == "" {
				msg = "unknown error"
			}
			if c.log != nil {
				c.log.Error("replicate prediction failed", "prediction_id", predictionID, "status", statusResp.Status, "error", msg)
			}
			return "", fmt.Errorf("prediction %s: %s", statusResp.Status, msg)

		case "starting", "processing", "queued":
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.pollInterval):
			}

		default:
			return "", fmt.Errorf("unknown prediction status: %s", statusResp.Status)
		}
	}
}

// firstOutputURL normalizes the vendor output. The model may return a single
// URL string or a sequence of URLs; the first element wins.
func firstOutputURL(output json.RawMessage) (string, error) {
	if len(output) == 0 || string(output) == "null" {
		return "", ErrNoOutput
	}

	var single string
	if err := json.Unmarshal(output, &single); err == nil {
		if single == "" {
			return "", ErrNoOutput
		}
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(output, &many); err == nil {
		if len(many) == 0 || many[0] == "" {
			return "", ErrNoOutput
		}
		return many[0], nil
	}

	return "", fmt.Errorf("unexpected output shape: %s", truncateBody(output))
}

// extractVersion accepts either a bare version hash or the owner/model:version
// form and returns the version part.
func extractVersion(model string) string {
	if idx := strings.LastIndex(model, ":"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

func wrapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
