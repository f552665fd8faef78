// Package vision calls the food-image analysis service. The heavy
// vision model runs in a separate process; this client uploads an image
// and returns the model's candidate food names.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/matchmeal/matchmeal/internal/log"
)

// Analysis is the vision service's verdict for one image.
type Analysis struct {
	Candidates    []string `json:"candidates"`
	BestCandidate string   `json:"best_candidate"`
}

// Classifier identifies food in an image.
type Classifier interface {
	Analyze(ctx context.Context, image []byte, filename string) (Analysis, error)
}

// Client is the HTTP Classifier.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// NewClient creates a vision client for the service at baseURL.
func NewClient(baseURL string, logger log.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vision: base URL is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		// Vision inference is slow; allow generous room before giving up.
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

// Analyze uploads image and returns the candidate food names.
func (c *Client) Analyze(ctx context.Context, image []byte, filename string) (Analysis, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: building upload: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Analysis{}, fmt.Errorf("vision: building upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Analysis{}, fmt.Errorf("vision: building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/vision/analyze", &body)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: calling service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("vision: service returned status %d", resp.StatusCode)
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return Analysis{}, fmt.Errorf("vision: decoding response: %w", err)
	}

	c.logger.Debug("image analyzed", "best", analysis.BestCandidate, "candidates", len(analysis.Candidates))
	return analysis, nil
}
