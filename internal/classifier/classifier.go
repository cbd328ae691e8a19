// Package classifier provides zero-shot text classification over HTTP.
// The router uses it to pick a backend from the opening words of a turn;
// when the service is down the router falls back to its default provider,
// so every failure here surfaces as ErrUnavailable rather than a hard stop.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable marks any failure to obtain a classification: transport
// errors, non-200 responses, and empty result sets all collapse into it.
var ErrUnavailable = errors.New("classifier unavailable")

// Prediction is the top-scoring label for one input.
type Prediction struct {
	Label string
	Score float64
}

// Classifier assigns one of the candidate labels to a text.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (Prediction, error)
}

// DefaultTimeout bounds one classification round trip. Routing happens on
// the critical path of every turn, so this is deliberately short.
const DefaultTimeout = 10 * time.Second

// HTTPClassifier calls a hosted zero-shot classification endpoint
// (Hugging Face inference API wire format).
type HTTPClassifier struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPClassifier builds a client for the given endpoint. The token is
// optional; self-hosted inference servers usually run without auth.
func NewHTTPClassifier(endpoint, token string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type classifyRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
		MultiLabel      bool     `json:"multi_label"`
	} `json:"parameters"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify implements Classifier.
func (c *HTTPClassifier) Classify(ctx context.Context, text string, labels []string) (Prediction, error) {
	if c.endpoint == "" {
		return Prediction{}, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}

	var reqBody classifyRequest
	reqBody.Inputs = text
	reqBody.Parameters.CandidateLabels = labels

	data, err := json.Marshal(reqBody)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var body classifyResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return Prediction{}, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	if len(body.Labels) == 0 || len(body.Scores) == 0 {
		return Prediction{}, fmt.Errorf("%w: response carried no labels", ErrUnavailable)
	}

	return Prediction{Label: body.Labels[0], Score: body.Scores[0]}, nil
}
