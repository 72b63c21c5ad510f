package forecaster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ModelClient asks an external model service for one source's prediction.
// The service exposes GET /predict/{source}?symbol=X&horizon_days=N and
// answers 204 when the model has nothing for that symbol yet.
type ModelClient struct {
	client  *http.Client
	baseURL string
	source  string
	tracer  trace.Tracer
}

func NewModelClient(tracer trace.Tracer, baseURL, source string, timeout time.Duration) *ModelClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ModelClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		source:  source,
		tracer:  tracer,
	}
}

func (c *ModelClient) Source() string {
	return c.source
}

func (c *ModelClient) Predict(ctx context.Context, symbol string, horizonDays int) (*float64, error) {
	_, span := c.tracer.Start(ctx, "model-client.predict")
	defer span.End()

	if c.baseURL == "" {
		return nil, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizon days must be positive, got %d", horizonDays)
	}

	reqURL := fmt.Sprintf("%s/predict/%s?symbol=%s&horizon_days=%d",
		c.baseURL, url.PathEscape(c.source), url.QueryEscape(symbol), horizonDays)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model service error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Symbol      string   `json:"symbol"`
		Source      string   `json:"source"`
		HorizonDays int      `json:"horizon_days"`
		Price       *float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model service response: %w", err)
	}
	if payload.Price == nil {
		return nil, nil
	}
	return payload.Price, nil
}
