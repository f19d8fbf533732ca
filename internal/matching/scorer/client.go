// internal/matching/scorer/client.go
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	commonhttp "matching-engine/internal/common/http"
	"matching-engine/internal/common/logger"

	"github.com/sony/gobreaker/v2"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client calls the scoring oracle over HTTP:
//
//	POST {base}/match       {"user_profile": ..., "scholarship": ...}
//	POST {base}/match-bulk  {"user_profile": ..., "scholarships": [...]}
//
// A shared circuit breaker guards both endpoints; while it is open every
// call reports unavailability without touching the network.
type Client struct {
	config     ClientConfig
	http       *commonhttp.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	singleSpec *gojsonschema.Schema
	batchSpec  *gojsonschema.Schema
	logger     logger.Logger
}

func NewClient(cfg ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	singleSpec, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(singleResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile single response schema: %w", err)
	}
	batchSpec, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(batchResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile batch response schema: %w", err)
	}

	c := &Client{
		config:     cfg,
		http:       commonhttp.NewClient(cfg.Timeout),
		singleSpec: singleSpec,
		batchSpec:  batchSpec,
		logger:     log.WithFields(map[string]interface{}{"component": "scorer-client"}),
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "scoring-oracle",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Oracle rejections mean the oracle is up; only transport
		// failures should trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBadResponse)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("scorer breaker state change", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return c, nil
}

func (c *Client) ScoreOne(ctx context.Context, profile map[string]interface{}, item map[string]interface{}) (*Result, error) {
	body, err := c.post(ctx, "/match", map[string]interface{}{
		"user_profile": profile,
		"scholarship":  item,
	}, c.singleSpec)
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBadResponse, err)
	}
	return &res, nil
}

// ScoreBatch scores one profile against many scholarships in a single
// round trip. A partial result (fewer entries than requested) is
// returned as-is; missing items are simply left uncached upstream.
func (c *Client) ScoreBatch(ctx context.Context, profile map[string]interface{}, items []ItemPayload) ([]BatchResult, error) {
	scholarships := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		payload := make(map[string]interface{}, len(it.Features)+1)
		for k, v := range it.Features {
			payload[k] = v
		}
		payload["id"] = it.ID
		scholarships = append(scholarships, payload)
	}

	body, err := c.post(ctx, "/match-bulk", map[string]interface{}{
		"user_profile": profile,
		"scholarships": scholarships,
	}, c.batchSpec)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Results []struct {
			ScholarshipID string                 `json:"scholarship_id"`
			Score         float64                `json:"score"`
			Factors       map[string]interface{} `json:"factors"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBadResponse, err)
	}

	if len(decoded.Results) < len(items) {
		c.logger.Warn("oracle returned partial batch", map[string]interface{}{
			"requested": len(items),
			"returned":  len(decoded.Results),
		})
	}

	out := make([]BatchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, BatchResult{
			ScholarshipID: r.ScholarshipID,
			Score:         r.Score,
			Factors:       r.Factors,
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, spec *gojsonschema.Schema) ([]byte, error) {
	ctx, span := otel.Tracer("scorer-client").Start(ctx, "oracle"+path)
	defer span.End()
	span.SetAttributes(attribute.String("oracle.path", path))

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrBadResponse, err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, path, raw)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}

	result, err := spec.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: response schema violation: %v", ErrBadResponse, result.Errors())
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, path string, raw []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.http.PostJSON(ctx, c.config.BaseURL+path, raw)
	if err != nil {
		// Transport errors and deadline expiry are both transient.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: oracle returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: oracle returned %d", ErrBadResponse, resp.StatusCode)
	}

	return body, nil
}
