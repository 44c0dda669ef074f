package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/pkg/logger"
)

// RemoteRenderer posts the analysis summary to an external reasoning
// service, guarded by a circuit breaker. Failures, timeouts, and an
// open circuit all fall back to the deterministic template, so prose
// generation degrades without ever touching the analysis result.
type RemoteRenderer struct {
	endpoint string
	model    string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	fallback *TemplateRenderer
	log      *logger.Logger
}

// renderRequest is the wire payload of the remote reasoning call
type renderRequest struct {
	Model         string   `json:"model"`
	TransactionID string   `json:"transactionId"`
	RiskScore     int      `json:"riskScore"`
	Band          string   `json:"band"`
	Action        string   `json:"action"`
	Factors       []string `json:"factors"`
}

// renderResponse is the wire payload of the remote reasoning reply
type renderResponse struct {
	Reasoning string `json:"reasoning"`
}

// NewRemoteRenderer creates a remote renderer from configuration
func NewRemoteRenderer(cfg config.NarrativeConfig, log *logger.Logger) *RemoteRenderer {
	settings := gobreaker.Settings{
		Name:    "narrative-renderer",
		Timeout: cfg.BreakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
	}

	return &RemoteRenderer{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  gobreaker.NewCircuitBreaker(settings),
		fallback: NewTemplateRenderer(),
		log:      log.Named("remote_renderer"),
	}
}

// Name implements Renderer
func (r *RemoteRenderer) Name() string {
	return r.model
}

// Render implements Renderer. It never returns an error: any remote
// failure degrades to the template output.
func (r *RemoteRenderer) Render(ctx context.Context, input RenderInput) (string, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		text, err := r.call(ctx, input)
		if err != nil {
			return nil, err
		}
		return text, nil
	})
	if err != nil {
		r.log.Warn("remote reasoning unavailable, using template", logger.ErrorField(err))
		return r.fallback.Render(ctx, input)
	}

	return out.(string), nil
}

func (r *RemoteRenderer) call(ctx context.Context, input RenderInput) (string, error) {
	payload, err := json.Marshal(renderRequest{
		Model:         r.model,
		TransactionID: input.Transaction.ID,
		RiskScore:     input.RiskScore,
		Band:          string(input.Band),
		Action:        string(input.Action),
		Factors:       input.Factors,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote renderer returned status %d", resp.StatusCode)
	}

	var decoded renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Reasoning == "" {
		return "", fmt.Errorf("remote renderer returned empty reasoning")
	}

	return decoded.Reasoning, nil
}
