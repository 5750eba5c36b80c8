package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/domain/audit"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTPSink posts audit events to the configured operator endpoint.
// Delivery retries with backoff inside the retryable client; a final
// failure is returned to the caller, which logs and moves on.
type HTTPSink struct {
	client   *retryablehttp.Client
	endpoint string
	apiKey   string
	logger   *logger.Logger
}

func NewHTTPSink(cfg *config.Configuration, logger *logger.Logger) *HTTPSink {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	return &HTTPSink{
		client:   client,
		endpoint: cfg.Audit.Endpoint,
		apiKey:   cfg.Audit.APIKey,
		logger:   logger,
	}
}

func (s *HTTPSink) Record(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode audit event").
			Mark(ierr.ErrInternal)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build audit request").
			Mark(ierr.ErrInternal)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deliver audit event").
			Mark(ierr.ErrIntegration)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return ierr.NewError("audit endpoint rejected event").
			WithReportableDetails(map[string]any{"status": resp.StatusCode}).
			Mark(ierr.ErrIntegration)
	}
	return nil
}

// NewSink wires the audit sink from config: HTTP delivery when an
// endpoint is configured, structured logs otherwise.
func NewSink(cfg *config.Configuration, logger *logger.Logger) audit.Sink {
	if cfg.Audit.Endpoint != "" {
		return NewHTTPSink(cfg, logger)
	}
	return NewLogSink(logger)
}
