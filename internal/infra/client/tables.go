// Package client holds the HTTP adapters for remote dependencies.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

// MaxTablesDocument caps the size of a downloaded table document.
const MaxTablesDocument = 1 << 20

const tablesService = "rate-tables"

// TablesClient downloads the rate table document from a remote URL.
type TablesClient struct {
	httpClient *http.Client
	url        string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewTablesClient creates a new TablesClient.
func NewTablesClient(httpClient *http.Client, url string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TablesClient {
	return &TablesClient{
		httpClient: httpClient,
		url:        url,
		cb:         cb,
		cfg:        cfg,
	}
}

// Source identifies the remote document in table metadata.
func (c *TablesClient) Source() string {
	return "url:" + c.url
}

// Fetch downloads the document with retry, circuit breaker, and tracing.
// 4xx responses are not retried.
func (c *TablesClient) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "TablesClient.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("tables.url", c.url))

	result, err := resilience.Execute(c.cb, func() (any, error) {
		var body []byte
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Accept", "application/yaml, application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: "rate tables", ID: c.url})
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return resilience.Permanent(fmt.Errorf("tables source returned status %d", resp.StatusCode))
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("tables source returned status %d", resp.StatusCode)
			}

			data, err := io.ReadAll(io.LimitReader(resp.Body, MaxTablesDocument+1))
			if err != nil {
				return err
			}
			if len(data) > MaxTablesDocument {
				return resilience.Permanent(fmt.Errorf("tables document exceeds %d bytes", MaxTablesDocument))
			}
			body = data
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return body, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: tablesService, Err: err}
	}

	data := result.([]byte)
	span.SetAttributes(attribute.Int("tables.bytes", len(data)))
	return data, nil
}
