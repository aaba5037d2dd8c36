// Package sender submits contract requests to the signing provider and
// maps the exchange to a closed set of outcomes.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/contract"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/signer"
)

// DefaultBaseURL is the provider's API root.
const DefaultBaseURL = "https://esignatures.io/api"

const maxResponseBody = 1 << 20 // 1MB cap on the provider response

// Client submits contract requests. It holds one *http.Client and is safe
// for concurrent use.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	tracer  *observability.Tracer
	metrics *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for submissions.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client = &http.Client{Timeout: d} }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client authenticated by token.
func New(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}

	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		tracer:  observability.NewTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

type response struct {
	Status string `json:"status"`
	Data   struct {
		Contract struct {
			ID      uuid.UUID `json:"id"`
			Signers []struct {
				ID     uuid.UUID `json:"id"`
				Name   string    `json:"name"`
				Email  string    `json:"email"`
				Mobile string    `json:"mobile"`
			} `json:"signers"`
		} `json:"contract"`
	} `json:"data"`
}

// Send submits req once. It never returns an error: every result,
// including transport failures, is an Outcome. Cancellation is observed
// before the call and again before and after reading the response body;
// the HTTP exchange itself runs to completion.
func (c *Client) Send(ctx context.Context, req *contract.Request) Outcome {
	if ctx.Err() != nil {
		return c.finish(ctx, nil, time.Now(), &Cancelled{}, 0)
	}

	ctx, span := c.tracer.StartSubmitSpan(ctx, req.TemplateID().String(), req.Title(), len(req.Signers()))
	start := time.Now()

	outcome, status := c.exchange(ctx, req)

	c.tracer.EndSubmitSpan(span, outcome.Kind(), status, outcomeErr(outcome))
	return c.finish(ctx, req, start, outcome, status)
}

func (c *Client) exchange(ctx context.Context, req *contract.Request) (Outcome, int) {
	body, err := req.Payload()
	if err != nil {
		return &Failed{Err: err}, 0
	}

	endpoint := c.baseURL + "/contracts?token=" + url.QueryEscape(c.token)
	httpReq, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &Failed{Err: fmt.Errorf("sender: create request: %w", err)}, 0
	}
	httpReq.Header.Set("Content-Type", "text/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &Failed{Err: fmt.Errorf("sender: post contract: %w", redact(err))}, 0
	}
	defer resp.Body.Close()

	if ctx.Err() != nil {
		return &Cancelled{}, resp.StatusCode
	}

	if resp.StatusCode != http.StatusOK {
		return rejected(resp), resp.StatusCode
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &Failed{Err: fmt.Errorf("sender: read response: %w", err)}, resp.StatusCode
	}

	if ctx.Err() != nil {
		return &Cancelled{}, resp.StatusCode
	}

	return correlate(req, raw), resp.StatusCode
}

func correlate(req *contract.Request, raw []byte) Outcome {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return &Failed{Err: fmt.Errorf("%w: %v", ErrBadResponse, err)}
	}
	if r.Data.Contract.ID == uuid.Nil {
		return &Failed{Err: fmt.Errorf("%w: missing data.contract.id", ErrBadResponse)}
	}

	ids := make(map[string]uuid.UUID, len(r.Data.Contract.Signers))
	for _, s := range r.Data.Contract.Signers {
		ids[signer.Hash(s.Name, s.Email, s.Mobile)] = s.ID
	}

	signers, err := req.Correlate(ids)
	if err != nil {
		return &Failed{Err: fmt.Errorf("%w: %v", ErrSignerMismatch, err)}
	}

	return &Accepted{ContractID: r.Data.Contract.ID, Signers: signers}
}

func (c *Client) finish(ctx context.Context, req *contract.Request, start time.Time, o Outcome, status int) Outcome {
	c.metrics.RecordSubmission(o.Kind(), time.Since(start).Seconds())

	attrs := []any{"outcome", o.Kind()}
	if req != nil {
		attrs = append(attrs, "template_id", req.TemplateID().String())
	}
	if status != 0 {
		attrs = append(attrs, "status_code", status)
	}

	switch v := o.(type) {
	case *Accepted:
		c.logger.InfoContext(ctx, "contract submitted", append(attrs, "contract_id", v.ContractID.String())...)
	case *Rejected:
		c.logger.WarnContext(ctx, "contract rejected", append(attrs, "reason", v.Reason)...)
	case *Failed:
		c.logger.ErrorContext(ctx, "contract submission failed", append(attrs, "error", v.Err)...)
	case *Cancelled:
		c.logger.InfoContext(ctx, "contract submission cancelled", attrs...)
	}
	return o
}

func outcomeErr(o Outcome) error {
	switch v := o.(type) {
	case *Failed:
		return v.Err
	case *Rejected:
		return fmt.Errorf("sender: rejected with %d %s", v.StatusCode, v.Reason)
	}
	return nil
}

// redact strips the token-bearing URL from transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s contracts: %w", uerr.Op, uerr.Err)
	}
	return err
}
