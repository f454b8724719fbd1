package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/foodrescue/pkg/auth"
	"github.com/angelmondragon/foodrescue/pkg/config"
	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout        = 15 * time.Second
	responseBodyReadLimit = 1 << 20
	tokenExpiryLeeway     = 5 * time.Second
	headerRequestID       = "X-Request-Id"
)

var envelopeSiblings = map[string]struct{}{"success": {}, "message": {}}

var errBaseURLRequired = errors.New("order gateway base url is required")

// Client talks to the remote order gateway REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	metrics    *metrics.GatewayMetrics
	logg       *logger.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default instrumented HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMetrics records request latency and status.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger enables debug logging of completed requests.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   baseURL,
		token:     strings.TrimSpace(cfg.Token),
		userAgent: cfg.UserAgent,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Operation string
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Operation, e.Status)
}

// StatusCode exposes the HTTP status for error dumps.
func (e *APIError) StatusCode() int {
	return e.Status
}

// UpstreamCall exposes the failed operation and its X-Request-Id for error dumps.
func (e *APIError) UpstreamCall() (string, string) {
	return e.Operation, e.RequestID
}

// ServerMessage returns the human readable message the gateway attached to a
// failed response, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
}

func (c *Client) do(ctx context.Context, in call, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "order gateway client not configured")
	}
	if c.token != "" {
		if err := auth.CheckExpiry(c.token, c.now(), tokenExpiryLeeway); err != nil {
			return err
		}
	}

	var body io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+in.operation+" request")
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + "/" + strings.TrimLeft(in.path, "/")
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+in.operation+" request")
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(in.operation, 0, time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute "+in.operation+" request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(in.operation, resp.StatusCode, time.Since(start))
	c.debug(ctx, in.operation, requestID, resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read "+in.operation+" response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Operation: in.operation, Status: resp.StatusCode, Message: extractMessage(raw), RequestID: requestID}
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), apiErr, apiErr.Error())
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode "+in.operation+" response")
	}
	return nil
}

func (c *Client) debug(ctx context.Context, operation, requestID string, status int) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"operation":  operation,
		"request_id": requestID,
		"status":     status,
	})
	c.logg.Debug(ctx, "gateway request completed")
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeGateway
	}
}

// extractMessage reads `message` from a JSON error body, falling back to the
// nested `{error:{message}}` envelope.
func extractMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	var nested struct {
		Message string `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil {
		return strings.TrimSpace(nested.Message)
	}
	var plain string
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &plain) == nil {
		return strings.TrimSpace(plain)
	}
	return ""
}

// unwrapData strips a `{data: ...}` success envelope when present. Only
// `success` and `message` may sit beside `data`. They are copied into an
// object payload that lacks them. A null payload leaves the envelope as is,
// so a top-level `success:false` still reaches the decoder.
func unwrapData(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	data, ok := envelope["data"]
	if !ok {
		return trimmed
	}
	siblings := make(map[string]json.RawMessage, len(envelope)-1)
	for key, value := range envelope {
		if key == "data" {
			continue
		}
		if _, allowed := envelopeSiblings[key]; !allowed {
			return trimmed
		}
		siblings[key] = value
	}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		if len(siblings) > 0 {
			return trimmed
		}
		return data
	}
	if len(siblings) == 0 || len(data) == 0 || data[0] != '{' {
		return data
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return data
	}
	for key, value := range siblings {
		if _, present := payload[key]; !present {
			payload[key] = value
		}
	}
	merged, err := json.Marshal(payload)
	if err != nil {
		return data
	}
	return merged
}
