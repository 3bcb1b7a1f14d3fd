// Package servicenow is a minimal client for the ServiceNow Table API.
//
// Each call maps to exactly one HTTP request against
// <instance>/api/now/table/<collection>[/<sys_id>]. Responses are unwrapped
// from the "result" envelope. Nothing is cached and nothing is retried.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
)

const (
	// DefaultTimeout bounds every request, including reading the body
	DefaultTimeout = 30 * time.Second

	tablePath       = "/api/now/table/"
	maxResponseSize = 10 << 20
	maxErrorExcerpt = 500
)

// Record is a ServiceNow row keyed by field name
type Record map[string]interface{}

// SysID returns the record's sys_id
func (r Record) SysID() string {
	return r.Display("sys_id")
}

// Number returns the record's business key
func (r Record) Number() string {
	return r.Display("number")
}

// Display renders a field as text. Reference fields may arrive either as a
// plain string or as an object carrying display_value and/or value.
func (r Record) Display(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}:
		if dv, ok := v["display_value"].(string); ok && dv != "" {
			return dv
		}
		if val, ok := v["value"].(string); ok {
			return val
		}
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// ListParams narrows a list call
type ListParams struct {
	Query  string
	Limit  int
	Fields []string
}

// RequestObserver receives one observation per HTTP request. status is 0 when
// no response was received.
type RequestObserver interface {
	ObserveRemote(method, collection string, status int, duration time.Duration)
}

// Config holds connection settings
type Config struct {
	Instance string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to one ServiceNow instance
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	observer   RequestObserver
	logger     *logging.StructuredLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client; its Timeout is left untouched
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver attaches a request observer
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger attaches a logger
func WithLogger(l *logging.StructuredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client. An incomplete Config yields a client whose
// every call fails with a configuration error.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.Instance, "/") + tablePath,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewStructuredLogger("servicenow")
	}
	return c
}

// Configured reports whether instance and credentials are all present
func (c *Client) Configured() bool {
	return c.cfg.Instance != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

// Instance returns the instance base URL
func (c *Client) Instance() string {
	return c.cfg.Instance
}

// Close releases idle pooled connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Create inserts a record and returns it as stored
func (c *Client) Create(ctx context.Context, collection string, fields map[string]interface{}) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, collection, "", nil, fields)
	if err != nil {
		return nil, err
	}
	return decodeRecord(collection, raw)
}

// Get fetches a record by sys_id
func (c *Client) Get(ctx context.Context, collection, id string) (Record, error) {
	raw, err := c.do(ctx, http.MethodGet, collection, id, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(collection, raw)
}

// Update applies a partial change to a record
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (Record, error) {
	raw, err := c.do(ctx, http.MethodPatch, collection, id, nil, fields)
	if err != nil {
		return nil, err
	}
	return decodeRecord(collection, raw)
}

// List returns records matching params. A missing or null result is an empty list.
func (c *Client) List(ctx context.Context, collection string, params ListParams) ([]Record, error) {
	query := url.Values{}
	if params.Query != "" {
		query.Set("sysparm_query", params.Query)
	}
	if params.Limit > 0 {
		query.Set("sysparm_limit", strconv.Itoa(params.Limit))
	}
	if len(params.Fields) > 0 {
		query.Set("sysparm_fields", strings.Join(params.Fields, ","))
	}

	raw, err := c.do(ctx, http.MethodGet, collection, "", query, nil)
	if err != nil {
		return nil, err
	}

	if isNull(raw) {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeUnexpectedShape,
			fmt.Sprintf("unexpected list response from ServiceNow for %s", collection), err).
			WithContext(errors.ContextRawResponse, excerpt(raw))
	}
	return records, nil
}

type envelope struct {
	Result json.RawMessage `json:"result"`
}

type failureBody struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, collection, id string, query url.Values, body interface{}) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, errors.NewConfigurationError(errors.ErrCodeServiceNowNotConfigured,
			"ServiceNow is not configured. Please set SERVICENOW_INSTANCE, SERVICENOW_USERNAME and SERVICENOW_PASSWORD.")
	}

	endpoint := c.baseURL + url.PathEscape(collection)
	if id != "" {
		endpoint += "/" + url.PathEscape(id)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.NewSystemError(errors.ErrCodeUnexpectedPanic, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteUnreachable, "failed to build ServiceNow request", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	target := tablePath + collection
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, collection, 0, start)
		remoteErr := errors.NewRemoteError(errors.ErrCodeRemoteUnreachable,
			fmt.Sprintf("ServiceNow request %s %s failed", method, target), err).
			WithDetails(err.Error())
		c.logger.LogRemoteCall(method, target, 0, time.Since(start), remoteErr)
		return nil, remoteErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.observe(method, collection, resp.StatusCode, start)
	if err != nil {
		remoteErr := errors.NewRemoteError(errors.ErrCodeRemoteUnreachable,
			fmt.Sprintf("failed to read ServiceNow response for %s %s", method, target), err).
			WithDetails(err.Error())
		c.logger.LogRemoteCall(method, target, resp.StatusCode, time.Since(start), remoteErr)
		return nil, remoteErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remoteErr := statusError(method, target, resp.StatusCode, data)
		c.logger.LogRemoteCall(method, target, resp.StatusCode, time.Since(start), remoteErr)
		return nil, remoteErr
	}
	c.logger.LogRemoteCall(method, target, resp.StatusCode, time.Since(start), nil)

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteInvalidBody,
			fmt.Sprintf("ServiceNow returned an invalid JSON body for %s %s", method, target), err).
			WithContext(errors.ContextRawResponse, excerpt(data))
	}
	return env.Result, nil
}

func (c *Client) observe(method, collection string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRemote(method, collection, status, time.Since(start))
	}
}

func statusError(method, target string, status int, body []byte) *errors.StructuredError {
	err := errors.NewRemoteError(errors.ErrCodeRemoteHTTPStatus,
		fmt.Sprintf("ServiceNow returned %d %s for %s %s", status, http.StatusText(status), method, target), nil).
		WithContext(errors.ContextStatusCode, status).
		WithContext("method", method).
		WithContext("path", target)

	var failure failureBody
	if json.Unmarshal(body, &failure) == nil && failure.Error.Message != "" {
		detail := failure.Error.Message
		if failure.Error.Detail != "" {
			detail += " (" + failure.Error.Detail + ")"
		}
		return err.WithDetails(detail)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		return err.WithDetails(excerpt(body))
	}
	return err
}

func decodeRecord(collection string, raw json.RawMessage) (Record, error) {
	var record Record
	if isNull(raw) || json.Unmarshal(raw, &record) != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeUnexpectedShape,
			fmt.Sprintf("unexpected response shape from ServiceNow for %s", collection), nil).
			WithContext(errors.ContextRawResponse, excerpt(raw))
	}
	return record, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt] + "..."
	}
	return s
}
