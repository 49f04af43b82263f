package leadsapi

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

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultRateLimit   = rate.Limit(5)
	defaultBurst       = 10
	maxResponseBytes   = 8 << 20
	requestIDHeader    = "X-Request-ID"
	outcomeOK          = "ok"
	outcomeNetworkFail = "network_error"
)

var (
	// ErrInvalidClientConfig indicates a client configuration that cannot be used.
	ErrInvalidClientConfig = errors.New("leadsapi: invalid client config")

	errMissingBaseURL = errors.New("base url is required")
	errBadBaseURL     = errors.New("base url must be an absolute http(s) url")
	errMissingLeadID  = errors.New("lead id is required")
)

// RequestRecorder receives per-request measurements.
type RequestRecorder interface {
	ObserveRequest(operation, outcome string, duration time.Duration)
}

// Config bundles the settings of a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  rate.Limit
	Burst      int
	Logger     *zap.Logger
	Recorder   RequestRecorder
	RequestID  func() string
	Clock      func() time.Time
}

// Client talks to the remote leads service. It satisfies leads.Transport and
// is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
	recorder   RequestRecorder
	requestID  func() string
	clock      func() time.Time
}

var _ leads.Transport = (*Client)(nil)

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.BaseURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingBaseURL)
	}
	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil || (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errBadBaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requestID := cfg.RequestID
	if requestID == nil {
		requestID = uuid.NewString
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		recorder:   cfg.Recorder,
		requestID:  requestID,
		clock:      clock,
	}, nil
}

// FetchLeads returns every lead known to the service.
func (c *Client) FetchLeads(ctx context.Context) ([]leads.Lead, error) {
	body, err := c.do(ctx, opFetchLeads, http.MethodGet, "/leads", nil)
	if err != nil {
		return nil, err
	}

	// An empty body or any JSON value other than an array means no leads.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []leads.Lead{}, nil
	}
	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, &Error{Op: opFetchLeads, Status: http.StatusOK, Kind: KindGeneric, Detail: "invalid response body"}
		}
		return []leads.Lead{}, nil
	}

	var records []leads.Lead
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &Error{Op: opFetchLeads, Status: http.StatusOK, Kind: KindGeneric, Detail: "invalid response body", Err: err}
	}
	if records == nil {
		records = []leads.Lead{}
	}
	return records, nil
}

// PatchLead sends a partial update and returns the stored lead.
func (c *Client) PatchLead(ctx context.Context, id string, patch leads.Patch) (leads.Lead, error) {
	if strings.TrimSpace(id) == "" {
		return leads.Lead{}, &Error{Op: opPatchLead, Kind: KindGeneric, Detail: errMissingLeadID.Error(), Err: errMissingLeadID}
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return leads.Lead{}, &Error{Op: opPatchLead, Kind: KindGeneric, Detail: "invalid patch", Err: err}
	}

	body, err := c.do(ctx, opPatchLead, http.MethodPatch, "/leads/"+url.PathEscape(id), payload)
	if err != nil {
		return leads.Lead{}, err
	}

	var updated leads.Lead
	if len(bytes.TrimSpace(body)) == 0 {
		return updated, nil
	}
	if err := json.Unmarshal(body, &updated); err != nil {
		return leads.Lead{}, &Error{Op: opPatchLead, Status: http.StatusOK, Kind: KindGeneric, Detail: "invalid response body", Err: err}
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload []byte) ([]byte, error) {
	started := c.clock()
	outcome := outcomeNetworkFail
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveRequest(operation, outcome, c.clock().Sub(started))
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Op: operation, Kind: KindGeneric, Detail: "request throttled", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, &Error{Op: operation, Kind: KindGeneric, Detail: "invalid request", Err: err}
	}
	requestID := c.requestID()
	request.Header.Set("Accept", "application/json")
	request.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("leads service unreachable",
			zap.String("operation", operation),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &Error{Op: operation, Kind: KindGeneric, Detail: "network error", Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Op: operation, Status: response.StatusCode, Kind: KindGeneric, Detail: "failed to read response", Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		kind := KindGeneric
		if operation == opPatchLead {
			kind = classifyStatus(response.StatusCode)
		}
		outcome = string(kind)
		apiErr := &Error{
			Op:     operation,
			Status: response.StatusCode,
			Kind:   kind,
			Detail: errorDetail(decodeErrorBody(body), response.StatusCode),
		}
		c.logger.Warn("leads service rejected request",
			zap.String("operation", operation),
			zap.String("request_id", requestID),
			zap.Int("status", response.StatusCode),
			zap.String("detail", apiErr.Detail))
		return nil, apiErr
	}

	outcome = outcomeOK
	c.logger.Debug("leads service request completed",
		zap.String("operation", operation),
		zap.String("request_id", requestID),
		zap.Int("status", response.StatusCode),
		zap.Int("bytes", len(body)))
	return body, nil
}

func decodeErrorBody(body []byte) map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	return decoded
}
