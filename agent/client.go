package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/machagent/machagent/agent/stream"
	"go.uber.org/zap"
)

// Client is a programmatic client for a machine agent.
type Client struct {
	Logger     *zap.SugaredLogger
	HTTPClient *http.Client

	baseURL                  string
	customizeRetryableClient func(*retryablehttp.Client)
	streamClient             *stream.Client

	waitInterval time.Duration
}

type ClientOption func(c *Client)

func WithClientWaitInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.waitInterval = d
	}
}

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.Logger = l.Named("agent_client").Sugar()
	}
}

func WithCustomizeRetryableClient(f func(r *retryablehttp.Client)) ClientOption {
	return func(c *Client) {
		c.customizeRetryableClient = f
	}
}

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }

func NewClient(log *zap.SugaredLogger, host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		Logger:       log.Named("agent_client"),
		baseURL:      fmt.Sprintf("http://%s:%d", host, port),
		waitInterval: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return 10 * time.Millisecond
	}
	retryClient.RetryMax = 10
	// Only retry transport-level failures. A 5xx from the agent means a spawn
	// failed; re-sending would re-execute the command.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}
	retryClient.Logger = &logAdapter{SugaredLogger: c.Logger}

	if c.customizeRetryableClient != nil {
		c.customizeRetryableClient(retryClient)
	}

	c.HTTPClient = retryClient.StandardClient()
	c.streamClient = &stream.Client{
		HTTPClient: c.HTTPClient,
		URL:        c.baseURL + "/execute/ws",
		Logger:     c.Logger.Named("stream_client"),
	}

	return c
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// postJSON sends a JSON body and decodes the JSON response regardless of
// status code, returning the code so callers can distinguish validation and
// spawn failures from successes.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

// Home fetches the endpoint index.
func (c *Client) Home(ctx context.Context) (*HomeResponse, error) {
	var out HomeResponse
	if err := c.getJSON(ctx, "/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the agent health and host platform.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Execute runs a command synchronously, blocking until it exits. The HTTP
// status code is returned alongside the decoded response.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, int, error) {
	var out ExecuteResponse
	status, err := c.postJSON(ctx, "/execute", req, &out)
	if err != nil {
		return nil, status, err
	}
	return &out, status, nil
}

// ExecuteAsync starts a command without waiting for it to finish.
func (c *Client) ExecuteAsync(ctx context.Context, req ExecuteRequest) (*AsyncExecuteResponse, int, error) {
	var out AsyncExecuteResponse
	status, err := c.postJSON(ctx, "/execute-async", req, &out)
	if err != nil {
		return nil, status, err
	}
	return &out, status, nil
}

// StreamExecute runs a command over the streaming WebSocket endpoint, copying
// output into stdout and stderr as it arrives (either may be nil).
func (c *Client) StreamExecute(ctx context.Context, command string, stdout, stderr io.Writer) (*stream.Result, error) {
	return c.streamClient.Run(ctx, command, stdout, stderr)
}

// WaitForServer polls the health endpoint until the agent responds or ctx is
// done.
func (c *Client) WaitForServer(ctx context.Context) error {
	ticker := time.NewTicker(c.waitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := c.Health(ctx)
			if err == nil {
				c.Logger.Debug("health check succeeded, done waiting for server")
				return nil
			}
			c.Logger.Debugf("got health check error: %s", err)
		}
	}
}
