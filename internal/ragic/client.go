package ragic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single Ragic API call.
const DefaultTimeout = 30 * time.Second

const userAgent = "ragicflow/1.0"

// conn is the transport shared by the action and trigger clients.
type conn struct {
	base string
	http *resty.Client
	log  *zap.SugaredLogger
}

// ClientOption configures a Client or TriggerClient.
type ClientOption func(*conn)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *conn) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithLogger routes request logging, including resty's own, to log.
func WithLogger(log *zap.SugaredLogger) ClientOption {
	return func(c *conn) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBaseURL sends requests to base instead of the server derived from the credentials.
func WithBaseURL(base string) ClientOption {
	return func(c *conn) {
		if base != "" {
			c.base = strings.TrimRight(base, "/")
		}
	}
}

func newConn(base, apiKey string, opts []ClientOption) conn {
	c := conn{
		base: base,
		http: resty.New().
			SetTimeout(DefaultTimeout).
			SetHeader("Authorization", "Basic "+apiKey).
			SetHeader("User-Agent", userAgent).
			SetCookieJar(nil).
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
		log: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.http.SetLogger(c.log)
	return c
}

func (c *conn) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// execute sends req and turns transport failures and HTTP errors into Go errors.
func (c *conn) execute(req *resty.Request, method, url string) (*resty.Response, error) {
	c.log.Debugw("ragic request", "method", method, "url", url)

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("ragic: %s %s: %w", method, url, err)
	}
	if resp.IsError() {
		c.log.Warnw("ragic request failed", "method", method, "url", url, "status", resp.StatusCode())
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: bodySnippet(resp.Body())}
	}
	return resp, nil
}

// doJSON sends a request whose response must be JSON. A nil body sends none.
func (c *conn) doJSON(ctx context.Context, method, url string, body any) (any, error) {
	req := c.request(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := c.execute(req, method, url)
	if err != nil {
		return nil, err
	}
	return decodeJSON(resp.Body())
}

func decodeJSON(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}

// Client talks to the Ragic HTTP API on behalf of the action node.
type Client struct {
	conn
}

// NewClient returns a client for the server named in creds.
func NewClient(creds Credentials, opts ...ClientOption) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &Client{conn: newConn(creds.BaseURL(), creds.APIKey, opts)}, nil
}

// BaseURL is the scheme and host requests go to.
func (c *Client) BaseURL() string { return c.base }

// CheckCredentials asks the server whether the API key may use the action node.
func (c *Client) CheckCredentials(ctx context.Context) error {
	url := c.base + "/api/n8n/n8nCredentialCheck.jsp" +
		newQuery().add("n8n", "true").add("nodeType", "action").String()
	v, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return credentialCheckError(v)
}
