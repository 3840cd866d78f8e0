package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"
	"moul.io/http2curl"

	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

// mirrorPath matches the subtitle download paths, where a non-2xx status only
// means the mirror has no file.
var mirrorPath = regexp.MustCompile(`^/sub\d+/`)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues requests against the site. Headers set through SetHeader are
// shared by every request made with this client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *logrus.Logger

	mu      sync.RWMutex // Protects headers
	headers http.Header
}

// New creates a new internal HTTP client.
func New(baseURL, userAgent string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		headers:    make(http.Header),
	}
}

// BaseURL returns the site root used for requests.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a header sent on every later request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// DelHeader removes a shared header.
func (c *Client) DelHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(key)
}

// Header returns the current value of a shared header.
func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(key)
}

// Get makes a GET request. params, when not nil, is encoded as the query
// string with go-querystring.
func (c *Client) Get(ctx context.Context, path string, params interface{}) (*Response, error) {
	var rawQuery string
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query parameters: %w", err)
		}
		rawQuery = v.Encode()
	}
	return c.doRequest(ctx, http.MethodGet, path, rawQuery, nil)
}

// PostForm makes a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, path, "", form)
}

// doRequest performs the actual HTTP request and reads the whole body.
func (c *Client) doRequest(ctx context.Context, method, path, rawQuery string, form url.Values) (*Response, error) {
	fullURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	fullURL.Path += path
	fullURL.RawQuery = rawQuery

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	c.mu.RLock()
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.mu.RUnlock()

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		if curl, err := http2curl.GetCurlCommand(req); err == nil {
			c.logger.Debugf("request: %s", curl.String())
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", coreErrors.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", coreErrors.ErrNetwork, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("response received")

	if !out.OK() && !mirrorPath.MatchString(path) {
		return out, fmt.Errorf("%w: %s %s returned %d", coreErrors.ErrUnexpectedStatus, method, path, resp.StatusCode)
	}
	return out, nil
}

// IsTransport reports whether err came from the transport layer rather than
// from the site's answer.
func IsTransport(err error) bool {
	return errors.Is(err, coreErrors.ErrNetwork)
}
