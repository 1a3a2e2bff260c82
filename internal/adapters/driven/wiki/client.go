package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

const (
	// DefaultTimeout is the HTTP timeout for API calls. Uploads and downloads
	// of large files need more than a typical JSON call.
	DefaultTimeout = 5 * time.Minute

	// maxLag is sent with every request so the API refuses work while
	// replicas lag behind.
	maxLag = "5"

	codeBadToken = "badtoken"
	codeMaxLag   = "maxlag"
)

// Config configures a Client.
type Config struct {
	APIURL      string
	Username    string
	AccessToken string
	UserAgent   string

	// RequestsPerSecond throttles all calls. Zero disables throttling.
	RequestsPerSecond float64

	// TransientCodes are the error codes that unwrap to domain.ErrPlatformConflict.
	TransientCodes []string

	// HTTPClient overrides the transport. Its token handling is left as is.
	HTTPClient *http.Client
}

// Client talks to one wiki's Action API.
type Client struct {
	apiURL    string
	username  string
	userAgent string
	http      *http.Client
	limiter   *RateLimiter
	transient map[string]bool

	mu   sync.Mutex
	csrf string
}

// NewClient creates a client. Without an access token only read calls succeed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: wiki api url is required", domain.ErrInvalidInput)
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("%w: wiki api url: %w", domain.ErrInvalidInput, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		if cfg.AccessToken != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
			hc = oauth2.NewClient(context.Background(), ts)
		} else {
			hc = &http.Client{}
		}
		hc.Timeout = DefaultTimeout
	}

	transient := make(map[string]bool, len(cfg.TransientCodes)+1)
	for _, code := range cfg.TransientCodes {
		transient[code] = true
	}
	// A stale token is refetched on the next attempt.
	transient[codeBadToken] = true

	return &Client{
		apiURL:    cfg.APIURL,
		username:  cfg.Username,
		userAgent: cfg.UserAgent,
		http:      hc,
		limiter:   NewRateLimiter(cfg.RequestsPerSecond),
		transient: transient,
	}, nil
}

// Username returns the configured bot account.
func (c *Client) Username() string {
	return c.username
}

// envelope is the part of every response that carries errors.
type envelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// get sends a read request and decodes the response into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params = withDefaults(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, params.Get("action"), out)
}

// post sends a write request signed with the CSRF token.
func (c *Client) post(ctx context.Context, params url.Values, out any) error {
	token, err := c.csrfToken(ctx)
	if err != nil {
		return err
	}
	params = withDefaults(params)
	params.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, params.Get("action"), out)
}

// postFile sends a multipart write request with content in the "file" field.
func (c *Client) postFile(ctx context.Context, params url.Values, filename string, content io.Reader, out any) error {
	token, err := c.csrfToken(ctx)
	if err != nil {
		return err
	}
	params = withDefaults(params)
	params.Set("token", token)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range params {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return fmt.Errorf("writing field %s: %w", key, err)
			}
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copying file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, params.Get("action"), out)
}

func (c *Client) do(req *http.Request, action string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		c.limiter.Backoff(retryAfter(resp))
		return c.apiError("ratelimited", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request: unexpected status %s", action, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	if env.Error != nil {
		switch env.Error.Code {
		case codeBadToken:
			c.resetToken()
		case codeMaxLag:
			c.limiter.Backoff(retryAfter(resp))
		}
		return c.apiError(env.Error.Code, env.Error.Info)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	return nil
}

func (c *Client) apiError(code, info string) *APIError {
	return &APIError{Code: code, Info: info, transient: c.transient[code]}
}

func (c *Client) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.csrf
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var resp struct {
		Query struct {
			Tokens struct {
				CSRF string `json:"csrftoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	params := url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"csrf"}}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("fetching csrf token: %w", err)
	}
	// The anonymous token "+\\" is useless for writes.
	if resp.Query.Tokens.CSRF == "" || resp.Query.Tokens.CSRF == `+\` {
		return "", errors.New("fetching csrf token: not logged in")
	}

	c.mu.Lock()
	c.csrf = resp.Query.Tokens.CSRF
	c.mu.Unlock()
	return resp.Query.Tokens.CSRF, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.csrf = ""
	c.mu.Unlock()
}

func withDefaults(params url.Values) url.Values {
	out := make(url.Values, len(params)+3)
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	out.Set("format", "json")
	out.Set("formatversion", "2")
	out.Set("maxlag", maxLag)
	return out
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
