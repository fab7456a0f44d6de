// Package identity talks to a Firebase-compatible identity REST API for
// email/password accounts, and holds the per-process user session.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/logger"
)

const IDENTITY_TOOLKIT_URL string = "https://identitytoolkit.googleapis.com/v1"
const SECURE_TOKEN_URL string = "https://securetoken.googleapis.com/v1"

const DefaultTimeout = 20 * time.Second

const maxBody = 1 << 20

// Endpoints are the two API roots every call is made against.
type Endpoints struct {
	IdentityToolkit string
	SecureToken     string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{IdentityToolkit: IDENTITY_TOOLKIT_URL, SecureToken: SECURE_TOKEN_URL}
}

// EmulatorEndpoints routes calls to a local auth emulator at host ("localhost:9099").
func EmulatorEndpoints(host string) Endpoints {
	base := "http://" + strings.TrimSuffix(host, "/")
	return Endpoints{
		IdentityToolkit: base + "/identitytoolkit.googleapis.com/v1",
		SecureToken:     base + "/securetoken.googleapis.com/v1",
	}
}

// EndpointsFor picks the emulator when host is set and production otherwise.
func EndpointsFor(emulatorHost string) Endpoints {
	if strings.TrimSpace(emulatorHost) == "" {
		return DefaultEndpoints()
	}
	return EmulatorEndpoints(strings.TrimSpace(emulatorHost))
}

type Client struct {
	apiKey    string
	endpoints Endpoints
	http      *http.Client
	retry     RetryPolicy
	timeout   time.Duration
	log       logger.Logger
	sleep     func(context.Context, time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithTimeout bounds each attempt, not the call as a whole.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		endpoints: DefaultEndpoints(),
		http:      &http.Client{},
		retry:     DefaultRetryPolicy(),
		timeout:   DefaultTimeout,
		log:       logger.Nop(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call describes one endpoint. Non-idempotent calls are only retried when
// the provider answered 429, since anything else may have taken effect.
type call struct {
	name       string
	url        string
	idempotent bool
}

func (c *Client) toolkit(method string, idempotent bool) call {
	return call{name: method, url: c.endpoints.IdentityToolkit + "/accounts:" + method, idempotent: idempotent}
}

func (c *Client) token() call {
	return call{name: "token", url: c.endpoints.SecureToken + "/token", idempotent: true}
}

// post sends payload as JSON and decodes a 2xx body into out, applying the
// retry policy. It is the only place requests are made.
func (c *Client) post(ctx context.Context, cl call, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s request", cl.name)
	}
	target := cl.url + "?key=" + url.QueryEscape(c.apiKey)

	attempts := c.retry.attempts()
	for attempt := 1; ; attempt++ {
		status, err := c.once(ctx, target, body, out)
		if err == nil {
			c.log.Debug("identity call succeeded", "call", cl.name, "attempt", attempt, "status", status)
			return nil
		}
		if ctx.Err() != nil {
			return c.contextError(ctx, cl, err)
		}

		retry := attempt < attempts &&
			c.retry.ShouldRetry(status, err) &&
			(cl.idempotent || status == http.StatusTooManyRequests)
		if !retry {
			c.log.Warn("identity call failed", "call", cl.name, "attempt", attempt, "status", status, "err", err)
			if attempt > 1 {
				return errors.Wrapf(err, "%s failed after %d attempts", cl.name, attempt)
			}
			return errors.Wrap(err, cl.name)
		}

		delay := c.retry.Delay(attempt)
		c.log.Info("retrying identity call", "call", cl.name, "attempt", attempt, "status", status, "delay", delay, "err", err)
		if err := c.sleep(ctx, delay); err != nil {
			return c.contextError(ctx, cl, err)
		}
	}
}

func (c *Client) contextError(ctx context.Context, cl call, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(&transportError{kind: ErrTimeout, err: cause}, cl.name)
	}
	return errors.Wrap(ctx.Err(), cl.name)
}

// once makes a single attempt. status is 0 when no response arrived.
func (c *Client) once(ctx context.Context, target string, body []byte, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, parseError(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &transportError{kind: ErrMalformedResponse, err: err}
		}
	}
	return resp.StatusCode, nil
}

func classifyTransport(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &transportError{kind: ErrTimeout, err: err}
	}
	return &transportError{kind: ErrNetwork, err: err}
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseError turns an error response into a ProviderError. JSON bodies carry
// "CODE : detail" messages; anything else (an HTML proxy page, say) is
// reduced to its title or text.
func parseError(status int, contentType string, data []byte) *ProviderError {
	pe := &ProviderError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
		code, detail, found := strings.Cut(eb.Error.Message, " : ")
		pe.Code = strings.TrimSpace(code)
		if found {
			pe.Message = strings.TrimSpace(detail)
		}
		return pe
	}

	text := strings.TrimSpace(string(data))
	if strings.Contains(contentType, "html") || strings.HasPrefix(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data)); err == nil {
			text = doc.Find("title").First().Text()
			if strings.TrimSpace(text) == "" {
				text = doc.Find("body").Text()
			}
		}
	}
	pe.Message = truncate(strings.Join(strings.Fields(text), " "), 200)
	return pe
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
