// Package executor sends a tab's request draft over HTTP and turns the outcome
// into a request.Result. Transport problems are reported as *request.Failure
// values, never as Go errors.
package executor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hpungsan/reqtab/internal/request"
)

// MaxRedirects bounds redirect chains when a draft follows redirects.
const MaxRedirects = 10

// DefaultUserAgent is sent unless the draft sets its own User-Agent.
const DefaultUserAgent = "reqtab/1.0"

// Options configures an Executor.
type Options struct {
	// RateLimitRPS caps executions per second. 0 or less means unlimited.
	RateLimitRPS float64

	// DefaultTimeout applies to drafts without a timeout.
	DefaultTimeout time.Duration

	// Transport overrides the HTTP transport.
	Transport http.RoundTripper

	Now    func() time.Time
	Logger *zerolog.Logger
}

// Executor runs request drafts. It is safe for concurrent use.
type Executor struct {
	follow         *resty.Client
	noFollow       *resty.Client
	limiter        *rate.Limiter
	defaultTimeout time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// New creates an Executor.
func New(opts Options) *Executor {
	e := &Executor{
		limiter:        rate.NewLimiter(rate.Inf, 0),
		defaultTimeout: opts.DefaultTimeout,
		now:            opts.Now,
		log:            zerolog.Nop(),
	}
	if opts.RateLimitRPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), max(1, int(opts.RateLimitRPS)))
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = request.DefaultTimeoutMs * time.Millisecond
	}
	if e.now == nil {
		e.now = time.Now
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("component", "executor").Logger()
	}
	e.follow = e.newClient(opts.Transport, resty.FlexibleRedirectPolicy(MaxRedirects))
	e.noFollow = e.newClient(opts.Transport, resty.RedirectPolicyFunc(stopRedirects))
	return e
}

func (e *Executor) newClient(transport http.RoundTripper, policy resty.RedirectPolicy) *resty.Client {
	c := resty.New().
		SetLogger(restyLogger{log: e.log}).
		SetHeader("User-Agent", DefaultUserAgent).
		SetRedirectPolicy(policy)
	if transport != nil {
		c.SetTransport(transport)
	}
	return c
}

// stopRedirects hands the redirect response back to the caller unchanged.
func stopRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Execute sends the draft and returns a *request.Response for any HTTP reply
// (including 4xx and 5xx) or a *request.Failure when no reply was received.
func (e *Executor) Execute(ctx context.Context, d request.Draft) request.Result {
	method := request.NormalizeMethod(d.Method)
	if !request.ValidMethod(method) {
		return e.fail(request.FailureInvalid, "unsupported method "+method)
	}
	target, err := validateURL(d.URL)
	if err != nil {
		return e.fail(request.FailureInvalid, err.Error())
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return e.fail(request.FailureCanceled, "rate limit wait: "+err.Error())
	}

	timeout := e.defaultTimeout
	if d.TimeoutMs > 0 {
		timeout = d.Timeout()
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := e.noFollow
	if d.FollowRedirects {
		client = e.follow
	}
	req := client.R().SetContext(reqCtx).SetHeaders(d.Headers)
	if d.Body != "" {
		req.SetBody(d.Body)
	}

	start := e.now()
	resp, err := req.Execute(method, target)
	if err != nil {
		kind := classify(ctx, reqCtx, err)
		e.log.Debug().Err(err).Str("method", method).Str("url", target).Str("kind", string(kind)).Msg("request failed")
		if kind == request.FailureTimeout {
			return e.fail(kind, "request timed out after "+timeout.String())
		}
		return e.fail(kind, err.Error())
	}

	duration := resp.Time()
	if duration <= 0 {
		duration = e.now().Sub(start)
	}
	out := &request.Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Headers:    flattenHeaders(resp.Header()),
		Body:       string(resp.Body()),
		DurationMs: duration.Milliseconds(),
		SizeBytes:  resp.Size(),
		ReceivedAt: e.now(),
	}
	e.log.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", out.StatusCode).
		Int64("duration_ms", out.DurationMs).
		Msg("request completed")
	return out
}

func (e *Executor) fail(kind request.FailureKind, msg string) *request.Failure {
	return &request.Failure{Kind: kind, Message: msg, OccurredAt: e.now()}
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("url must start with http:// or https://")
	}
	if u.Host == "" {
		return "", errors.New("url has no host")
	}
	return u.String(), nil
}

// classify decides why a request produced no response. parent is the caller's
// context, reqCtx the per-request timeout context derived from it.
func classify(parent, reqCtx context.Context, err error) request.FailureKind {
	if parent.Err() != nil {
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return request.FailureTimeout
		}
		return request.FailureCanceled
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return request.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return request.FailureTimeout
	}
	return request.FailureNetwork
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
