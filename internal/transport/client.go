// Package transport implements the OKX v5 REST client: request signing,
// per-category rate limiting, retry on 5xx, and decoding of the uniform
// {code,msg,data} envelope into typed results or a structured error.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okx-bridge/okx/internal/codec"
	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/xerrors"
	"github.com/okx-bridge/okx/pkg/types"
)

// Bucket names which rate-limit category a call draws from.
type Bucket int

const (
	BucketOrder Bucket = iota
	BucketAccount
	BucketPublic
)

// Client is the OKX v5 REST API client. It wraps a resty HTTP client with
// signing, rate limiting, and retry.
type Client struct {
	http   *resty.Client
	signer *Signer
	rl     *RateLimiter
	demo   bool
	logger *slog.Logger
}

// NewClient creates a REST client configured for the given environment.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.API.RESTBaseURL).
		SetTimeout(cfg.Transport.RequestTimeout).
		SetRetryCount(cfg.Transport.RetryCount).
		SetRetryWaitTime(cfg.Transport.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.Transport.RetryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		signer: NewSigner(cfg.API.ApiKey, cfg.API.Secret, cfg.API.Passphrase),
		rl:     NewRateLimiter(cfg.Transport),
		demo:   cfg.ResolvedEnvironment() == types.EnvDemo,
		logger: logger,
	}
}

func (c *Client) waitFor(ctx context.Context, bucket Bucket) error {
	var tb *TokenBucket
	switch bucket {
	case BucketOrder:
		tb = c.rl.Order
	case BucketAccount:
		tb = c.rl.Account
	default:
		tb = c.rl.Public
	}
	if err := tb.Wait(ctx); err != nil {
		return xerrors.New(xerrors.KindRate, "transport.Wait", err).WithRecoverable(true)
	}
	return nil
}

// Get performs a signed GET request against path with the given query
// params and decodes the response into an Envelope[T].
func Get[T any](ctx context.Context, c *Client, bucket Bucket, path string, query map[string]string) (T, error) {
	var zero T
	if err := c.waitFor(ctx, bucket); err != nil {
		return zero, err
	}

	req := c.http.R().SetContext(ctx).SetQueryParams(query)
	req = c.applyAuth(req, http.MethodGet, path, "")

	resp, err := req.Get(path)
	if err != nil {
		return zero, xerrors.New(xerrors.KindTransport, "transport.Get", err).WithRecoverable(true)
	}
	return decodeEnvelope[T](resp, "transport.Get")
}

// Post performs a signed POST request against path with a JSON body and
// decodes the response into an Envelope[T].
func Post[T any](ctx context.Context, c *Client, bucket Bucket, path string, body any) (T, error) {
	var zero T
	if err := c.waitFor(ctx, bucket); err != nil {
		return zero, err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return zero, xerrors.New(xerrors.KindUser, "transport.Post", fmt.Errorf("marshal body: %w", err))
	}

	req := c.http.R().SetContext(ctx).SetBody(raw)
	req = c.applyAuth(req, http.MethodPost, path, string(raw))

	resp, err := req.Post(path)
	if err != nil {
		return zero, xerrors.New(xerrors.KindTransport, "transport.Post", err).WithRecoverable(true)
	}
	return decodeEnvelope[T](resp, "transport.Post")
}

func (c *Client) applyAuth(req *resty.Request, method, path, body string) *resty.Request {
	req = req.SetHeaders(c.signer.Headers(method, path, body, time.Now()))
	if c.demo {
		req = req.SetHeader("x-simulated-trading", "1")
	}
	return req
}

func decodeEnvelope[T any](resp *resty.Response, op string) (T, error) {
	var zero T
	if resp.StatusCode() != http.StatusOK {
		return zero, xerrors.Newf(xerrors.KindTransport, op, "status %d: %s", resp.StatusCode(), resp.String()).
			WithRecoverable(resp.StatusCode() >= 500)
	}

	var env codec.Envelope[T]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return zero, xerrors.New(xerrors.KindTransport, op, fmt.Errorf("decode envelope: %w", err))
	}
	if !env.OK() {
		return zero, xerrors.Newf(xerrors.KindProtocol, op, "%s", env.Msg).WithCode(env.Code)
	}
	return env.Data, nil
}

// CheckClockSkew calls the public time endpoint and reports whether local
// clock drift exceeds the configured limit, per spec.md §9's decision to
// fail fast on skewed clocks rather than silently mis-signing requests.
func (c *Client) CheckClockSkew(ctx context.Context, limit time.Duration) error {
	type serverTime struct {
		Ts codec.Number `json:"ts"`
	}
	data, err := Get[[]serverTime](ctx, c, BucketPublic, "/api/v5/public/time", nil)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return xerrors.Newf(xerrors.KindTransport, "transport.CheckClockSkew", "empty server time response")
	}
	serverMillis := data[0].Ts.IntPart()
	localMillis := time.Now().UnixMilli()
	skew := serverMillis - localMillis
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Millisecond > limit {
		return xerrors.Newf(xerrors.KindState, "transport.CheckClockSkew", "clock skew %dms exceeds limit %s", skew, limit)
	}
	return nil
}
