// Package zabbix is a small JSON-RPC client for the Zabbix frontend API.
//
// A Client is created per job by Connect, which performs user.login and keeps
// the session token for subsequent calls. Every call is retried a fixed number
// of times on transport failures only; an error object returned by the API is
// terminal for that call.
package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	endpointFile = "api_jsonrpc.php"
	contentType  = "application/json-rpc"
	rpcVersion   = "2.0"

	// DefaultLoginField is the user.login parameter carrying the user name.
	// Frontends older than 5.4 expect "user" instead.
	DefaultLoginField = "username"
)

// ErrEmptyResponse is returned when the API answers with neither a result nor an error
var ErrEmptyResponse = errors.New("zabbix api: response has no result")

// Options configures a connection to one Zabbix frontend
type Options struct {
	Host        string
	User        string
	Password    string
	Attempts    int    // total tries per call, values below 1 mean 1
	LoginField  string // defaults to DefaultLoginField
	TLSInsecure bool

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is an authenticated session against the JSON-RPC endpoint
type Client struct {
	endpoint   string
	token      string
	attempts   int
	httpClient *http.Client
	logger     zerolog.Logger
	nextID     int
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
	Auth    string `json:"auth,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      any             `json:"id"`
}

// NewClient prepares an unauthenticated client. Most callers want Connect.
func NewClient(opts Options) (*Client, error) {
	endpoint, err := Endpoint(opts.Host)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.TLSInsecure}, //nolint:gosec // opt-in per job
			},
		}
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		endpoint:   endpoint,
		attempts:   attempts,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("endpoint", endpoint).Logger(),
	}, nil
}

// Connect logs in to the frontend, trying up to opts.Attempts times.
// Every failed attempt is logged; the last error is returned on exhaustion.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}

	field := opts.LoginField
	if field == "" {
		field = DefaultLoginField
	}

	err = c.retry(ctx, func() error {
		if err := c.login(ctx, field, opts.User, opts.Password); err != nil {
			c.logFailure("user.login", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "connect to %s", c.endpoint)
	}

	return c, nil
}

// Endpoint turns a configured host into the JSON-RPC URL.
// A missing scheme defaults to https and the api_jsonrpc.php path is appended
// unless already present.
func Endpoint(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.New("zabbix api: empty host")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", errors.Wrapf(err, "zabbix api: parse host %q", host)
	}
	if u.Host == "" {
		return "", errors.Errorf("zabbix api: no host in %q", host)
	}
	if !strings.HasSuffix(u.Path, endpointFile) {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + endpointFile
	}

	return u.String(), nil
}

// Authenticated reports whether login has produced a session token
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Call invokes method with params and decodes the result into out (if non-nil).
// Transport and decoding failures are retried; an *APIError is returned at once.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	var raw json.RawMessage

	err := c.retry(ctx, func() error {
		res, err := c.do(ctx, method, params, true)
		if err != nil {
			c.logFailure(method, err)
			if isTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = res
		return nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "zabbix api: decode %s result", method)
	}

	return nil
}

// Version returns the API version reported by apiinfo.version.
// The method must be called without a session token.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string

	err := c.retry(ctx, func() error {
		res, err := c.do(ctx, "apiinfo.version", []any{}, false)
		if err != nil {
			c.logFailure("apiinfo.version", err)
			if isTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return json.Unmarshal(res, &version)
	})

	return version, err
}

func (c *Client) login(ctx context.Context, field, user, password string) error {
	res, err := c.do(ctx, "user.login", map[string]any{field: user, "password": password}, false)
	if err != nil {
		return err
	}

	var token string
	if err := json.Unmarshal(res, &token); err != nil {
		return errors.Wrap(err, "zabbix api: decode session token")
	}
	if token == "" {
		return errors.New("zabbix api: empty session token")
	}

	c.token = token
	c.logger.Debug().Msg("zabbix api login ok")
	return nil
}

// retry runs op up to c.attempts times with no delay between tries.
func (c *Client) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.attempts-1))
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

// do performs a single request/response round trip.
func (c *Client) do(ctx context.Context, method string, params any, auth bool) (json.RawMessage, error) {
	c.nextID++
	req := request{
		JSONRPC: rpcVersion,
		Method:  method,
		Params:  params,
		ID:      c.nextID,
	}
	if auth {
		req.Auth = c.token
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "zabbix api: marshal %s request", method)
	}
	if method != "user.login" {
		c.logger.Trace().Str("method", method).RawJSON("request", body).Msg("zabbix api request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "zabbix api: build %s request", method)
	}
	httpReq.Header.Set("Content-Type", contentType)
	// 6.4+ reads the header, 7.2 dropped the body field
	if auth && c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "zabbix api: post %s", method)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "zabbix api: read %s response", method)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("zabbix api: %s: unexpected http status %d", method, httpResp.StatusCode)
	}
	c.logger.Trace().Str("method", method).Bytes("response", data).Msg("zabbix api response")

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrapf(err, "zabbix api: decode %s response", method)
	}
	if resp.Error != nil {
		resp.Error.Method = method
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, ErrEmptyResponse
	}

	return resp.Result, nil
}

func (c *Client) logFailure(method string, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrEmptyResponse) {
		c.logger.Error().Err(err).Str("method", method).Msg("zabbix api error")
		return
	}
	c.logger.Error().Stack().Err(err).Str("method", method).Msg("zabbix api call failed")
}
