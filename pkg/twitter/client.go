package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/retry"
)

// Client is an HTTP client bound to one account's credential and one
// egress proxy. Construct a fresh one per account run; it carries the
// derived csrf/cookie state for that credential.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	retries    int
	logger     logger.Logger
}

// ClientOptions tunes client construction
type ClientOptions struct {
	// Proxy is the egress proxy address (http://, https:// or socks5://).
	// Empty means a direct connection.
	Proxy string
	// Timeout bounds each request attempt
	Timeout time.Duration
	// Retries is the transport-level retry budget per request
	Retries int
	Logger  logger.Logger
}

// NewClient builds a ready-to-use client for the given auth token:
// auth headers set, redirects followed, transport retries configured and
// the proxy wired in.
func NewClient(authToken string, opts ClientOptions) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport, err := buildTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		headers: clientHeaders(authToken),
		retries: opts.Retries,
		logger:  log,
	}, nil
}

func buildTransport(proxyAddr string) (*http.Transport, error) {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	if proxyAddr == "" {
		return transport, nil
	}

	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfiguration,
			fmt.Sprintf("invalid proxy address %q", proxyAddr), err)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5":
		var auth *xproxy.Auth
		if user := proxyURL.User; user != nil {
			password, _ := user.Password()
			auth = &xproxy.Auth{User: user.Username(), Password: password}
		}
		dialer, err := xproxy.SOCKS5("tcp", proxyURL.Host, auth, xproxy.Direct)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeConfiguration,
				fmt.Sprintf("socks5 proxy %q", proxyAddr), err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(xproxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	default:
		return nil, errors.New(errors.ErrorTypeConfiguration,
			fmt.Sprintf("unsupported proxy scheme %q", proxyURL.Scheme))
	}
	return transport, nil
}

// SetHeader overrides a header for subsequent requests
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchPage performs one GET against the given endpoint with the encoded
// query parameters and decodes the JSON body. Transport errors and
// retryable status codes consume the retry budget; a still-failing request
// or an undecodable body surfaces as a fetch failure.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (interface{}, http.Header, error) {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = endpoint + "?" + params.Encode()
	}

	resp, err := c.doWithRetry(ctx, reqURL)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Rate-limit headers still matter on a 429; hand them back so the
		// caller can persist the reset window.
		return nil, resp.Header, errors.New(errors.ErrorTypeFetchFailed,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var data interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, resp.Header, errors.Wrap(errors.ErrorTypeFetchFailed, "decoding response body", err)
	}
	return data, resp.Header, nil
}

// doWithRetry spends the transport retry budget on network errors and 5xx
// responses. Anything else, including a 429, comes straight back to the
// caller: rate-limit handling belongs to the quota monitor, not here.
func (c *Client) doWithRetry(ctx context.Context, reqURL string) (*http.Response, error) {
	var resp *http.Response

	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		for key, value := range c.headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		c.logger.DebugWithFields("request completed", map[string]interface{}{
			"url":      reqURL,
			"status":   r.StatusCode,
			"duration": time.Since(start),
		})

		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("server returned status %d", r.StatusCode)
		}
		resp = r
		return nil
	}, retry.Config{
		MaxAttempts: c.retries + 1,
		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
		Logger:      c.logger,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeFetchFailed, "page request failed", err)
	}
	return resp, nil
}
