package virtualdj

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type ClientConfig struct {
	// BaseURL is the address of VirtualDJ's network control server,
	// e.g. http://192.168.1.20:8003.
	BaseURL  string        `json:"baseUrl" mapstructure:"base_url"`
	Password string        `json:"password" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Client talks to VirtualDJ's network control interface. Unlike OpenKJ's
// command API it is all GETs: /query reads a script value as plain text,
// /execute runs a script for its side effect.
type Client struct {
	baseURL  string
	password string

	hc *http.Client
}

func newClient(c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:  c.BaseURL,
		password: c.Password,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) get(ctx context.Context, path, script string) (string, error) {
	_baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("get: url.Parse: %w", err)
	}

	q := url.Values{}
	q.Set("script", script)
	if c.password != "" {
		q.Set("password", c.password)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", _baseURL.String(), path, q.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("get: http.NewReq: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get: resp.StatusCode: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("get: io.ReadAll: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// query reads one script value.
func (c *Client) query(ctx context.Context, script string) (string, error) {
	return c.get(ctx, "/query", script)
}

// queryFloat reads one numeric script value.
func (c *Client) queryFloat(ctx context.Context, script string) (float64, error) {
	raw, err := c.query(ctx, script)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("queryFloat: %q: %w", script, err)
	}
	return v, nil
}

// execute runs a script for its side effect.
func (c *Client) execute(ctx context.Context, script string) error {
	_, err := c.get(ctx, "/execute", script)
	return err
}
