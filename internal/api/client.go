// Package api talks to the city HTTP API. It has no knowledge of the list
// store or the form; callers decide what to do with results.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Makepad-fr/cities/internal/model"
)

const cityPath = "api/city"

// RequestError is returned for transport failures and non-2xx responses.
// StatusCode is zero when no response was received.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client is safe for concurrent use; it holds no mutable state.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken attaches "Authorization: Bearer <token>" to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("empty base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	c := &Client{baseURL: u, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) List(ctx context.Context) ([]model.City, error) {
	var out []model.City
	if err := c.do(ctx, http.MethodGet, cityPath, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.City{}
	}
	return out, nil
}

// Create posts the city without an id; the server assigns one.
func (c *Client) Create(ctx context.Context, city model.City) (model.City, error) {
	city.CityID = 0
	var out model.City
	if err := c.do(ctx, http.MethodPost, cityPath, city, &out); err != nil {
		return model.City{}, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, city model.City) (model.City, error) {
	var out model.City
	if err := c.do(ctx, http.MethodPut, itemPath(city.CityID), city, &out); err != nil {
		return model.City{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil)
}

func itemPath(id int64) string {
	return cityPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u := c.baseURL.JoinPath(path)
	reqErr := func(status int, err error) error {
		return &RequestError{Method: method, Path: "/" + path, StatusCode: status, Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return reqErr(0, fmt.Errorf("json marshal: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return reqErr(0, fmt.Errorf("new request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return reqErr(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return reqErr(resp.StatusCode, nil)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return reqErr(0, fmt.Errorf("json decode: %w", err))
	}
	return nil
}
