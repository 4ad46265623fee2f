// Package syncclient talks to the nutrilog server and keeps a local ledger
// in step with the user's server-side document.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
)

var (
	ErrUnauthorized = errors.New("not signed in")
	ErrNotFound     = errors.New("not found")
)

// CooldownError is a sync rejected because the previous one was too recent.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("sync is cooling down, try again in %s", e.Remaining.Round(time.Second))
}

// StatusError is any other non-2xx reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// Payload is the synchronized part of the ledger.
type Payload struct {
	Goals         ledger.Goals               `json:"goals"`
	DailyLogs     map[string]ledger.DailyLog `json:"dailyLogs"`
	FavoriteFoods []food.Item                `json:"favoriteFoods"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

func (c *Client) HasToken() bool { return c.token != "" }

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/auth/login", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

type envelope struct {
	Success bool    `json:"success"`
	Data    Payload `json:"data"`
}

func (c *Client) Pull(ctx context.Context) (Payload, error) {
	if c.token == "" {
		return Payload{}, ErrUnauthorized
	}
	var out envelope
	if err := c.do(ctx, http.MethodGet, "/nutrition", nil, &out); err != nil {
		return Payload{}, err
	}
	return out.Data, nil
}

func (c *Client) Push(ctx context.Context, p Payload) (Payload, error) {
	if c.token == "" {
		return Payload{}, ErrUnauthorized
	}
	var out envelope
	if err := c.do(ctx, http.MethodPost, "/nutrition", p, &out); err != nil {
		return Payload{}, err
	}
	return out.Data, nil
}

// SearchFoods queries the server's catalog. source is "local" or "usda".
func (c *Client) SearchFoods(ctx context.Context, source string, q food.Query) (food.SearchResult, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("source", source)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	for _, dt := range q.DataTypes {
		v.Add("dataType", dt)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	var out food.SearchResult
	err := c.do(ctx, http.MethodGet, "/foods/search?"+v.Encode(), nil, &out)
	return out, err
}

// Barcode returns (nil, nil) when the product is unknown.
func (c *Client) Barcode(ctx context.Context, code string) (*food.Item, error) {
	if !food.ValidBarcode(code) {
		return nil, food.ErrInvalidBarcode
	}
	var it food.Item
	err := c.do(ctx, http.MethodGet, "/foods/barcode/"+url.PathEscape(code), nil, &it)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("syncclient: encode: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("syncclient: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("syncclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return cooldownFrom(resp)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("syncclient: decode %s: %w", path, err)
	}
	return nil
}

func cooldownFrom(resp *http.Response) error {
	var body struct {
		RetryAfterSeconds int `json:"retryAfterSeconds"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	secs := body.RetryAfterSeconds
	if secs == 0 {
		secs, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
	}
	return &CooldownError{Remaining: time.Duration(secs) * time.Second}
}
