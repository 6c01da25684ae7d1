// Package remote implements the remote cache wire protocol: a
// retryablehttp-backed client speaking HEAD/GET/PUT against
// /cache/<hex-key>, plus a reference HTTP server implementing the other
// side of that protocol.
package remote

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/zeebo/blake3"

	"github.com/neopilotai/memobuild/internal/buildrr"
)

// Client talks to a remote cache server over HTTP. Retry policy matches the
// design exactly: initial 100ms, multiplier 2.0, max 5s, up to 3 attempts,
// with a uniform ±20% jitter applied to each wait (still capped at the
// max). 5xx and
// transport errors are retried; 4xx other than 404 are not.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
}

// NewClient creates a Client against baseURL (e.g. "http://cache.internal:8080").
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.RetryMax = 2 // 3 total attempts: the initial try plus 2 retries
	rc.CheckRetry = checkRetry
	rc.Backoff = func(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
		// DefaultBackoff doubles from min up to max; spread each wait over
		// ±20% of that value.
		d := time.Duration(float64(retryablehttp.DefaultBackoff(min, max, attempt, resp)) * (0.8 + 0.4*rand.Float64()))
		if d > max {
			d = max
		}
		return d
	}
	return &Client{http: rc, baseURL: baseURL}
}

func checkRetry(_ context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil {
		return true, nil
	}
	if resp == nil {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	// 4xx other than 404 is non-retryable; 404 is a legitimate miss the
	// caller interprets itself, never retried.
	return false, nil
}

func (c *Client) url(key string) string {
	return c.baseURL + "/cache/" + key
}

// Head is a cheap existence probe.
func (c *Client) Head(key string) (bool, error) {
	req, err := retryablehttp.NewRequest(http.MethodHead, c.url(key), nil)
	if err != nil {
		return false, buildrr.Network("build HEAD request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, buildrr.Network("HEAD cache entry", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, buildrr.Network("HEAD cache entry", unexpectedStatus(resp.StatusCode))
	}
}

// Get fetches the full blob for key. A 404 is a plain miss (nil, false,
// nil). The response body is always re-hashed with BLAKE3 and compared to
// key before returning: a mismatch is a non-retryable, non-silent
// CASIntegrityError — this is a fleet-wide bug or corruption, never served.
func (c *Client) Get(key string) ([]byte, bool, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.url(key), nil)
	if err != nil {
		return nil, false, buildrr.Network("build GET request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, buildrr.Network("GET cache entry", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, false, nil
	case http.StatusOK:
		// fall through
	default:
		return nil, false, buildrr.Network("GET cache entry", unexpectedStatus(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, buildrr.Network("read GET body", err)
	}

	h := blake3.New()
	h.Write(data)
	got := hex.EncodeToString(h.Sum(nil))
	if got != key {
		return nil, false, buildrr.CASIntegrity(key, integrityMismatch{want: key, got: got})
	}
	return data, true, nil
}

// Put uploads data under key.
func (c *Client) Put(key string, data []byte) error {
	req, err := retryablehttp.NewRequest(http.MethodPut, c.url(key), bytes.NewReader(data))
	if err != nil {
		return buildrr.Network("build PUT request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return buildrr.Network("PUT cache entry", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return buildrr.Network("PUT cache entry", unexpectedStatus(resp.StatusCode))
	}
	return nil
}

type unexpectedStatus int

func (s unexpectedStatus) Error() string {
	return http.StatusText(int(s))
}

type integrityMismatch struct{ want, got string }

func (m integrityMismatch) Error() string {
	return "blob hash " + m.got + " does not match requested key " + m.want
}
