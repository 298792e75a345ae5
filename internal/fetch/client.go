// Package fetch downloads remote resources for tasks through a shared,
// timeout-bound HTTP client and keeps a local cache of every body it has
// retrieved. Forcing a run bypasses cache reads but still refreshes it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/StrategyComplex/congress-thetownhall/internal/jsonl"
)

// DefaultTimeout bounds every network operation of a run.
const DefaultTimeout = 10 * time.Second

const userAgent = "usc-run (github.com/StrategyComplex/congress-thetownhall)"

// Entry records one cached body.
type Entry struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentHash string    `json:"content_hash"`
	Size        int       `json:"size"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NewHTTPClient returns a client whose dial, TLS handshake, response header
// wait and overall request are each limited by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Client downloads through the cache rooted at CacheDir.
type Client struct {
	HTTP     *http.Client
	CacheDir string
	Force    bool
	Logger   *zap.Logger
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) indexPath() string {
	return filepath.Join(c.CacheDir, "index.jsonl")
}

// Get returns the body at url, from the cache unless Force is set.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if !c.Force {
		if data, ok := c.cached(url); ok {
			c.logger().Debug("cache hit", zap.String("url", url))
			return data, nil
		}
	}

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	key := URLKey(url)
	if err := writeObject(c.CacheDir, key, data); err != nil {
		return nil, fmt.Errorf("caching %s: %w", url, err)
	}
	entry := Entry{URL: url, Key: key, ContentHash: HashContent(data), Size: len(data), FetchedAt: time.Now().UTC()}
	if err := jsonl.Append(c.indexPath(), entry); err != nil {
		return nil, fmt.Errorf("recording %s: %w", url, err)
	}
	return data, nil
}

// Download fetches url and writes the body to dest.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	data, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(dest, data); err != nil {
		return err
	}
	c.logger().Info("saved", zap.String("url", url), zap.String("path", dest))
	return nil
}

// Entries lists the cache index, oldest first.
func (c *Client) Entries() ([]Entry, error) {
	return jsonl.Read[Entry](c.indexPath())
}

func (c *Client) cached(url string) ([]byte, bool) {
	entries, err := c.Entries()
	if err != nil {
		c.logger().Warn("reading cache index", zap.Error(err))
		return nil, false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.URL != url {
			continue
		}
		data, err := readObject(c.CacheDir, e.Key, e.ContentHash)
		if err != nil {
			c.logger().Debug("cache entry unusable", zap.String("url", url), zap.Error(err))
			return nil, false
		}
		return data, true
	}
	return nil, false
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	hc := c.HTTP
	if hc == nil {
		hc = NewHTTPClient(DefaultTimeout)
	}

	c.logger().Debug("fetching", zap.String("url", url))
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}
