package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"plexhush/internal/services"
)

const (
	productName    = "plexhush"
	productVersion = "0.1.0"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one Plex Media Server.
type Client struct {
	baseURL   string
	token     string
	clientID  string
	libraries []string
	client    HTTPDoer
	log       *slog.Logger

	mu       sync.Mutex
	sections []section
}

type section struct {
	Key   string
	Title string
	Type  string
}

// NewClient constructs a Plex client for the configured server. libraries
// names the sections to manage; clientID identifies this installation in
// X-Plex headers.
func NewClient(baseURL, token, clientID string, libraries []string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:     strings.TrimSpace(token),
		clientID:  clientID,
		libraries: libraries,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.With("component", "plex"),
	}
}

// SetHTTPClient replaces the HTTP backend, used by tests.
func (c *Client) SetHTTPClient(doer HTTPDoer) { c.client = doer }

// BaseURL returns the server address the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping verifies connectivity and credentials with a cheap identity request.
func (c *Client) Ping(ctx context.Context) error {
	var container struct {
		FriendlyName string `xml:"friendlyName,attr"`
	}
	if err := c.get(ctx, "/identity", nil, &container); err != nil {
		return err
	}
	c.log.Debug("connected to plex server", "name", container.FriendlyName)
	return nil
}

// sectionsByName returns the managed sections keyed by folded title,
// fetching and caching the section directory on first use.
func (c *Client) sectionsByName(ctx context.Context) (map[string]section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sections == nil {
		var container struct {
			Directories []struct {
				Key   string `xml:"key,attr"`
				Title string `xml:"title,attr"`
				Type  string `xml:"type,attr"`
			} `xml:"Directory"`
		}
		if err := c.get(ctx, "/library/sections", nil, &container); err != nil {
			return nil, err
		}
		for _, dir := range container.Directories {
			if dir.Key == "" || dir.Title == "" {
				continue
			}
			c.sections = append(c.sections, section{Key: dir.Key, Title: dir.Title, Type: dir.Type})
		}
	}

	byName := make(map[string]section, len(c.sections))
	for _, sec := range c.sections {
		byName[strings.ToLower(sec.Title)] = sec
	}
	return byName, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

func (c *Client) put(ctx context.Context, path string, query url.Values) error {
	return c.do(ctx, http.MethodPut, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, query url.Values) error {
	return c.do(ctx, http.MethodPost, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.applyStandardHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrRemote, "plex request", method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return services.Wrap(services.ErrNotFound, "plex request", method+" "+path+" returned 404", nil)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrRemote, "plex request",
			fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrRemote, "plex request", "decode response", err)
	}
	return nil
}

func (c *Client) applyStandardHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Device-Name", productName)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
}
