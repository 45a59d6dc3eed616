package adminserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/statscollector"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

var (
	// httpClient is a shared HTTP client with reasonable timeout
	httpClient = &http.Client{
		Timeout: 30 * time.Second,
	}
)

// Client provides methods to interact with the admin HTTP server.
type Client struct {
	url string
}

// NewClient creates a client for the admin server at address. The address may
// be a full URL or a host:port pair.
func NewClient(address string) *Client {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &Client{url: strings.TrimSuffix(address, "/")}
}

// NewLocalClient creates a client for an admin server on host listening on the default port.
func NewLocalClient(host string) *Client {
	return NewClient(fmt.Sprintf("%s:%d", host, DefaultPort))
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, []byte, error) {
	u := c.url + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// GetWorldRaw returns the latest serialized snapshot and its tick.
func (c *Client) GetWorldRaw(ctx context.Context) ([]byte, uint64, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/world", nil)
	if err != nil {
		return nil, 0, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, 0, snapshot.ErrNoSnapshot
	default:
		return nil, 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	var tick uint64
	if h := resp.Header.Get(SnapshotTickHeader); h != "" {
		if tick, err = strconv.ParseUint(h, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("invalid %s header: %w", SnapshotTickHeader, err)
		}
	}
	return body, tick, nil
}

// GetWorld returns the latest decoded snapshot document.
func (c *Client) GetWorld(ctx context.Context) (*statscollector.Document, error) {
	body, _, err := c.GetWorldRaw(ctx)
	if err != nil {
		return nil, err
	}

	doc := &statscollector.Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) SetFrameProfiling(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/world", url.Values{"frame_profiling": {strconv.FormatBool(enabled)}})
}

func (c *Client) SetSystemProfiling(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/world", url.Values{"system_profiling": {strconv.FormatBool(enabled)}})
}

// EnableSystem enables or disables a system by id. It returns
// worldstats.ErrSystemNotFound when the server does not know the system.
func (c *Client) EnableSystem(ctx context.Context, id string, enabled bool) error {
	resp, body, err := c.do(ctx, http.MethodPost, "/systems/"+url.PathEscape(id), url.Values{"enabled": {strconv.FormatBool(enabled)}})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return worldstats.ErrSystemNotFound
	}
	return statusError(resp, body)
}

func (c *Client) post(ctx context.Context, endpoint string, query url.Values) error {
	resp, body, err := c.do(ctx, http.MethodPost, endpoint, query)
	if err != nil {
		return err
	}
	return statusError(resp, body)
}

func statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
}

// Health returns nil if the admin server is up.
func (c *Client) Health(ctx context.Context) error {
	resp, body, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}
	return nil
}
