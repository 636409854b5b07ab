// Package client talks to a running goalmap server.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goalmap/goalmap/internal/api"
)

const (
	defaultServerURL = "http://127.0.0.1:5050"
	httpTimeout      = 5 * time.Second
)

var (
	// ErrEmpty is returned by Select when the server has no open goals.
	ErrEmpty = errors.New("no open goals")

	// ErrNotFound is returned by Resolve when no goal matches.
	ErrNotFound = errors.New("goal not found")
)

// Client talks to the goalmap server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL. An empty URL falls back to
// $GOALMAP_URL, then http://127.0.0.1:5050.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("GOALMAP_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.serverURL
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return readBody("POST", path, resp)
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return readBody("GET", path, resp)
}

func readBody(method, path string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return data, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Error)
		}
		return data, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Select asks the server to draw a goal.
func (c *Client) Select() (api.Goal, error) {
	data, err := c.Get("/api/select")
	if err != nil {
		return api.Goal{}, err
	}

	var reply struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &reply); err == nil && reply.Status == "empty" {
		return api.Goal{}, ErrEmpty
	}

	var g api.Goal
	if err := json.Unmarshal(data, &g); err != nil {
		return api.Goal{}, fmt.Errorf("decode selection: %w", err)
	}
	return g, nil
}

// Goals lists every goal on the server in hierarchy order.
func (c *Client) Goals() ([]api.Goal, error) {
	data, err := c.Get("/api/goals")
	if err != nil {
		return nil, err
	}
	var goals []api.Goal
	if err := json.Unmarshal(data, &goals); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	return goals, nil
}

// Resolve finds a goal by hierarchy id or UUID.
func (c *Client) Resolve(ref string) (api.Goal, error) {
	goals, err := c.Goals()
	if err != nil {
		return api.Goal{}, err
	}
	for _, g := range goals {
		if g.HierarchyID == ref || g.ID == ref {
			return g, nil
		}
	}
	return api.Goal{}, fmt.Errorf("goal %s: %w", ref, ErrNotFound)
}

// Accept applies the accept rule to goal id on the server.
func (c *Client) Accept(id string) (api.Goal, error) {
	return c.feedback(id, "accept")
}

// Reject applies the reject rule to goal id on the server.
func (c *Client) Reject(id string) (api.Goal, error) {
	return c.feedback(id, "reject")
}

func (c *Client) feedback(id, action string) (api.Goal, error) {
	data, err := c.Post("/api/goals/"+url.PathEscape(id)+"/"+action, nil)
	if err != nil {
		return api.Goal{}, err
	}
	var g api.Goal
	if err := json.Unmarshal(data, &g); err != nil {
		return api.Goal{}, fmt.Errorf("decode goal: %w", err)
	}
	return g, nil
}
