// Package board fetches workflow state from the ZenHub API.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/source"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 1 << 20

// Config identifies the board repository and credentials. It is copied at construction.
type Config struct {
	BaseURL string // API root, e.g. "https://api.zenhub.com/p1"
	Token   string // sent as X-Authentication-Token
	RepoID  string // numeric GitHub repository id
}

// Client implements source.Client for the board
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	repoID  string
}

var _ source.Client = (*Client)(nil)

// New builds a board client on top of httpClient (nil uses http.DefaultClient)
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.RepoID == "" {
		return nil, errors.New("board repo_id is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("board base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid board base URL %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		repoID:  cfg.RepoID,
	}, nil
}

// Name implements source.Client
func (c *Client) Name() string {
	return source.Board
}

// issueResponse is the subset of the ZenHub issue payload the bot reads.
// Message is set instead when the API reports an error.
type issueResponse struct {
	Pipeline *struct {
		Name string `json:"name"`
	} `json:"pipeline"`
	IsEpic  bool    `json:"is_epic"`
	Message *string `json:"message"`
}

// Fetch implements source.Client
func (c *Client) Fetch(ctx context.Context, issueID int) source.Outcome {
	endpoint := fmt.Sprintf("%s/repositories/%s/issues/%d", c.baseURL, url.PathEscape(c.repoID), issueID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return source.Failed(source.TransportError, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-Authentication-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return source.FromTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return source.FromTransportError(ctx, err)
	}

	var payload issueResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return source.Failed(source.DataError, http.StatusText(resp.StatusCode))
		}
		return source.Failed(source.DataError, "unparseable response: "+err.Error())
	}

	if payload.Message != nil {
		return source.Failed(source.DataError, *payload.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return source.Failed(source.DataError, http.StatusText(resp.StatusCode))
	}
	if payload.Pipeline == nil {
		return source.Failed(source.DataError, "response has no pipeline")
	}

	return source.Ok(source.BoardRecord{
		PipelineName: payload.Pipeline.Name,
		IsEpic:       payload.IsEpic,
	})
}
