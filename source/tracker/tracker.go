// Package tracker fetches issues from the GitHub issues API.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v72/github"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/source"
)

// Config identifies the repository and credentials. It is copied at construction.
type Config struct {
	BaseURL string // API root, e.g. "https://api.github.com/"
	Token   string // bearer token, optional for public repositories
	Owner   string
	Repo    string
}

// Client implements source.Client for the tracker
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

var _ source.Client = (*Client)(nil)

// New builds a tracker client on top of httpClient (nil uses http.DefaultClient)
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("tracker owner and repo are required")
	}

	gh := github.NewClient(httpClient)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid tracker base URL %q", cfg.BaseURL)
		}
		// go-github resolves paths relative to BaseURL and rejects it without a trailing slash
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		gh.BaseURL = base
	}

	return &Client{gh: gh, owner: cfg.Owner, repo: cfg.Repo}, nil
}

// Name implements source.Client
func (c *Client) Name() string {
	return source.Tracker
}

// issuePayload catches error bodies that arrive with a 2xx status
type issuePayload struct {
	github.Issue
	Message *string `json:"message,omitempty"`
}

// Fetch implements source.Client
func (c *Client) Fetch(ctx context.Context, issueID int) source.Outcome {
	path := fmt.Sprintf("repos/%s/%s/issues/%d", url.PathEscape(c.owner), url.PathEscape(c.repo), issueID)
	req, err := c.gh.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return source.Failed(source.TransportError, err.Error())
	}

	var payload issuePayload
	if _, err := c.gh.Do(ctx, req, &payload); err != nil {
		return classify(ctx, err)
	}

	if payload.Message != nil {
		return source.Failed(source.DataError, *payload.Message)
	}
	if payload.Number == nil && payload.Title == nil {
		return source.Failed(source.DataError, "response is not an issue")
	}

	return source.Ok(normalize(&payload.Issue))
}

// classify maps go-github errors onto outcome kinds
func classify(ctx context.Context, err error) source.Outcome {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return source.Failed(source.DataError, rateErr.Message)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return source.Failed(source.DataError, abuseErr.Message)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Message != "" {
			return source.Failed(source.DataError, respErr.Message)
		}
		if respErr.Response != nil {
			return source.Failed(source.DataError, http.StatusText(respErr.Response.StatusCode))
		}
		return source.Failed(source.DataError, respErr.Error())
	}
	if isDecodeError(err) {
		return source.Failed(source.DataError, "unparseable response: "+err.Error())
	}
	return source.FromTransportError(ctx, err)
}

// isDecodeError reports whether err came from decoding a 2xx body
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func normalize(issue *github.Issue) source.TrackerRecord {
	rec := source.TrackerRecord{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		URL:    issue.GetHTMLURL(),
		Labels: make([]string, 0, len(issue.Labels)),
	}
	for _, label := range issue.Labels {
		if name := label.GetName(); name != "" {
			rec.Labels = append(rec.Labels, name)
		}
	}
	if login := issue.GetAssignee().GetLogin(); login != "" {
		rec.Assignee = &login
	}
	return rec
}
