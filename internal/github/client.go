// Package github is a small client for the GitHub pull request REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// ErrNoToken is returned when neither GITHUB_TOKEN nor GITHUB_PAT is set.
var ErrNoToken = errors.New("GitHub token not found, set GITHUB_TOKEN or GITHUB_PAT")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

var remoteURLRe = regexp.MustCompile(`github\.com[:/]+([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseRepository parses "owner/repo" or a GitHub remote URL in https or ssh
// form.
func ParseRepository(s string) (Repository, error) {
	s = strings.TrimSpace(s)

	if m := remoteURLRe.FindStringSubmatch(s); m != nil {
		return Repository{Owner: m[1], Name: m[2]}, nil
	}

	if owner, name, ok := strings.Cut(s, "/"); ok && owner != "" && name != "" && !strings.Contains(name, "/") {
		return Repository{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
	}

	return Repository{}, fmt.Errorf("cannot determine GitHub repository from %q", s)
}

// TokenFromEnv returns GITHUB_TOKEN, falling back to GITHUB_PAT.
func TokenFromEnv() (string, error) {
	for _, key := range []string{"GITHUB_TOKEN", "GITHUB_PAT"} {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}

	return "", ErrNoToken
}

// PullRequest is the subset of the pull request resource used here.
type PullRequest struct {
	Number    int    `json:"number"`
	HTMLURL   string `json:"html_url"`
	State     string `json:"state"`
	Merged    bool   `json:"merged"`
	Mergeable *bool  `json:"mergeable"`
	Title     string `json:"title"`
}

// NewPullRequest is the body of a create request.
type NewPullRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// MergeOptions is the body of a merge request.
type MergeOptions struct {
	CommitTitle   string `json:"commit_title,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
	MergeMethod   string `json:"merge_method"`
}

// Client talks to the GitHub REST API for one repository.
type Client struct {
	baseURL    string
	token      string
	repo       Repository
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a Client for repo authenticated with token.
func NewClient(token string, repo Repository, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultAPIURL,
		token:      token,
		repo:       repo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Repository returns the client's repository.
func (c *Client) Repository() Repository {
	return c.repo
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GitHub API request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, out)
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	return strings.TrimSpace(string(body))
}

func (c *Client) pullsPath() string {
	return fmt.Sprintf("/repos/%s/%s/pulls", url.PathEscape(c.repo.Owner), url.PathEscape(c.repo.Name))
}

// CreatePullRequest opens a pull request. When GitHub rejects it because one
// already exists for head and base, the open one is returned instead.
func (c *Client) CreatePullRequest(ctx context.Context, pr NewPullRequest) (*PullRequest, error) {
	var created PullRequest

	err := c.do(ctx, http.MethodPost, c.pullsPath(), pr, &created)
	if err == nil {
		return &created, nil
	}

	if !IsStatus(err, http.StatusUnprocessableEntity) {
		return nil, err
	}

	existing, findErr := c.FindPullRequest(ctx, pr.Head, pr.Base)
	if findErr != nil {
		return nil, fmt.Errorf("%w (looking up existing pull request: %w)", err, findErr)
	}

	return existing, nil
}

// FindPullRequest returns the open pull request from head into base.
func (c *Client) FindPullRequest(ctx context.Context, head, base string) (*PullRequest, error) {
	if !strings.Contains(head, ":") {
		head = c.repo.Owner + ":" + head
	}

	q := url.Values{}
	q.Set("head", head)
	q.Set("base", base)
	q.Set("state", "open")

	var prs []PullRequest
	if err := c.do(ctx, http.MethodGet, c.pullsPath()+"?"+q.Encode(), nil, &prs); err != nil {
		return nil, err
	}

	if len(prs) == 0 {
		return nil, fmt.Errorf("no open pull request for %s -> %s", head, base)
	}

	return &prs[0], nil
}

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", c.pullsPath(), number), nil, &pr); err != nil {
		return nil, err
	}

	return &pr, nil
}

// MergePullRequest merges a pull request. It returns false without an error
// when GitHub reports the pull request as not mergeable.
func (c *Client) MergePullRequest(ctx context.Context, number int, opts MergeOptions) (bool, error) {
	if opts.MergeMethod == "" {
		opts.MergeMethod = "squash"
	}

	var resp struct {
		Merged bool `json:"merged"`
	}

	err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/merge", c.pullsPath(), number), opts, &resp)
	if IsStatus(err, http.StatusMethodNotAllowed) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return resp.Merged, nil
}

// CreateIssueComment posts a comment on an issue or pull request.
func (c *Client) CreateIssueComment(ctx context.Context, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", url.PathEscape(c.repo.Owner), url.PathEscape(c.repo.Name), number)

	return c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, nil)
}
