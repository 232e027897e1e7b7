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
	"path/filepath"
	"strings"
	"time"
)

const (
	// TokenEnvVar is the environment variable the publish token is read from.
	// CI runners inject it; nothing else in the pipeline needs credentials.
	TokenEnvVar = "GITHUB_TOKEN" //nolint:gosec // Variable name, not a credential.

	// acceptJSON is the media type of the release host REST API.
	acceptJSON = "application/vnd.github+json"

	// defaultTimeout bounds each HTTP call when the caller supplied none.
	defaultTimeout = 2 * time.Minute
)

var (
	// errTokenMissing is returned when a mutating call has no token to send.
	errTokenMissing = errors.New("publish token is not set (expected in " + TokenEnvVar + ")")
	// errBadHTTPStatus is returned when the host answers outside the 2xx range.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// Client is a minimal release host API client: it can create a release,
// attach an asset to it, and look up the latest published release.
type Client struct {
	apiBaseURL    string
	uploadBaseURL string
	repository    string
	token         string
	httpClient    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the API and upload endpoints, e.g. for an
// enterprise host or a test server.
func WithBaseURLs(api, upload string) Option {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(api, "/")
		c.uploadBaseURL = strings.TrimRight(upload, "/")
	}
}

// WithTimeout overrides the per-call HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a client for the given "owner/name" repository.
// The token may be empty; read-only calls still work, mutating calls fail.
func NewClient(repository, token string, opts ...Option) *Client {
	client := &Client{
		apiBaseURL:    "https://api.github.com",
		uploadBaseURL: "https://uploads.github.com",
		repository:    repository,
		token:         token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Release is a release record as returned by the host.
type Release struct {
	ID         int64   `json:"id"`
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	HTMLURL    string  `json:"html_url"`
	UploadURL  string  `json:"upload_url"`
	Assets     []Asset `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// createReleaseRequest is the payload for release creation.
type createReleaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// CreateRelease creates a non-draft, non-prerelease release with the given
// tag and display name.
func (c *Client) CreateRelease(ctx context.Context, tag, name string) (*Release, error) {
	if c.token == "" {
		return nil, errTokenMissing
	}

	payload, err := json.Marshal(createReleaseRequest{
		TagName: tag,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal release request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases", c.apiBaseURL, c.repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	var release Release
	if err := c.do(req, &release); err != nil {
		return nil, fmt.Errorf("create release %s: %w", tag, err)
	}

	return &release, nil
}

// UploadAsset attaches the file at path to the release and returns the
// created asset record.
func (c *Client) UploadAsset(ctx context.Context, release *Release, path string) (asset *Asset, err error) {
	if c.token == "" {
		return nil, errTokenMissing
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close asset: %w", closeErr)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat asset: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases/%d/assets?name=%s",
		c.uploadBaseURL, c.repository, release.ID, url.QueryEscape(filepath.Base(path)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", assetContentType(path))

	asset = new(Asset)
	if err := c.do(req, asset); err != nil {
		return nil, fmt.Errorf("upload asset %s: %w", filepath.Base(path), err)
	}

	return asset, nil
}

// LatestRelease returns the most recent published release of the repository.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBaseURL, c.repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var release Release
	if err := c.do(req, &release); err != nil {
		return nil, fmt.Errorf("latest release: %w", err)
	}

	return &release, nil
}

// DownloadAsset streams the contents of a release asset.
// The caller owns the returned reader and must close it.
func (c *Client) DownloadAsset(ctx context.Context, asset *Asset) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.authorize(req)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", asset.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // Body is only context for the error.
		_ = resp.Body.Close()

		return nil, fmt.Errorf("download %s: %w %d: %s", asset.Name, errBadHTTPStatus, resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// do sends the request with auth headers and decodes a 2xx JSON response
// into result. Non-2xx responses surface the status and body.
func (c *Client) do(req *http.Request, result any) error {
	c.authorize(req)
	req.Header.Set("Accept", acceptJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // Nothing useful to do on close failure.
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // Body is only context for the error.

		return fmt.Errorf("%w %d: %s", errBadHTTPStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// authorize attaches the bearer token when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// assetContentType picks the upload media type from the file extension.
func assetContentType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return "application/zip"
	}

	return "application/octet-stream"
}
