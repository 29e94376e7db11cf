// Package hub fetches tokenizer artifacts from a HuggingFace-style hub and
// keeps them in an on-disk cache shared by all loads in the process.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fractalmind-ai/tokenizerd"
)

// DefaultEndpoint is the hub base URL when HF_ENDPOINT is not set.
const DefaultEndpoint = "https://huggingface.co"

// SessionID is created anew at process start and embedded in the User-Agent
// of every hub request, matching what the huggingface_hub client does.
var SessionID string

func init() {
	sessionUUID, err := uuid.NewRandom()
	if err != nil {
		panic(errors.Wrap(err, "failed generating hub session id"))
	}
	SessionID = strings.ReplaceAll(sessionUUID.String(), "-", "")
}

// DefaultCacheDir is `${XDG_CACHE_HOME}/tokenizerd/hub` when set, otherwise
// `~/.cache/tokenizerd/hub`.
func DefaultCacheDir() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(base, "tokenizerd", "hub")
}

// Client downloads repository files on demand. Create it with NewClient.
type Client struct {
	endpoint   string
	cacheDir   string
	authToken  string
	revision   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient returns a hub client caching downloads under cacheDir.
// An empty cacheDir selects DefaultCacheDir.
func NewClient(cacheDir string, logger zerolog.Logger) *Client {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return &Client{
		endpoint:   DefaultEndpoint,
		cacheDir:   filepath.Clean(cacheDir),
		revision:   "main",
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger,
	}
}

// WithEndpoint overrides the hub base URL.
func (c *Client) WithEndpoint(endpoint string) *Client {
	if endpoint != "" {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}
	return c
}

// WithAuth sets the token used for gated repositories. Empty resets it.
func (c *Client) WithAuth(token string) *Client {
	c.authToken = token
	return c
}

// WithRevision sets the revision to download, defaults to "main".
func (c *Client) WithRevision(revision string) *Client {
	if revision != "" {
		c.revision = revision
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client, used by tests.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// ArtifactPath returns where fileName of repoID lives in the cache,
// whether or not it has been downloaded yet.
func (c *Client) ArtifactPath(repoID, fileName string) string {
	return filepath.Join(c.cacheDir, repoFolderName(repoID), fileName)
}

// Fetch returns a local path for fileName of repoID. A cached copy is served
// as-is; otherwise the file is downloaded. With localOnly set no network is
// touched and a missing cached copy is an error.
func (c *Client) Fetch(ctx context.Context, repoID, fileName string, localOnly bool) (string, error) {
	filePath := c.ArtifactPath(repoID, fileName)
	if fileExists(filePath) {
		return filePath, nil
	}
	if localOnly {
		return "", errors.Errorf("%q from repo %q is not cached and local-only mode forbids downloads", fileName, repoID)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create cache directory for %q", filePath)
	}

	url := fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repoID, c.revision, fileName)
	size, err := c.download(ctx, url, filePath)
	if err != nil {
		return "", errors.WithMessagef(err, "while downloading %q from repo %q", fileName, repoID)
	}

	c.logger.Info().
		Str("repo", repoID).
		Str("file", fileName).
		Str("size", humanize.Bytes(uint64(size))).
		Msg("downloaded hub artifact")
	return filePath, nil
}

// download writes url to filePath via a temporary file so partial downloads
// never become visible under the final name.
func (c *Client) download(ctx context.Context, url, filePath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to build download request")
	}
	req.Header.Set("User-Agent", userAgent())
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed request to %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errors.Errorf("unexpected status %d from %q", resp.StatusCode, url)
	}

	tmpPath := filePath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, errors.Wrapf(err, "creating temporary download file %q", tmpPath)
	}

	size, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "failed to download %q", url)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "failed to close temporary download file %q", tmpPath)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "failed to move downloaded file into place at %q", filePath)
	}
	return size, nil
}

// repoFolderName flattens a repo id into a cache directory name, the same
// scheme the huggingface cache uses.
func repoFolderName(repoID string) string {
	return "models--" + strings.ReplaceAll(repoID, "/", "--")
}

func userAgent() string {
	return fmt.Sprintf("tokenizerd/%s; golang/%s; session_id/%s",
		tokenizerd.Version, runtime.Version(), SessionID)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
