// Package fetch downloads remote package assets over plain HTTP GET
// with retry and circuit breaking. Package metadata for a remote asset
// lives at package.json next to the asset (same base URL).
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"go.uber.org/zap"

	"github.com/diem-pm/diem/pkg/core"
)

var (
	// ErrNotFound indicates the asset does not exist upstream
	ErrNotFound = errors.New("asset not found")

	// ErrRateLimited indicates the upstream throttled the request
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrUpstreamDown indicates an upstream server failure
	ErrUpstreamDown = errors.New("upstream unavailable")
)

// Fetcher downloads package assets and metadata.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries uint64
	baseDelay  time.Duration
	logger     *zap.SugaredLogger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n uint64) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

// WithBaseDelay sets the initial delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.baseDelay = d }
}

// WithLogger sets the fetcher logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     newHTTPClient(5 * time.Minute), // assets can be large
		userAgent:  defaultUserAgent,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs a URL, retrying rate limits and server errors with
// exponential backoff. The caller must close the returned body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.baseDelay

	operation := func() error {
		rc, err := f.doFetch(ctx, rawURL)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
				f.logger.Warnf("Retrying %s: %v", rawURL, err)
				return err
			}
			return backoff.Permanent(err)
		}
		body = rc
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, f.maxRetries), ctx))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return nil, err
	}

	return body, nil
}

func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, rawURL)
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstreamDown, rawURL, resp.StatusCode)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, rawURL, snippet)
	}
}

// DownloadFile fetches a URL into destPath, creating parent
// directories as needed. Returns the number of bytes written.
func (f *Fetcher) DownloadFile(ctx context.Context, rawURL, destPath string) (int64, error) {
	f.logger.Debugf("Downloading %s -> %s", rawURL, destPath)

	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := os.MkdirAll(path.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, body)
	if err != nil {
		return written, fmt.Errorf("writing %s: %w", destPath, err)
	}

	f.logger.Debugf("Downloaded %d bytes", written)
	return written, nil
}

// FetchPackageInfo resolves the remote metadata for an asset URL by
// fetching package.json from the same base URL.
func (f *Fetcher) FetchPackageInfo(ctx context.Context, assetURL string) (*core.Package, error) {
	infoURL, err := PackageInfoURL(assetURL)
	if err != nil {
		return nil, err
	}

	body, err := f.Fetch(ctx, infoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching package info: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading package info: %w", err)
	}

	return core.ParsePackage(data)
}

// PackageInfoURL swaps the last path element of an asset URL for
// package.json.
func PackageInfoURL(assetURL string) (string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("parsing asset URL %q: %w", assetURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported asset URL scheme %q", u.Scheme)
	}

	dir := path.Dir(u.Path)
	if dir == "." {
		dir = "/"
	}
	u.Path = path.Join(dir, "package.json")
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// VerifyChecksum computes the SHA256 of a file and compares it against
// the expected hex digest.
func VerifyChecksum(filePath, expected string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("computing hash: %w", err)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: expected %s, got %s", core.ErrChecksumMismatch, expected, actual)
	}

	return nil
}
