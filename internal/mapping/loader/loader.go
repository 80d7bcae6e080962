// Package loader implements mapping.Loader over files, fs.FS entries, and
// HTTP mapping archives.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkgmapping "github.com/goliatone/go-refmap/pkg/mapping"
)

// Loader implements pkgmapping.Loader by delegating to file, fs.FS, or HTTP
// strategies. Construction helpers live in the top-level refmap package.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
	retryMax  uint
}

// Ensure the implementation satisfies the public interface.
var _ pkgmapping.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgmapping.LoaderOptions) pkgmapping.Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
		retryMax:  options.RetryMax,
	}
}

// Load fetches a document from the provided source and wraps it.
func (l *Loader) Load(ctx context.Context, src pkgmapping.Source) (pkgmapping.Document, error) {
	if src == nil {
		return pkgmapping.Document{}, errors.New("mapping loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case pkgmapping.SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case pkgmapping.SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case pkgmapping.SourceKindURL:
		if !l.allowHTTP {
			return pkgmapping.Document{}, errors.New("mapping loader: http support disabled")
		}
		data, err = l.loadHTTP(ctx, src.Location())
	default:
		err = errors.New("mapping loader: unsupported source kind")
	}
	if err != nil {
		return pkgmapping.Document{}, err
	}

	return pkgmapping.NewDocument(src, data)
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("mapping loader: file path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping loader: read %q: %w", path, err)
	}
	return data, nil
}

// loadHTTP fetches a remote mapping, retrying transient failures with
// exponential backoff up to retryMax attempts.
func (l *Loader) loadHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	fetch := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("mapping loader: build request: %w", err))
		}
		resp, err := l.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("mapping loader: fetch %q: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("mapping loader: fetch %q: server status %s", rawURL, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(
				fmt.Errorf("mapping loader: fetch %q: unexpected status %s", rawURL, resp.Status))
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("mapping loader: read body of %q: %w", rawURL, err)
		}
		return data, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(l.retryMax)), ctx)
	return backoff.RetryWithData(fetch, policy)
}
