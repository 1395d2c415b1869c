package sources

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// MaxTemplateBytes bounds a single downloaded or imported template.
const MaxTemplateBytes = 32 << 20

// Fetcher reads the raw bytes a request points at.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// HTTPOptions configure NewHTTPFetcher.
type HTTPOptions struct {
	Timeout   time.Duration
	VerifySSL bool
	UserAgent string
}

// HTTPFetcher downloads URL requests and reads file requests from disk.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. A nil client builds one from opts.
func NewHTTPFetcher(client *http.Client, opts HTTPOptions) *HTTPFetcher {
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !opts.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // remote.verify_ssl=false
		}
		client = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	return &HTTPFetcher{client: client, userAgent: opts.UserAgent}
}

// Fetch returns the request's content.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if req.Kind == KindFile {
		return readLocal(req.Path)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: server returned %s", req.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxTemplateBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", req.URL, err)
	}
	if len(data) > MaxTemplateBytes {
		return nil, fmt.Errorf("download %s: larger than %d bytes", req.URL, MaxTemplateBytes)
	}
	return data, nil
}

func readLocal(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("import %s: is a directory", path)
	}
	if info.Size() > MaxTemplateBytes {
		return nil, fmt.Errorf("import %s: larger than %d bytes", path, MaxTemplateBytes)
	}
	return os.ReadFile(path)
}
