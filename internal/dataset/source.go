package dataset

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// DefaultMaxBytes caps a single dataset download.
const DefaultMaxBytes int64 = 100 << 20

// Source fetches the raw bytes of a dataset file.
type Source interface {
	// Fetch returns the file content and a name whose extension hints at
	// the format.
	Fetch(ctx context.Context) ([]byte, string, error)
	String() string
}

// HTTPSource downloads the dataset from a shared link. Redirects are
// followed by the client.
type HTTPSource struct {
	URL      string
	Client   *http.Client
	MaxBytes int64
}

func (s *HTTPSource) String() string { return "url" }

// Fetch downloads the file. Non-2xx responses and bodies above MaxBytes are
// errors.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download dataset: unexpected status %s", resp.Status)
	}

	data, err := readLimited(resp.Body, s.MaxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, responseName(resp), nil
}

func responseName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	u := resp.Request.URL
	if u == nil {
		return ""
	}
	if unescaped, err := url.PathUnescape(u.Path); err == nil {
		return path.Base(unescaped)
	}
	return path.Base(u.Path)
}

// FileSource reads the dataset from local disk.
type FileSource struct {
	Path     string
	MaxBytes int64
}

func (s *FileSource) String() string { return "file" }

// Fetch reads the file, honouring MaxBytes.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f, s.MaxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(s.Path), nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("dataset exceeds %d bytes", max)
	}
	return data, nil
}
