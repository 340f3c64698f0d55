// Package artifact fetches model artifacts and keeps a process-local cache of
// them so repeated loads of one model skip the transfer.
package artifact

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// ProgressFunc receives byte counts while an artifact transfers. total is 0
// when the size is unknown.
type ProgressFunc func(loaded, total int64)

// Source retrieves one artifact file of a model.
type Source interface {
	Fetch(ctx context.Context, modelID, file string, progress ProgressFunc) ([]byte, error)
}

// HTTPSource fetches <BaseURL>/<modelID>/<file>.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) Fetch(ctx context.Context, modelID, file string, progress ProgressFunc) ([]byte, error) {
	u, err := url.JoinPath(s.BaseURL, modelID, file)
	if err != nil {
		return nil, fmt.Errorf("artifact url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("artifact request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	var r io.Reader = resp.Body
	if progress != nil {
		r = &progressReader{r: resp.Body, total: total, fn: progress}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return b, nil
}

type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(p.loaded, p.total)
	}
	return n, err
}

// DirSource reads artifacts from a local tree laid out as <Root>/<modelID>/<file>.
type DirSource struct {
	Root string
}

func (s DirSource) Fetch(ctx context.Context, modelID, file string, _ ProgressFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(modelID), file))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return b, nil
}

// FSSource reads artifacts from an fs.FS, typically an embedded tree.
type FSSource struct {
	FS fs.FS
}

func (s FSSource) Fetch(ctx context.Context, modelID, file string, _ ProgressFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := fs.ReadFile(s.FS, path.Join(modelID, file))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return b, nil
}
