package imagecatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// DefaultURL publishes every skin with its image.
const DefaultURL = "https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/skins_not_grouped.json"

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPLoader downloads the catalog in bulk.
type HTTPLoader struct {
	URL    string
	Client HTTPClient
}

func (l HTTPLoader) Load(ctx context.Context) (*Catalog, error) {
	u := l.URL
	if u == "" {
		u = DefaultURL
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s -> %d", u, res.StatusCode)
	}
	return decode(res.Body)
}

// FileLoader reads a catalog previously written by WriteFile.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(_ context.Context) (*Catalog, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return decode(f)
}

// Chain tries loaders in order and returns the first non-empty catalog.
type Chain []Loader

func (c Chain) Load(ctx context.Context) (*Catalog, error) {
	var lastErr error
	for _, l := range c {
		cat, err := l.Load(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if cat.Len() > 0 {
			return cat, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return NewCatalog(nil), nil
}

// WriteFile stores c as a JSON array of entries.
func WriteFile(path string, c *Catalog) error {
	b, err := json.Marshal(c.Entries())
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func decode(r io.Reader) (*Catalog, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return NewCatalog(entries), nil
}
