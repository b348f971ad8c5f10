package imagecatalog

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"skinwatch/internal/logger"
)

// Entry is one catalog record as published by the catalog source.
type Entry struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Catalog is an immutable name to image mapping. Names keep their load
// order, which decides the substring fallback.
type Catalog struct {
	names  []string
	images map[string]string
}

// NewCatalog builds a catalog. Entries without a name or image are skipped;
// the first entry wins for duplicate names.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{
		names:  make([]string, 0, len(entries)),
		images: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" || e.Image == "" {
			continue
		}
		if _, dup := c.images[e.Name]; dup {
			continue
		}
		c.names = append(c.names, e.Name)
		c.images[e.Name] = e.Image
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.names) }

// Entries returns the catalog in load order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, Entry{Name: n, Image: c.images[n]})
	}
	return out
}

func (c *Catalog) lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	img, ok := c.images[name]
	return img, ok
}

func (c *Catalog) firstContaining(stem string) (string, bool) {
	if stem == "" {
		return "", false
	}
	for _, n := range c.names {
		if strings.Contains(n, stem) {
			return c.images[n], true
		}
	}
	return "", false
}

// Loader fetches a complete catalog.
type Loader interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Store holds the current catalog. Readers never block; a refresh swaps the
// whole catalog in one atomic store.
type Store struct {
	loader Loader
	log    *slog.Logger

	cur atomic.Pointer[Catalog]
	sf  singleflight.Group
}

// NewStore returns a Store holding an empty catalog.
func NewStore(loader Loader, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{loader: loader, log: log}
	s.cur.Store(NewCatalog(nil))
	return s
}

// Get returns the current catalog. It is never nil.
func (s *Store) Get() *Catalog { return s.cur.Load() }

// Replace swaps in c wholesale.
func (s *Store) Replace(c *Catalog) {
	if c != nil {
		s.cur.Store(c)
	}
}

// Resolve resolves name against the current catalog.
func (s *Store) Resolve(name string) string { return Resolve(name, s.Get()) }

// Refresh reloads the catalog. Concurrent calls share one load. On failure,
// or when the source returns nothing, the previous catalog is kept.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.sf.Do("catalog", func() (any, error) {
		c, err := s.loader.Load(ctx)
		if err != nil {
			s.log.Warn("image catalog refresh failed", "error", err, "kept_entries", s.Get().Len())
			return nil, err
		}
		if c.Len() == 0 {
			s.log.Warn("image catalog refresh returned no entries", "kept_entries", s.Get().Len())
			return nil, nil
		}
		s.Replace(c)
		s.log.Info("image catalog refreshed", "entries", c.Len())
		return nil, nil
	})
	return err
}

// Run refreshes once immediately and then every interval until ctx ends.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	_ = s.Refresh(ctx)
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}
