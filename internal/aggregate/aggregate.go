// Package aggregate merges marketplace search results into one record per
// item name, ranked by the lowest known price.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"skinwatch/internal/logger"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
	"skinwatch/internal/provider/bitskins"
	"skinwatch/internal/provider/csfloat"
)

// MinQueryLength is the shortest query that reaches the network.
const MinQueryLength = 3

const (
	DefaultLimit          = 10
	DefaultMaxConcurrency = 8
	DefaultLookupTimeout  = 8 * time.Second
)

// Searcher is the primary marketplace search.
type Searcher interface {
	SearchSkinName(ctx context.Context, pattern string, limit int, token string) ([]bitskins.Skin, error)
}

// ListingFinder is the secondary marketplace lookup.
type ListingFinder interface {
	CheapestListing(ctx context.Context, name string) (csfloat.Listing, error)
}

// Coder produces one-time codes for the primary marketplace.
type Coder interface {
	Code(shift int) (string, error)
}

// ImageResolver maps an item name to a display image.
type ImageResolver interface {
	Resolve(name string) string
}

// Aggregator runs a search against the primary marketplace and enriches
// every hit with the secondary marketplace's cheapest listing.
type Aggregator struct {
	Primary Searcher
	// Secondary may be nil, in which case results carry primary data only.
	Secondary ListingFinder
	Codes     Coder
	Images    ImageResolver

	Limit          int
	MaxConcurrency int
	// LookupTimeout bounds each secondary lookup.
	LookupTimeout time.Duration
	Log           *slog.Logger
}

// Sanitize turns free text into the primary marketplace's wildcard pattern:
// every run of non-alphanumeric characters separates terms and the terms are
// joined by "%". It reports false when the query is too short or has no
// terms, in which case no call should be made.
func Sanitize(query string) (string, bool) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return "", false
	}
	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return "", false
	}
	return "%" + strings.Join(terms, "%") + "%", true
}

// Search returns merged items ordered by ascending minimum price. A failed
// primary call yields an empty slice and an error wrapping
// provider.ErrProviderUnavailable. Secondary failures only leave that slot
// null.
func (a *Aggregator) Search(ctx context.Context, query string) ([]*provider.Item, error) {
	pattern, ok := Sanitize(query)
	if !ok {
		return []*provider.Item{}, nil
	}
	log := a.logger().With("query", query)

	token, err := a.Codes.Code(0)
	if err != nil {
		return []*provider.Item{}, fmt.Errorf("%w: one-time code: %v", provider.ErrProviderUnavailable, err)
	}
	skins, err := a.Primary.SearchSkinName(ctx, pattern, a.limit(), token)
	if err != nil {
		log.Warn("primary search failed", "provider", provider.Bitskins, "err", err)
		return []*provider.Item{}, fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
	}

	items := Merge(skins)
	for _, it := range items {
		if a.Images != nil {
			it.ImageURL = a.Images.Resolve(it.Name)
		}
	}
	a.enrich(ctx, log, items)

	Rank(items)
	log.Debug("search complete", "hits", len(skins), "items", len(items))
	return items, nil
}

// Merge builds one item per distinct name from primary hits, in first-seen
// order. Hits whose normalized price is not positive are dropped. When a
// name repeats, the cheaper hit wins with its own id.
func Merge(skins []bitskins.Skin) []*provider.Item {
	byName := make(map[string]*provider.Item, len(skins))
	out := make([]*provider.Item, 0, len(skins))
	for _, s := range skins {
		p := price.NormalizeFloat(s.RawPrice)
		if !p.IsPositive() {
			continue
		}
		if cur, ok := byName[s.Name]; ok {
			if old := cur.Prices[provider.Bitskins]; old.Valid && old.Decimal.LessThanOrEqual(p) {
				continue
			}
			cur.IDs[provider.Bitskins] = nil
			cur.Set(provider.Bitskins, s.ID, p)
			continue
		}
		it := provider.NewItem(s.Name)
		it.Set(provider.Bitskins, s.ID, p)
		byName[s.Name] = it
		out = append(out, it)
	}
	return out
}

// Rank sorts items by ascending minimum price. Ties keep their order.
func Rank(items []*provider.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MinPrice().LessThan(items[j].MinPrice())
	})
}

// enrich looks up every item on the secondary marketplace concurrently and
// waits for all lookups. Each goroutine writes only its own item. Lookups
// are detached from caller cancellation and bounded by LookupTimeout.
func (a *Aggregator) enrich(ctx context.Context, log *slog.Logger, items []*provider.Item) {
	if a.Secondary == nil || len(items) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(a.maxConcurrency())
	for _, it := range items {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(base, a.lookupTimeout())
			defer cancel()
			listing, err := a.Secondary.CheapestListing(lctx, it.Name)
			if err != nil {
				log.Debug("secondary lookup failed", "provider", provider.CSFloat, "item", it.Name, "err", err)
				return nil
			}
			if !listing.Price.IsPositive() {
				return nil
			}
			it.Set(provider.CSFloat, listing.ID, listing.Price)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) limit() int {
	if a.Limit > 0 {
		return a.Limit
	}
	return DefaultLimit
}

func (a *Aggregator) maxConcurrency() int {
	if a.MaxConcurrency > 0 {
		return a.MaxConcurrency
	}
	return DefaultMaxConcurrency
}

func (a *Aggregator) lookupTimeout() time.Duration {
	if a.LookupTimeout > 0 {
		return a.LookupTimeout
	}
	return DefaultLookupTimeout
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return logger.Discard()
}
