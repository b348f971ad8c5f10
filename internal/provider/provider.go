package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tag identifies a marketplace that can supply prices or history.
type Tag string

const (
	Bitskins Tag = "bitskins" // commission-trading marketplace, primary
	CSFloat  Tag = "csfloat"  // peer-listing marketplace, secondary
	Steam    Tag = "steam"    // consumer marketplace, history fallback
	None     Tag = "none"
)

// Tags lists every real marketplace in display order.
var Tags = []Tag{Bitskins, CSFloat, Steam}

var (
	// ErrProviderUnavailable is returned when the primary marketplace cannot
	// answer a search. It is distinct from an empty result.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNoIdentifier marks a request that lacks the id a marketplace needs.
	ErrNoIdentifier = errors.New("no compatible identifier")
	// ErrNoCredential marks a marketplace whose credential is not configured.
	ErrNoCredential = errors.New("credential not configured")
	// ErrNotFound is returned when a marketplace has no data for an item.
	ErrNotFound = errors.New("not found")
)

// ParseTag maps user input to a Tag. Empty input maps to "".
func ParseTag(s string) (Tag, error) {
	switch Tag(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case Bitskins:
		return Bitskins, nil
	case CSFloat:
		return CSFloat, nil
	case Steam:
		return Steam, nil
	case None:
		return None, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// sentinelPrice ranks items without any price after every real price.
var sentinelPrice = decimal.New(1, 18)

// Item is the canonical record of a tradable good merged across
// marketplaces. Name is the merge key.
type Item struct {
	Name     string                      `json:"name"`
	ImageURL string                      `json:"imageUrl"`
	Prices   map[Tag]decimal.NullDecimal `json:"prices"`
	IDs      map[Tag]*string             `json:"ids"`
}

// NewItem returns an Item with every marketplace slot present and null.
func NewItem(name string) *Item {
	it := &Item{
		Name:   name,
		Prices: make(map[Tag]decimal.NullDecimal, len(Tags)),
		IDs:    make(map[Tag]*string, len(Tags)),
	}
	for _, t := range Tags {
		it.Prices[t] = decimal.NullDecimal{}
		if t != Steam {
			it.IDs[t] = nil
		}
	}
	return it
}

// Set fills the slots of one marketplace. Other slots are untouched.
func (it *Item) Set(tag Tag, id string, price decimal.Decimal) {
	it.Prices[tag] = decimal.NewNullDecimal(price)
	if id != "" {
		v := id
		it.IDs[tag] = &v
	}
}

// ID returns the identifier for tag, or "" when the slot is null.
func (it *Item) ID(tag Tag) string {
	if p := it.IDs[tag]; p != nil {
		return *p
	}
	return ""
}

// HasPrice reports whether at least one marketplace price is set.
func (it *Item) HasPrice() bool {
	for _, p := range it.Prices {
		if p.Valid {
			return true
		}
	}
	return false
}

// MinPrice is the ranking key: the lowest known price, or a sentinel larger
// than any real price when none is known.
func (it *Item) MinPrice() decimal.Decimal {
	minimum := sentinelPrice
	for _, p := range it.Prices {
		if p.Valid && p.Decimal.LessThan(minimum) {
			minimum = p.Decimal
		}
	}
	return minimum
}

// PricePoint is one day-resolution observation of a price.
type PricePoint struct {
	Date  time.Time
	Price decimal.Decimal
}

const dateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string          `json:"date"`
		Price json.RawMessage `json:"price"`
	}{
		Date:  p.Date.Format(dateLayout),
		Price: json.RawMessage(p.Price.String()),
	})
}

func (p *PricePoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date  string          `json:"date"`
		Price decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	p.Date, p.Price = d, raw.Price
	return nil
}

// History is a resolved price series tagged with the marketplace that
// produced it. Source is None when nothing produced data.
type History struct {
	Source Tag          `json:"source"`
	Series []PricePoint `json:"history"`
}

// Empty is the terminal result when no marketplace produced data.
func Empty() History { return History{Source: None, Series: []PricePoint{}} }

// Last returns the most recent point of the series.
func (h History) Last() (PricePoint, bool) {
	if len(h.Series) == 0 {
		return PricePoint{}, false
	}
	return h.Series[len(h.Series)-1], true
}
