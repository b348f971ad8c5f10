package engine

import (
	"github.com/shopspring/decimal"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
)

// PriceView is one price in the presentation currency.
type PriceView struct {
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

// ItemView is an Item converted for display. Null slots stay null.
type ItemView struct {
	Name     string                      `json:"name"`
	ImageURL string                      `json:"imageUrl"`
	Currency price.Currency              `json:"currency"`
	Prices   map[provider.Tag]*PriceView `json:"prices"`
	IDs      map[provider.Tag]*string    `json:"ids"`
	Best     *provider.Tag               `json:"best"`
}

// HistoryView is a resolved series converted for display.
type HistoryView struct {
	Source   provider.Tag          `json:"source"`
	Currency price.Currency        `json:"currency"`
	History  []provider.PricePoint `json:"history"`
}

// ParseCurrency maps user input to a currency, defaulting to the primary.
func ParseCurrency(s string) (price.Currency, bool) {
	switch price.Currency(s) {
	case "", price.USD, "usd":
		return price.USD, true
	case price.BRL, "brl":
		return price.BRL, true
	}
	return "", false
}

// NewPriceView converts a primary-currency amount.
func NewPriceView(amount decimal.Decimal, cur price.Currency, rate price.Rate) PriceView {
	v := price.Convert(amount, cur, rate)
	return PriceView{Amount: v, Display: price.Format(v, cur)}
}

// Present converts items to cur. Best names the marketplace with the
// lowest price.
func Present(items []*provider.Item, cur price.Currency, rate price.Rate) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{
			Name:     it.Name,
			ImageURL: it.ImageURL,
			Currency: cur,
			Prices:   make(map[provider.Tag]*PriceView, len(it.Prices)),
			IDs:      it.IDs,
		}
		var best decimal.NullDecimal
		for _, tag := range provider.Tags {
			p := it.Prices[tag]
			if !p.Valid {
				v.Prices[tag] = nil
				continue
			}
			pv := NewPriceView(p.Decimal, cur, rate)
			v.Prices[tag] = &pv
			if !best.Valid || p.Decimal.LessThan(best.Decimal) {
				best = p
				t := tag
				v.Best = &t
			}
		}
		out = append(out, v)
	}
	return out
}

// PresentHistory converts a series to cur.
func PresentHistory(h provider.History, cur price.Currency, rate price.Rate) HistoryView {
	series := make([]provider.PricePoint, len(h.Series))
	for i, p := range h.Series {
		series[i] = provider.PricePoint{Date: p.Date, Price: price.Convert(p.Price, cur, rate)}
	}
	return HistoryView{Source: h.Source, Currency: cur, History: series}
}
