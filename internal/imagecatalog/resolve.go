// Package imagecatalog maps canonical item names to display images.
package imagecatalog

import (
	"net/url"
	"regexp"
	"strings"
)

// PlaceholderBase is the image service used when no catalog entry matches.
const PlaceholderBase = "https://placehold.co/600x400/1a1a1f/FFF?text="

const placeholderNameRunes = 20

var conditionSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// cosmeticMarkers are rarity and variant markers that catalog names omit.
var cosmeticMarkers = []string{"StatTrak™", "StatTrak", "Souvenir", "★"}

// Resolve returns an image URL for name. The first matching rule wins:
// exact name, name without its condition suffix, that stem without cosmetic
// markers, the first catalog name containing the cleaned stem, and finally a
// generated placeholder.
func Resolve(name string, c *Catalog) string {
	if c != nil {
		if img, ok := c.lookup(name); ok {
			return img
		}
		stem := StripCondition(name)
		if img, ok := c.lookup(stem); ok {
			return img
		}
		clean := StripMarkers(stem)
		if img, ok := c.lookup(clean); ok {
			return img
		}
		if img, ok := c.firstContaining(clean); ok {
			return img
		}
	}
	return Placeholder(name)
}

// StripCondition removes a trailing parenthesized condition such as
// "(Field-Tested)".
func StripCondition(name string) string {
	return strings.TrimSpace(conditionSuffix.ReplaceAllString(name, ""))
}

// StripMarkers removes cosmetic markers and collapses whitespace.
func StripMarkers(name string) string {
	for _, m := range cosmeticMarkers {
		name = strings.ReplaceAll(name, m, " ")
	}
	return strings.Join(strings.Fields(name), " ")
}

// Placeholder builds a generated image URL embedding a truncated name.
func Placeholder(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) == 0 {
		r = []rune("Skin")
	}
	if len(r) > placeholderNameRunes {
		r = r[:placeholderNameRunes]
	}
	return PlaceholderBase + strings.ReplaceAll(url.QueryEscape(string(r)), "+", "%20")
}
