// internal/personalization/colors.go
// Color/style token utilities: canonicalization, RGB/HSV math, seasons

package personalization

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// colorSynonyms maps common variants to one canonical token so that
// "navy blue" and "dark navy" compare equal. Unrecognized tokens fall
// back to substring matching in matchTokens.
var colorSynonyms = map[string]string{
	"navy blue":      "navy",
	"dark navy":      "navy",
	"dark navy blue": "navy",
	"midnight blue":  "navy",
	"sky blue":       "light blue",
	"baby blue":      "light blue",
	"powder blue":    "light blue",
	"royal blue":     "blue",
	"off white":      "white",
	"off-white":      "white",
	"ivory":          "cream",
	"eggshell":       "cream",
	"charcoal":       "grey",
	"gray":           "grey",
	"charcoal grey":  "grey",
	"charcoal gray":  "grey",
	"wine":           "maroon",
	"burgundy":       "maroon",
	"crimson":        "red",
	"scarlet":        "red",
	"rust":           "orange",
	"tangerine":      "orange",
	"gold":           "yellow",
	"mustard":        "yellow",
	"olive green":    "olive",
	"forest green":   "green",
	"emerald":        "green",
	"mint":           "mint green",
	"lavender":       "purple",
	"lilac":          "purple",
	"violet":         "purple",
	"fuchsia":        "pink",
	"magenta":        "pink",
	"hot pink":       "pink",
	"blush":          "pink",
	"tan":            "beige",
	"khaki":          "beige",
	"camel":          "beige",
	"chocolate":      "brown",
	"coffee":         "brown",
}

var styleSynonyms = map[string]string{
	"boho":          "bohemian",
	"athleisure":    "sporty",
	"business":      "formal",
	"office wear":   "formal",
	"officewear":    "formal",
	"indo western":  "fusion",
	"indo-western":  "fusion",
	"traditional":   "ethnic",
	"street":        "streetwear",
	"street style":  "streetwear",
	"smart casual":  "casual",
}

// namedColorHex lets us derive saturation/temperature for the usual
// descriptive tokens the generator emits.
var namedColorHex = map[string]string{
	"black":      "#000000",
	"white":      "#FFFFFF",
	"grey":       "#808080",
	"red":        "#DC143C",
	"maroon":     "#800000",
	"orange":     "#FFA500",
	"yellow":     "#FFD700",
	"green":      "#228B22",
	"olive":      "#808000",
	"mint green": "#98FF98",
	"teal":       "#008080",
	"blue":       "#1E90FF",
	"light blue": "#87CEEB",
	"navy":       "#000080",
	"purple":     "#8A2BE2",
	"pink":       "#FF69B4",
	"peach":      "#FFDAB9",
	"brown":      "#8B4513",
	"beige":      "#F5F5DC",
	"cream":      "#FFFDD0",
	"coral":      "#FF7F50",
	"turquoise":  "#40E0D0",
}

// canonicalColor normalizes a color token through the synonym table.
func canonicalColor(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if c, ok := colorSynonyms[t]; ok {
		return c
	}
	return t
}

func canonicalStyle(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if c, ok := styleSynonyms[t]; ok {
		return c
	}
	return t
}

// matchTokens reports whether two tokens refer to the same feature.
// Canonical equality first; substring containment (either direction)
// remains as a fallback for tokens the tables do not know.
func matchTokens(a, b string, canon func(string) string) bool {
	ca, cb := canon(a), canon(b)
	if ca == "" || cb == "" {
		return false
	}
	if ca == cb {
		return true
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

func colorsMatch(a, b string) bool { return matchTokens(a, b, canonicalColor) }
func stylesMatch(a, b string) bool { return matchTokens(a, b, canonicalStyle) }

// combinationKey builds the sorted fingerprint for a set of colors.
func combinationKey(colors []string) string {
	canon := make([]string, 0, len(colors))
	for _, c := range colors {
		canon = append(canon, canonicalColor(c))
	}
	sort.Strings(canon)
	return strings.Join(canon, "+")
}

type rgb struct {
	r, g, b float64 // 0-255
}

// parseColor resolves a token or "#RRGGBB" literal to RGB. Unknown
// tokens return ok=false and are skipped by the derived analyses.
func parseColor(token string) (rgb, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if strings.HasPrefix(t, "#") && len(t) == 7 {
		r, err1 := strconv.ParseUint(t[1:3], 16, 8)
		g, err2 := strconv.ParseUint(t[3:5], 16, 8)
		b, err3 := strconv.ParseUint(t[5:7], 16, 8)
		if err1 == nil && err2 == nil && err3 == nil {
			return rgb{float64(r), float64(g), float64(b)}, true
		}
		return rgb{}, false
	}
	if hex, ok := namedColorHex[canonicalColor(t)]; ok {
		return parseColor(hex)
	}
	return rgb{}, false
}

// saturation returns the HSV saturation in [0,1].
func (c rgb) saturation() float64 {
	maxC := math.Max(c.r, math.Max(c.g, c.b))
	minC := math.Min(c.r, math.Min(c.g, c.b))
	if maxC == 0 {
		return 0
	}
	return (maxC - minC) / maxC
}

// warmth returns (R-B)/255 in [-1,1]; positive leans warm.
func (c rgb) warmth() float64 {
	return (c.r - c.b) / 255.0
}

// recencyWeight is the step decay applied to historical signals.
func recencyWeight(at, now time.Time) float64 {
	age := now.Sub(at)
	switch {
	case age <= 30*24*time.Hour:
		return 1.0
	case age <= 90*24*time.Hour:
		return 0.75
	case age <= 180*24*time.Hour:
		return 0.5
	default:
		return 0.25
	}
}

// seasonOfMonth buckets a month into the fixed calendar mapping.
// June-September belongs to both summer and monsoon; CurrentSeason
// resolves the overlap in favor of monsoon.
func seasonsOfMonth(m time.Month) []Season {
	switch {
	case m >= time.June && m <= time.September:
		return []Season{SeasonSummer, SeasonMonsoon}
	case m >= time.April && m <= time.May:
		return []Season{SeasonSummer}
	default:
		return []Season{SeasonWinter}
	}
}

// CurrentSeason resolves the season used for scoring at time now.
func CurrentSeason(now time.Time) Season {
	m := now.Month()
	switch {
	case m >= time.June && m <= time.September:
		return SeasonMonsoon
	case m >= time.April && m <= time.May:
		return SeasonSummer
	default:
		return SeasonWinter
	}
}

// occasionBucket maps a free-text occasion to one of the four buckets.
func occasionBucket(occasion string) string {
	o := strings.ToLower(occasion)
	switch {
	case strings.Contains(o, "office") || strings.Contains(o, "work") || strings.Contains(o, "formal") || strings.Contains(o, "business"):
		return OccasionOffice
	case strings.Contains(o, "party") || strings.Contains(o, "night") || strings.Contains(o, "club") || strings.Contains(o, "cocktail"):
		return OccasionParty
	case strings.Contains(o, "ethnic") || strings.Contains(o, "wedding") || strings.Contains(o, "festive") || strings.Contains(o, "festival") || strings.Contains(o, "traditional"):
		return OccasionEthnic
	default:
		return OccasionCasual
	}
}
