// Package prompt assembles provider-ready prompts from task templates,
// retrieved passages, regional profiles and request context.
package prompt

import (
	"strings"

	"golang.org/x/text/language"
)

// Languages with localized templates
var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.Turkish,
	language.German,
	language.French,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

// LocaleAuto asks for content-based language detection instead of a
// BCP-47 tag
const LocaleAuto = "auto"

// IsAuto reports whether a locale requests content-based detection
func IsAuto(locale string) bool {
	return strings.EqualFold(strings.TrimSpace(locale), LocaleAuto)
}

// ResolvedLocale carries the language and region derived from a
// BCP-47 locale tag
type ResolvedLocale struct {
	Language string // ISO 639-1, lowercase
	Region   string // ISO 3166-1 alpha-2, uppercase; empty if absent
	Metric   bool
}

// ResolveLocale parses a BCP-47 tag and maps it onto the supported
// template languages. Unknown or empty locales resolve to English.
func ResolveLocale(locale string) ResolvedLocale {
	if locale == "" {
		return ResolvedLocale{Language: "en", Metric: true}
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return ResolvedLocale{Language: "en", Metric: true}
	}

	matched, _, _ := matcher.Match(tag)
	base, _ := matched.Base()

	// Only trust regions spelled out in the tag, not inferred ones
	region := ""
	if r, confidence := tag.Region(); confidence == language.Exact && r.IsCountry() {
		region = r.String()
	}

	return ResolvedLocale{
		Language: base.String(),
		Region:   strings.ToUpper(region),
		Metric:   region != "US" && region != "LR" && region != "MM",
	}
}
