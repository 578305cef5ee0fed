// Package langdetect provides a lightweight content-based language
// heuristic for the languages the service localizes: Turkish, German,
// French, Spanish and English.
package langdetect

import "strings"

// Langs supported by detection, ISO 639-1
const (
	Turkish = "tr"
	German  = "de"
	French  = "fr"
	Spanish = "es"
	English = "en"
)

// Characters that strongly indicate a language
var charHints = map[string]string{
	"ğ": Turkish, "ş": Turkish, "ı": Turkish, "İ": Turkish,
	"ß": German,
	"œ": French,
	"¿": Spanish, "¡": Spanish, "ñ": Spanish,
}

// Common short words per language, matched on token boundaries
var wordHints = map[string][]string{
	Turkish: {"ve", "bir", "için", "bu", "ile", "olarak", "bina", "kat", "oda", "madde"},
	German:  {"und", "der", "die", "das", "mit", "für", "nicht", "gebäude", "raum", "zimmer"},
	French:  {"le", "la", "les", "des", "une", "est", "avec", "pour", "bâtiment", "pièce"},
	Spanish: {"el", "los", "las", "una", "con", "para", "este", "edificio", "planta", "habitación"},
	English: {"the", "and", "with", "for", "this", "that", "building", "room", "floor", "layout"},
}

// Detect returns the most likely language of the text, defaulting to English
func Detect(text string) string {
	if text == "" {
		return English
	}
	lower := strings.ToLower(text)

	scores := make(map[string]int)
	for hint, lang := range charHints {
		scores[lang] += strings.Count(lower, hint) * 3
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ',' || r == '.' || r == ';' || r == ':'
	})
	tokenSet := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok]++
	}
	for lang, words := range wordHints {
		for _, w := range words {
			scores[lang] += tokenSet[w]
		}
	}

	best, bestScore := English, 0
	for _, lang := range []string{Turkish, German, French, Spanish, English} {
		if scores[lang] > bestScore {
			best, bestScore = lang, scores[lang]
		}
	}
	return best
}

// SentenceDelimiters returns the sentence-ending characters for a language.
// Romance and agglutinative building codes commonly use colon and
// semicolon as clause terminators.
func SentenceDelimiters(lang string) []rune {
	switch lang {
	case Turkish, German, French, Spanish:
		return []rune{'.', '!', '?', ':', ';'}
	default:
		return []rune{'.', '!', '?'}
	}
}
