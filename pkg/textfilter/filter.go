// Package textfilter softens explicit language in model narration for
// stories that have not opted into mature content.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps explicit words to tamer alternatives. Words with no
// good alternative are censored outright. Vietnamese entries cover the
// narration language of most stories.
var replacements = map[string]string{
	"fuck":         "screw",
	"shit":         "crap",
	"bitch":        "wretch",
	"bastard":      "scoundrel",
	"asshole":      "lout",
	"motherfucker": "[censored]",
	"cock":         "[censored]",
	"pussy":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"địt":          "[censored]",
	"đụ":           "[censored]",
	"lồn":          "[censored]",
	"cặc":          "[censored]",
	"đĩ":           "ả ta",
	"chó má":       "khốn kiếp",
}

// Filter rewrites explicit language in narration text. It is applied to
// model output only when the story's world context does not allow NSFW
// content.
type Filter struct {
	patterns map[string]*regexp.Regexp
	titler   cases.Caser
}

func New() *Filter {
	f := &Filter{
		patterns: make(map[string]*regexp.Regexp, len(replacements)),
		titler:   cases.Title(language.English),
	}
	for word := range replacements {
		f.patterns[word] = regexp.MustCompile(wordPattern(word))
	}
	return f
}

// wordPattern builds a case-insensitive whole-word pattern. \b only
// understands ASCII word characters, so words with Vietnamese letters
// get explicit non-letter boundaries instead.
func wordPattern(word string) string {
	if isASCII(word) {
		return `(?i)\b` + regexp.QuoteMeta(word) + `\b`
	}
	return `(?i)(?:^|[^\p{L}])(` + regexp.QuoteMeta(word) + `)(?:[^\p{L}]|$)`
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Clean replaces every listed word, preserving the case shape of the
// original match.
func (f *Filter) Clean(text string) string {
	result := text
	for word, replacement := range replacements {
		// A non-ASCII match consumes its boundary character, which hides
		// a back-to-back occurrence from the same pass. Rerun until the
		// text stops changing.
		for {
			next := f.patterns[word].ReplaceAllStringFunc(result, func(match string) string {
				// Non-ASCII patterns match their boundary characters too;
				// keep those and swap only the word itself.
				lead, word, trail := splitBoundaries(match)
				return lead + f.preserveCase(word, replacement) + trail
			})
			if next == result {
				break
			}
			result = next
		}
	}
	return result
}

// splitBoundaries separates the non-letter boundary runes a match may
// include from the matched word itself.
func splitBoundaries(match string) (lead, word, trail string) {
	word = match
	for len(word) > 0 {
		r := []rune(word)[0]
		if unicode.IsLetter(r) {
			break
		}
		lead += string(r)
		word = word[len(string(r)):]
	}
	trimmed := strings.TrimRightFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
	trail = word[len(trimmed):]
	return lead, trimmed, trail
}

// Contains reports whether the text has any listed word.
func (f *Filter) Contains(text string) bool {
	for _, pattern := range f.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase applies the case shape of the matched word to its
// replacement: ALL CAPS, all lower, or Title Case.
func (f *Filter) preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original && strings.ContainsFunc(original, unicode.IsLetter) {
		return strings.ToUpper(replacement)
	}
	if f.titler.String(strings.ToLower(original)) == original {
		return f.titler.String(replacement)
	}
	return strings.ToLower(replacement)
}
