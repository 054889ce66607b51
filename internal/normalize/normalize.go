// Package normalize canonicalizes raw keyword strings so that dictionary
// terms and search queries compare equal regardless of case, diacritics,
// punctuation and spacing.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"kwintel/internal/models"
)

// arabicRanges covers the Arabic, Arabic Supplement, Arabic Extended-A and
// Arabic Presentation Forms blocks.
var arabicRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// keptSymbols carry meaning for classification ("100%", "$500", "c++").
const keptSymbols = "%$+"

// Normalize canonicalizes raw. An empty or unknown hint triggers detection.
// Unknown-language input is normalized with the English pipeline; the
// returned Language stays LanguageUnknown so the classifier can record it.
// Input that folds away to no tokens (bare tashkeel or tatweel, punctuation)
// is always LanguageUnknown, whatever the hint.
//
// Arabic folding only touches Arabic code points and lowercasing is a no-op
// on Arabic letters, so both run unconditionally: the normalized text never
// depends on the hint, only the reported Language does.
func Normalize(raw string, hint models.Language) models.NormalizedTerm {
	s := norm.NFC.String(strings.TrimSpace(raw))
	s = foldArabic(s)
	s = strings.ToLower(s)
	s = stripPunctuation(s)

	tokens := strings.Fields(s)
	normalized := norm.NFC.String(strings.Join(tokens, " "))
	if len(tokens) == 0 {
		tokens = []string{}
	} else {
		tokens = strings.Split(normalized, " ")
	}

	// Detection runs on the folded text so a second pass reports the same
	// language.
	lang := models.LanguageUnknown
	switch {
	case len(tokens) == 0:
	case hint == models.LanguageEN, hint == models.LanguageAR:
		lang = hint
	default:
		lang = Detect(normalized)
	}

	return models.NormalizedTerm{
		Original:   raw,
		Normalized: normalized,
		Language:   lang,
		Tokens:     tokens,
	}
}

// Detect returns LanguageAR when s contains any Arabic letter or mark,
// LanguageEN when it contains any other letter or digit, and
// LanguageUnknown otherwise.
func Detect(s string) models.Language {
	other := false
	for _, r := range s {
		if unicode.Is(arabicRanges, r) && (unicode.IsLetter(r) || unicode.IsMark(r)) {
			return models.LanguageAR
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			other = true
		}
	}
	if other {
		return models.LanguageEN
	}
	return models.LanguageUnknown
}

// foldArabic strips tashkeel and tatweel and folds alef/hamza carriers to a
// single canonical letter.
func foldArabic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isTashkeel(r) {
			continue
		}
		switch r {
		case 'أ', 'إ', 'آ', 'ٱ':
			r = 'ا'
		case 'ى', 'ئ':
			r = 'ي'
		case 'ؤ':
			r = 'و'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isTashkeel(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670, r == 0x0640:
		return true
	case r >= 0x06D6 && r <= 0x06ED:
		return true
	}
	return false
}

// stripPunctuation removes punctuation and symbols except keptSymbols.
// Apostrophes join their neighbours ("don't" -> "dont"), format characters
// vanish, and everything else becomes a separator.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(keptSymbols, r):
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == 'ʼ' || r == '`':
			// dropped
		case unicode.Is(unicode.Cf, r):
			// dropped
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
