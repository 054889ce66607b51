package dictionary

import (
	"fmt"
	"strings"

	"kwintel/internal/models"
	"kwintel/internal/normalize"
)

// CompiledPattern is a Pattern whose text has been run through the
// normalizer so it can be compared token-by-token with keywords.
type CompiledPattern struct {
	Pattern  models.Pattern
	Tokens   []string
	Language models.Language
}

// Compile normalizes the pattern text. A literal whose text normalizes to
// several tokens behaves like a phrase over those tokens.
func Compile(p models.Pattern) (CompiledPattern, error) {
	if err := p.Validate(); err != nil {
		return CompiledPattern{}, err
	}
	nt := normalize.Normalize(p.Text, "")
	if len(nt.Tokens) == 0 {
		return CompiledPattern{}, fmt.Errorf("pattern %s normalizes to nothing", p)
	}
	lang := nt.Language
	if lang == models.LanguageUnknown {
		lang = models.LanguageEN
	}
	return CompiledPattern{Pattern: p, Tokens: nt.Tokens, Language: lang}, nil
}

// IsPrefix reports whether the last token matches by prefix.
func (cp CompiledPattern) IsPrefix() bool {
	return cp.Pattern.Kind == models.PatternPrefix
}

// Key identifies patterns that compete in the overlay. Literal and phrase
// patterns over the same tokens share a key.
func (cp CompiledPattern) Key() string {
	if cp.IsPrefix() {
		return "prefix:" + strings.Join(cp.Tokens, " ")
	}
	return "seq:" + strings.Join(cp.Tokens, " ")
}

// Spans returns every token span of tokens matched by the pattern, in order.
func (cp CompiledPattern) Spans(tokens []string) []models.Span {
	n := len(cp.Tokens)
	if n == 0 || n > len(tokens) {
		return nil
	}
	var spans []models.Span
	for i := 0; i+n <= len(tokens); i++ {
		if cp.matchesAt(tokens, i) {
			spans = append(spans, models.Span{Start: i, End: i + n})
		}
	}
	return spans
}

func (cp CompiledPattern) matchesAt(tokens []string, i int) bool {
	last := len(cp.Tokens) - 1
	for j, want := range cp.Tokens {
		got := tokens[i+j]
		if j == last && cp.IsPrefix() {
			if !strings.HasPrefix(got, want) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
