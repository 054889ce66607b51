package models

// Keyword is one paid-search keyword submitted for processing.
type Keyword struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	LanguageHint Language `json:"language,omitempty"`
	EntityID     string   `json:"entity_id,omitempty"`
	CampaignID   string   `json:"campaign_id,omitempty"`
	AdGroupID    string   `json:"ad_group_id,omitempty"`
	Isolated     bool     `json:"isolated,omitempty"`
}

// NormalizedTerm is the canonical form of a raw keyword.
type NormalizedTerm struct {
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	Language   Language `json:"language"`
	Tokens     []string `json:"tokens"`
}

// Span is a half-open token interval [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens covered.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one token.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Match is a single dictionary or rule hit inside a keyword.
type Match struct {
	Category   Category `json:"category"`
	Span       Span     `json:"span"`
	Source     Source   `json:"source"`
	Pattern    Pattern  `json:"pattern"`
	RuleKey    string   `json:"rule_key,omitempty"`
	Text       string   `json:"text"`
	Superseded bool     `json:"superseded,omitempty"`
}

// ProcessedKeyword is the classifier output for one keyword.
type ProcessedKeyword struct {
	Keyword        Keyword        `json:"keyword"`
	NormalizedTerm NormalizedTerm `json:"normalized_term"`
	Matches        []Match        `json:"matches"`
	FinalCategory  Category       `json:"final_category"`
	Evidence       []string       `json:"evidence"`
	VersionID      int64          `json:"version_id"`
}

// WinningMatches returns the matches that carry the final category and were
// not superseded by a longer overlapping match.
func (pk *ProcessedKeyword) WinningMatches() []Match {
	var out []Match
	for _, m := range pk.Matches {
		if m.Category == pk.FinalCategory && !m.Superseded {
			out = append(out, m)
		}
	}
	return out
}

// KeywordMetrics are performance signals supplied by the metrics provider.
type KeywordMetrics struct {
	Impressions         int64   `json:"impressions"`
	Clicks              int64   `json:"clicks"`
	Cost                float64 `json:"cost"`
	Conversions         float64 `json:"conversions"`
	ConversionValue     float64 `json:"conversion_value"`
	LandingPageMismatch *bool   `json:"landing_page_mismatch,omitempty"`
}

// HasLandingPageMismatch returns true only when the provider explicitly
// flagged a mismatch.
func (m *KeywordMetrics) HasLandingPageMismatch() bool {
	return m.LandingPageMismatch != nil && *m.LandingPageMismatch
}
