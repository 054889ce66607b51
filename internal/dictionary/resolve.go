package dictionary

import (
	"sort"

	"kwintel/internal/models"
	"kwintel/internal/normalize"
)

// Resolve folds append-only history into the state visible at versionID.
// For each (language, normalized term) the latest entry at or below the
// version wins and tombstones remove the term. For each rule key the latest
// rule at or below the version wins; inactive rules are kept so that a
// deactivation supersedes an older active revision.
func Resolve(entries []models.DictionaryEntry, rules []models.CustomRule, versionID int64) SnapshotData {
	latestEntries := make(map[string]models.DictionaryEntry)
	for _, e := range entries {
		if e.VersionID > versionID {
			continue
		}
		key := string(e.Language) + "|" + normalize.Normalize(e.Term, e.Language).Normalized
		if cur, ok := latestEntries[key]; !ok || e.VersionID > cur.VersionID {
			latestEntries[key] = e
		}
	}

	latestRules := make(map[string]models.CustomRule)
	for _, r := range rules {
		if r.VersionID > versionID {
			continue
		}
		if cur, ok := latestRules[r.RuleKey]; !ok || r.VersionID > cur.VersionID {
			latestRules[r.RuleKey] = r
		}
	}

	data := SnapshotData{VersionID: versionID}
	for _, e := range latestEntries {
		if e.Tombstone {
			continue
		}
		data.Entries = append(data.Entries, e)
	}
	for _, r := range latestRules {
		data.Rules = append(data.Rules, r)
	}

	sort.Slice(data.Entries, func(i, j int) bool {
		a, b := data.Entries[i], data.Entries[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Term < b.Term
	})
	sort.Slice(data.Rules, func(i, j int) bool {
		return data.Rules[i].RuleKey < data.Rules[j].RuleKey
	})
	return data
}
