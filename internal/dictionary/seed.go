package dictionary

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kwintel/internal/models"
	"kwintel/internal/normalize"
)

// SeedFS holds the built-in system dictionary.
//
//go:embed seed/*.yaml
var SeedFS embed.FS

// SeedDir is the directory inside SeedFS holding the seed files.
const SeedDir = "seed"

// seedFile is the YAML form of one language's dictionary.
type seedFile struct {
	Language   string         `yaml:"language"`
	Categories []SeedCategory `yaml:"categories"`
}

// SeedCategory lists the terms of one category.
type SeedCategory struct {
	Category string   `yaml:"category"`
	Terms    []string `yaml:"terms"`
}

// LoadSeedFS loads every YAML seed file in dir. Files are read in name order
// and a term may appear only once per language.
func LoadSeedFS(fsys fs.FS, dir string) ([]models.DictionaryEntry, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read seed dir %q: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})

	var entries []models.DictionaryEntry
	seen := make(map[string]string) // language|term -> file

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}
		path := dir + "/" + f.Name()
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var sf seedFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		parsed, err := ParseSeed(sf.Language, sf.Categories, f.Name(), seen)
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}

// ParseSeed converts one language's category lists into dictionary entries.
// seen tracks terms already loaded so duplicates across files are reported.
func ParseSeed(language string, categories []SeedCategory, origin string, seen map[string]string) ([]models.DictionaryEntry, error) {
	lang, err := models.ParseLanguage(language)
	if err != nil || lang == models.LanguageUnknown {
		return nil, fmt.Errorf("%s: language must be en or ar, got %q", origin, language)
	}

	var entries []models.DictionaryEntry
	for _, sc := range categories {
		cat, err := models.ParseCategory(sc.Category)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", origin, err)
		}
		for _, term := range sc.Terms {
			norm := normalize.Normalize(term, lang).Normalized
			if norm == "" {
				return nil, fmt.Errorf("%s: term %q normalizes to nothing", origin, term)
			}
			key := string(lang) + "|" + norm
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("duplicate term %q (first in %s, again in %s)", term, prev, origin)
			}
			seen[key] = origin
			entries = append(entries, models.DictionaryEntry{
				Term:     norm,
				Language: lang,
				Category: cat,
				Source:   models.SourceSystem,
			})
		}
	}
	return entries, nil
}

// SeedSnapshot builds a snapshot of the embedded seed at versionID. Used for
// offline classification when no database is configured.
func SeedSnapshot(versionID int64) (*Snapshot, error) {
	entries, err := LoadSeedFS(SeedFS, SeedDir)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].VersionID = versionID
	}
	return NewSnapshot(SnapshotData{VersionID: versionID, Entries: entries})
}
