package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kwintel/internal/dictionary"
	"kwintel/internal/models"
)

// YAMLConfig represents the structure of the config.yaml file.
// Dictionary additions are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Engine     EngineConfig     `yaml:"engine"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
}

// EngineConfig overrides the engine thresholds.
type EngineConfig struct {
	LeakageMinClicks   int64   `yaml:"leakage_min_clicks"`
	SpendCostThreshold float64 `yaml:"spend_cost_threshold"`
	BatchWorkers       int     `yaml:"batch_workers"`
}

// DictionaryConfig adds entries and rules on top of the embedded seed when
// the seed command publishes a version.
type DictionaryConfig struct {
	Languages []LanguageTerms `yaml:"languages"`
	Rules     []RuleConfig    `yaml:"rules"`
}

// LanguageTerms lists extra terms for one language.
type LanguageTerms struct {
	Language   string                    `yaml:"language"`
	Categories []dictionary.SeedCategory `yaml:"categories"`
}

// RuleConfig defines a custom rule in the YAML config.
type RuleConfig struct {
	Key      string         `yaml:"key"`
	Pattern  models.Pattern `yaml:"pattern"`
	Category string         `yaml:"category,omitempty"`
	Action   string         `yaml:"action,omitempty"`
	Entity   string         `yaml:"entity,omitempty"` // empty means account scope
	Priority int            `yaml:"priority"`
	Inactive bool           `yaml:"inactive,omitempty"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLFile(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLFile loads a YAML configuration file from path.
func LoadYAMLFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Entries converts the extra terms to custom-source dictionary entries.
// seen holds terms already defined (e.g. by the seed) so duplicates are
// reported.
func (c *YAMLConfig) Entries(seen map[string]string) ([]models.DictionaryEntry, error) {
	if c == nil {
		return nil, nil
	}
	if seen == nil {
		seen = make(map[string]string)
	}
	var out []models.DictionaryEntry
	for _, lt := range c.Dictionary.Languages {
		entries, err := dictionary.ParseSeed(lt.Language, lt.Categories, "config", seen)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Source = models.SourceCustom
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Rules converts the configured rules, validating closed-set values.
func (c *YAMLConfig) Rules() ([]models.CustomRule, error) {
	if c == nil {
		return nil, nil
	}
	rules := make([]models.CustomRule, 0, len(c.Dictionary.Rules))
	for _, rc := range c.Dictionary.Rules {
		r := models.CustomRule{
			RuleKey:  rc.Key,
			Pattern:  rc.Pattern,
			Scope:    models.ScopeAccount,
			EntityID: rc.Entity,
			Priority: rc.Priority,
			Active:   !rc.Inactive,
		}
		if rc.Entity != "" {
			r.Scope = models.ScopeEntity
		}
		if rc.Category != "" {
			cat, err := models.ParseCategory(rc.Category)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rc.Key, err)
			}
			r.CategoryOverride = &cat
		}
		if rc.Action != "" {
			act, err := models.ParseAction(rc.Action)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rc.Key, err)
			}
			r.ActionOverride = &act
		}
		if rc.Key == "" {
			return nil, fmt.Errorf("rule for %s has no key", rc.Pattern)
		}
		if err := dictionary.ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Key, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
