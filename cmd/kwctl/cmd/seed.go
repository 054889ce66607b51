package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kwintel/internal/config"
	"kwintel/internal/dictionary"
	"kwintel/internal/models"
)

var (
	seedConfigFile string
	seedNote       string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Publish a dictionary version from the built-in seed",
	Long: `Publish a new dictionary version containing the built-in EN/AR seed
plus any extra terms and custom rules from the YAML config file.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedConfigFile, "config", "", "YAML file with extra terms and rules (default: $CONFIG_FILE or config.yaml)")
	seedCmd.Flags().StringVar(&seedNote, "note", "seed", "note stored with the version")
}

// seedContent returns the seed entries merged with the configured extras.
func seedContent(path string) ([]models.DictionaryEntry, []models.CustomRule, error) {
	entries, err := dictionary.LoadSeedFS(dictionary.SeedFS, dictionary.SeedDir)
	if err != nil {
		return nil, nil, err
	}

	var yamlCfg *config.YAMLConfig
	if path != "" {
		yamlCfg, err = config.LoadYAMLFile(path)
	} else {
		yamlCfg, err = config.LoadYAMLConfig()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		seen[string(e.Language)+"|"+e.Term] = "seed"
	}
	extra, err := yamlCfg.Entries(seen)
	if err != nil {
		return nil, nil, err
	}
	rules, err := yamlCfg.Rules()
	if err != nil {
		return nil, nil, err
	}
	return append(entries, extra...), rules, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	entries, rules, err := seedContent(seedConfigFile)
	if err != nil {
		return err
	}

	database, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := database.PublishVersion(cmd.Context(), seedNote, entries, rules)
	if err != nil {
		return fmt.Errorf("publish version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published version %d (%d entries, %d rules)\n", version, len(entries), len(rules))
	return nil
}
