package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kwintel/internal/cache"
	"kwintel/internal/dictionary"
	"kwintel/internal/engine"
	"kwintel/internal/models"
)

var (
	classifyOffline  bool
	classifyVersion  int64
	classifyEntity   string
	classifyLanguage string
	classifyJSON     bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <keyword>...",
	Short: "Classify keywords and show the chosen action",
	Long: `Classify keywords against a dictionary version and print the final
category, the action decided without performance metrics, and the evidence.

With --offline the built-in seed is used and no database is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyOffline, "offline", false, "classify against the built-in seed instead of the database")
	classifyCmd.Flags().Int64Var(&classifyVersion, "version", 0, "dictionary version to pin (default: latest)")
	classifyCmd.Flags().StringVar(&classifyEntity, "entity", "", "entity id for entity-scoped rules")
	classifyCmd.Flags().StringVar(&classifyLanguage, "lang", "", "language hint (en or ar)")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print JSON instead of a table")
}

// seedRepository serves the built-in seed as the only version.
type seedRepository struct {
	snap *dictionary.Snapshot
}

func (r seedRepository) LoadSnapshot(_ context.Context, versionID *int64) (*dictionary.Snapshot, error) {
	if versionID != nil && *versionID != r.snap.VersionID() {
		return nil, fmt.Errorf("offline mode only has version %d", r.snap.VersionID())
	}
	return r.snap, nil
}

func (r seedRepository) ListVersions(context.Context) ([]int64, error) {
	return []int64{r.snap.VersionID()}, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	var repo engine.SnapshotRepository
	if classifyOffline {
		snap, err := dictionary.SeedSnapshot(1)
		if err != nil {
			return err
		}
		repo = seedRepository{snap: snap}
	} else {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		repo = cache.New(nil, database, 0)
	}

	var version *int64
	if classifyVersion > 0 {
		version = &classifyVersion
	}

	keywords := make([]models.Keyword, len(args))
	for i, text := range args {
		keywords[i] = models.Keyword{
			ID:           strconv.Itoa(i + 1),
			Text:         text,
			LanguageHint: models.Language(classifyLanguage),
			EntityID:     classifyEntity,
		}
	}

	res, err := engine.New(repo, engine.Config{}).RunBatch(cmd.Context(), keywords, version, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "KEYWORD\tNORMALIZED\tCATEGORY\tACTION\tEVIDENCE\n")
	for i, pk := range res.Processed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			pk.Keyword.Text,
			pk.NormalizedTerm.Normalized,
			pk.FinalCategory,
			res.Decisions[i].Action,
			strings.Join(pk.Evidence, "; "))
	}
	fmt.Fprintf(w, "\nversion %d\n", res.VersionID)
	return w.Flush()
}
