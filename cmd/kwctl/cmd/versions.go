package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List published dictionary versions",
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	database, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	versions, err := database.ListVersionDetails(cmd.Context())
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no versions published. Run: kwctl seed")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tCREATED\tNOTE")
	for _, v := range versions {
		fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Note)
	}
	return w.Flush()
}
