package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quiver-labs/quiver-cli/internal/core/services"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stale documents by decayed relevance",
	Long: `Evaluate stored documents against an exponential relevance decay and
delete the stale ones.

Every access (search, list, update) raises a document's relevance
score; the cleanup discounts that score by e^(-lambda * days since the
last access) and deletes documents whose effective score falls below
the threshold. Externally synced documents are never deleted.

Use --dry-run to see what would be deleted. Use --flat for collections
written before the document/chunk model; it scores and deletes
individual points instead of whole documents.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "report candidates without deleting")
	cleanupCmd.Flags().Float64("threshold", services.DefaultCleanupThreshold, "effective score below which entries are deleted")
	cleanupCmd.Flags().Float64("decay-lambda", services.DefaultDecayLambda, "decay rate per day")
	cleanupCmd.Flags().String("collection", "", "restrict the run to one collection (default: all)")
	cleanupCmd.Flags().Bool("flat", false, "legacy per-point mode for pre-chunking collections")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dryRun, _ := flags.GetBool("dry-run")
	threshold, _ := flags.GetFloat64("threshold")
	lambda, _ := flags.GetFloat64("decay-lambda")
	collection, _ := flags.GetString("collection")
	flat, _ := flags.GetBool("flat")

	evaluator := services.NewCleanupEvaluator(vectorIndex, nil)
	report, err := evaluator.Run(cmd.Context(), services.CleanupOptions{
		DryRun:      dryRun,
		Threshold:   threshold,
		DecayLambda: lambda,
		Collection:  collection,
		Flat:        flat,
	})
	if err != nil {
		return err
	}

	printCleanupReport(cmd.OutOrStdout(), report)
	return nil
}

func printCleanupReport(w io.Writer, report services.CleanupReport) {
	verb := "deleted"
	if report.DryRun {
		verb = "would delete"
	}

	for _, cr := range report.Collections {
		fmt.Fprintf(w, "collection %q: %d point(s), %s %d, kept %d, no tracking %d, external %d\n",
			cr.Collection, cr.Scanned, verb, len(cr.Candidates), cr.Kept, cr.NoTracking, cr.External)
		for _, candidate := range cr.Candidates {
			label := candidate.DocumentID
			if label == "" {
				label = candidate.PointID
			}
			fmt.Fprintf(w, "  %s %s %q (%d chunk(s)): score %d, idle %.0f day(s), effective %.3f\n",
				verb, label, candidate.Title, candidate.ChunkCount,
				candidate.RelevanceScore, candidate.DaysSinceAccess, candidate.EffectiveScore)
			if candidate.Preview != "" {
				fmt.Fprintf(w, "    %s\n", candidate.Preview)
			}
		}
	}

	fmt.Fprintf(w, "total: %s %d, kept %d, no tracking %d, external %d\n",
		verb, report.Deleted, report.Kept, report.NoTracking, report.External)
}
