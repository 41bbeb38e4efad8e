package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiver-labs/quiver-cli/internal/core/services"
)

func TestPrintCleanupReport(t *testing.T) {
	t.Run("dry run announces what would happen", func(t *testing.T) {
		var buf strings.Builder
		printCleanupReport(&buf, services.CleanupReport{
			DryRun: true,
			Collections: []services.CollectionReport{{
				Collection: "memories",
				Scanned:    8,
				Candidates: []services.DeletionCandidate{{
					DocumentID:      "doc-1",
					Title:           "Old notes",
					Preview:         "some forgotten text",
					RelevanceScore:  2,
					DaysSinceAccess: 400,
					EffectiveScore:  0.4,
					ChunkCount:      3,
				}},
				Kept: 4,
			}},
			Deleted: 1,
			Kept:    4,
		})

		out := buf.String()
		assert.Contains(t, out, `collection "memories": 8 point(s), would delete 1, kept 4`)
		assert.Contains(t, out, `would delete doc-1 "Old notes" (3 chunk(s))`)
		assert.Contains(t, out, "idle 400 day(s)")
		assert.Contains(t, out, "some forgotten text")
		assert.Contains(t, out, "total: would delete 1, kept 4")
	})

	t.Run("real run reports deletions and flat point ids", func(t *testing.T) {
		var buf strings.Builder
		printCleanupReport(&buf, services.CleanupReport{
			Collections: []services.CollectionReport{{
				Collection: "legacy",
				Scanned:    2,
				Candidates: []services.DeletionCandidate{{
					PointID:    "p-7",
					Title:      "Loose point",
					ChunkCount: 1,
				}},
			}},
			Deleted: 1,
		})

		out := buf.String()
		assert.Contains(t, out, `collection "legacy": 2 point(s), deleted 1`)
		assert.Contains(t, out, `deleted p-7 "Loose point"`)
	})
}

func TestVersionCommand(t *testing.T) {
	var buf strings.Builder
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	assert.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "quiver version")
}
