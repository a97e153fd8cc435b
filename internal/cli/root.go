package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the campaignkit command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "campaignkit",
		Short: "Maintain a cross-linked campaign knowledge base from session summaries",
		Long: `Campaignkit folds structured session summaries into a persistent
campaign index: characters, locations, factions, and events are registered
once and cross-referenced across every session that mentions them. Markdown
notes and a JSON snapshot are projected from the index after every merge.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("vault", ".", "Campaign vault directory")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the vault layout, config file, and campaign index",
		RunE:  RunInit,
	}

	mergeCmd := &cobra.Command{
		Use:   "merge <summary.json>",
		Short: "Merge a structured session summary into the campaign index",
		Args:  cobra.ExactArgs(1),
		RunE:  RunMerge,
	}
	mergeCmd.Flags().Bool("json", false, "Print a machine-readable merge result")

	summarizeCmd := &cobra.Command{
		Use:   "summarize <transcript>",
		Short: "Build a structured summary from a transcript without a model",
		Args:  cobra.ExactArgs(1),
		RunE:  RunSummarize,
	}
	summarizeCmd.Flags().String("title", "", "Session title (default: Session Notes <date>)")
	summarizeCmd.Flags().String("date", "", "Session date, YYYY-MM-DD (required)")
	summarizeCmd.Flags().StringP("output", "o", "", "Write summary JSON here instead of stdout")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Regenerate every note projection from the index",
		RunE:  RunRender,
	}

	continuityCmd := &cobra.Command{
		Use:   "continuity",
		Short: "Show the previously-on context for the next session",
		RunE:  RunContinuity,
	}
	continuityCmd.Flags().String("as-of", "", "Build context from sessions strictly before this date")
	continuityCmd.Flags().Bool("json", false, "Print the machine-readable context")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List merged sessions in date order",
		RunE:  RunSessions,
	}
	sessionsCmd.Flags().Bool("json", false, "Print machine-readable session records")

	entitiesCmd := &cobra.Command{
		Use:   "entities",
		Short: "List registered entities",
		RunE:  RunEntities,
	}
	entitiesCmd.Flags().String("category", "", "Restrict to one category: character|location|faction|event")
	entitiesCmd.Flags().Bool("json", false, "Print machine-readable entity records")

	hooksCmd := &cobra.Command{
		Use:   "hooks",
		Short: "List unresolved hooks across the campaign",
		RunE:  RunHooks,
	}
	hooksCmd.Flags().Bool("json", false, "Print machine-readable hook records")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate index integrity and note projections",
		RunE:  RunCheck,
	}
	checkCmd.Flags().Bool("json", false, "Print machine-readable issues")

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the whole-index JSON snapshot to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  RunExport,
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Rebuild the campaign index from a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE:  RunImport,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("campaignkit %s\n", version)
		},
	}

	rootCmd.AddCommand(
		initCmd,
		mergeCmd,
		summarizeCmd,
		renderCmd,
		continuityCmd,
		sessionsCmd,
		entitiesCmd,
		hooksCmd,
		checkCmd,
		exportCmd,
		importCmd,
		versionCmd,
	)

	return rootCmd
}
