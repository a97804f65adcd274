package main

import (
	"github.com/dgallion1/lexgest/internal/app"
	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/spf13/cobra"
)

var (
	segmentMaxSize int
	segmentOverlap int
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Regenerate chunks from the stored structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := buildApp(cmd.Context(), app.Needs{})
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := app.ChunkConfig(a.Config)
		if cmd.Flags().Changed("max-chunk-size") {
			cfg.MaxChunkSize = segmentMaxSize
		}
		if cmd.Flags().Changed("overlap") {
			cfg.Overlap = segmentOverlap
		}
		chunks, err := a.Ingestor.Segment(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		printChunkStats(cmd.OutOrStdout(), chunker.Summarize(chunks, cfg), cfg)
		return nil
	},
}

func init() {
	segmentCmd.Flags().IntVar(&segmentMaxSize, "max-chunk-size", 0, "Maximum chunk size in characters (default from config)")
	segmentCmd.Flags().IntVar(&segmentOverlap, "overlap", 0, "Overlap in characters (default from config)")
	rootCmd.AddCommand(segmentCmd)
}
