package main

import (
	"fmt"

	"github.com/dgallion1/lexgest/internal/app"
	"github.com/spf13/cobra"
)

var indexForceSegmentation bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the stored chunks and rebuild the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := buildApp(cmd.Context(), app.Needs{Index: true})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Ingestor.Reindex(cmd.Context(), indexForceSegmentation)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printChunkStats(w, res.Chunks, app.ChunkConfig(a.Config))
		fmt.Fprintf(w, "%s %d chunks with %s\n", successStyle.Render("Indexed"), res.Indexed, a.Embedder.Name())
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForceSegmentation, "force-segmentation", false, "Regenerate chunks before indexing")
	rootCmd.AddCommand(indexCmd)
}
