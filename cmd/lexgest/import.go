package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/lexgest/internal/app"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	importFile   string
	importFolder string
	importReset  bool
	importForce  bool
	importIndex  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extract the structure of one document or a folder of documents",
	Long: `Parse documents, extract their chapter/section/article hierarchy and merge it
into the stored structure. Documents in a folder are merged in file-name order;
a later document replaces articles with the same label.

Chunks are regenerated afterwards. Pass --index to also rebuild the vector index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (importFile == "") == (importFolder == "") {
			return errors.New("exactly one of --pdf or --folder is required")
		}
		paths := []string{importFile}
		if importFolder != "" {
			var err error
			if paths, err = supportedFiles(importFolder); err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported documents in %s", importFolder)
			}
		}
		docs, err := readDocuments(paths)
		if err != nil {
			return err
		}

		a, _, err := buildApp(cmd.Context(), app.Needs{Index: importIndex})
		if err != nil {
			return err
		}
		defer a.Close()

		job, res, err := a.Ingestor.Ingest(cmd.Context(), docs, pipeline.IngestOptions{Reset: importReset, Force: importForce})
		printJob(cmd.OutOrStdout(), job.Snapshot(), res)
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "pdf", "", "Document to import (pdf, docx, txt, md or html)")
	importCmd.Flags().StringVar(&importFolder, "folder", "", "Folder of documents to import")
	importCmd.Flags().BoolVar(&importReset, "reset", false, "Discard the stored structure before importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Re-import documents that were already ingested")
	importCmd.Flags().BoolVar(&importIndex, "index", false, "Rebuild the vector index after importing")
	rootCmd.AddCommand(importCmd)
}

// supportedFiles lists the parseable files directly inside dir, sorted.
func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func readDocuments(paths []string) ([]pipeline.Document, error) {
	docs := make([]pipeline.Document, 0, len(paths))
	for _, p := range paths {
		if !parser.IsSupportedExtension(p) {
			return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(p))
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, pipeline.Document{Name: filepath.Base(p), Data: data})
	}
	return docs, nil
}
