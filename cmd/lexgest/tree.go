package main

import (
	"github.com/dgallion1/lexgest/internal/app"
	"github.com/dgallion1/lexgest/internal/doctree"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/structure"
	"github.com/spf13/cobra"
)

var (
	treeFile     string
	treeArticles bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the stored chapter/section/article hierarchy",
	Long: `Print the stored hierarchy. With --file, extract the hierarchy of a single
document and print it without storing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st *doctree.Structure
		if treeFile != "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			text, err := parser.ParseFile(treeFile, parser.Options{PdftotextFallback: cfg.PDFFallbackPdftotext})
			if err != nil {
				return err
			}
			st = structure.NewExtractor(nil, cfg.Lookback).Extract(structure.Clean(text))
		} else {
			a, _, err := buildApp(cmd.Context(), app.Needs{})
			if err != nil {
				return err
			}
			defer a.Close()
			if st, err = a.Store.LoadStructure(); err != nil {
				return err
			}
		}
		printTree(cmd.OutOrStdout(), st, treeArticles)
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeFile, "file", "", "Extract and print a single document instead of the stored structure")
	treeCmd.Flags().BoolVar(&treeArticles, "text", false, "Include article text")
	rootCmd.AddCommand(treeCmd)
}
