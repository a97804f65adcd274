package main

import (
	"strings"

	"github.com/dgallion1/lexgest/internal/app"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question from the indexed articles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := buildApp(cmd.Context(), app.Needs{Generation: true})
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Router.Answer(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printAnswer(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
