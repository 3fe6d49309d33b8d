package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

const app = "examlint"

var errInvalid = errors.New("one or more documents failed validation")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          app,
		Short:        "examlint validates generated exam documents and extracts JSON from model output",
		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd(), newExtractCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file...>",
		Short: "Validate one or more exam documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				b, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				_, res := usecase.ValidateExamOutput(string(b))
				if !res.OK {
					failed = true
				}
				if asJSON {
					line, _ := json.Marshal(struct {
						File string `json:"file"`
						OK   bool   `json:"ok"`
						Err  string `json:"error,omitempty"`
						N    int    `json:"count,omitempty"`
					}{path, res.OK, res.Error, res.Count})
					fmt.Fprintln(cmd.OutOrStdout(), string(line))
					continue
				}
				if res.OK {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d questions)\n", path, res.Count)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid: %s\n", path, res.Error)
				}
			}
			if failed {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print one JSON object per file")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the first JSON object found in a model response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			ext := ai.ExtractJSON(string(b))
			doc, ok := ext.Doc()
			if !ok {
				return fmt.Errorf("%s: %w", args[0], ext.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return nil
		},
	}
}
