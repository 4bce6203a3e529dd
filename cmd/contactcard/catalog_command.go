package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/contactcard/internal/core"
)

func newFieldsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "fields",
		Short:       "List the fields a column can be mapped to",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := core.Fields()
			if jsonOutput {
				return writeJSON(cmd, fields)
			}

			rows := make([][]string, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, []string{f.Label, yesNo(f.Required), strings.Join(f.Aliases, ", ")})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Required", "Matched headers"},
				rows,
				nil,
				isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSampleCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "sample <path>",
		Short:       "Write an example CSV file (use - for stdout)",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == "-" {
				return core.WriteSample(cmd.OutOrStdout())
			}

			flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			file, err := os.OpenFile(path, flag, 0o644)
			if err != nil {
				return fmt.Errorf("create sample: %w", err)
			}
			if err := core.WriteSample(file); err != nil {
				file.Close()
				return fmt.Errorf("write sample: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample CSV written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
