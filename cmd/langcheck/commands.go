package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/langcheck/internal/correction"
	"github.com/nerrad567/langcheck/internal/match"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Report grammar, style and spelling problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			c, err := flags.newClient(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			matches, err := c.Check(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				if matches == nil {
					matches = []match.Match{}
				}
				if err := writeJSON(out, matches); err != nil {
					return err
				}
			} else {
				printMatches(out, text, matches)
			}

			if fail && len(matches) > 0 {
				return fmt.Errorf("%w: %d", errProblemsFound, len(matches))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fail, "fail", false, "exit with status 2 when problems are found")
	return cmd
}

// printMatches writes one block per match, located by line and column.
func printMatches(w io.Writer, text string, matches []match.Match) {
	for _, m := range matches {
		line, col, err := m.LineAndColumn(text)
		if err != nil {
			fmt.Fprintf(w, "offset %d: %s [%s]\n", m.Offset, m.Message, m.RuleID)
		} else {
			fmt.Fprintf(w, "%d:%d: %s [%s]\n", line, col, m.Message, m.RuleID)
		}
		if len(m.Replacements) > 0 {
			fmt.Fprintf(w, "    suggestion: %s\n", strings.Join(m.Replacements, ", "))
		}
	}
}

func newCorrectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "correct [file...]",
		Short: "Print the text with the first suggestion of every problem applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			c, err := flags.newClient(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			corrected, err := c.Correct(cmd.Context(), text)
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"corrected": corrected})
			}
			_, err = io.WriteString(cmd.OutOrStdout(), corrected)
			return err
		},
	}
}

func newClassifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file...]",
		Short: "Report whether the text is correct, faulty or garbage",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			c, err := flags.newClient(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.Classify(cmd.Context(), text)
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]correction.Status{"status": status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newLanguagesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the language tags the server supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.newClient(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			langs, err := c.Languages(cmd.Context())
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), langs)
			}
			for _, lang := range langs {
				fmt.Fprintln(cmd.OutOrStdout(), lang)
			}
			return nil
		},
	}
}

func newVersionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "langcheck %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
