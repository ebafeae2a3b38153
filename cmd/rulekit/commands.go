package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/c360studio/rulekit/config"
	"github.com/c360studio/rulekit/output"
	"github.com/c360studio/rulekit/target"
	"github.com/spf13/cobra"
)

func generateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Write target files from the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(opts)
			if err != nil {
				return err
			}
			_, err = r.generate(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
}

func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if generated files differ from the corpus",
		Long: `Check runs the same pipeline as generate but compares the result with the
files on disk instead of writing. It prints a diff for every stale or
missing file and exits non-zero, which makes it suitable for CI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(opts)
			if err != nil {
				return err
			}
			p, err := r.plan()
			if err != nil {
				return err
			}

			drifts, err := output.Check(p.files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range drifts {
				fmt.Fprintf(out, "%s (%s)\n%s\n", d.File.RelPath, d.Kind, d.Patch)
			}
			printFailures(out, p.report)

			if len(drifts) > 0 {
				return fmt.Errorf("%w: %d files", errDrift, len(drifts))
			}
			if p.report.Failed() {
				return fmt.Errorf("%w: %d", errDocumentsFailed, len(p.report.Failures))
			}
			fmt.Fprintf(out, "%d files up to date\n", len(p.files))
			return nil
		},
	}
}

func targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List supported targets",
		Run: func(cmd *cobra.Command, args []string) {
			layouts := output.DefaultLayouts()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TARGET\tEXT\tSKILLS\tWORKFLOWS\tAGGREGATES\tRULES DIR")
			for _, d := range target.NewRegistry().Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID,
					d.OutputFileExtension,
					yesNo(d.Capabilities.Skills),
					yesNo(d.Capabilities.Workflows),
					yesNo(d.AggregatesGlobals),
					layouts[d.ID].RulesDir)
			}
			_ = tw.Flush()
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default rulekit.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			path, err := config.NewLoader(nil).InitProject(cwd)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
