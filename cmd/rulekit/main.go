// Package main provides the rulekit binary entry point.
// Rulekit generates rule, skill and memory files for AI coding assistants
// from a single markdown corpus.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "rulekit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the persistent flags shared by all subcommands.
type options struct {
	configPath string
	logLevel   string
	sourceDir  string
	outDir     string
	targets    []string
	techs      []string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Generate AI assistant rules from one corpus",
		Long: `Rulekit reads a corpus of markdown rules and skills and writes the
files each AI coding assistant expects:

- Cursor: .cursor/rules/*.mdc and .cursor/skills/
- Claude: .claude/rules/, .claude/skills/ and CLAUDE.md
- Agents: .agents/rules/ and AGENTS.md
- Windsurf: .windsurf/rules/ and .windsurf/workflows/

Rules marked alwaysApply are merged into a single file for targets that
read global rules from one place.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.logLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, default: rulekit.yaml in cwd or a parent)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.sourceDir, "source", "", "Corpus directory (overrides source.dir)")
	flags.StringVar(&opts.outDir, "out", "", "Output root (overrides output.root)")
	flags.StringSliceVarP(&opts.targets, "target", "t", nil, "Target to generate for, repeatable (overrides targets)")
	flags.StringSliceVar(&opts.techs, "tech", nil, "Technology rule set to include, repeatable (overrides technologies)")

	cmd.AddCommand(
		generateCmd(opts),
		checkCmd(opts),
		watchCmd(opts),
		targetsCmd(),
		initCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// setupLogging installs a text handler on stderr as the default logger.
func setupLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
