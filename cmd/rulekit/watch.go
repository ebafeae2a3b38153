package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/c360studio/rulekit/source"
	"github.com/spf13/cobra"
)

func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate target files whenever the corpus changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(opts)
			if err != nil {
				return err
			}

			// Setup signal handling
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return r.watch(ctx, cmd)
		},
	}
}

// watch generates once, then regenerates after every debounced batch of
// corpus changes until ctx is done.
func (r *runner) watch(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	p, err := r.generate(ctx, out)
	if err != nil && !errors.Is(err, errDocumentsFailed) {
		return err
	}

	w, err := source.NewWatcher(r.cfg.Watch, r.cfg.SourceDir(), r.logger)
	if err != nil {
		return err
	}
	if p != nil {
		w.Seed(p.docs)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Fprintf(out, "Watching %s\n", r.cfg.SourceDir())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Watch stopped")
			return nil

		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			r.logger.Info("Corpus changed", "path", event.Path, "op", event.Operation)
			drain(w.Events())

			// TODO: remove generated files whose source document was deleted
			if _, err := r.generate(ctx, out); err != nil {
				r.logger.Error("Regeneration failed", "error", err)
			}
		}
	}
}

// drain discards events already queued so one batch triggers one run.
func drain(events <-chan source.WatchEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
