package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
)

func newIndexCmd(v *viper.Viper, reindex bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every mounted root",
		Long: `Walk every mounted root and bring the index up to date. Unchanged
entries are skipped by size and modification time; new and changed files
are fingerprinted. Records for vanished paths are left for "scan".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, v, reindex)
		},
	}
	if reindex {
		cmd.Use = "reindex"
		cmd.Short = "Clear the index and rebuild it from disk"
		cmd.Long = `Delete every record and index all mounted roots from scratch.`
	}
	return cmd
}

func runIndex(cmd *cobra.Command, v *viper.Viper, reindex bool) error {
	ctx := cmd.Context()
	ix, err := openIndex(ctx, v)
	if err != nil {
		return err
	}
	defer ix.Close()

	stop := watchProgress(cmd.OutOrStdout(), ix.idx, v.GetBool("quiet"))
	var stats indexer.WalkStats
	if reindex {
		stats, err = ix.idx.ReindexAll(ctx)
	} else {
		stats, err = ix.idx.IndexAll(ctx)
	}
	stop()
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Visited:   %d\n", stats.Visited)
	fmt.Fprintf(out, "Written:   %d\n", stats.Written)
	fmt.Fprintf(out, "Unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(out, "Errors:    %d\n", stats.Errors)
	return nil
}

// watchProgress reports walk progress until the returned func is called:
// a progress bar on a terminal, periodic log lines otherwise.
func watchProgress(out io.Writer, idx *indexer.Indexer, quiet bool) func() {
	if quiet {
		return func() {}
	}

	var bar *progressbar.ProgressBar
	interval := 10 * time.Second
	if isTerminal(out) {
		// Indeterminate: the tree size is unknown until the walk ends.
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("Indexing"),
			progressbar.OptionSetWidth(min(40, terminalWidth()/3)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("nodes"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
		interval = 200 * time.Millisecond
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				if bar != nil {
					_ = bar.Finish()
				}
				return
			case <-ticker.C:
				p := idx.GetProgress()
				if !p.IsIndexing {
					continue
				}
				if bar != nil {
					bar.Describe(fmt.Sprintf("Indexing | %d written | %d errors", p.Written, p.Errors))
					_ = bar.Set64(p.Visited)
				} else {
					logging.Info("Progress: %d visited, %d written, %d errors", p.Visited, p.Written, p.Errors)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func newScanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Drop index records whose paths are gone",
		Long: `Check every record against disk. Records for vanished paths and paths
outside the mounted roots are deleted; broken symlinks are removed from disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, err := openIndex(ctx, v)
			if err != nil {
				return err
			}
			defer ix.Close()

			stats, err := ix.idx.ScanDatabaseRows(ctx)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked:      %d\n", stats.Checked)
			fmt.Fprintf(out, "Removed:      %d\n", stats.Removed)
			fmt.Fprintf(out, "Broken links: %d\n", stats.BrokenLinks)
			fmt.Fprintf(out, "Outside root: %d\n", stats.OutsideRoot)
			return nil
		},
	}
}
