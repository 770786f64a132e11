package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"virtual-drive/internal/dedup"
	"virtual-drive/internal/fingerprint"
)

func newDuplicatesCmd(v *viper.Viper) *cobra.Command {
	var (
		live    bool
		minSize string
	)

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report content stored under more than one path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := dedup.ReportOptions{LiveOnly: live}
			if minSize != "" {
				n, err := humanize.ParseBytes(minSize)
				if err != nil {
					return fmt.Errorf("invalid --min-size: %w", err)
				}
				opts.MinSize = int64(n)
			}

			ix, err := openIndex(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer ix.Close()

			svc := dedup.New(ix.idx, ix.db, dedup.Options{})
			groups, err := svc.FindDuplicates(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var reclaimable int64
			for _, g := range groups {
				fmt.Fprintf(out, "%s  %s  %d copies, %d links\n",
					g.Fingerprint, humanize.IBytes(uint64(g.Size)), g.Copies, len(g.Members)-g.Copies)
				for _, m := range g.Members {
					marker := " "
					if m.Link {
						marker = "@"
					}
					fmt.Fprintf(out, "  %s %s\n", marker, m.Path)
				}
				reclaimable += g.ReclaimableBytes
			}
			fmt.Fprintf(out, "%d groups, %s reclaimable\n", len(groups), humanize.IBytes(uint64(reclaimable)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "check every path against disk first")
	cmd.Flags().StringVar(&minSize, "min-size", "", "skip content smaller than this (e.g. 1MB)")
	return cmd
}

func newResolveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>",
		Short: "Print the fingerprint of a path, indexing it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndex(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer ix.Close()

			fp, err := ix.idx.ResolveFingerprint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fp)
			return nil
		},
	}
}

func newPathsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "paths <fingerprint>",
		Short: "Print every live path carrying a fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndex(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer ix.Close()

			paths, err := ix.idx.ResolvePaths(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newFingerprintCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <file>...",
		Short: "Fingerprint files without touching the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := fingerprintOptions(v)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, path := range args {
				res, err := fingerprint.Path(path, opts)
				if err != nil {
					return err
				}
				method := "full"
				switch {
				case res.Kind == fingerprint.KindDirectory:
					method = "directory"
				case res.Sketched:
					method = "sketch"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Fingerprint, humanize.IBytes(uint64(res.Size)), method, path)
			}
			return tw.Flush()
		},
	}
}
