package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockcache"
)

var scrubCmd = &cobra.Command{
	Use:   "scrub",
	Short: "Verify every cached value",
	Long: `Recompute the digest of every cached value and remove the corrupt ones.

Reads are paced by scrub.io_limit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rc, err := newController(cfg)
		if err != nil {
			return err
		}
		return withCacheOptions([]blockcache.Option{blockcache.WithResourceController(rc)},
			func(cache *blockcache.Cache, _ *blockcache.Logger) error {
				report, err := cache.Scrub(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked %d values (%s), removed %d corrupt, skipped %d\n",
					report.Checked, humanize.IBytes(uint64(report.Bytes)), report.Corrupt, report.Skipped)
				return nil
			})
	},
}
