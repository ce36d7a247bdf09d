package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockcache"
)

var getOutput string

var putCmd = &cobra.Command{
	Use:   "put KEY [FILE]",
	Short: "Store a value",
	Long: `Store the contents of FILE (or stdin) under KEY.

The first writer of a key wins: putting an existing key succeeds without
replacing the stored value.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		value, err := readInput(name, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withCache(func(cache *blockcache.Cache, _ *blockcache.Logger) error {
			if len(value) > cache.MaxValueSize() {
				return fmt.Errorf("value of %s exceeds the %s limit",
					humanize.IBytes(uint64(len(value))), humanize.IBytes(uint64(cache.MaxValueSize())))
			}
			if !cache.Add(args[0], value) {
				return errors.New("value was not cached")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], humanize.IBytes(uint64(len(value))))
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Fetch a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(cache *blockcache.Cache, _ *blockcache.Logger) error {
			h, ok := cache.Get(args[0])
			if !ok {
				return fmt.Errorf("%s: not cached", args[0])
			}
			defer h.Release()

			w, closeFn, err := openOutput(getOutput, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if _, err := h.WriteTo(w); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(cache *blockcache.Cache, _ *blockcache.Logger) error {
			if !cache.Delete(args[0]) {
				return fmt.Errorf("%s: not cached", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", args[0])
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache occupancy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCache(func(cache *blockcache.Cache, _ *blockcache.Logger) error {
			printStats(cmd, cache.Stats())
			return nil
		})
	},
}

func printStats(cmd *cobra.Command, s blockcache.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Items:       %s\n", humanize.Comma(int64(s.Items)))
	fmt.Fprintf(out, "Blocks:      %s of %s free (%s each)\n",
		humanize.Comma(int64(s.FreeBlocks)), humanize.Comma(int64(s.TotalBlocks)), humanize.IBytes(uint64(s.BlockSize)))
	fmt.Fprintf(out, "Used:        %s\n", humanize.IBytes(uint64(s.UsedBytes)))
	fmt.Fprintf(out, "Allocated:   %s\n", humanize.IBytes(uint64(s.AllocatedBytes)))
	fmt.Fprintf(out, "Capacity:    %s\n", humanize.IBytes(uint64(s.TotalBytes)))
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write the value to a file instead of stdout")
}
