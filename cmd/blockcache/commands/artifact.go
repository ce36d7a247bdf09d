package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/blockcache"
	"github.com/hupe1980/blockcache/artifact"
)

var (
	artifactEncoding string
	artifactOutput   string
	artifactFrame    bool
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Store and fetch content-addressed artifacts",
	Long: `Artifacts are addressed by the BLAKE2b-160 hash of their content and cached
as frames in one of the raw, zstd or lz4 encodings. When an origin is
configured, artifacts are written through to it and misses are filled from it.

Examples:
  # Store an object file compressed with zstd
  blockcache artifact put --encoding zstd ./main.o

  # Fetch it decoded, filling an lz4 copy from the origin
  blockcache artifact get lz4:<hash> -o main.o`,
}

var artifactPutCmd = &cobra.Command{
	Use:   "put [FILE]",
	Short: "Store an artifact and print its key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := artifact.ParseEncoding(artifactEncoding)
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		content, err := readInput(name, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withArtifacts(cmd, func(store *artifact.Store) error {
			h, err := store.Put(cmd.Context(), content, enc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), artifact.Key{Encoding: enc, Hash: h})
			return nil
		})
	},
}

var artifactGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Fetch an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := artifact.ParseKey(args[0])
		if err != nil {
			return err
		}
		return withArtifacts(cmd, func(store *artifact.Store) error {
			w, closeFn, err := openOutput(artifactOutput, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if artifactFrame {
				h, err := store.Open(cmd.Context(), k)
				if err != nil {
					_ = closeFn()
					return err
				}
				_, err = h.WriteTo(w)
				h.Release()
				if err != nil {
					_ = closeFn()
					return err
				}
				return closeFn()
			}

			content, err := store.Content(cmd.Context(), k)
			if err != nil {
				_ = closeFn()
				return err
			}
			if _, err := w.Write(content); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		})
	},
}

func withArtifacts(cmd *cobra.Command, fn func(store *artifact.Store) error) error {
	rc, err := newController(cfg)
	if err != nil {
		return err
	}
	return withCacheOptions([]blockcache.Option{blockcache.WithResourceController(rc)},
		func(cache *blockcache.Cache, logger *blockcache.Logger) error {
			store, err := openArtifacts(cmd.Context(), cfg, cache, rc, logger)
			if err != nil {
				return err
			}
			return fn(store)
		})
}

func init() {
	artifactPutCmd.Flags().StringVarP(&artifactEncoding, "encoding", "e", "raw", "cache encoding (raw, zstd, lz4)")
	artifactGetCmd.Flags().StringVarP(&artifactOutput, "output", "o", "", "write to a file instead of stdout")
	artifactGetCmd.Flags().BoolVar(&artifactFrame, "frame", false, "write the cached frame instead of the decoded content")

	artifactCmd.AddCommand(artifactPutCmd)
	artifactCmd.AddCommand(artifactGetCmd)
}
