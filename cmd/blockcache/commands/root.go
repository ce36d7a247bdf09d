// Package commands implements the blockcache command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockcache/internal/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
	cfg     *config.Config
)

// flagKeys maps persistent flags to their configuration keys.
var flagKeys = map[string]string{
	"dir":        "dir",
	"partitions": "partitions",
	"block-size": "block_size",
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

var rootCmd = &cobra.Command{
	Use:   "blockcache",
	Short: "Fixed-capacity block cache for build artifacts",
	Long: `blockcache stores build artifacts in memory-mapped partition files and
serves them over HTTP.

Configuration is read from blockcache.yaml in the working directory, the file
given by --config, BLOCKCACHE_* environment variables and flags, in
increasing order of precedence.

Examples:
  # Serve the cache
  blockcache serve --dir /var/cache/build

  # Store and fetch a value
  blockcache put obj-1 ./out.o
  blockcache get obj-1 > out.o

  # Debug logging through the environment
  BLOCKCACHE_LOGGING_LEVEL=debug blockcache serve`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./blockcache.yaml)")
	pf.String("dir", "", "directory holding the partition files")
	pf.Int("partitions", 0, "number of partitions (power of two)")
	pf.String("block-size", "", "block size, e.g. 32KiB")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(artifactCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader(cfgFile)
	v := loader.Viper()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	c, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
