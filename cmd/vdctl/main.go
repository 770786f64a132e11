package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"virtual-drive/internal/logging"
	"virtual-drive/internal/startup"
)

// newRootCmd builds the command tree around its own viper instance so each
// invocation starts from clean settings.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "vdctl",
		Short: "Maintain a virtual-drive index",
		Long: `vdctl (virtual drive control) indexes the mounted roots of a virtual
drive, garbage-collects stale records and inspects the fingerprint index
the server uses for flash transfer and deduplication.`,
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v, cfgFile); err != nil {
				return err
			}
			applyLogLevel(v)
			return nil
		},
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.String("db", "index.db", "index database file")
	flags.String("roots", "", "mounted directories, separated by ',' or the path list separator")
	flags.Int("workers", 0, "fingerprint workers (0 picks from the CPU count)")
	flags.Bool("skip-hidden", false, "skip files and directories starting with '.'")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, name := range []string{"db", "roots", "workers", "skip-hidden", "verbose", "quiet"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newIndexCmd(v, false),
		newIndexCmd(v, true),
		newScanCmd(v),
		newDuplicatesCmd(v),
		newResolveCmd(v),
		newPathsCmd(v),
		newFingerprintCmd(v),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	// Read in environment variables that match
	v.SetEnvPrefix("VD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	logging.Debug("Using config file: %s", v.ConfigFileUsed())
	return nil
}

func applyLogLevel(v *viper.Viper) {
	switch {
	case v.GetBool("quiet"):
		logging.SetLevel(logging.LevelError)
	case v.GetBool("verbose"):
		logging.SetLevel(logging.LevelDebug)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
