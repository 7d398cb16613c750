package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "keyword-cli",
	Short: "Keyword clustering and scoring pipeline",
	Long: `Imports keyword research exports, clusters keywords by topic, scores and ranks
the clusters, and proposes blog topics for the best ones.

Settings are read from ./config.yaml. Any key can be overridden with a
KEYWORD_ environment variable, dots becoming underscores:

  KEYWORD_ANTHROPIC_KEY     API key for topic proposals
  KEYWORD_KRA_PRODUCT       product the keywords are researched for
  KEYWORD_STORE_DRIVER      sqlite or postgres`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "root: load config")
		}
		cfg = c
		applyLogFlags(cmd.Flags(), &cfg.Log)

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "root: init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	addLogFlags(rootCmd.PersistentFlags())
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "override log.level (debug, info, warn, error)")
	fs.String("log-format", "", "override log.format (json or console)")
}

// applyLogFlags lets the command line win over config.yaml and KEYWORD_LOG_*.
func applyLogFlags(fs *pflag.FlagSet, lc *config.LogConfig) {
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		lc.Level = f.Value.String()
	}
	if f := fs.Lookup("log-format"); f != nil && f.Changed {
		lc.Format = f.Value.String()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
