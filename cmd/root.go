package cmd

import (
	"fmt"
	"os"

	"github.com/Alfresco/SearchServices-sub009/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Sharded index tracker",
	Long: `Keeps a sharded search index in step with the repository of record.
ACL, metadata, content, cascade and model trackers pull changes in id order and
commit them with durable watermarks; maintenance commands reindex, purge and
retry individual entities.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding with the development preset for readable CLI errors
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
