package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dataport/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	sourceName string
)

var RootCmd = &cobra.Command{
	Use:   "dataport",
	Short: "Read files, REST APIs and databases through one connector interface",
	Long: `
     _       _                         _
  __| | __ _| |_ __ _ _ __   ___  _ __| |_
 / _' |/ _' | __/ _' | '_ \ / _ \| '__| __|
| (_| | (_| | || (_| | |_) | (_) | |  | |_
 \__,_|\__,_|\__\__,_| .__/ \___/|_|   \__|
                     |_|

DATAPORT - inspect and export CSV, JSON, XML, REST and SQL sources
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Config{
			Level:       viper.GetString("log.level"),
			Encoding:    viper.GetString("log.encoding"),
			Development: viper.GetBool("log.development"),
		}); err != nil {
			return err
		}
		if sourceName != "" {
			cmd.SetContext(context.WithValue(cmd.Context(), logger.SourceKey, sourceName))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dataport.yaml)")
	RootCmd.PersistentFlags().StringVarP(&sourceName, "source", "s", "", "source to use (default is the active one)")
	RootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.encoding", "console")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("dataport")
		viper.SetConfigType("yaml")
	}

	// DATAPORT_SECRET_KEY overrides secret.key and so on.
	viper.SetEnvPrefix("DATAPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
