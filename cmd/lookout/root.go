package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/lookout/pkg/config"
	"github.com/entrhq/lookout/pkg/logging"
)

const envPrefix = "LOOKOUT"

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func newRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "lookout",
		Short:         "Embedded browser automation for local agents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return initialize(v)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Shutdown()
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default ~/.lookout/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("console", false, "mirror logs to stderr")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newServeCommand(v), newConfigCommand(), newVersionCommand())
	return root
}

// initialize loads the config file, then applies flag and environment
// overrides on top of it.
func initialize(v *viper.Viper) error {
	if err := config.Initialize(v.GetString("config")); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	section := config.GetLogging()
	if level := v.GetString("log-level"); level != "" {
		section.SetLevel(level)
		if err := section.Validate(); err != nil {
			return err
		}
	}

	settings := section.Settings()
	if settings.Directory != "" {
		logging.SetLogDirectory(settings.Directory)
	}
	if settings.Console || v.GetBool("console") {
		logging.SetConsole(os.Stderr)
	}
	return logging.SetLevel(settings.Level)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lookout %s\n", version)
		},
	}
}
