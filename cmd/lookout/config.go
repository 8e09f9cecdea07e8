package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/lookout/pkg/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and write the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := make(map[string]map[string]interface{})
			for _, section := range config.Global().GetSections() {
				out[section.ID()] = section.Data()
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current configuration, with defaults filled in, to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := config.Global()
			if err := manager.ValidateAll(); err != nil {
				return err
			}
			if err := manager.SaveAll(); err != nil {
				return err
			}
			if fs, ok := manager.Store().(*config.FileStore); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", fs.Path())
			}
			return nil
		},
	})

	return cmd
}
