package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/ddicdi/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ddicdi configuration",
	}

	var project bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Init writes the default configuration to ~/.config/ddicdi/config.yaml,
or to ./ddicdi.yaml with --project. An existing file is left unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project {
				if _, err := os.Stat(config.ProjectConfigFile); err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), config.ProjectConfigFile)
					return nil
				}
				if err := config.DefaultConfig().SaveToFile(config.ProjectConfigFile); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.ProjectConfigFile)
				return nil
			}
			path, err := config.NewLoader(a.logger).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&project, "project", false, "Write ddicdi.yaml in the current directory")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
