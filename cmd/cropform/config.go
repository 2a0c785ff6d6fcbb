package main

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jask/cropform/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the loaded configuration to the config file",
		Long: `Writes defaults, config file and CROPFORM_* environment values to the
config file. One-off flags such as --backend and -v are not saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(a.loaded)
		},
	})
	return cmd
}
