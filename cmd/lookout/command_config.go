package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"lookout/internal/config"
)

var configDefaultsFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print effective configuration as TOML",
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configDefaultsFlag, "defaults", false, "print built-in defaults instead of the effective configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	settings := config.DefaultSettings()
	if !configDefaultsFlag {
		loaded, err := config.LoadSettings()
		if err != nil {
			return err
		}
		settings = loaded
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return err
	}
	if path, err := config.SettingsPath(); err == nil {
		fmt.Fprintf(os.Stdout, "# %s\n", path)
	}
	os.Stdout.Write(data)
	return nil
}
