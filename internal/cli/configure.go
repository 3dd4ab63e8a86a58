package cli

import (
	"fmt"

	"github.com/harun/switchboard/internal/config"
	"github.com/spf13/cobra"
)

var configureInit bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Show or initialize the configuration",
	Long: `Show the effective configuration with secrets masked. With --init,
write the default configuration file so it can be edited in place.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureInit, "init", false, "write the default config file")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	if configureInit {
		cfg := config.DefaultConfig()
		if err := loader.Save(cfg); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Println("Default configuration written.")
		return nil
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	fmt.Println(cfg.String())
	return nil
}
