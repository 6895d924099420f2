package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrykit/gantry/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the Gantry configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  gantryd config validate

  # Validate specific config file
  gantryd config validate --config /etc/gantry/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	if !cfg.Auth.Enabled {
		warnings = append(warnings, "Authentication disabled - all endpoints are public")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Insecure {
		warnings = append(warnings, "Telemetry exports over a plaintext connection")
	}
	if cfg.Database.Enabled && !cfg.Database.AutoMigrate {
		warnings = append(warnings, "Schema migrations will not run at startup (auto_migrate is off)")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	database := "disabled"
	if cfg.Database.Enabled {
		database = fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Listen address:  %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)
	fmt.Printf("  Database:        %s\n", database)

	return nil
}
