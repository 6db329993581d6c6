package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/dsreport.yaml
var configTemplate embed.FS

// templatePath is the path of the configuration template inside configTemplate.
const templatePath = "templates/dsreport.yaml"

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new dsreport configuration file",
		Long: `Initialize creates a new .dsreport configuration file in the current directory.

The generated file includes:
- The default datastandard source and report format
- Default upstream timeout and headers
- Commented examples for per-source settings
- The listen address of the HTTP server

Examples:
  # Create .dsreport in current directory
  dsreport init

  # Create config file at a specific path
  dsreport init -o ~/.config/dsreport/config.yaml

  # Force overwrite existing file
  dsreport init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold upstream credentials.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The default datastandard source and report format")
	fmt.Fprintln(out, "  - Authorization headers and timeouts per upstream host")
	fmt.Fprintln(out, "  - The listen address of 'dsreport serve'")

	return nil
}
