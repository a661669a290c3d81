package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/config"
)

//go:embed templates/wbwatch.yaml
var filtersTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a keyword filters file",
		Long: `Init writes a wbwatch.yaml keyword filters file to the current directory.

The generated file includes:
- The built-in keyword mappings for reference
- Example storage and colour mappings

Examples:
  # Create wbwatch.yaml in current directory
  wbwatch init

  # Create the file in the XDG config directory
  wbwatch init -o ~/.config/wbwatch/wbwatch.yaml

  # Force overwrite existing file
  wbwatch init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultFiltersFile,
		"Output file path for the filters file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing filters file")

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
			return fmt.Errorf("filters file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := filtersTemplate.ReadFile("templates/wbwatch.yaml")
	if err != nil {
		return fmt.Errorf("failed to read filters template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write filters file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created filters file: %s\n", outputPath)
	fmt.Fprintln(out, "\nMap your own product keywords to Wildberries filter ids, then")
	fmt.Fprintln(out, "restart the bot or use the admin restart button to apply them.")

	return nil
}
