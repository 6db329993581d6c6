package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for dsreport.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dsreport",
		Short: "Attribute reports for datastandard categories",
		Long: `dsreport converts a datastandard (a hierarchical product data model of
categories, attributes and attribute groups) into a flat table of the
attributes that apply to a category.

Attributes inherited from ancestor categories are included and composite
attributes are expanded into their nested structure. Reports are written as
text, CSV, JSON, Markdown or HTML, and can be served over HTTP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
