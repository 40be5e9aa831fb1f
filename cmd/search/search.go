// SPDX-License-Identifier: Apache-2.0
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/spf13/cobra"
)

var (
	flagSourceType string
	flagProvider   string
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for device trees, kernels, or vendor repositories",
		Long: `Searches GitHub or GitLab (through the builder service) for source
repositories matching the query, scoped to one of the three artifact
categories.`,
		Example: `  forge search kunlun2 --type device
  forge search "lenovo k10" --type kernel
  forge search kunlun2 --type vendor --provider gitlab`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().StringVarP(&flagSourceType, "type", "t", builder.SourceDevice, "Source type: device, kernel, vendor")
	cmd.Flags().StringVarP(&flagProvider, "provider", "p", builder.ProviderGitHub, "Search provider: github, gitlab")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	switch flagSourceType {
	case builder.SourceDevice, builder.SourceKernel, builder.SourceVendor:
	default:
		return fmt.Errorf("invalid --type %q: must be device, kernel, or vendor", flagSourceType)
	}
	switch flagProvider {
	case builder.ProviderGitHub, builder.ProviderGitLab:
	default:
		return fmt.Errorf("invalid --provider %q: must be github or gitlab", flagProvider)
	}

	query := strings.Join(args, " ")
	client := builder.NewClient(config.GetServerURL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hits, err := client.Search(ctx, flagProvider, query, flagSourceType)
	if err != nil {
		return err
	}

	theme := config.CurrentTheme
	if len(hits) == 0 {
		fmt.Println(theme.WarningMessage("no repositories found for " + query))
		return nil
	}

	nameStyle := lipgloss.NewStyle().Foreground(theme.GetPrimaryColor()).Bold(true)
	for _, hit := range hits {
		fmt.Printf("%s  ★%d\n", nameStyle.Render(hit.FullName), hit.Stars)
		if hit.Description != "" {
			fmt.Println("  " + theme.SubtleStyle().Render(hit.Description))
		}
		fmt.Println("  " + hit.CloneURL)
		fmt.Println()
	}
	return nil
}
