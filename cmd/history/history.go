// SPDX-License-Identifier: Apache-2.0
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [build-id]",
		Short: "Show recent builds",
		Long: `Lists the most recent builds recorded by the builder service, newest
first. With a build id, shows that build's full record instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	client := builder.NewClient(config.GetServerURL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(args) == 1 {
		build, err := client.Build(ctx, args[0])
		if err != nil {
			return err
		}
		printBuild(*build, true)
		return nil
	}

	builds, err := client.History(ctx)
	if err != nil {
		return err
	}

	theme := config.CurrentTheme
	if len(builds) == 0 {
		fmt.Println(theme.SubtleStyle().Render("no builds recorded yet"))
		return nil
	}
	for _, b := range builds {
		printBuild(b, false)
	}
	return nil
}

func printBuild(b builder.BuildRecord, detailed bool) {
	theme := config.CurrentTheme
	indicator := theme.PendingIndicator()
	switch b.Status {
	case "completed":
		indicator = theme.CompleteIndicator()
	case "failed":
		indicator = theme.ErrorIndicator()
	case "building", "started":
		indicator = theme.ActiveIndicator()
	}
	fmt.Printf("%s %s (%s) android-%s %s  %3d%%  %s\n",
		indicator, b.DeviceName, b.DeviceCodename, b.AndroidVersion, b.BuildVariant,
		b.Progress, b.StartedAt)
	if b.CurrentStage != "" {
		fmt.Println("    " + theme.SubtleStyle().Render(b.CurrentStage))
	}
	if detailed {
		fmt.Println("    " + theme.SubtleStyle().Render("id: "+b.ID))
		if b.UpdatedAt != "" {
			fmt.Println("    " + theme.SubtleStyle().Render("updated: "+b.UpdatedAt))
		}
	}
}
