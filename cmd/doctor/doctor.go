// SPDX-License-Identifier: Apache-2.0
package doctor

import (
	"context"
	"fmt"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/spf13/cobra"
)

var flagInstall bool

// NewDoctorCmd creates the doctor command
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check builder service health and host readiness",
		Long: `Checks that the builder service is reachable, that its version is
supported, and that the builder host has every package a ROM build needs.
With --install, asks the service to install whatever is missing.`,
		RunE: runDoctor,
	}
	cmd.Flags().BoolVar(&flagInstall, "install", false, "Install missing dependencies on the builder host")
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	theme := config.CurrentTheme
	client := builder.NewClient(config.GetServerURL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("builder service not reachable at %s: %w", config.GetServerURL(), err)
	}
	fmt.Println(theme.SuccessMessage(fmt.Sprintf("%s is %s", health.Service, health.Status)))

	if err := checkServerVersion(health.Version); err != nil {
		fmt.Println(theme.WarningMessage(err.Error()))
	} else if health.Version != "" {
		fmt.Println(theme.CompleteIndicator() + " service version " + health.Version)
	}

	check, err := client.CheckSystem(ctx)
	if err != nil {
		return fmt.Errorf("system check failed: %w", err)
	}

	for _, pkg := range check.Installed {
		fmt.Println("  " + theme.CompleteIndicator() + " " + pkg)
	}
	for _, pkg := range check.Missing {
		fmt.Println("  " + theme.ErrorIndicator() + " " + pkg)
	}

	if check.SystemReady {
		fmt.Println(theme.SuccessMessage("Builder host is ready"))
		return nil
	}

	if !flagInstall {
		fmt.Println(theme.WarningMessage(fmt.Sprintf("%d packages missing - run 'forge doctor --install'", len(check.Missing))))
		return nil
	}

	fmt.Println(theme.InfoMessage("Installing missing dependencies (this can take a while)..."))
	installCtx, installCancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer installCancel()
	if err := client.InstallDependencies(installCtx); err != nil {
		return err
	}

	recheck, err := client.CheckSystem(installCtx)
	if err != nil {
		return fmt.Errorf("re-check after install failed: %w", err)
	}
	if !recheck.SystemReady {
		return fmt.Errorf("still missing after install: %v", recheck.Missing)
	}
	fmt.Println(theme.SuccessMessage("Builder host is ready"))
	return nil
}

// checkServerVersion compares the reported service version against the
// minimum this CLI supports. An unparseable or absent version is reported
// but not fatal: older services simply omit the field.
func checkServerVersion(reported string) error {
	if reported == "" {
		return fmt.Errorf("service did not report a version (older than %s?)", config.MinServerVersion)
	}
	got, err := version.NewVersion(reported)
	if err != nil {
		return fmt.Errorf("service reported unparseable version %q", reported)
	}
	min := version.Must(version.NewVersion(config.MinServerVersion))
	if got.LessThan(min) {
		return fmt.Errorf("service version %s is older than supported minimum %s", reported, config.MinServerVersion)
	}
	return nil
}
