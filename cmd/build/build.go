// SPDX-License-Identifier: Apache-2.0
package build

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/monitor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// BuildFlags holds the CLI flags for non-interactive mode
type BuildFlags struct {
	DeviceName     string
	DeviceCodename string
	AndroidVersion string
	BuildVariant   string
	BuildDirectory string
	DeviceTree     string
	Kernel         string
	Vendor         string
	Detach         bool
}

// package-level flag variables bound to cobra flags
var (
	flagDeviceName     string
	flagDeviceCodename string
	flagAndroidVersion string
	flagBuildVariant   string
	flagBuildDirectory string
	flagDeviceTree     string
	flagKernel         string
	flagVendor         string
	flagDetach         bool
)

// NewBuildCmd returns the cobra command for the build subcommand.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Configure and launch a ROM build",
		Long: `Guides you through assembling a ROM build request (device tree, kernel,
vendor blobs, build variant) and supervises the build once the builder
service accepts it.

Interactive mode (default when stdin is a terminal and use-tui is true):
  Launches a step-by-step wizard: system check, source resolution for the
  three artifact categories, build configuration, and a live dashboard
  polling the builder's status and log feed.

Non-interactive mode (--codename and source flags required):
  Validates, submits, and monitors the build with plain line output.
  Source flags accept "url=...", "local=...", or "github=..."; a bare
  value is treated as a URL unless it looks like a filesystem path.`,
		Example: `  # Interactive wizard (when stdin is a TTY)
  forge build

  # Non-interactive
  forge build \
    --device-name "Lenovo K10 Note" \
    --codename kunlun2 \
    --android-version 15 \
    --variant userdebug \
    --device-tree url=https://github.com/x/device_lenovo_kunlun2.git \
    --kernel url=https://github.com/x/kernel_lenovo_kunlun2.git \
    --vendor local=/srv/blobs/kunlun2`,
		RunE: runBuild,
	}

	cmd.Flags().StringVar(&flagDeviceName, "device-name", "", "Device marketing name (required in non-interactive mode)")
	cmd.Flags().StringVar(&flagDeviceCodename, "codename", "", "Device codename (required in non-interactive mode)")
	cmd.Flags().StringVar(&flagAndroidVersion, "android-version", "", "Android version (14, 15, 16)")
	cmd.Flags().StringVar(&flagBuildVariant, "variant", "", "Build variant (user, userdebug, eng)")
	cmd.Flags().StringVar(&flagBuildDirectory, "build-dir", "", "Build working directory on the builder host")
	cmd.Flags().StringVar(&flagDeviceTree, "device-tree", "", "Device tree source (url=, local=, github=)")
	cmd.Flags().StringVar(&flagKernel, "kernel", "", "Kernel source (url=, local=, github=)")
	cmd.Flags().StringVar(&flagVendor, "vendor", "", "Vendor blob source (url=, local=, github=)")
	cmd.Flags().BoolVar(&flagDetach, "detach", false, "Submit the build and exit without monitoring")

	return cmd
}

// runBuild is the cobra RunE handler
func runBuild(cmd *cobra.Command, args []string) error {
	if shouldUseTUI() {
		return runInteractive()
	}

	flags := BuildFlags{
		DeviceName:     flagDeviceName,
		DeviceCodename: flagDeviceCodename,
		AndroidVersion: flagAndroidVersion,
		BuildVariant:   flagBuildVariant,
		BuildDirectory: flagBuildDirectory,
		DeviceTree:     flagDeviceTree,
		Kernel:         flagKernel,
		Vendor:         flagVendor,
		Detach:         flagDetach,
	}
	return runNonInteractiveWithFlags(flags)
}

// isInteractive reports whether stdin is a terminal (TTY)
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// shouldUseTUI returns true when stdin is a TTY AND use-tui is enabled in config
func shouldUseTUI() bool {
	return isInteractive() && config.GetUseTUI()
}

// pollInterval reads the configured poll cadence, falling back to the
// monitor default when the config value does not parse.
func pollInterval() time.Duration {
	if d, err := time.ParseDuration(config.GetPollInterval()); err == nil && d > 0 {
		return d
	}
	return monitor.DefaultInterval
}

// runInteractive launches the Bubble Tea wizard
func runInteractive() error {
	client := builder.NewClient(config.GetServerURL())
	p := tea.NewProgram(NewWizardModel(client, pollInterval()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}

// ParseSourceFlag turns a source flag value into a wire descriptor.
// Accepted forms: "url=<value>", "local=<value>", "github=<value>", or a
// bare value (path-looking values become local, everything else url).
func ParseSourceFlag(sourceType, raw string) (builder.SourceConfig, error) {
	if raw == "" {
		return builder.SourceConfig{}, fmt.Errorf("--%s is required in non-interactive mode", flagNameForSource(sourceType))
	}

	method := builder.MethodURL
	value := raw
	if prefix, rest, ok := strings.Cut(raw, "="); ok {
		switch prefix {
		case builder.MethodURL, builder.MethodLocal, builder.MethodGitHub:
			method = prefix
			value = rest
		default:
			// An '=' inside a URL query string, not a method prefix.
		}
	} else if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "~") {
		method = builder.MethodLocal
	}

	if value == "" {
		return builder.SourceConfig{}, fmt.Errorf("empty %s source value", sourceType)
	}
	return builder.SourceConfig{SourceType: sourceType, Method: method, Value: value}, nil
}

func flagNameForSource(sourceType string) string {
	if sourceType == builder.SourceDevice {
		return "device-tree"
	}
	return sourceType
}

// runNonInteractiveWithFlags validates, submits, and optionally monitors
// the build using the provided flags.
func runNonInteractiveWithFlags(flags BuildFlags) error {
	if flags.AndroidVersion == "" {
		flags.AndroidVersion = config.GetAndroidVersion()
	}
	if flags.BuildVariant == "" {
		flags.BuildVariant = config.GetBuildVariant()
	}
	if flags.BuildDirectory == "" {
		flags.BuildDirectory = config.GetBuildDirectory()
	}

	deviceTree, err := ParseSourceFlag(builder.SourceDevice, flags.DeviceTree)
	if err != nil {
		return err
	}
	kernel, err := ParseSourceFlag(builder.SourceKernel, flags.Kernel)
	if err != nil {
		return err
	}
	vendor, err := ParseSourceFlag(builder.SourceVendor, flags.Vendor)
	if err != nil {
		return err
	}

	cfg := builder.BuildConfig{
		DeviceName:     flags.DeviceName,
		DeviceCodename: flags.DeviceCodename,
		AndroidVersion: flags.AndroidVersion,
		BuildVariant:   flags.BuildVariant,
		BuildDirectory: flags.BuildDirectory,
		DeviceTree:     deviceTree,
		Kernel:         kernel,
		Vendor:         vendor,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := builder.NewClient(config.GetServerURL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	buildID, err := client.StartBuild(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}

	theme := config.CurrentTheme
	fmt.Println(theme.SuccessMessage("Build accepted: " + buildID))

	if flags.Detach {
		fmt.Println("Monitor later with: forge history")
		return nil
	}
	return watchBuild(client)
}

// watchBuild polls the builder until the build reaches a terminal state,
// printing stage transitions and progress as plain lines.
func watchBuild(client *builder.Client) error {
	theme := config.CurrentTheme
	mon := monitor.New(client, pollInterval())
	mon.Start(context.Background())
	defer mon.Stop()

	lastStage := ""
	lastProgress := -1
	for {
		select {
		case snap := <-mon.Updates():
			if snap.Stage != lastStage || snap.Progress != lastProgress {
				fmt.Printf("[%3d%%] %s\n", snap.Progress, snap.Stage)
				lastStage = snap.Stage
				lastProgress = snap.Progress
			}
			if snap.Terminal {
				if snap.Outcome == monitor.OutcomeSucceeded {
					fmt.Println(theme.SuccessMessage("Build completed"))
					return nil
				}
				return fmt.Errorf("build stopped at %d%%", snap.Progress)
			}
		case <-mon.Done():
			return nil
		}
	}
}
