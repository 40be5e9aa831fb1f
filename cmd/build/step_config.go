// SPDX-License-Identifier: Apache-2.0
package build

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// ConfigStep collects the device/build fields and submits the build
// request. On rejection the wizard stays here with everything intact so
// the operator can retry.
type ConfigStep struct {
	width, height int
	state         *wizard.State
	client        *builder.Client

	form       *huh.Form
	submitting bool
	submitErr  error

	deviceName     string
	deviceCodename string
	androidVersion string
	buildVariant   string
	buildDirectory string
}

// NewConfigStep creates the build configuration step.
func NewConfigStep(state *wizard.State, client *builder.Client) *ConfigStep {
	return &ConfigStep{state: state, client: client}
}

// Enter builds the form, seeded from the still-held wizard state.
func (t *ConfigStep) Enter() tea.Cmd {
	t.deviceName = t.state.DeviceName
	t.deviceCodename = t.state.DeviceCodename
	t.androidVersion = t.state.AndroidVersion
	t.buildVariant = t.state.BuildVariant
	t.buildDirectory = t.state.BuildDirectory
	t.submitErr = nil
	t.submitting = false

	versionOpts := make([]huh.Option[string], len(builder.AndroidVersions))
	for i, v := range builder.AndroidVersions {
		versionOpts[i] = huh.NewOption("Android "+v, v)
	}
	variantOpts := make([]huh.Option[string], len(builder.BuildVariants))
	for i, v := range builder.BuildVariants {
		variantOpts[i] = huh.NewOption(v, v)
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device Name").
				Description("Marketing name, e.g. Lenovo K10 Note").
				Value(&t.deviceName).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("device name is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Device Codename").
				Description("Board codename, e.g. kunlun2").
				Value(&t.deviceCodename).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("device codename is required")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Android Version").
				Options(versionOpts...).
				Value(&t.androidVersion),

			huh.NewSelect[string]().
				Title("Build Variant").
				Options(variantOpts...).
				Value(&t.buildVariant),

			huh.NewInput().
				Title("Build Directory").
				Description("Working directory on the builder host").
				Value(&t.buildDirectory).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("build directory is required")
					}
					return nil
				}),
		),
	)
	if t.width > 0 {
		t.form.WithWidth(t.width - 4)
	}
	return t.form.Init()
}

func (t *ConfigStep) submitCmd(cfg builder.BuildConfig) tea.Cmd {
	client := t.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		id, err := client.StartBuild(ctx, cfg)
		return submitResultMsg{BuildID: id, Err: err}
	}
}

// Update handles messages for the configuration step.
func (t *ConfigStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		if t.form != nil {
			t.form.WithWidth(msg.Width - 4)
		}
		return nil

	case submitResultMsg:
		t.submitting = false
		if msg.Err != nil {
			// Rejected: keep every collected value, surface the notice,
			// and rebuild the form so the operator can retry.
			log.Warnf("build submission rejected: %v", msg.Err)
			cmd := t.Enter()
			t.submitErr = msg.Err
			return cmd
		}
		return nil

	case tea.KeyMsg:
		if msg.String() == "esc" && !t.submitting {
			return func() tea.Msg { return backMsg{} }
		}
	}

	if t.form == nil || t.submitting {
		return nil
	}

	form, cmd := t.form.Update(msg)
	t.form = form.(*huh.Form)

	if t.form.State == huh.StateCompleted {
		// Copy collected values into the shared state, then gate on the
		// full completeness invariant before anything touches the wire.
		t.state.DeviceName = t.deviceName
		t.state.DeviceCodename = t.deviceCodename
		t.state.AndroidVersion = t.androidVersion
		t.state.BuildVariant = t.buildVariant
		t.state.BuildDirectory = t.buildDirectory

		cfg, err := t.state.BuildConfig()
		if err != nil {
			t.submitErr = err
			return t.Enter()
		}
		t.submitting = true
		t.submitErr = nil
		return tea.Batch(cmd, t.submitCmd(cfg))
	}

	return cmd
}

// View renders the configuration step.
func (t *ConfigStep) View() string {
	theme := config.CurrentTheme
	var b strings.Builder

	b.WriteString(theme.RenderHeader(t.width-4, "BUILD CONFIG", t.state.DeviceCodename))
	b.WriteString("\n\n")

	if t.submitErr != nil {
		b.WriteString(theme.ErrorMessage("submission failed: "+t.submitErr.Error()) + "\n\n")
	}
	if t.submitting {
		b.WriteString(theme.InfoMessage("submitting build request...") + "\n")
		return b.String()
	}
	if t.form != nil {
		b.WriteString(t.form.View())
	}
	return b.String()
}
