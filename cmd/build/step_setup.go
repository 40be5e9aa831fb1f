// SPDX-License-Identifier: Apache-2.0
package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// installTimeout bounds the remote dependency install, which runs apt on
// the builder host and can legitimately take a while.
const installTimeout = 10 * time.Minute

// SetupStep runs the system readiness check that gates the rest of the
// wizard. Not being ready is a gating condition, not an error: Continue is
// simply unavailable until the check passes.
type SetupStep struct {
	width, height int
	state         *wizard.State
	client        *builder.Client

	checking   bool
	installing bool
	check      *builder.SystemCheck
	checkErr   error
	spinner    spinner.Model
}

// NewSetupStep creates the readiness step.
func NewSetupStep(state *wizard.State, client *builder.Client) *SetupStep {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(config.CurrentTheme.GetSecondaryColor())
	return &SetupStep{state: state, client: client, spinner: s}
}

// Init starts the readiness check.
func (t *SetupStep) Init() tea.Cmd {
	t.checking = true
	return tea.Batch(t.spinner.Tick, t.checkCmd())
}

func (t *SetupStep) checkCmd() tea.Cmd {
	client := t.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		check, err := client.CheckSystem(ctx)
		return readinessMsg{Check: check, Err: err}
	}
}

func (t *SetupStep) installCmd() tea.Cmd {
	client := t.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), installTimeout)
		defer cancel()
		return installDoneMsg{Err: client.InstallDependencies(ctx)}
	}
}

// Update handles messages for the readiness step.
func (t *SetupStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		return nil

	case readinessMsg:
		t.checking = false
		t.check = msg.Check
		t.checkErr = msg.Err
		t.state.SystemReady = msg.Err == nil && msg.Check != nil && msg.Check.SystemReady
		return nil

	case installDoneMsg:
		t.installing = false
		if msg.Err != nil {
			t.checkErr = msg.Err
			return nil
		}
		// Re-check rather than trusting the install blindly.
		t.checking = true
		return t.checkCmd()

	case spinner.TickMsg:
		if t.checking || t.installing {
			var cmd tea.Cmd
			t.spinner, cmd = t.spinner.Update(msg)
			return cmd
		}
		return nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if t.state.SystemReady {
				return func() tea.Msg { return advanceMsg{} }
			}
			return nil
		case "r":
			if !t.checking && !t.installing {
				t.checking = true
				t.checkErr = nil
				return tea.Batch(t.spinner.Tick, t.checkCmd())
			}
		case "i":
			if !t.checking && !t.installing && t.check != nil && !t.check.SystemReady {
				t.installing = true
				t.checkErr = nil
				return tea.Batch(t.spinner.Tick, t.installCmd())
			}
		}
	}
	return nil
}

// View renders the readiness step.
func (t *SetupStep) View() string {
	theme := config.CurrentTheme
	var b strings.Builder

	b.WriteString(theme.RenderHeader(t.width-4, "SYSTEM CHECK", "setup"))
	b.WriteString("\n\n")

	switch {
	case t.installing:
		b.WriteString(t.spinner.View() + " Installing build dependencies on the builder host...\n")
	case t.checking:
		b.WriteString(t.spinner.View() + " Checking builder host readiness...\n")
	case t.checkErr != nil:
		b.WriteString(theme.ErrorMessage(t.checkErr.Error()) + "\n\n")
		b.WriteString(theme.SubtleStyle().Render("Press r to retry") + "\n")
	case t.check != nil && t.check.SystemReady:
		b.WriteString(theme.SuccessMessage("Builder host is ready") + "\n\n")
		b.WriteString(fmt.Sprintf("%d required packages installed\n\n", len(t.check.Installed)))
		b.WriteString(theme.SubtleStyle().Render("Press enter to continue") + "\n")
	case t.check != nil:
		b.WriteString(theme.WarningMessage("Builder host is missing dependencies") + "\n\n")
		for _, pkg := range t.check.Missing {
			b.WriteString("  " + theme.ErrorIndicator() + " " + pkg + "\n")
		}
		b.WriteString("\n")
		b.WriteString(theme.SubtleStyle().Render("Press i to install, r to re-check") + "\n")
	}

	return b.String()
}
