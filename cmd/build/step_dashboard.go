// SPDX-License-Identifier: Apache-2.0
package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/monitor"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// DashboardStep owns the build monitor and renders its snapshots: stage,
// progress bar, and the full log snapshot in a scrollable viewport.
type DashboardStep struct {
	width, height int
	state         *wizard.State
	client        *builder.Client
	interval      time.Duration

	mon  *monitor.Monitor
	snap monitor.Snapshot

	spinner     spinner.Model
	progressBar progress.Model
	logView     viewport.Model
	viewReady   bool
	started     bool
}

// NewDashboardStep creates the monitoring dashboard.
func NewDashboardStep(state *wizard.State, client *builder.Client, interval time.Duration) *DashboardStep {
	theme := config.CurrentTheme

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.GetSecondaryColor())

	return &DashboardStep{
		state:       state,
		client:      client,
		interval:    interval,
		spinner:     s,
		progressBar: progress.New(progress.WithGradient(theme.Secondary, theme.Primary)),
		logView:     viewport.New(0, 0),
	}
}

// Interval returns the configured poll cadence.
func (t *DashboardStep) Interval() time.Duration {
	return t.interval
}

// Terminal reports whether the monitored build has finished.
func (t *DashboardStep) Terminal() bool {
	return t.started && t.snap.Terminal
}

// Start launches the monitor. Called once, when the submission is accepted.
func (t *DashboardStep) Start() tea.Cmd {
	t.mon = monitor.New(t.client, t.interval)
	t.mon.Start(context.Background())
	t.started = true
	t.snap = monitor.Snapshot{Active: true}
	return tea.Batch(t.spinner.Tick, waitForSnapshot(t.mon))
}

// Teardown stops the monitor unconditionally. Safe when never started.
func (t *DashboardStep) Teardown() {
	if t.mon != nil {
		t.mon.Stop()
	}
}

// waitForSnapshot blocks on the next monitor update.
func waitForSnapshot(mon *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-mon.Updates():
			return buildSnapshotMsg{Snap: snap, Open: true}
		case <-mon.Done():
			// Drain a final snapshot published just before shutdown.
			select {
			case snap := <-mon.Updates():
				return buildSnapshotMsg{Snap: snap, Open: true}
			default:
				return buildSnapshotMsg{Open: false}
			}
		}
	}
}

// Update handles messages for the dashboard step.
func (t *DashboardStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.progressBar.Width = max(10, msg.Width-12)
		t.logView.Width = max(10, msg.Width-6)
		t.logView.Height = max(3, msg.Height-12)
		t.viewReady = true
		return nil

	case buildSnapshotMsg:
		if !msg.Open {
			return nil
		}
		atBottom := t.logView.AtBottom()
		t.snap = msg.Snap
		// The log snapshot replaces wholesale; the service owns ordering.
		t.logView.SetContent(strings.Join(msg.Snap.Logs, "\n"))
		if atBottom {
			t.logView.GotoBottom()
		}
		if msg.Snap.Terminal {
			return nil
		}
		return waitForSnapshot(t.mon)

	case spinner.TickMsg:
		if t.started && !t.snap.Terminal {
			var cmd tea.Cmd
			t.spinner, cmd = t.spinner.Update(msg)
			return cmd
		}
		return nil

	case progress.FrameMsg:
		model, cmd := t.progressBar.Update(msg)
		t.progressBar = model.(progress.Model)
		return cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "n":
			if t.Terminal() {
				return func() tea.Msg { return newBuildMsg{} }
			}
		case "up", "k":
			t.logView.ScrollUp(1)
		case "down", "j":
			t.logView.ScrollDown(1)
		case "pgup":
			t.logView.HalfPageUp()
		case "pgdown":
			t.logView.HalfPageDown()
		}
	}
	return nil
}

// View renders the dashboard step.
func (t *DashboardStep) View() string {
	theme := config.CurrentTheme
	var b strings.Builder

	b.WriteString(theme.RenderHeader(t.width-4, "BUILD", t.state.DeviceCodename))
	b.WriteString("\n\n")

	switch {
	case !t.started:
		b.WriteString(theme.SubtleStyle().Render("waiting for build to start...") + "\n")
		return b.String()
	case t.snap.Terminal && t.snap.Outcome == monitor.OutcomeSucceeded:
		b.WriteString(theme.SuccessMessage("Build completed") + "\n")
	case t.snap.Terminal:
		b.WriteString(theme.ErrorMessage("Build stopped before completion") + "\n")
	default:
		stage := t.snap.Stage
		if stage == "" {
			stage = "waiting for status"
		}
		b.WriteString(t.spinner.View() + " " + stage + "\n")
	}

	b.WriteString("\n")
	b.WriteString(t.progressBar.ViewAs(float64(t.snap.Progress)/100) + fmt.Sprintf("  %d%%\n\n", t.snap.Progress))

	if t.viewReady {
		logFrame := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.GetMutedColor()).
			Render(t.logView.View())
		b.WriteString(logFrame + "\n")
	}

	hint := "↑/↓: scroll logs"
	if t.Terminal() {
		hint = "n: start new build · ↑/↓: scroll logs · ctrl+c: quit"
	}
	b.WriteString(theme.RenderFooter(t.width-4, hint))
	return b.String()
}
