// SPDX-License-Identifier: Apache-2.0
package build

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/ui"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// WizardModel orchestrates the guided build flow: one sub-model per step,
// all sharing a single wizard.State aggregate.
type WizardModel struct {
	width  int
	height int

	state  *wizard.State
	client *builder.Client
	steps  []ui.StepLabel

	quitting bool

	setupStep  *SetupStep
	sourceStep [3]*SourceStep
	configStep *ConfigStep
	dashboard  *DashboardStep
}

// NewWizardModel creates the build wizard against the given builder client.
func NewWizardModel(client *builder.Client, pollInterval time.Duration) WizardModel {
	state := wizard.New(
		config.GetBuildDirectory(),
		config.GetBuildVariant(),
		config.GetAndroidVersion(),
	)

	steps := make([]ui.StepLabel, wizard.StepDashboard+1)
	for s := wizard.StepSetup; s <= wizard.StepDashboard; s++ {
		sp := spinner.New()
		sp.Spinner = spinner.Dot
		sp.Style = lipgloss.NewStyle().Foreground(config.CurrentTheme.GetSecondaryColor())
		steps[s] = ui.StepLabel{Title: s.String(), Spinner: sp}
	}
	steps[wizard.StepSetup].State = ui.StepActive

	m := WizardModel{
		state:      state,
		client:     client,
		steps:      steps,
		setupStep:  NewSetupStep(state, client),
		configStep: NewConfigStep(state, client),
		dashboard:  NewDashboardStep(state, client, pollInterval),
	}
	for k := wizard.KindDeviceTree; k <= wizard.KindVendor; k++ {
		m.sourceStep[k] = NewSourceStep(state, client, k)
	}
	return m
}

// Init implements tea.Model
func (m WizardModel) Init() tea.Cmd {
	return m.setupStep.Init()
}

// Update implements tea.Model
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	log.Debugf("wizard.Update: msg=%T step=%d", msg, m.state.Step)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		var cmds []tea.Cmd
		cmds = append(cmds, m.setupStep.Update(msg))
		for k := wizard.KindDeviceTree; k <= wizard.KindVendor; k++ {
			cmds = append(cmds, m.sourceStep[k].Update(msg))
		}
		cmds = append(cmds, m.configStep.Update(msg))
		cmds = append(cmds, m.dashboard.Update(msg))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// Unconditional teardown: a dangling poll timer must not
			// outlive the program.
			m.dashboard.Teardown()
			m.quitting = true
			return m, tea.Quit
		}

	case advanceMsg:
		if m.state.Advance() {
			m.syncStepBar()
			return m, m.enterStep()
		}
		return m, nil

	case backMsg:
		if m.state.Back() {
			m.syncStepBar()
		}
		return m, nil

	case newBuildMsg:
		// Full restart: wizard state, monitor state, and every collected
		// field return to their initial values.
		m.dashboard.Teardown()
		m.state.Reset()
		m.setupStep = NewSetupStep(m.state, m.client)
		for k := wizard.KindDeviceTree; k <= wizard.KindVendor; k++ {
			m.sourceStep[k] = NewSourceStep(m.state, m.client, k)
		}
		m.configStep = NewConfigStep(m.state, m.client)
		m.dashboard = NewDashboardStep(m.state, m.client, m.dashboard.Interval())
		m.syncStepBar()
		sizeCmd := m.resendSize()
		return m, tea.Batch(m.setupStep.Init(), sizeCmd)

	case searchResultsMsg:
		// Search responses route by kind, not by active step: a response
		// arriving after navigation still lands in the right session.
		return m, m.sourceStep[msg.Kind].Update(msg)

	case submitResultMsg:
		if msg.Err == nil {
			if m.state.Advance() {
				m.syncStepBar()
				return m, m.dashboard.Start()
			}
			return m, nil
		}
		// Rejection: stay on the config step, surface the notice there.
		return m, m.configStep.Update(msg)

	case buildSnapshotMsg:
		return m, m.dashboard.Update(msg)
	}

	// Delegate everything else to the active step.
	cmd := m.updateActive(msg)
	m.syncStepBar()
	return m, cmd
}

func (m *WizardModel) updateActive(msg tea.Msg) tea.Cmd {
	switch m.state.Step {
	case wizard.StepSetup:
		return m.setupStep.Update(msg)
	case wizard.StepDeviceTree, wizard.StepKernel, wizard.StepVendor:
		return m.sourceStep[m.state.Step-wizard.StepDeviceTree].Update(msg)
	case wizard.StepBuildConfig:
		return m.configStep.Update(msg)
	case wizard.StepDashboard:
		return m.dashboard.Update(msg)
	}
	return nil
}

// enterStep returns the Init command for the step just entered, if it has
// not run yet. Re-entering a step after Back keeps its held state.
func (m *WizardModel) enterStep() tea.Cmd {
	switch m.state.Step {
	case wizard.StepDeviceTree, wizard.StepKernel, wizard.StepVendor:
		return m.sourceStep[m.state.Step-wizard.StepDeviceTree].Enter()
	case wizard.StepBuildConfig:
		return m.configStep.Enter()
	}
	return nil
}

func (m *WizardModel) syncStepBar() {
	for s := wizard.StepSetup; s <= wizard.StepDashboard; s++ {
		switch {
		case s == m.state.Step:
			m.steps[s].State = ui.StepActive
		case s < m.state.Step:
			m.steps[s].State = ui.StepComplete
		default:
			m.steps[s].State = ui.StepPending
		}
	}
	if m.state.Step == wizard.StepDashboard {
		m.steps[wizard.StepDashboard].Busy = !m.dashboard.Terminal()
		if m.dashboard.Terminal() {
			m.steps[wizard.StepDashboard].State = ui.StepComplete
		}
	}
}

func (m *WizardModel) resendSize() tea.Cmd {
	if m.width == 0 {
		return nil
	}
	size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
	return func() tea.Msg { return size }
}

// View implements tea.Model
func (m WizardModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	bar := ui.RenderStepBar(m.steps, m.width)

	contentHeight := m.height - lipgloss.Height(bar) - 1
	var active string
	switch m.state.Step {
	case wizard.StepSetup:
		active = m.setupStep.View()
	case wizard.StepDeviceTree, wizard.StepKernel, wizard.StepVendor:
		active = m.sourceStep[m.state.Step-wizard.StepDeviceTree].View()
	case wizard.StepBuildConfig:
		active = m.configStep.View()
	case wizard.StepDashboard:
		active = m.dashboard.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		bar,
		ui.RenderStepContent(active, m.width-2, contentHeight),
	)
}
