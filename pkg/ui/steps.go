// SPDX-License-Identifier: Apache-2.0
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/Rom-Forge/Forge/pkg/config"
)

// StepState represents the state of a wizard step in the step bar.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepComplete
	StepError
)

// StepLabel is one entry in the wizard step bar.
type StepLabel struct {
	Title   string
	State   StepState
	Spinner spinner.Model
	Busy    bool // render the spinner instead of the solid dot
}

// RenderStepBar renders the wizard step bar across the given width.
func RenderStepBar(steps []StepLabel, width int) string {
	theme := config.CurrentTheme

	base := lipgloss.NewStyle().Padding(0, 1)
	pendingStyle := base.Foreground(theme.GetMutedColor())
	activeStyle := base.Foreground(theme.GetSecondaryColor()).Bold(true)
	completeStyle := base.Foreground(theme.GetSuccessColor())
	errorStyle := base.Foreground(theme.GetErrorColor())

	rendered := make([]string, 0, len(steps)*2)
	for i, step := range steps {
		var text string
		var style lipgloss.Style

		switch step.State {
		case StepActive:
			style = activeStyle
			if step.Busy {
				text = step.Spinner.View() + " " + step.Title
			} else {
				text = theme.ActiveIndicator() + " " + step.Title
			}
		case StepComplete:
			style = completeStyle
			text = theme.CompleteIndicator() + " " + step.Title
		case StepError:
			style = errorStyle
			text = theme.ErrorIndicator() + " " + step.Title
		default:
			style = pendingStyle
			text = theme.PendingIndicator() + " " + step.Title
		}

		rendered = append(rendered, style.Render(text))
		if i < len(steps)-1 {
			rendered = append(rendered, theme.SubtleStyle().Render("▸"))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, rendered...)
	rule := theme.SubtleStyle().Render(strings.Repeat("─", max(0, width)))
	return lipgloss.JoinVertical(lipgloss.Left, bar, rule)
}

// RenderStepContent frames the active step's content to the given size.
func RenderStepContent(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(0, 1).
		Render(content)
}
