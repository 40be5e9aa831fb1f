// SPDX-License-Identifier: Apache-2.0
package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// hitItem adapts a search result to the bubbles list.
type hitItem struct {
	hit builder.RepositoryHit
}

func (i hitItem) Title() string {
	return fmt.Sprintf("%s  ★%d", i.hit.FullName, i.hit.Stars)
}

func (i hitItem) Description() string {
	if i.hit.Description != "" {
		return i.hit.Description
	}
	return i.hit.CloneURL
}

func (i hitItem) FilterValue() string { return i.hit.FullName }

// SourceStep resolves one source kind through either the search or the
// manual strategy. All durable state lives in the shared wizard.State, so
// leaving and re-entering the step repopulates instead of resetting.
type SourceStep struct {
	width, height int
	kind          wizard.SourceKind
	state         *wizard.State
	client        *builder.Client

	queryInput  textinput.Model
	manualInput textinput.Model
	results     list.Model
	focusList   bool
	searchErr   error
}

// NewSourceStep creates the resolution step for kind.
func NewSourceStep(state *wizard.State, client *builder.Client, kind wizard.SourceKind) *SourceStep {
	theme := config.CurrentTheme

	qi := textinput.New()
	qi.Placeholder = "search query (e.g. device codename)"
	qi.CharLimit = 120

	mi := textinput.New()
	mi.Placeholder = "repository URL or local path"
	mi.CharLimit = 300

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.GetPrimaryColor()).
		BorderForeground(theme.GetPrimaryColor())
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.GetSecondaryColor()).
		BorderForeground(theme.GetPrimaryColor())

	lst := list.New(nil, delegate, 0, 0)
	lst.SetShowTitle(false)
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)

	return &SourceStep{
		kind:        kind,
		state:       state,
		client:      client,
		queryInput:  qi,
		manualInput: mi,
		results:     lst,
	}
}

// Enter focuses the right input when the wizard lands on this step.
func (t *SourceStep) Enter() tea.Cmd {
	if t.spec().Mode == wizard.ModeSearch {
		t.queryInput.Focus()
		t.manualInput.Blur()
	} else {
		t.manualInput.Focus()
		t.queryInput.Blur()
	}
	return textinput.Blink
}

func (t *SourceStep) spec() *wizard.SourceSpec {
	return t.state.Spec(t.kind)
}

func (t *SourceStep) session() *wizard.SearchSession {
	return t.state.Session(t.kind)
}

func (t *SourceStep) searchCmd(token int, provider, query string) tea.Cmd {
	client := t.client
	kind := t.kind
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		hits, err := client.Search(ctx, provider, query, kind.SourceType())
		return searchResultsMsg{Kind: kind, Token: token, Hits: hits, Err: err}
	}
}

// Update handles messages for the source step.
func (t *SourceStep) Update(msg tea.Msg) tea.Cmd {
	spec := t.spec()
	sess := t.session()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.results.SetSize(msg.Width-6, max(4, msg.Height-14))
		return nil

	case searchResultsMsg:
		if msg.Kind != t.kind {
			return nil
		}
		if msg.Err != nil {
			sess.Fail(msg.Token)
			t.searchErr = msg.Err
			return nil
		}
		t.searchErr = nil
		if !sess.Apply(msg.Token, msg.Hits) {
			log.Debugf("discarding stale search response for %s (token %d)", t.kind.SourceType(), msg.Token)
			return nil
		}
		items := make([]list.Item, len(msg.Hits))
		for i, hit := range msg.Hits {
			items[i] = hitItem{hit: hit}
		}
		return t.results.SetItems(items)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return func() tea.Msg { return backMsg{} }

		case "tab":
			if spec.Mode == wizard.ModeSearch {
				spec.Mode = wizard.ModeManual
			} else {
				spec.Mode = wizard.ModeSearch
			}
			t.focusList = false
			return t.Enter()

		case "ctrl+p":
			if spec.Mode == wizard.ModeSearch && !sess.InFlight {
				sess.ToggleProvider()
				return t.results.SetItems(nil)
			}
			return nil

		case "ctrl+t":
			if spec.Mode == wizard.ModeManual {
				if spec.Manual == wizard.ManualURL {
					spec.Manual = wizard.ManualLocal
				} else {
					spec.Manual = wizard.ManualURL
				}
				// Re-type the current value under the new sub-mode.
				spec.SetManual(t.manualInput.Value())
			}
			return nil

		case "enter":
			if spec.Mode == wizard.ModeSearch {
				if t.focusList {
					if sess.Select(t.results.Index(), spec) {
						// The session and the rendered controls clear
						// together, and focus returns to the (now empty)
						// query input so the next enter advances.
						t.focusList = false
						t.queryInput.SetValue("")
						t.queryInput.Focus()
						return tea.Batch(t.results.SetItems(nil), textinput.Blink)
					}
					return nil
				}
				query := strings.TrimSpace(t.queryInput.Value())
				if query == "" {
					// Nothing to search; a resolved source can continue.
					if t.state.CanAdvance() {
						return func() tea.Msg { return advanceMsg{} }
					}
					return nil
				}
				token, ok := sess.Begin()
				if !ok {
					// A search is already in flight for this step.
					return nil
				}
				sess.Query = query
				return t.searchCmd(token, sess.Provider, query)
			}
			if t.state.CanAdvance() {
				return func() tea.Msg { return advanceMsg{} }
			}
			return nil

		case "down":
			if spec.Mode == wizard.ModeSearch && !t.focusList && len(sess.Results) > 0 {
				t.focusList = true
				t.queryInput.Blur()
				return nil
			}

		case "up":
			if t.focusList && t.results.Index() == 0 {
				t.focusList = false
				t.queryInput.Focus()
				return textinput.Blink
			}
		}
	}

	// Delegate remaining input to the focused control.
	var cmd tea.Cmd
	switch {
	case t.focusList:
		t.results, cmd = t.results.Update(msg)
	case spec.Mode == wizard.ModeSearch:
		t.queryInput, cmd = t.queryInput.Update(msg)
		sess.Query = t.queryInput.Value()
	default:
		t.manualInput, cmd = t.manualInput.Update(msg)
		spec.SetManual(t.manualInput.Value())
	}
	return cmd
}

// View renders the source step.
func (t *SourceStep) View() string {
	theme := config.CurrentTheme
	spec := t.spec()
	sess := t.session()
	var b strings.Builder

	b.WriteString(theme.RenderHeader(t.width-4, strings.ToUpper(t.kind.Step().String()), spec.Kind.SourceType()))
	b.WriteString("\n\n")

	// The resolved value is shown regardless of which mode is active.
	if spec.Complete() {
		b.WriteString(theme.SuccessMessage(fmt.Sprintf("resolved (%s): %s", spec.Resolved.Method, spec.Resolved.Value)))
	} else {
		b.WriteString(theme.SubtleStyle().Render("not resolved yet"))
	}
	b.WriteString("\n\n")

	if spec.Mode == wizard.ModeSearch {
		provider := "GitHub"
		if sess.Provider == builder.ProviderGitLab {
			provider = "GitLab"
		}
		b.WriteString("Search " + provider + "\n")
		b.WriteString(t.queryInput.View() + "\n")
		if sess.InFlight {
			b.WriteString(theme.InfoMessage("searching...") + "\n")
		}
		if t.searchErr != nil {
			b.WriteString(theme.ErrorMessage(t.searchErr.Error()) + "\n")
		}
		if len(sess.Results) > 0 {
			b.WriteString("\n" + t.results.View() + "\n")
		}
	} else {
		sub := "URL"
		if spec.Manual == wizard.ManualLocal {
			sub = "local path"
		}
		b.WriteString(fmt.Sprintf("Manual entry (%s)\n", sub))
		b.WriteString(t.manualInput.View() + "\n")
	}

	b.WriteString("\n")
	hints := "tab: search/manual · ctrl+p: github/gitlab · enter: continue · esc: back"
	if spec.Mode == wizard.ModeManual {
		hints = "tab: search/manual · ctrl+t: url/local · enter: continue · esc: back"
	}
	b.WriteString(theme.RenderFooter(t.width-4, hints))
	return b.String()
}
