// SPDX-License-Identifier: Apache-2.0
package build

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

func newTestSourceStep(t *testing.T, kind wizard.SourceKind) (*SourceStep, *wizard.State) {
	t.Helper()
	config.InitViper()
	st := wizard.New("/home/op/rom-build", "userdebug", "15")
	st.Step = kind.Step()
	step := NewSourceStep(st, builder.NewClient("http://127.0.0.1:1"), kind)
	step.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return step, st
}

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestSourceStep_EnterStartsSearch(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindDeviceTree)
	step.Enter()
	step.queryInput.SetValue("kunlun2")

	cmd := step.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a search command")
	}
	sess := st.Session(wizard.KindDeviceTree)
	if !sess.InFlight || sess.Query != "kunlun2" {
		t.Errorf("session not marked in flight: %+v", sess)
	}

	// A second enter while the search is outstanding does nothing.
	if cmd := step.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("expected the concurrent search to be refused")
	}
}

func TestSourceStep_SelectionResolvesAndClears(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindDeviceTree)
	sess := st.Session(wizard.KindDeviceTree)

	token, _ := sess.Begin()
	hits := []builder.RepositoryHit{
		{FullName: "a/device_kunlun2", CloneURL: "https://github.com/a/device_kunlun2.git"},
		{FullName: "b/device_kunlun2", CloneURL: "https://github.com/b/device_kunlun2.git"},
	}
	step.Update(searchResultsMsg{Kind: wizard.KindDeviceTree, Token: token, Hits: hits})

	if len(sess.Results) != 2 {
		t.Fatalf("results not applied: %+v", sess.Results)
	}

	// Move focus into the list and pick the highlighted hit.
	step.Update(tea.KeyMsg{Type: tea.KeyDown})
	if !step.focusList {
		t.Fatal("expected list focus after down")
	}
	step.Update(tea.KeyMsg{Type: tea.KeyEnter})

	spec := st.Spec(wizard.KindDeviceTree)
	if spec.Resolved.Method != builder.MethodGitHub {
		t.Errorf("expected github resolution, got %q", spec.Resolved.Method)
	}
	if spec.Resolved.Value != "https://github.com/a/device_kunlun2.git" {
		t.Errorf("unexpected resolved value %q", spec.Resolved.Value)
	}
	if sess.Query != "" || len(sess.Results) != 0 {
		t.Error("selection must clear the search session")
	}
}

func TestSourceStep_EnterAfterSelectionAdvances(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindDeviceTree)
	sess := st.Session(wizard.KindDeviceTree)
	step.Enter()
	step.queryInput.SetValue("kunlun2")

	token, _ := sess.Begin()
	sess.Query = "kunlun2"
	hits := []builder.RepositoryHit{{FullName: "a/device_kunlun2", CloneURL: "https://github.com/a/device_kunlun2.git"}}
	step.Update(searchResultsMsg{Kind: wizard.KindDeviceTree, Token: token, Hits: hits})

	step.Update(tea.KeyMsg{Type: tea.KeyDown})
	step.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// The rendered query clears together with the session, and focus
	// returns to the input.
	if step.queryInput.Value() != "" {
		t.Errorf("query text survived selection: %q", step.queryInput.Value())
	}
	if !step.queryInput.Focused() {
		t.Error("expected focus back on the query input after selection")
	}
	if step.focusList {
		t.Error("expected list focus released after selection")
	}

	// With the source resolved and the query empty, enter moves forward
	// instead of re-running the old search.
	cmd := step.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command from enter after selection")
	}
	if msg := cmd(); msg != (advanceMsg{}) {
		t.Errorf("expected an advance request, got %T", msg)
	}
}

func TestSourceStep_ProviderToggle(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindKernel)
	sess := st.Session(wizard.KindKernel)

	if sess.Provider != builder.ProviderGitHub {
		t.Fatalf("expected github as the default provider, got %q", sess.Provider)
	}

	token, _ := sess.Begin()
	hits := []builder.RepositoryHit{{FullName: "x/kernel", CloneURL: "https://github.com/x/kernel.git"}}
	step.Update(searchResultsMsg{Kind: wizard.KindKernel, Token: token, Hits: hits})

	step.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if sess.Provider != builder.ProviderGitLab {
		t.Errorf("expected gitlab after toggle, got %q", sess.Provider)
	}
	if len(sess.Results) != 0 {
		t.Error("results from the other provider must be dropped on toggle")
	}

	// The toggle is refused while a search is outstanding.
	if _, ok := sess.Begin(); !ok {
		t.Fatal("begin")
	}
	step.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if sess.Provider != builder.ProviderGitLab {
		t.Error("provider changed under an in-flight search")
	}
}

func TestSourceStep_StaleResponseIgnored(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindKernel)
	sess := st.Session(wizard.KindKernel)

	first, _ := sess.Begin()
	sess.Fail(first)
	second, _ := sess.Begin()

	fresh := []builder.RepositoryHit{{FullName: "x/kernel", CloneURL: "https://github.com/x/kernel.git"}}
	step.Update(searchResultsMsg{Kind: wizard.KindKernel, Token: second, Hits: fresh})

	stale := []builder.RepositoryHit{{FullName: "old/kernel", CloneURL: "https://github.com/old/kernel.git"}}
	step.Update(searchResultsMsg{Kind: wizard.KindKernel, Token: first, Hits: stale})

	if len(sess.Results) != 1 || sess.Results[0].FullName != "x/kernel" {
		t.Errorf("stale response clobbered results: %+v", sess.Results)
	}
}

func TestSourceStep_WrongKindIgnored(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindVendor)

	step.Update(searchResultsMsg{Kind: wizard.KindKernel, Token: 1, Hits: []builder.RepositoryHit{{FullName: "x/k"}}})
	if len(st.Session(wizard.KindVendor).Results) != 0 {
		t.Error("response for another kind landed in this session")
	}
}

func TestSourceStep_SearchFailureKeepsPreviousResults(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindDeviceTree)
	sess := st.Session(wizard.KindDeviceTree)

	token, _ := sess.Begin()
	hits := []builder.RepositoryHit{{FullName: "a/tree", CloneURL: "https://github.com/a/tree.git"}}
	step.Update(searchResultsMsg{Kind: wizard.KindDeviceTree, Token: token, Hits: hits})

	token, _ = sess.Begin()
	step.Update(searchResultsMsg{Kind: wizard.KindDeviceTree, Token: token, Err: errors.New("rate limited")})

	if sess.InFlight {
		t.Error("failure must clear the in-flight guard")
	}
	if len(sess.Results) != 1 {
		t.Errorf("failure must not clear previous results: %+v", sess.Results)
	}
	if step.searchErr == nil {
		t.Error("expected the error surfaced for rendering")
	}
}

func TestSourceStep_ManualEntryAndSubModeToggle(t *testing.T) {
	step, st := newTestSourceStep(t, wizard.KindVendor)
	spec := st.Spec(wizard.KindVendor)

	// tab switches to manual entry.
	step.Update(tea.KeyMsg{Type: tea.KeyTab})
	if spec.Mode != wizard.ModeManual {
		t.Fatal("expected manual mode after tab")
	}

	step.manualInput.SetValue("/srv/blobs/kunlun2")
	spec.SetManual(step.manualInput.Value())
	if spec.Resolved.Method != builder.MethodURL {
		t.Errorf("default manual sub-mode should be url, got %q", spec.Resolved.Method)
	}

	// ctrl+t re-types the held value under the other sub-mode.
	step.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if spec.Manual != wizard.ManualLocal {
		t.Fatal("expected local sub-mode after ctrl+t")
	}
	if spec.Resolved.Method != builder.MethodLocal || spec.Resolved.Value != "/srv/blobs/kunlun2" {
		t.Errorf("value not re-typed: %+v", spec.Resolved)
	}

	// enter advances now that the source is resolved.
	cmd := step.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected advance command")
	}
	if _, ok := cmd().(advanceMsg); !ok {
		t.Error("expected an advance request")
	}
}

func TestSourceStep_EscRequestsBack(t *testing.T) {
	step, _ := newTestSourceStep(t, wizard.KindKernel)

	cmd := step.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command from esc")
	}
	if _, ok := cmd().(backMsg); !ok {
		t.Error("expected a back request")
	}
}

func TestSetupStep_InstallTriggersRecheck(t *testing.T) {
	config.InitViper()
	st := wizard.New("/home/op/rom-build", "userdebug", "15")
	step := NewSetupStep(st, builder.NewClient("http://127.0.0.1:1"))

	step.Update(readinessMsg{Check: &builder.SystemCheck{
		Installed: []string{"git"},
		Missing:   []string{"repo", "openjdk-17-jdk"},
	}})
	if st.SystemReady {
		t.Fatal("missing packages must not mark the system ready")
	}

	// i starts the install only in this not-ready state.
	if cmd := step.Update(keyRunes('i')); cmd == nil {
		t.Fatal("expected install command")
	}
	if !step.installing {
		t.Fatal("expected installing state")
	}

	// Install completion triggers a fresh check instead of trusting it.
	if cmd := step.Update(installDoneMsg{}); cmd == nil {
		t.Fatal("expected a re-check command after install")
	}
	if !step.checking {
		t.Error("expected checking state after install")
	}

	step.Update(ready())
	if !st.SystemReady {
		t.Error("expected ready after successful re-check")
	}
}

func TestSetupStep_InstallFailureSurfaced(t *testing.T) {
	config.InitViper()
	st := wizard.New("/home/op/rom-build", "userdebug", "15")
	step := NewSetupStep(st, builder.NewClient("http://127.0.0.1:1"))

	step.Update(readinessMsg{Check: &builder.SystemCheck{Missing: []string{"repo"}}})
	step.Update(keyRunes('i'))
	step.Update(installDoneMsg{Err: errors.New("apt failed")})

	if step.installing || step.checking {
		t.Error("expected idle state after a failed install")
	}
	if step.checkErr == nil {
		t.Error("expected the install error surfaced")
	}
	if st.SystemReady {
		t.Error("failed install must not mark the system ready")
	}
}
