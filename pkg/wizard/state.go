// SPDX-License-Identifier: Apache-2.0

// Package wizard models the guided build configuration flow as a plain state
// machine. It has no rendering or transport dependencies so every transition
// can be exercised directly in tests; the TUI in cmd/build is a thin view
// over this state.
package wizard

import (
	"github.com/Rom-Forge/Forge/pkg/builder"
)

// Step is one stage of the guided configuration flow. Steps are strictly
// ordered; forward movement is gated by per-step completeness.
type Step int

const (
	StepSetup Step = iota
	StepDeviceTree
	StepKernel
	StepVendor
	StepBuildConfig
	StepDashboard
)

// String returns the display name of the step.
func (s Step) String() string {
	switch s {
	case StepSetup:
		return "System"
	case StepDeviceTree:
		return "Device Tree"
	case StepKernel:
		return "Kernel"
	case StepVendor:
		return "Vendor"
	case StepBuildConfig:
		return "Config"
	case StepDashboard:
		return "Dashboard"
	default:
		return "Unknown"
	}
}

// SourceKind identifies one of the three artifact categories that must be
// resolved before a build can start.
type SourceKind int

const (
	KindDeviceTree SourceKind = iota
	KindKernel
	KindVendor
)

// SourceType returns the wire name the builder service expects.
func (k SourceKind) SourceType() string {
	switch k {
	case KindDeviceTree:
		return builder.SourceDevice
	case KindKernel:
		return builder.SourceKernel
	case KindVendor:
		return builder.SourceVendor
	default:
		return ""
	}
}

// Step returns the wizard step that collects this source kind.
func (k SourceKind) Step() Step {
	return StepDeviceTree + Step(k)
}

// AcquisitionMode selects how a source gets resolved.
type AcquisitionMode int

const (
	ModeSearch AcquisitionMode = iota
	ModeManual
)

// ManualMethod is the sub-mode of manual entry.
type ManualMethod int

const (
	ManualURL ManualMethod = iota
	ManualLocal
)

// Resolved is the finalized descriptor for one source.
type Resolved struct {
	Method string // github, url, local
	Value  string // clone URL or local path
}

// SourceSpec tracks the resolution state of one source kind. The mode and
// sub-mode only steer the UI; the resolved descriptor is what ships.
type SourceSpec struct {
	Kind     SourceKind
	Mode     AcquisitionMode
	Manual   ManualMethod
	Resolved Resolved
}

// Complete reports whether the source has a usable resolved value.
func (s *SourceSpec) Complete() bool {
	return s.Resolved.Value != ""
}

// SetManual records a manually entered value. The method follows the current
// manual sub-mode. An empty value un-resolves the source only when the prior
// resolution also came from manual entry; a search-resolved value survives
// mode switching until an explicit new resolution.
func (s *SourceSpec) SetManual(value string) {
	method := builder.MethodURL
	if s.Manual == ManualLocal {
		method = builder.MethodLocal
	}
	if value == "" {
		if s.Resolved.Method != builder.MethodGitHub {
			s.Resolved = Resolved{}
		}
		return
	}
	s.Resolved = Resolved{Method: method, Value: value}
}

// Config returns the wire form of the resolved source.
func (s *SourceSpec) Config() builder.SourceConfig {
	return builder.SourceConfig{
		SourceType: s.Kind.SourceType(),
		Method:     s.Resolved.Method,
		Value:      s.Resolved.Value,
	}
}

// SearchSession is the ephemeral search state for one source step. Requests
// carry a monotonically increasing token so a slow response can never
// clobber the results of a later query. The provider choice is sticky for
// the step; it survives selections and navigation.
type SearchSession struct {
	Provider string // github or gitlab
	Query    string
	Results  []builder.RepositoryHit
	InFlight bool

	lastToken int
}

// ToggleProvider flips between the two search providers and drops the
// current results, which belong to the other provider's ranking.
func (s *SearchSession) ToggleProvider() {
	if s.Provider == builder.ProviderGitLab {
		s.Provider = builder.ProviderGitHub
	} else {
		s.Provider = builder.ProviderGitLab
	}
	s.Results = nil
}

// Begin marks a search as in flight and returns its token. It refuses a
// second search while one is outstanding.
func (s *SearchSession) Begin() (token int, ok bool) {
	if s.InFlight {
		return 0, false
	}
	s.lastToken++
	s.InFlight = true
	return s.lastToken, true
}

// Apply installs the results for token. Responses for any token other than
// the latest issued are discarded. The in-flight guard clears either way so
// the operator can search again.
func (s *SearchSession) Apply(token int, hits []builder.RepositoryHit) bool {
	s.InFlight = false
	if token != s.lastToken {
		return false
	}
	s.Results = hits
	return true
}

// Fail clears the in-flight guard after a failed search without touching
// the previous results.
func (s *SearchSession) Fail(token int) {
	if token == s.lastToken {
		s.InFlight = false
	}
}

// Select resolves the owning spec to the i-th hit and clears the session in
// the same update, so stale results are never shown after a selection.
func (s *SearchSession) Select(i int, spec *SourceSpec) bool {
	if i < 0 || i >= len(s.Results) {
		return false
	}
	spec.Resolved = Resolved{Method: builder.MethodGitHub, Value: s.Results[i].CloneURL}
	s.Query = ""
	s.Results = nil
	return true
}

// State is the full wizard state aggregate.
type State struct {
	Step        Step
	SystemReady bool

	Specs    [3]*SourceSpec
	Sessions [3]*SearchSession

	DeviceName     string
	DeviceCodename string
	AndroidVersion string
	BuildVariant   string
	BuildDirectory string
}

// New creates wizard state at the Setup step with the given build defaults.
func New(buildDir, variant, androidVersion string) *State {
	st := &State{
		AndroidVersion: androidVersion,
		BuildVariant:   variant,
		BuildDirectory: buildDir,
	}
	st.reset()
	return st
}

func (st *State) reset() {
	st.Step = StepSetup
	for k := KindDeviceTree; k <= KindVendor; k++ {
		st.Specs[k] = &SourceSpec{Kind: k}
		st.Sessions[k] = &SearchSession{Provider: builder.ProviderGitHub}
	}
	st.DeviceName = ""
	st.DeviceCodename = ""
}

// Reset returns the wizard to its initial state: step 0, all sources and
// search sessions cleared. Build defaults (directory, variant, version) are
// configuration, not collected data, and survive the reset.
func (st *State) Reset() {
	st.reset()
}

// Spec returns the source spec for kind.
func (st *State) Spec(kind SourceKind) *SourceSpec {
	return st.Specs[kind]
}

// Session returns the search session for kind.
func (st *State) Session(kind SourceKind) *SearchSession {
	return st.Sessions[kind]
}

// CanAdvance reports whether the current step's forward gate is open.
// Gating is purely local; no remote validation happens here.
func (st *State) CanAdvance() bool {
	switch st.Step {
	case StepSetup:
		return st.SystemReady
	case StepDeviceTree, StepKernel, StepVendor:
		return st.Specs[st.Step-StepDeviceTree].Complete()
	case StepBuildConfig:
		_, err := st.BuildConfig()
		return err == nil
	default:
		return false
	}
}

// Advance moves to the next step when the gate is open.
func (st *State) Advance() bool {
	if !st.CanAdvance() || st.Step >= StepDashboard {
		return false
	}
	st.Step++
	return true
}

// Back moves one step backward without validation. Collected data is kept;
// re-entering a step repopulates from the still-held state. Backing out of
// Setup or the Dashboard is not a navigation, so it is refused here.
func (st *State) Back() bool {
	if st.Step <= StepSetup || st.Step >= StepDashboard {
		return false
	}
	st.Step--
	return true
}

// BuildConfig assembles the submission payload. It fails if any required
// field is missing, which keeps incomplete requests away from the wire.
func (st *State) BuildConfig() (builder.BuildConfig, error) {
	cfg := builder.BuildConfig{
		DeviceName:     st.DeviceName,
		DeviceCodename: st.DeviceCodename,
		AndroidVersion: st.AndroidVersion,
		BuildVariant:   st.BuildVariant,
		BuildDirectory: st.BuildDirectory,
		DeviceTree:     st.Specs[KindDeviceTree].Config(),
		Kernel:         st.Specs[KindKernel].Config(),
		Vendor:         st.Specs[KindVendor].Config(),
	}
	if err := cfg.Validate(); err != nil {
		return builder.BuildConfig{}, err
	}
	return cfg, nil
}
