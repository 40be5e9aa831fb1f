// SPDX-License-Identifier: Apache-2.0
package build

import (
	"github.com/Rom-Forge/Forge/pkg/builder"
	"github.com/Rom-Forge/Forge/pkg/monitor"
	"github.com/Rom-Forge/Forge/pkg/wizard"
)

// advanceMsg asks the wizard to move to the next step.
type advanceMsg struct{}

// backMsg asks the wizard to move one step back.
type backMsg struct{}

// newBuildMsg restarts the wizard from a terminal dashboard.
type newBuildMsg struct{}

// readinessMsg carries the system readiness check result.
type readinessMsg struct {
	Check *builder.SystemCheck
	Err   error
}

// installDoneMsg signals the dependency install finished.
type installDoneMsg struct {
	Err error
}

// searchResultsMsg carries one search response, tagged with the request
// token so stale responses can be discarded.
type searchResultsMsg struct {
	Kind  wizard.SourceKind
	Token int
	Hits  []builder.RepositoryHit
	Err   error
}

// submitResultMsg carries the build submission outcome.
type submitResultMsg struct {
	BuildID string
	Err     error
}

// buildSnapshotMsg carries one monitor snapshot. Open is false once the
// monitor has shut down and no further snapshots will arrive.
type buildSnapshotMsg struct {
	Snap monitor.Snapshot
	Open bool
}
