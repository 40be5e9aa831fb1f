// SPDX-License-Identifier: Apache-2.0
package builder

import "fmt"

// Source acquisition methods accepted by the builder service.
const (
	MethodGitHub = "github"
	MethodURL    = "url"
	MethodLocal  = "local"
)

// Source types recognized by the builder service.
const (
	SourceDevice = "device"
	SourceKernel = "kernel"
	SourceVendor = "vendor"
)

// Search providers the service can query. Both expose the same request and
// response shape under /api/search/<provider>.
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// Build variants accepted by the builder service.
var BuildVariants = []string{"user", "userdebug", "eng"}

// AndroidVersions the builder service can check out manifests for.
var AndroidVersions = []string{"14", "15", "16"}

// SourceConfig identifies where one source artifact comes from.
type SourceConfig struct {
	SourceType string `json:"source_type"` // device, kernel, vendor
	Method     string `json:"method"`      // github, url, local
	Value      string `json:"value"`       // clone URL or local path
}

// BuildConfig is the full build request payload.
type BuildConfig struct {
	DeviceName     string       `json:"device_name"`
	DeviceCodename string       `json:"device_codename"`
	AndroidVersion string       `json:"android_version"`
	BuildVariant   string       `json:"build_variant"` // user, userdebug, eng
	BuildDirectory string       `json:"build_directory"`
	DeviceTree     SourceConfig `json:"device_tree"`
	Kernel         SourceConfig `json:"kernel"`
	Vendor         SourceConfig `json:"vendor"`
}

// Validate reports the first missing required field. A config that fails
// validation must never be submitted to the builder service.
func (c BuildConfig) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device name is required")
	}
	if c.DeviceCodename == "" {
		return fmt.Errorf("device codename is required")
	}
	if c.AndroidVersion == "" {
		return fmt.Errorf("android version is required")
	}
	if c.BuildVariant == "" {
		return fmt.Errorf("build variant is required")
	}
	if c.BuildDirectory == "" {
		return fmt.Errorf("build directory is required")
	}
	for _, src := range []SourceConfig{c.DeviceTree, c.Kernel, c.Vendor} {
		if src.Value == "" {
			return fmt.Errorf("%s source is not resolved", src.SourceType)
		}
	}
	return nil
}

// RepositoryHit is one result from a source search.
type RepositoryHit struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	CloneURL    string `json:"clone_url"`
	Stars       int    `json:"stars"`
	UpdatedAt   string `json:"updated_at"`
}

// SystemCheck is the readiness report from the builder host.
type SystemCheck struct {
	Installed   []string `json:"installed"`
	Missing     []string `json:"missing"`
	SystemReady bool     `json:"system_ready"`
}

// Health describes the builder service itself.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Status is one poll of the in-flight build.
type Status struct {
	Active   bool   `json:"active"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	ETA      string `json:"eta"`
	BuildID  string `json:"build_id"`
}

// BuildRecord is one entry from the build history.
type BuildRecord struct {
	ID             string `json:"_id"`
	DeviceName     string `json:"device_name"`
	DeviceCodename string `json:"device_codename"`
	AndroidVersion string `json:"android_version"`
	BuildVariant   string `json:"build_variant"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	CurrentStage   string `json:"current_stage"`
	StartedAt      string `json:"started_at"`
	UpdatedAt      string `json:"updated_at"`
}
