// Package install runs the per-package installation workflow and the
// orchestration of a full provisioning run: core first, then themes and
// plugins concurrently, then post-install commands.
package install

import "path/filepath"

// InstallPaths is the resolved filesystem layout for one provisioning run.
// It is computed once at orchestration start and immutable for the run.
type InstallPaths struct {
	// TempDir holds downloaded archives and extraction staging; created
	// before any transfer and removed after the run.
	TempDir string
	// BaseFolder is the root of the installed core system.
	BaseFolder string
	// PluginsFolder and ThemesFolder receive plugin and theme units.
	PluginsFolder string
	ThemesFolder  string
}

// NewInstallPaths computes the layout under root for a core system named
// coreName. An empty coreName places the core directly in root.
func NewInstallPaths(root, coreName string) InstallPaths {
	base := filepath.Join(root, coreName)
	return InstallPaths{
		TempDir:       filepath.Join(root, ".provision-tmp"),
		BaseFolder:    base,
		PluginsFolder: filepath.Join(base, "wp-content", "plugins"),
		ThemesFolder:  filepath.Join(base, "wp-content", "themes"),
	}
}
