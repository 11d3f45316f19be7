// Package manifest defines the declarative install manifest: the core system
// descriptor, the theme and plugin collections, and the post-install command
// list consumed by the install orchestrator.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role determines a package's destination directory and registry path segment.
type Role string

const (
	RoleCore   Role = "core"
	RoleTheme  Role = "theme"
	RolePlugin Role = "plugin"
)

// Package describes one installable unit.
type Package struct {
	// Name is the destination folder name and the registry lookup key.
	Name string `yaml:"name"`
	// Version is optional; when empty, no version is pinned.
	Version string `yaml:"version,omitempty"`
	// Source optionally overrides registry synthesis with an absolute URL
	// or a git locator.
	Source string `yaml:"source,omitempty"`
	// Role is assigned from the collection the package was declared in.
	Role Role `yaml:"-"`
}

// Core describes the base system being provisioned.
type Core struct {
	Name    string            `yaml:"name"`
	Version string            `yaml:"version,omitempty"`
	Locale  string            `yaml:"locale,omitempty"`
	Config  map[string]string `yaml:"config,omitempty"`
}

// Manifest is the top-level install document.
type Manifest struct {
	Core        *Core     `yaml:"core,omitempty"`
	Themes      []Package `yaml:"themes,omitempty"`
	Plugins     []Package `yaml:"plugins,omitempty"`
	PostInstall []string  `yaml:"post_install,omitempty"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest YAML and assigns each package its role.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	for i := range m.Themes {
		m.Themes[i].Role = RoleTheme
	}
	for i := range m.Plugins {
		m.Plugins[i].Role = RolePlugin
	}
	return &m, nil
}

// Validate checks that every package has a name and that names are unique
// within their role's collection. A theme and a plugin may share a name
// since their destinations differ.
func (m *Manifest) Validate() error {
	if m.Core != nil && m.Core.Name == "" {
		return fmt.Errorf("core package has no name")
	}
	for role, pkgs := range map[Role][]Package{RoleTheme: m.Themes, RolePlugin: m.Plugins} {
		seen := make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			if p.Name == "" {
				return fmt.Errorf("%s package has no name", role)
			}
			if seen[p.Name] {
				return fmt.Errorf("duplicate %s name %q", role, p.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}
