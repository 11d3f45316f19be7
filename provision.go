// Package provision automates installation of a CMS (the core system plus
// themes and plugins) from a declarative manifest: it resolves each package
// to a download URL or git source, fetches and extracts archives into the
// target directory layout, and triggers secondary builds for packages that
// ship their own build manifest.
//
// Basic usage:
//
//	m, err := provision.LoadManifest("site.yml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	paths := provision.NewInstallPaths(".", m.Core.Name)
//	orch := provision.NewOrchestrator(paths)
//	report, err := orch.InstallAll(context.Background(), m)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, f := range report.Failures {
//		fmt.Println("failed:", f.Name, f.Err)
//	}
//
// The core system installs first; themes and plugins then install
// concurrently with per-package failure isolation. A package whose
// destination folder already exists is skipped, so repeated runs are cheap.
package provision

import (
	"github.com/sitekit/provision/internal/install"
	"github.com/sitekit/provision/internal/manifest"
	"github.com/sitekit/provision/internal/resolve"
	"github.com/sitekit/provision/internal/transport"
)

// Re-export types from internal/manifest
type (
	// Manifest is the declarative input document describing what to install.
	Manifest = manifest.Manifest

	// Package describes one installable unit.
	Package = manifest.Package

	// Core describes the base system being provisioned.
	Core = manifest.Core

	// Role determines a package's destination directory and registry path.
	Role = manifest.Role
)

// Re-export role constants
const (
	RoleCore   = manifest.RoleCore
	RoleTheme  = manifest.RoleTheme
	RolePlugin = manifest.RolePlugin
)

// Re-export types from internal/install
type (
	// InstallPaths is the resolved filesystem layout for one run.
	InstallPaths = install.InstallPaths

	// Orchestrator provisions a full installation from a manifest.
	Orchestrator = install.Orchestrator

	// Report summarizes a provisioning run.
	Report = install.Report

	// Failure describes one unit that did not complete.
	Failure = install.Failure

	// Unit installs one package into its destination directory.
	Unit = install.Unit

	// Runner executes external tools with discrete argument vectors.
	Runner = install.Runner

	// Fetcher downloads a URL into a local file.
	Fetcher = install.Fetcher
)

// Re-export resolver types
type (
	// Resolver computes download URLs and clone targets for packages.
	Resolver = resolve.Resolver

	// ResolverConfig holds the hosts and defaults URL synthesis works against.
	ResolverConfig = resolve.Config

	// Source is the resolved origin for one package.
	Source = resolve.Source
)

// Error types
type (
	TransportError      = transport.TransportError
	ExtractionError     = transport.ExtractionError
	InvalidSourceError  = resolve.InvalidSourceError
	CloneError          = install.CloneError
	SecondaryBuildError = install.SecondaryBuildError
	TimeoutError        = install.TimeoutError
)

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	return manifest.Load(path)
}

// ParseManifest decodes manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	return manifest.Parse(data)
}

// NewInstallPaths computes the filesystem layout under root for a core
// system named coreName.
func NewInstallPaths(root, coreName string) InstallPaths {
	return install.NewInstallPaths(root, coreName)
}

// NewOrchestrator creates an orchestrator for the given layout.
func NewOrchestrator(paths InstallPaths, opts ...Option) *Orchestrator {
	return install.NewOrchestrator(paths, opts...)
}

// Option configures an Orchestrator.
type Option = install.Option

// Orchestrator options.
var (
	WithResolver    = install.WithResolver
	WithFetcher     = install.WithFetcher
	WithRunner      = install.WithRunner
	WithLogger      = install.WithLogger
	WithConcurrency = install.WithConcurrency
	WithUnitTimeout = install.WithUnitTimeout
	WithStrictCore  = install.WithStrictCore
	WithAdminTool   = install.WithAdminTool
)

// NewResolver creates a resolver, filling empty config fields with the
// canonical public hosts.
func NewResolver(cfg ResolverConfig) *Resolver {
	return resolve.New(cfg)
}

// NewDownloader creates a plain HTTP downloader.
func NewDownloader(opts ...transport.Option) *transport.Downloader {
	return transport.NewDownloader(opts...)
}

// NewBreakerDownloader wraps a downloader with per-host circuit breakers.
func NewBreakerDownloader(d *transport.Downloader) *transport.BreakerDownloader {
	return transport.NewBreakerDownloader(d)
}
