// Package resolve computes the concrete fetch source for each manifest
// package: an absolute URL used verbatim, a git repository (cloned for
// explicit .git locators, downloaded as a forge archive for owner/repo
// shorthand), or a registry URL synthesized from name, version, and role.
package resolve

import (
	"fmt"
	"strings"

	"github.com/sitekit/provision/internal/manifest"
)

// Kind identifies the variant of a resolved source.
type Kind int

const (
	AbsoluteURL Kind = iota
	GitRepository
	Registry
)

func (k Kind) String() string {
	switch k {
	case AbsoluteURL:
		return "url"
	case GitRepository:
		return "git"
	case Registry:
		return "registry"
	default:
		return "unknown"
	}
}

// Source is the resolved origin for one package.
type Source struct {
	Kind Kind
	// URL is the download target. Empty when CloneURL is set.
	URL string
	// CloneURL is the git clone target for explicit .git locators; units
	// clone it directly into the destination instead of downloading.
	CloneURL string
	// Ref is the tag or branch a git source targets.
	Ref string
}

// InvalidSourceError reports a malformed package name/source combination,
// such as a multi-slash name with no recognizable git locator.
type InvalidSourceError struct {
	Name   string
	Source string
	Reason string
}

func (e *InvalidSourceError) Error() string {
	origin := e.Source
	if origin == "" {
		origin = e.Name
	}
	return fmt.Sprintf("invalid source %q for package %q: %s", origin, e.Name, e.Reason)
}

// Config holds the hosts and defaults URL synthesis works against. Locale is
// injected here rather than read from ambient environment state so the
// resolver stays pure.
type Config struct {
	// Scheme for synthesized URLs; "https" unless overridden (tests point
	// resolution at plain-HTTP servers).
	Scheme string
	// RegistryHost serves synthesized plugin/theme archives.
	RegistryHost string
	// VCSHost serves owner/repo archive downloads.
	VCSHost string
	// DefaultBranch is targeted by git sources when no version is pinned.
	DefaultBranch string
	// CoreHost serves core system archives; localized variants get a
	// locale subdomain.
	CoreHost string
	// Product is the core archive basename.
	Product string
	// Locale selects a localized core download host. Locales beginning
	// with "en" use the canonical host.
	Locale string
}

// DefaultConfig returns the canonical public hosts.
func DefaultConfig() Config {
	return Config{
		Scheme:        "https",
		RegistryHost:  "downloads.wordpress.org",
		VCSHost:       "github.com",
		DefaultBranch: "main",
		CoreHost:      "wordpress.org",
		Product:       "wordpress",
	}
}

// Resolver computes download URLs and clone targets for packages.
type Resolver struct {
	cfg Config
}

// New creates a resolver, filling empty config fields from DefaultConfig.
func New(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.Scheme == "" {
		cfg.Scheme = def.Scheme
	}
	if cfg.RegistryHost == "" {
		cfg.RegistryHost = def.RegistryHost
	}
	if cfg.VCSHost == "" {
		cfg.VCSHost = def.VCSHost
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = def.DefaultBranch
	}
	if cfg.CoreHost == "" {
		cfg.CoreHost = def.CoreHost
	}
	if cfg.Product == "" {
		cfg.Product = def.Product
	}
	return &Resolver{cfg: cfg}
}

// Resolve computes the fetch source for a package. Precedence, first match
// wins: explicit absolute URL, explicit git locator, owner/repo shorthand,
// registry synthesis. Core packages with no explicit source fall through to
// the core download host.
func (r *Resolver) Resolve(spec manifest.Package) (Source, error) {
	// A .git locator is checked before the generic absolute-URL test: an
	// https clone URL is also absolute, but it must be cloned, not fetched.
	if strings.HasSuffix(spec.Source, ".git") {
		return Source{Kind: GitRepository, CloneURL: spec.Source, Ref: spec.Version}, nil
	}
	if isAbsoluteURL(spec.Source) {
		return Source{Kind: AbsoluteURL, URL: spec.Source}, nil
	}
	if isAbsoluteURL(spec.Name) {
		return Source{Kind: AbsoluteURL, URL: spec.Name}, nil
	}
	if spec.Source != "" {
		return Source{}, &InvalidSourceError{Name: spec.Name, Source: spec.Source,
			Reason: "explicit source is neither an absolute URL nor a git locator"}
	}

	if strings.Contains(spec.Name, "/") {
		owner, repo, ok := splitOwnerRepo(spec.Name)
		if !ok {
			return Source{}, &InvalidSourceError{Name: spec.Name,
				Reason: "name must be plain, an absolute URL, or a two-segment owner/repo pair"}
		}
		ref := "refs/heads/" + r.cfg.DefaultBranch
		target := r.cfg.DefaultBranch
		if spec.Version != "" {
			ref = "refs/tags/" + spec.Version
			target = spec.Version
		}
		url := fmt.Sprintf("%s://%s/%s/%s/archive/%s.zip", r.cfg.Scheme, r.cfg.VCSHost, owner, repo, ref)
		return Source{Kind: GitRepository, URL: url, Ref: target}, nil
	}

	if spec.Role == manifest.RoleCore {
		return Source{Kind: Registry, URL: r.CoreURL(spec.Version)}, nil
	}
	return Source{Kind: Registry, URL: r.registryURL(spec)}, nil
}

// registryURL builds <registry-host>/<plugins|themes>/<name>[.<version>].zip.
func (r *Resolver) registryURL(spec manifest.Package) string {
	rolePath := "plugins"
	if spec.Role == manifest.RoleTheme {
		rolePath = "themes"
	}
	name := spec.Name
	if spec.Version != "" {
		name += "." + spec.Version
	}
	return fmt.Sprintf("%s://%s/%s/%s.zip", r.cfg.Scheme, r.cfg.RegistryHost, rolePath, name)
}

// CoreURL builds the core system download URL, swapping in the localized
// host and locale suffix when the configured locale is not a base English
// variant.
func (r *Resolver) CoreURL(version string) string {
	if version == "" {
		return fmt.Sprintf("%s://%s/latest.zip", r.cfg.Scheme, r.cfg.CoreHost)
	}
	locale := r.cfg.Locale
	if locale == "" || strings.HasPrefix(locale, "en") {
		return fmt.Sprintf("%s://%s/%s-%s.zip", r.cfg.Scheme, r.cfg.CoreHost, r.cfg.Product, version)
	}
	sub := locale
	if idx := strings.IndexAny(locale, "_-"); idx > 0 {
		sub = locale[:idx]
	}
	return fmt.Sprintf("%s://%s.%s/%s-%s-%s.zip", r.cfg.Scheme, sub, r.cfg.CoreHost, r.cfg.Product, version, locale)
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// splitOwnerRepo parses an owner/repo shorthand: exactly one slash, both
// sides non-empty.
func splitOwnerRepo(name string) (owner, repo string, ok bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
