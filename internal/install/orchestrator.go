package install

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sitekit/provision/internal/manifest"
	"github.com/sitekit/provision/internal/resolve"
	"github.com/sitekit/provision/internal/transport"
)

const defaultConcurrency = 8

// Orchestrator provisions a full installation from a manifest: it owns the
// temp workspace, installs the core system first, then all themes and
// plugins concurrently, then runs post-install commands.
type Orchestrator struct {
	paths       InstallPaths
	resolver    *resolve.Resolver
	fetcher     Fetcher
	runner      Runner
	log         *slog.Logger
	roleDirs    map[manifest.Role]string
	concurrency int
	unitTimeout time.Duration
	strictCore  bool
	adminTool   string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResolver sets the source resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithFetcher sets the archive downloader.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// WithRunner sets the external process runner.
func WithRunner(r Runner) Option {
	return func(o *Orchestrator) {
		o.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithConcurrency limits how many theme/plugin units run at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithUnitTimeout sets a per-unit deadline; an expired deadline fails the
// unit with a TimeoutError instead of stalling the run. Zero disables it.
func WithUnitTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.unitTimeout = d
	}
}

// WithStrictCore makes a core install failure abort the run instead of
// continuing best-effort into themes and plugins.
func WithStrictCore() Option {
	return func(o *Orchestrator) {
		o.strictCore = true
	}
}

// WithAdminTool sets the external management CLI whose presence gates
// post-install commands.
func WithAdminTool(name string) Option {
	return func(o *Orchestrator) {
		o.adminTool = name
	}
}

// NewOrchestrator creates an orchestrator for the given layout. The default
// fetcher is a circuit-breaker-wrapped downloader.
func NewOrchestrator(paths InstallPaths, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		paths:       paths,
		resolver:    resolve.New(resolve.Config{}),
		runner:      NewRunner(),
		log:         slog.Default(),
		concurrency: defaultConcurrency,
		adminTool:   "wp",
		roleDirs: map[manifest.Role]string{
			manifest.RoleTheme:  paths.ThemesFolder,
			manifest.RolePlugin: paths.PluginsFolder,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = transport.NewBreakerDownloader(transport.NewDownloader())
	}
	return o
}

// Failure describes one unit that did not complete.
type Failure struct {
	Name string
	Role manifest.Role
	Err  error
}

// Report summarizes a provisioning run. A run with failures is still
// best-effort complete; callers inspect Failures for what was skipped.
type Report struct {
	Installed []string
	Failures  []Failure
}

// Ok reports whether every unit completed.
func (r *Report) Ok() bool {
	return len(r.Failures) == 0
}

// InstallAll provisions everything the manifest declares. The core system is
// installed first and awaited; theme and plugin units then run concurrently
// and one unit's failure never cancels or blocks its siblings. Post-install
// commands run sequentially in declaration order when the admin tool is
// available on the host. The temp workspace is removed regardless of unit
// failures.
func (o *Orchestrator) InstallAll(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(o.paths.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp workspace: %w", err)
	}
	defer func() { _ = os.RemoveAll(o.paths.TempDir) }()

	report := &Report{}
	var mu sync.Mutex

	record := func(u *Unit, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, Failure{Name: u.Name(), Role: u.Role(), Err: err})
		} else {
			report.Installed = append(report.Installed, u.Name())
		}
	}

	// Themes and plugins are placed inside the core's directory structure,
	// so the core unit is awaited before any of them start.
	if m.Core != nil {
		core := o.newUnit(manifest.Package{
			Name:    m.Core.Name,
			Version: m.Core.Version,
			Role:    manifest.RoleCore,
		}, o.paths.BaseFolder)
		if err := core.Install(ctx); err != nil {
			o.log.Error("install failed",
				"package", core.Name(), "role", core.Role(), "dest", core.Dest(), "err", err)
			record(core, err)
			if o.strictCore {
				return report, fmt.Errorf("core install failed: %w", err)
			}
		} else {
			record(core, nil)
		}
	}

	units := make([]*Unit, 0, len(m.Plugins)+len(m.Themes))
	for _, p := range m.Plugins {
		units = append(units, o.newUnit(p, filepath.Join(o.roleDirs[p.Role], folderName(p.Name))))
	}
	for _, t := range m.Themes {
		units = append(units, o.newUnit(t, filepath.Join(o.roleDirs[t.Role], folderName(t.Name))))
	}

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u *Unit) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				record(u, ctx.Err())
				return
			}

			if err := u.Install(ctx); err != nil {
				o.log.Error("install failed",
					"package", u.Name(), "role", u.Role(), "dest", u.Dest(), "err", err)
				record(u, err)
				return
			}
			record(u, nil)
		}(u)
	}
	wg.Wait()

	o.runPostInstall(ctx, m.PostInstall)
	return report, nil
}

// runPostInstall executes manifest commands sequentially in declaration
// order; they commonly encode dependent operations, so no concurrency. A
// failing command is logged and does not abort subsequent commands.
func (o *Orchestrator) runPostInstall(ctx context.Context, commands []string) {
	if len(commands) == 0 {
		return
	}
	if !o.runner.LookPath(o.adminTool) {
		o.log.Warn("skipping post-install commands, admin tool not found", "tool", o.adminTool)
		return
	}
	for _, line := range commands {
		argv := strings.Fields(line)
		if len(argv) == 0 {
			continue
		}
		out, err := o.runner.Run(ctx, o.paths.BaseFolder, argv[0], argv[1:]...)
		if err != nil {
			o.log.Error("post-install command failed",
				"command", line, "err", err, "output", strings.TrimSpace(string(out)))
			continue
		}
		o.log.Info("post-install command completed", "command", line)
	}
}

func (o *Orchestrator) newUnit(spec manifest.Package, dest string) *Unit {
	return NewUnit(spec, dest, o.paths.TempDir, o.resolver, o.fetcher, o.runner, o.log, o.unitTimeout)
}
