package install

import (
	"context"
	"encoding/json"
	"errors"
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

// Status tracks a unit's progress through its installation workflow. A unit
// moves forward only; Failed is terminal and reachable from any earlier
// status.
type Status string

const (
	StatusPending      Status = "pending"
	StatusResolved     Status = "resolved"
	StatusDownloading  Status = "downloading"
	StatusCloning      Status = "cloning"
	StatusExtracted    Status = "extracted"
	StatusRelocated    Status = "relocated"
	StatusBuildChecked Status = "build-checked"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// Fetcher downloads a URL into a local file, skipping files that already
// exist. Satisfied by transport.Downloader and transport.BreakerDownloader.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Unit installs one package into its destination directory. One unit per
// package per destination; Install must not be invoked concurrently on the
// same unit.
type Unit struct {
	spec     manifest.Package
	dest     string
	tempDir  string
	resolver *resolve.Resolver
	fetcher  Fetcher
	runner   Runner
	log      *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	status Status
}

// NewUnit builds a unit that installs spec into dest, staging downloads in
// tempDir. A zero timeout disables the per-unit deadline.
func NewUnit(spec manifest.Package, dest, tempDir string, resolver *resolve.Resolver, fetcher Fetcher, runner Runner, log *slog.Logger, timeout time.Duration) *Unit {
	if log == nil {
		log = slog.Default()
	}
	return &Unit{
		spec:     spec,
		dest:     dest,
		tempDir:  tempDir,
		resolver: resolver,
		fetcher:  fetcher,
		runner:   runner,
		log:      log,
		timeout:  timeout,
		status:   StatusPending,
	}
}

// Name returns the package name.
func (u *Unit) Name() string {
	return u.spec.Name
}

// Role returns the package role.
func (u *Unit) Role() manifest.Role {
	return u.spec.Role
}

// Dest returns the destination directory.
func (u *Unit) Dest() string {
	return u.dest
}

// Status returns the unit's current workflow status.
func (u *Unit) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

func (u *Unit) setStatus(s Status) {
	u.mu.Lock()
	u.status = s
	u.mu.Unlock()
}

// Install runs the unit's workflow to completion. Any transport, extraction,
// clone, or build failure moves the unit to Failed and is returned to the
// caller; it never panics across the unit boundary.
func (u *Unit) Install(ctx context.Context) error {
	cancel := context.CancelFunc(func() {})
	if u.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
	}
	defer cancel()

	err := u.install(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Package: u.spec.Name, Timeout: u.timeout, Err: err}
		}
		u.setStatus(StatusFailed)
	}
	return err
}

func (u *Unit) install(ctx context.Context) error {
	// Skip-if-present: a pre-existing destination is never refreshed by
	// re-running installation. Upgrades go through the update workflow.
	if _, err := os.Stat(u.dest); err == nil {
		u.log.Info("already installed, skipping",
			"package", u.spec.Name, "role", u.spec.Role)
		u.setStatus(StatusDone)
		return nil
	}

	src, err := u.resolver.Resolve(u.spec)
	if err != nil {
		return err
	}
	u.setStatus(StatusResolved)

	if src.CloneURL != "" {
		u.setStatus(StatusCloning)
		if err := u.clone(ctx, src); err != nil {
			return err
		}
		u.setStatus(StatusRelocated)
	} else {
		u.setStatus(StatusDownloading)
		if err := u.download(ctx, src); err != nil {
			return err
		}
	}

	if err := u.secondaryBuild(ctx); err != nil {
		return err
	}
	u.setStatus(StatusBuildChecked)

	u.log.Info("installed", "package", u.spec.Name, "role", u.spec.Role, "source", src.Kind.String())
	u.setStatus(StatusDone)
	return nil
}

// clone checks the git source out directly into the destination, bypassing
// the temp/extract/relocate steps.
func (u *Unit) clone(ctx context.Context, src resolve.Source) error {
	if err := os.MkdirAll(filepath.Dir(u.dest), 0o755); err != nil {
		return err
	}
	args := []string{"clone", "--depth", "1"}
	if u.spec.Version != "" {
		args = append(args, "--branch", src.Ref)
	}
	args = append(args, src.CloneURL, u.dest)

	out, err := u.runner.Run(ctx, "", "git", args...)
	if err != nil {
		return &CloneError{URL: src.CloneURL, Output: string(out), Err: err}
	}
	return nil
}

// download fetches the archive into the temp workspace, extracts it, and
// relocates the detected root folder into the destination.
func (u *Unit) download(ctx context.Context, src resolve.Source) error {
	archive := filepath.Join(u.tempDir, u.archiveName())
	if err := u.fetcher.Fetch(ctx, src.URL, archive); err != nil {
		return err
	}

	stage := filepath.Join(u.tempDir, u.stageName())
	root, err := transport.Extract(archive, stage)
	if err != nil {
		return err
	}
	u.setStatus(StatusExtracted)

	// The archive's internal folder rarely matches the logical package
	// name; move whatever root extraction detected, but only when it is
	// a directory (a flat single-file archive reports that file as its
	// root). Otherwise fall back to a folder named after the package,
	// then to the stage itself.
	from := stage
	if p := filepath.Join(stage, root); root != "" && dirExists(p) {
		from = p
	} else if p := filepath.Join(stage, u.folderName()); dirExists(p) {
		from = p
	}

	if err := os.MkdirAll(filepath.Dir(u.dest), 0o755); err != nil {
		return err
	}
	if err := os.Rename(from, u.dest); err != nil {
		return fmt.Errorf("relocating %s: %w", u.spec.Name, err)
	}
	u.setStatus(StatusRelocated)
	return nil
}

// secondaryBuild installs and builds JS dependencies when the destination
// ships its own build manifest. Absence of a manifest is not an error.
func (u *Unit) secondaryBuild(ctx context.Context) error {
	data, err := os.ReadFile(filepath.Join(u.dest, "package.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	installArgs := []string{"install"}
	if _, err := os.Stat(filepath.Join(u.dest, "package-lock.json")); err == nil {
		// Lockfile present: use the reproducible install variant.
		installArgs = []string{"ci"}
	}
	out, err := u.runner.Run(ctx, u.dest, "npm", installArgs...)
	if err != nil {
		return &SecondaryBuildError{Dir: u.dest, Output: string(out), Err: err}
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err == nil && pkg.Scripts["build"] != "" {
		out, err := u.runner.Run(ctx, u.dest, "npm", "run", "build")
		if err != nil {
			return &SecondaryBuildError{Dir: u.dest, Output: string(out), Err: err}
		}
	}
	return nil
}

// archiveName is the unit's uniquely named file inside the shared temp
// workspace; uniqueness per role+name avoids write-write conflicts between
// concurrent units.
func (u *Unit) archiveName() string {
	return fmt.Sprintf("%s-%s.zip", u.spec.Role, u.folderName())
}

func (u *Unit) stageName() string {
	return fmt.Sprintf("%s-%s", u.spec.Role, u.folderName())
}

func (u *Unit) folderName() string {
	return folderName(u.spec.Name)
}

// folderName flattens a package name into a single path segment; owner/repo
// shorthand names would otherwise nest.
func folderName(name string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(name)
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
