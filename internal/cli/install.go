package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitekit/provision/internal/install"
	"github.com/sitekit/provision/internal/manifest"
	"github.com/sitekit/provision/internal/resolve"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the core system, themes, and plugins from the manifest",
	Long: `Install everything the manifest declares. The core system installs first;
themes and plugins then install concurrently. Packages whose destination
folder already exists are skipped.

Examples:
  sitekit install
  sitekit install -m site.yml -d /var/www
  sitekit install --timeout 5m --strict-core`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

var (
	installTimeout    time.Duration
	installStrictCore bool
	installLocale     string
)

func init() {
	installCmd.Flags().DurationVar(&installTimeout, "timeout", 0, "Per-package timeout (0 disables)")
	installCmd.Flags().BoolVar(&installStrictCore, "strict-core", false, "Abort the run if the core install fails")
	installCmd.Flags().StringVar(&installLocale, "locale", "", "Locale for the core download (e.g. de_DE)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(globalManifest)
	if err != nil {
		return err
	}

	coreName := ""
	locale := installLocale
	if m.Core != nil {
		coreName = m.Core.Name
		if locale == "" {
			locale = m.Core.Locale
		}
	}

	paths := install.NewInstallPaths(globalDir, coreName)
	opts := []install.Option{
		install.WithResolver(resolve.New(resolve.Config{Locale: locale})),
		install.WithLogger(slog.Default()),
		install.WithUnitTimeout(installTimeout),
	}
	if installStrictCore {
		opts = append(opts, install.WithStrictCore())
	}

	orch := install.NewOrchestrator(paths, opts...)
	report, err := orch.InstallAll(cmd.Context(), m)
	if err != nil {
		return err
	}

	fmt.Printf("Installed %d package(s)\n", len(report.Installed))
	if !report.Ok() {
		for _, f := range report.Failures {
			fmt.Printf("failed: %s %s: %v\n", f.Role, f.Name, f.Err)
		}
		return fmt.Errorf("%d package(s) failed", len(report.Failures))
	}
	return nil
}
