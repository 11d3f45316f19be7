// Package cli wires the provisioning pipeline to the sitekit command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	globalDir      string
	globalManifest string
	globalVerbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitekit",
	Short: "Provision a CMS installation from a declarative manifest",
	Long: `sitekit provisions a CMS installation (core system, themes, and plugins)
from a declarative YAML manifest.

Packages resolve to a download source by precedence: explicit absolute URL,
explicit git locator, owner/repo shorthand (forge archive), then the public
registry. Installed packages are skipped on re-run; use "sitekit update" to
upgrade an existing installation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if globalVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command. Called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalDir, "dir", "d", ".", "Root directory for the installation")
	rootCmd.PersistentFlags().StringVarP(&globalManifest, "manifest", "m", "site.yml", "Path to the install manifest")
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
}
