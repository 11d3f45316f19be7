package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitekit/provision/internal/install"
	"github.com/sitekit/provision/internal/manifest"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing installation via the management CLI",
	Long: `Update the core system, themes, and plugins of an existing installation.

Installation is skip-if-present, so upgrades never happen by re-running
"install"; update delegates to the external management CLI instead.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var updateTool string

func init() {
	updateCmd.Flags().StringVar(&updateTool, "tool", "wp", "Management CLI used to perform updates")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(globalManifest)
	if err != nil {
		return err
	}
	coreName := ""
	if m.Core != nil {
		coreName = m.Core.Name
	}
	paths := install.NewInstallPaths(globalDir, coreName)

	runner := install.NewRunner()
	if !runner.LookPath(updateTool) {
		return fmt.Errorf("management CLI %q not found on PATH", updateTool)
	}

	updates := [][]string{
		{"core", "update"},
		{"theme", "update", "--all"},
		{"plugin", "update", "--all"},
	}
	failed := 0
	for _, argv := range updates {
		out, err := runner.Run(cmd.Context(), paths.BaseFolder, updateTool, argv...)
		if err != nil {
			slog.Error("update command failed",
				"command", updateTool+" "+strings.Join(argv, " "),
				"err", err, "output", strings.TrimSpace(string(out)))
			failed++
			continue
		}
		slog.Info("update command completed", "command", updateTool+" "+strings.Join(argv, " "))
	}
	if failed > 0 {
		return fmt.Errorf("%d update command(s) failed", failed)
	}
	return nil
}
