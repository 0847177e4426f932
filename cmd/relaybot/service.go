package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const serviceName = "relaybot"

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install or remove relaybot as a systemd user service",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Write a systemd user unit that runs relaybot",
		Long: "Writes ~/.config/systemd/user/relaybot.service. The unit runs in the current\n" +
			"directory so the watch list file, settings file and .env resolve as they do now.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runtime.GOOS != "linux" {
				return fmt.Errorf("unsupported OS: %s (supported: linux)", runtime.GOOS)
			}
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("cannot determine working directory: %w", err)
			}
			settings, err := filepath.Abs(resolveSettingsPath())
			if err != nil {
				return err
			}

			unitPath := systemdUnitPath()
			if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
				return err
			}
			unit := systemdUnit(execPath, settings, workDir)
			if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service installed: %s\n", unitPath)
			fmt.Fprintf(out, "To start:  systemctl --user start %s\n", serviceName)
			fmt.Fprintf(out, "To enable: systemctl --user enable %s\n", serviceName)
			fmt.Fprintf(out, "Logs:      journalctl --user -u %s\n", serviceName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove the systemd user unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			unitPath := systemdUnitPath()
			if err := os.Remove(unitPath); err != nil {
				return fmt.Errorf("remove unit: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service uninstalled: %s\n", unitPath)
			return nil
		},
	})

	return cmd
}

func systemdUnitPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", serviceName+".service")
}

// systemdUnit renders the unit file. The .env next to the settings is
// optional (the leading "-").
func systemdUnit(execPath, settingsPath, workDir string) string {
	r := strings.NewReplacer(
		"{{EXEC}}", execPath,
		"{{SETTINGS}}", settingsPath,
		"{{WORKDIR}}", workDir,
	)
	return r.Replace(systemdTemplate)
}

const systemdTemplate = `[Unit]
Description=relaybot Discord attachment relay
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{WORKDIR}}
EnvironmentFile=-{{WORKDIR}}/.env
ExecStart={{EXEC}} run --settings {{SETTINGS}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`
