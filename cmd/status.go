package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/deckclock/cli"
	"github.com/grovetools/deckclock/internal/daemon/pidfile"
	"github.com/grovetools/deckclock/internal/daemon/server"
	"github.com/grovetools/deckclock/pkg/paths"
	"github.com/grovetools/deckclock/pkg/profiling"
	"github.com/grovetools/deckclock/tui/status"
	"github.com/grovetools/deckclock/tui/theme"
	"github.com/grovetools/deckclock/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the `status` command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the keys of the running plugin",
		Long:  "Queries the status API of the running plugin and prints every key with its activity, state and elapsed time.",
		Example: `deckclock status
deckclock status --watch
deckclock status --json`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	cmd.Flags().BoolP("watch", "w", false, "Keep the view open and refresh it")
	cmd.Flags().Duration("interval", time.Second, "Refresh interval for --watch")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().Bool("refresh", false, "Trigger a reconciliation before reading")
	return cmd
}

func statusSocket(cmd *cobra.Command) string {
	if cfg, err := loadConfig(cmd); err == nil && cfg.Status.SocketPath != "" {
		return pathutil.MustExpand(cfg.Status.SocketPath)
	}
	return paths.SocketPath()
}

func runStatus(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	noColor, _ := cmd.Flags().GetBool("no-color")
	refresh, _ := cmd.Flags().GetBool("refresh")

	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		theme.DisableColor()
	}

	client := server.NewClient(statusSocket(cmd))
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	if !client.IsRunning(ctx) {
		running, pid, _ := pidfile.IsRunning(paths.PIDFile())
		if running {
			return fmt.Errorf("deckclock (PID %d) is running but its status API at %s does not answer", pid, client.SocketPath())
		}
		return fmt.Errorf("deckclock is not running (no status API at %s)", client.SocketPath())
	}

	if refresh {
		if _, err := client.Refresh(ctx); err != nil {
			return err
		}
	}

	if watch {
		model := status.NewModel(client, interval, theme.DefaultTheme)
		_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	}

	span := profiling.Start("status.fetch")
	snap := status.Fetch(ctx, client)
	span.Stop()
	if snap.Err != nil {
		return snap.Err
	}
	if opts.JSONOutput {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), status.Render(snap, theme.DefaultTheme, cli.TerminalWidth()))
	return nil
}
