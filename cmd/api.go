package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/deckclock/cli"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/clockify"
	"github.com/grovetools/deckclock/pkg/profiling"
	"github.com/grovetools/deckclock/tui/theme"
	"github.com/spf13/cobra"
)

const tokenEnv = "CLOCKIFY_API_TOKEN"

// NewAPICmd creates the `api` command group: the lookups a key's settings
// need (user id, workspace id, project id).
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Look up Clockify ids for key settings",
		Example: `export CLOCKIFY_API_TOKEN=...
deckclock api user
deckclock api workspaces
deckclock api projects --workspace 5f1d...`,
	}
	cmd.PersistentFlags().String("token", "", "Clockify API token (default: $"+tokenEnv+")")
	cmd.AddCommand(newAPIUserCmd())
	cmd.AddCommand(newAPIWorkspacesCmd())
	cmd.AddCommand(newAPIProjectsCmd())
	return cmd
}

// apiSetup resolves the token and builds a client from the api section.
func apiSetup(cmd *cobra.Command) (*clockify.Client, string, error) {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	if token == "" {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "no API token: pass --token or set "+tokenEnv)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	return clockify.New(cfg.API), token, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := theme.DefaultTheme
	tbl := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(t.Colors.Blue)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, tbl.Render())
}

func newAPIUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the user that owns the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer profiling.Start("api.user").Stop()
			client, token, err := apiSetup(cmd)
			if err != nil {
				return err
			}
			user, err := client.GetUser(cmd.Context(), token)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd.OutOrStdout(), user)
			}
			printTable(cmd.OutOrStdout(), []string{"USER ID", "NAME", "EMAIL", "ACTIVE WORKSPACE"},
				[][]string{{user.ID, user.Name, user.Email, user.ActiveWorkspace}})
			return nil
		},
	}
}

func newAPIWorkspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List the workspaces the token can access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer profiling.Start("api.workspaces").Stop()
			client, token, err := apiSetup(cmd)
			if err != nil {
				return err
			}
			workspaces, err := client.ListWorkspaces(cmd.Context(), token)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd.OutOrStdout(), workspaces)
			}
			rows := make([][]string, 0, len(workspaces))
			for _, ws := range workspaces {
				rows = append(rows, []string{ws.ID, ws.Name})
			}
			printTable(cmd.OutOrStdout(), []string{"WORKSPACE ID", "NAME"}, rows)
			return nil
		},
	}
}

func newAPIProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the active projects of a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer profiling.Start("api.projects").Stop()
			client, token, err := apiSetup(cmd)
			if err != nil {
				return err
			}
			workspaceID, _ := cmd.Flags().GetString("workspace")
			if workspaceID == "" {
				if workspaceID, err = activeWorkspace(cmd.Context(), client, token); err != nil {
					return err
				}
			}
			projects, err := client.ListProjects(cmd.Context(), token, workspaceID)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd.OutOrStdout(), projects)
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				billable := ""
				if p.Billable {
					billable = "yes"
				}
				rows = append(rows, []string{p.ID, p.Name, p.ClientName, billable})
			}
			printTable(cmd.OutOrStdout(), []string{"PROJECT ID", "NAME", "CLIENT", "BILLABLE"}, rows)
			return nil
		},
	}
	cmd.Flags().String("workspace", "", "Workspace id (default: the user's active workspace)")
	return cmd
}

func activeWorkspace(ctx context.Context, client *clockify.Client, token string) (string, error) {
	user, err := client.GetUser(ctx, token)
	if err != nil {
		return "", err
	}
	if user.ActiveWorkspace != "" {
		return user.ActiveWorkspace, nil
	}
	return user.DefaultWorkspaceID, nil
}
