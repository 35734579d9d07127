package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/deckclock/cli"
	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/paths"
	"github.com/grovetools/deckclock/tui/theme"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the configuration",
	}
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

// PathsOutput lists where deckclock reads and writes files.
type PathsOutput struct {
	ConfigFile string `json:"config_file"`
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	LogDir     string `json:"log_dir"`
	SocketPath string `json:"socket_path"`
	PIDFile    string `json:"pid_file"`
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file and state locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				LogDir:     paths.LogDir(),
				SocketPath: statusSocket(cmd),
				PIDFile:    paths.PIDFile(),
			}
			if file := cli.GetOptions(cmd).ConfigFile; file != "" {
				out.ConfigFile = file
			} else if file, err := config.FindConfigFile(out.ConfigDir); err == nil {
				out.ConfigFile = file
			}

			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			t := theme.DefaultTheme
			file := out.ConfigFile
			if file == "" {
				file = t.Muted.Render("(none, using defaults)")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", t.Bold.Render("config file:"), file)
			fmt.Fprintf(w, "%s  %s\n", t.Bold.Render("config dir:"), out.ConfigDir)
			fmt.Fprintf(w, "%s   %s\n", t.Bold.Render("state dir:"), out.StateDir)
			fmt.Fprintf(w, "%s     %s\n", t.Bold.Render("log dir:"), out.LogDir)
			fmt.Fprintf(w, "%s      %s\n", t.Bold.Render("socket:"), out.SocketPath)
			fmt.Fprintf(w, "%s    %s\n", t.Bold.Render("pid file:"), out.PIDFile)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, defaults included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if cli.GetOptions(cmd).JSONOutput {
				format = "json"
			}

			doc := cfg.Document()
			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(doc)
			case "toml":
				data, err = toml.Marshal(doc)
			case "json":
				data, err = json.MarshalIndent(doc, "", "  ")
				data = append(data, '\n')
			default:
				return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown format %q", format))
			}
			if err != nil {
				return err
			}
			if cfg.Path != "" && format == "yaml" {
				fmt.Fprintf(cmd.OutOrStdout(), "# Source: %s\n", cfg.Path)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().String("format", "yaml", "Output format: yaml, toml or json")
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *config.Config
				err error
			)
			if len(args) == 1 {
				cfg, err = config.Load(args[0])
			} else {
				cfg, err = loadConfig(cmd)
			}
			if err != nil {
				return err
			}

			t := theme.DefaultTheme
			source := cfg.Path
			if source == "" {
				source = "defaults (no configuration file)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", t.Success.Render("valid:"), source)
			return nil
		},
	}
}
