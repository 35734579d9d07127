// Package cmd implements the deckclock command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/deckclock/cli"
	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/internal/daemon"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/pkg/clockify"
	"github.com/grovetools/deckclock/pkg/profiling"
	"github.com/grovetools/deckclock/pkg/streamdeck"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the deckclock command. Run without a subcommand it is
// the plugin process the Stream Deck application launches.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("deckclock", "Clockify timers on Stream Deck keys")
	root.Long = `deckclock is a Stream Deck plugin that turns keys into Clockify timers.

The Stream Deck application starts it with -port, -pluginUUID, -registerEvent
and -info. The subcommands inspect a running instance and its configuration.`
	root.Example = `# what the Stream Deck application runs
deckclock -port 28196 -pluginUUID 5C2B -registerEvent registerPlugin -info '{}'

# show the keys of the running plugin
deckclock status --watch`
	root.Args = cobra.NoArgs
	root.RunE = runPlugin

	root.Flags().Int("port", 0, "WebSocket port of the Stream Deck application")
	root.Flags().String("pluginUUID", "", "Plugin instance identifier")
	root.Flags().String("registerEvent", "", "Event name used to register")
	root.Flags().String("info", "", "JSON description of the application and devices")

	prof := profiling.NewCobraProfiler()
	prof.AddFlags(root)
	root.PersistentPreRunE = prof.PreRun
	root.PersistentPostRun = prof.PostRun

	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewLogsCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewAPICmd())
	root.AddCommand(cli.NewVersionCommand())

	cli.SetVersionTemplate(root)
	cli.ApplyStyledHelpRecursive(root)
	return root
}

// Execute runs the command line with the host's launch arguments normalised.
func Execute(args []string) int {
	root := NewRootCmd()
	root.SetArgs(cli.NormalizeHostArgs(args))
	if err := root.Execute(); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose, root.ErrOrStderr()).Handle(err)
		return 1
	}
	return 0
}

// loadConfig loads --config when given, otherwise the default location.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defer profiling.Start("config.load").Stop()
	return config.LoadOrDefault(cli.GetOptions(cmd).ConfigFile)
}

func registrationFromFlags(cmd *cobra.Command) (streamdeck.Registration, error) {
	port, _ := cmd.Flags().GetInt("port")
	uuid, _ := cmd.Flags().GetString("pluginUUID")
	event, _ := cmd.Flags().GetString("registerEvent")
	info, _ := cmd.Flags().GetString("info")

	if port <= 0 || uuid == "" || event == "" {
		return streamdeck.Registration{}, errors.New(errors.ErrCodeInvalidInput,
			"missing -port, -pluginUUID or -registerEvent; deckclock is started by the Stream Deck application")
	}
	return streamdeck.Registration{
		Port:          port,
		PluginUUID:    uuid,
		RegisterEvent: event,
		Info:          info,
	}, nil
}

func runPlugin(cmd *cobra.Command, args []string) error {
	reg, err := registrationFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.ConfigureFrom(cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid logging section")
	}
	logger := cli.GetLogger(cmd)

	info, err := streamdeck.ParseInfo(reg.Info)
	if err != nil {
		logger.WithError(err).Warn("Ignoring malformed -info")
	}
	logger.WithFields(logrus.Fields{
		"port":        reg.Port,
		"app_version": info.Application.Version,
		"platform":    info.Application.Platform,
		"devices":     len(info.Devices),
		"config":      cfg.Path,
		"log_file":    logging.CurrentLogFile(),
	}).Info("Starting plugin")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := streamdeck.Dial(ctx, reg)
	if err != nil {
		return err
	}

	d := daemon.New(cfg, conn, clockify.New(cfg.API), daemon.Options{
		ConfigPath:  cli.GetOptions(cmd).ConfigFile,
		ForwardLogs: true,
		WatchConfig: true,
	})
	return d.Run(ctx)
}
