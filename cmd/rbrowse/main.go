package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/rbrowse/cmd/rbrowse/commands"
	"github.com/slok/rbrowse/internal/log"
	loglogrus "github.com/slok/rbrowse/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("rbrowse", "Remote file browser over SSH.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	lsCmd := commands.NewLsCommand(rootCmd, app)
	volumesCmd := commands.NewVolumesCommand(rootCmd, app)
	getCmd := commands.NewGetCommand(rootCmd, app)
	putCmd := commands.NewPutCommand(rootCmd, app)
	execCmd := commands.NewExecCommand(rootCmd, app)
	mvCmd := commands.NewMvCommand(rootCmd, app)
	rmCmd := commands.NewRmCommand(rootCmd, app)
	dragCmd := commands.NewDragCommand(rootCmd, app)
	dropCmd := commands.NewDropCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	keygenCmd := commands.NewKeygenCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		lsCmd.Name():      lsCmd,
		volumesCmd.Name(): volumesCmd,
		getCmd.Name():     getCmd,
		putCmd.Name():     putCmd,
		execCmd.Name():    execCmd,
		mvCmd.Name():      mvCmd,
		rmCmd.Name():      rmCmd,
		dragCmd.Name():    dragCmd,
		dropCmd.Name():    dropCmd,
		historyCmd.Name(): historyCmd,
		keygenCmd.Name():  keygenCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Commands that print tables or JSON don't mix log lines with their output unless
	// debug is enabled.
	printerCommands := map[string]bool{
		"ls":      true,
		"volumes": true,
		"history": true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // Stdout is kept for the printers.
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled")

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
