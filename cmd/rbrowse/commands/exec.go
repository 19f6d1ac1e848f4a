package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/ssh"
)

type ExecCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	command []string
	stream  bool
	format  string
}

// NewExecCommand returns the exec command.
func NewExecCommand(rootCmd *RootCommand, app *kingpin.Application) *ExecCommand {
	c := &ExecCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("exec", "Run a command on the remote machine.")
	c.Cmd.Arg("command", "Command to execute (use -- before command).").Required().StringsVar(&c.command)
	c.Cmd.Flag("stream", "Stream the standard input and output instead of printing the result at the end.").BoolVar(&c.stream)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ExecCommand) Name() string { return c.Cmd.FullCommand() }

func (c ExecCommand) Run(ctx context.Context) error {
	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	command := strings.Join(c.command, " ")

	if c.stream {
		exitCode, err := sess.client.Exec(ctx, command, ssh.ExecOpts{
			Stdin:  c.rootCmd.Stdin,
			Stdout: c.rootCmd.Stdout,
			Stderr: c.rootCmd.Stderr,
		})
		if err != nil {
			return fmt.Errorf("could not execute command: %w", err)
		}
		if exitCode != 0 {
			return fmt.Errorf("command exited with code %d", exitCode)
		}
		return nil
	}

	res, err := sess.client.Command(ctx, command)
	if err != nil {
		return fmt.Errorf("could not execute command: %w", err)
	}
	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintCommand(*res); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d", res.ExitCode)
	}

	return nil
}
