package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/explorer"
)

type MvCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path    string
	newName string
}

// NewMvCommand returns the mv command.
func NewMvCommand(rootCmd *RootCommand, app *kingpin.Application) *MvCommand {
	c := &MvCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("mv", "Rename a remote file or directory in place.")
	c.Cmd.Arg("path", "Remote path.").Required().StringVar(&c.path)
	c.Cmd.Arg("new-name", "New name (no separators).").Required().StringVar(&c.newName)

	return c
}

func (c MvCommand) Name() string { return c.Cmd.FullCommand() }

func (c MvCommand) Run(ctx context.Context) error {
	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		ids, err := sess.resolve(ctx, svc, []string{c.path})
		if err != nil {
			return err
		}

		p, err := svc.Rename(ctx, ids[0], c.newName)
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}

		c.rootCmd.Logger.Infof("Renamed %s to %s", c.path, c.newName)
		return nil
	})
}

type RmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	paths []string
	yes   bool
}

// NewRmCommand returns the rm command.
func NewRmCommand(rootCmd *RootCommand, app *kingpin.Application) *RmCommand {
	c := &RmCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Delete remote files and directories.")
	c.Cmd.Arg("paths", "Remote paths.").Required().StringsVar(&c.paths)
	c.Cmd.Flag("yes", "Don't ask for confirmation.").Short('y').BoolVar(&c.yes)

	return c
}

func (c RmCommand) Name() string { return c.Cmd.FullCommand() }

func (c RmCommand) Run(ctx context.Context) error {
	var confirmer explorer.Confirmer = promptConfirmer(c.rootCmd.Stdin, c.rootCmd.Stderr)
	if c.yes {
		confirmer = explorer.ConfirmFunc(func(context.Context, []string) (bool, error) { return true, nil })
	}

	sess, err := newSession(ctx, c.rootCmd, confirmer)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		ids, err := sess.resolve(ctx, svc, c.paths)
		if err != nil {
			return err
		}

		p, err := svc.Delete(ctx, ids)
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}

		c.rootCmd.Logger.Infof("Deleted %d items", len(ids))
		return nil
	})
}

// promptConfirmer asks the user on the terminal, only an explicit yes confirms.
func promptConfirmer(in io.Reader, out io.Writer) explorer.ConfirmFunc {
	return func(_ context.Context, names []string) (bool, error) {
		fmt.Fprintf(out, "Delete %s? [y/N]: ", strings.Join(names, ", "))

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("could not read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
